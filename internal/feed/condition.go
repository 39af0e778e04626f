package feed

import (
	"strconv"
	"strings"
)

// Condition is a display text and icon key pair.
type Condition struct {
	Text string
	Icon string
}

// Unknown is returned when neither code maps to a condition.
var Unknown = Condition{Text: "-", Icon: "unknown"}

var precipConditions = map[string]Condition{
	"1": {Text: "비", Icon: "rain"},
	"2": {Text: "비/눈", Icon: "sleet"},
	"3": {Text: "눈", Icon: "snow"},
	"4": {Text: "소나기", Icon: "shower"},
	"5": {Text: "빗방울", Icon: "rain"},
	"6": {Text: "빗방울눈날림", Icon: "sleet"},
	"7": {Text: "눈날림", Icon: "snow"},
}

var skyConditions = map[string]Condition{
	"1": {Text: "맑음", Icon: "sunny"},
	"3": {Text: "구름많음", Icon: "cloudy"},
	"4": {Text: "흐림", Icon: "overcast"},
}

// ConditionFor maps precipitation type and sky codes to a Condition. A
// non-zero precipitation type is decided before the sky code is consulted.
func ConditionFor(pty, sky string, hasPty, hasSky bool) Condition {
	if hasPty {
		code := normalizeCode(pty)
		if c, ok := precipConditions[code]; ok {
			return c
		}
		if code != "0" {
			return Unknown
		}
	}
	if hasSky {
		if c, ok := skyConditions[normalizeCode(sky)]; ok {
			return c
		}
	}
	return Unknown
}

// ConditionAt looks up the condition of a forecast slot.
func (w Window) ConditionAt(date, slot string) Condition {
	pty, hasPty := w.Lookup(date, slot, CategoryPrecipType)
	sky, hasSky := w.Lookup(date, slot, CategorySky)
	return ConditionFor(pty, sky, hasPty, hasSky)
}

// normalizeCode turns "1.0" or " 1" into "1".
func normalizeCode(s string) string {
	s = strings.TrimSpace(s)
	if n := ParseInt(s); n != nil {
		return strconv.Itoa(*n)
	}
	return s
}
