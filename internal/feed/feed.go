// Package feed normalizes raw nowcast and village forecast records into
// typed lookups and human-facing condition summaries.
package feed

import (
	"math"
	"strconv"
	"strings"

	"github.com/kjstillabower/weather-outfit-service/internal/models"
)

// Category codes used by both feeds.
const (
	CategoryTempNow      = "T1H" // nowcast temperature, °C
	CategoryTempForecast = "TMP" // hourly forecast temperature, °C
	CategoryHumidity     = "REH" // relative humidity, %
	CategoryWindSpeed    = "WSD" // wind speed, m/s
	CategorySky          = "SKY"
	CategoryPrecipType   = "PTY"
	CategoryPrecipChance = "POP" // probability of precipitation, %
)

// missingSentinel is the magnitude at and above which the upstream encodes
// a missing numeric value (e.g. -999, 900).
const missingSentinel = 900

// Observation is the latest nowcast value per category.
type Observation map[string]string

// LatestObservation reduces records to the last value seen per category.
func LatestObservation(records []models.FeedRecord) Observation {
	out := make(Observation, len(records))
	for _, r := range records {
		if v, ok := r.Value(); ok {
			out[r.Category] = v
		}
	}
	return out
}

// Float returns the numeric value of category, or nil if absent or not a
// usable number.
func (o Observation) Float(category string) *float64 {
	v, ok := o[category]
	if !ok {
		return nil
	}
	return ParseFloat(v)
}

// ParseFloat parses a feed value. Non-numeric text and missing-value
// sentinels yield nil.
func ParseFloat(s string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) >= missingSentinel {
		return nil
	}
	return &v
}

// ParseInt parses a feed value and rounds it to the nearest integer.
func ParseInt(s string) *int {
	f := ParseFloat(s)
	if f == nil {
		return nil
	}
	n := int(math.Round(*f))
	return &n
}

// Window is an ordered forecast batch anchored to one base time.
type Window struct {
	records []models.FeedRecord
}

// NewWindow wraps records without copying; callers must not mutate them.
func NewWindow(records []models.FeedRecord) Window {
	return Window{records: records}
}

// Len returns the number of records in the window.
func (w Window) Len() int {
	return len(w.records)
}

// Lookup returns the value of the first record matching date, time slot and
// category. There is no interpolation between slots.
func (w Window) Lookup(date, slot, category string) (string, bool) {
	for _, r := range w.records {
		if r.FcstDate == date && r.FcstTime == slot && r.Category == category {
			if v, ok := r.Value(); ok {
				return v, true
			}
		}
	}
	return "", false
}

// Has reports whether any record exists for the given slot.
func (w Window) Has(date, slot string) bool {
	for _, r := range w.records {
		if r.FcstDate == date && r.FcstTime == slot {
			return true
		}
	}
	return false
}

// HighLow returns the rounded max and min of every temperature record on
// date. Both are nil when there are none.
func (w Window) HighLow(date string) (high, low *int) {
	var hi, lo float64
	found := false
	for _, r := range w.records {
		if r.FcstDate != date || r.Category != CategoryTempForecast {
			continue
		}
		v, ok := r.Value()
		if !ok {
			continue
		}
		f := ParseFloat(v)
		if f == nil {
			continue
		}
		if !found || *f > hi {
			hi = *f
		}
		if !found || *f < lo {
			lo = *f
		}
		found = true
	}
	if !found {
		return nil, nil
	}
	h, l := int(math.Round(hi)), int(math.Round(lo))
	return &h, &l
}

// MaxInt returns the largest rounded value of category on date.
func (w Window) MaxInt(date, category string) *int {
	var out *int
	for _, r := range w.records {
		if r.FcstDate != date || r.Category != category {
			continue
		}
		v, ok := r.Value()
		if !ok {
			continue
		}
		if n := ParseInt(v); n != nil && (out == nil || *n > *out) {
			out = n
		}
	}
	return out
}
