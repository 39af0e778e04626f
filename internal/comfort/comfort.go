// Package comfort derives feels-like temperature, comfort bands and the
// tip categories used to pick human-readable messages.
package comfort

import (
	"crypto/sha256"
	"math"
	"math/big"
)

// Band is a discrete bucket of feels-like temperature.
type Band string

const (
	VeryCold Band = "very-cold"
	Cold     Band = "cold"
	Cool     Band = "cool"
	Mild     Band = "mild"
	Warm     Band = "warm"
	Hot      Band = "hot"
	VeryHot  Band = "very-hot"
)

// Bands lists every band from coldest to hottest.
var Bands = []Band{VeryCold, Cold, Cool, Mild, Warm, Hot, VeryHot}

const (
	windChillMaxTempC  = 10.0
	windChillMinWindMs = 1.3
	heatIndexMinTempC  = 27.0
)

// FeelsLike returns the feels-like temperature in °C. tempC, windMs and
// humidityPct may be nil when unknown; the result is nil iff tempC is nil.
//
// Wind chill applies when T <= 10°C and wind > 1.3 m/s. Otherwise the heat
// index applies when T >= 27°C and humidity is known. Otherwise the raw
// temperature is returned.
func FeelsLike(tempC, windMs, humidityPct *float64) *float64 {
	if tempC == nil {
		return nil
	}
	t := *tempC
	var out float64
	switch {
	case t <= windChillMaxTempC && windMs != nil && *windMs > windChillMinWindMs:
		out = WindChill(t, *windMs*3.6)
	case t >= heatIndexMinTempC && humidityPct != nil:
		out = HeatIndex(t, *humidityPct)
	default:
		out = t
	}
	return &out
}

// WindChill is the wind chill index for tC in °C and vKmh in km/h.
func WindChill(tC, vKmh float64) float64 {
	v := math.Pow(vKmh, 0.16)
	return 13.12 + 0.6215*tC - 11.37*v + 0.3965*tC*v
}

// HeatIndex applies the Rothfusz regression in Fahrenheit and returns °C.
func HeatIndex(tC, rh float64) float64 {
	t := tC*9/5 + 32
	hi := -42.379 +
		2.04901523*t +
		10.14333127*rh -
		0.22475541*t*rh -
		0.00683783*t*t -
		0.05481717*rh*rh +
		0.00122874*t*t*rh +
		0.00085282*t*rh*rh -
		0.00000199*t*t*rh*rh
	return (hi - 32) * 5 / 9
}

// Classify maps a feels-like temperature to its band. Unknown maps to Mild.
// Each threshold is the exclusive upper bound of the band below it.
func Classify(feelsC *float64) Band {
	if feelsC == nil {
		return Mild
	}
	f := *feelsC
	switch {
	case f < -5:
		return VeryCold
	case f < 2:
		return Cold
	case f < 10:
		return Cool
	case f < 18:
		return Mild
	case f < 24:
		return Warm
	case f < 28:
		return Hot
	default:
		return VeryHot
	}
}

// PickIndex returns sha256(seed) as a big-endian integer modulo n.
func PickIndex(seed string, n int) int {
	if n <= 0 {
		return 0
	}
	sum := sha256.Sum256([]byte(seed))
	v := new(big.Int).SetBytes(sum[:])
	return int(v.Mod(v, big.NewInt(int64(n))).Int64())
}

// PickMessage deterministically selects one of messages for seed. It is a
// pure function of (messages, seed). Returns "" when messages is empty.
func PickMessage(messages []string, seed string) string {
	if len(messages) == 0 {
		return ""
	}
	return messages[PickIndex(seed, len(messages))]
}

// OutfitSeed is the seed of the outfit tip family.
func OutfitSeed(date string, band Band) string {
	return date + ":" + string(band)
}

// TipSeed is the seed of the environment tip family.
func TipSeed(date string, category TipCategory) string {
	return "tip:" + date + ":" + string(category)
}

// TomorrowSeed is the seed of the next-day tip family.
func TomorrowSeed(date string, category TomorrowCategory) string {
	return "tmr:" + date + ":" + string(category)
}
