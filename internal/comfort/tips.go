package comfort

import "math"

// TipCategory selects the environment (air) tip bank.
type TipCategory string

const (
	TipWindy    TipCategory = "windy"
	TipHumidHot TipCategory = "humid-hot"
	TipDry      TipCategory = "dry"
	TipNice     TipCategory = "nice"
)

// TipCategories lists every environment tip category in priority order.
var TipCategories = []TipCategory{TipWindy, TipHumidHot, TipDry, TipNice}

// EnvironmentTip picks the first matching rule: windy, humid-hot, dry, nice.
func EnvironmentTip(tempC, windMs, humidityPct *float64) TipCategory {
	if windMs != nil && *windMs >= 5.0 {
		return TipWindy
	}
	if tempC != nil && humidityPct != nil && *tempC >= 25 && *humidityPct >= 70 {
		return TipHumidHot
	}
	if humidityPct != nil && *humidityPct <= 35 {
		return TipDry
	}
	return TipNice
}

// TomorrowCategory selects the next-day tip bank.
type TomorrowCategory string

const (
	TomorrowMuchColder TomorrowCategory = "much-colder"
	TomorrowColder     TomorrowCategory = "colder"
	TomorrowSimilar    TomorrowCategory = "similar"
	TomorrowWarmer     TomorrowCategory = "warmer"
	TomorrowMuchWarmer TomorrowCategory = "much-warmer"
)

// TomorrowCategories lists every next-day category from coldest to warmest.
var TomorrowCategories = []TomorrowCategory{TomorrowMuchColder, TomorrowColder, TomorrowSimilar, TomorrowWarmer, TomorrowMuchWarmer}

// TomorrowDelta returns round(tomorrow - today) in whole degrees, or nil
// when either side is unknown.
func TomorrowDelta(today *float64, tomorrow *int) *int {
	if today == nil || tomorrow == nil {
		return nil
	}
	d := int(math.Round(float64(*tomorrow) - *today))
	return &d
}

// TomorrowTip classifies a day-over-day delta.
func TomorrowTip(delta int) TomorrowCategory {
	switch {
	case delta <= -4:
		return TomorrowMuchColder
	case delta <= -2:
		return TomorrowColder
	case delta >= 4:
		return TomorrowMuchWarmer
	case delta >= 2:
		return TomorrowWarmer
	default:
		return TomorrowSimilar
	}
}
