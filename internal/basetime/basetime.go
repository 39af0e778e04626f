// Package basetime computes the (date, time) keys under which the nowcast
// and village forecast feeds publish their batches.
package basetime

import (
	"time"
)

// KST is the fixed civil zone of the feeds (UTC+9, no daylight saving).
var KST = time.FixedZone("KST", 9*60*60)

// PublishLag is subtracted from "now" before choosing a forecast base hour;
// the feed is not guaranteed to be available exactly on the hour.
const PublishLag = 10 * time.Minute

// forecastHours is the village forecast publication schedule.
var forecastHours = []int{2, 5, 8, 11, 14, 17, 20, 23}

const (
	dateLayout = "20060102"
	timeLayout = "1504"
)

// BaseTime is a resolved publication key.
type BaseTime struct {
	Date string // YYYYMMDD
	Time string // HHMM
}

// At returns the BaseTime for t in KST, formatted as the feeds expect.
func At(t time.Time) BaseTime {
	t = t.In(KST)
	return BaseTime{Date: t.Format(dateLayout), Time: t.Format(timeLayout)}
}

// Observation returns the nowcast base for now: the current KST hour.
func Observation(now time.Time) BaseTime {
	return At(now.In(KST).Truncate(time.Hour))
}

// ObservationFallback returns the base one hour before Observation(now).
// The nowcast often has no data yet for the hour that just started.
func ObservationFallback(now time.Time) BaseTime {
	return At(now.In(KST).Truncate(time.Hour).Add(-time.Hour))
}

// Forecast returns the village forecast base for now: the latest schedule
// hour at or before now-PublishLag, or 23:00 of the previous day when the
// adjusted time is before 02:00.
func Forecast(now time.Time) BaseTime {
	adj := now.In(KST).Add(-PublishLag)
	hour := -1
	for _, h := range forecastHours {
		if h <= adj.Hour() {
			hour = h
		}
	}
	day := time.Date(adj.Year(), adj.Month(), adj.Day(), 0, 0, 0, 0, KST)
	if hour < 0 {
		return At(day.AddDate(0, 0, -1).Add(23 * time.Hour))
	}
	return At(day.Add(time.Duration(hour) * time.Hour))
}

// Today returns the KST calendar date of now as YYYYMMDD.
func Today(now time.Time) string {
	return now.In(KST).Format(dateLayout)
}

// Tomorrow returns the KST calendar date after now as YYYYMMDD.
func Tomorrow(now time.Time) string {
	t := now.In(KST)
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, KST).Format(dateLayout)
}

// Slot returns the forecast (date, time) slot containing now, and the slot
// one hour later. The later slot is used when the current hour precedes the
// first hour covered by the forecast batch.
func Slot(now time.Time) (current, next BaseTime) {
	h := now.In(KST).Truncate(time.Hour)
	return At(h), At(h.Add(time.Hour))
}
