package models

import (
	"fmt"
	"time"
)

// GridCoordinate identifies a forecast grid cell (nx, ny).
type GridCoordinate struct {
	NX int `json:"nx"`
	NY int `json:"ny"`
}

// Key returns the cache key for the cell, e.g. "98:76".
func (g GridCoordinate) Key() string {
	return fmt.Sprintf("%d:%d", g.NX, g.NY)
}

func (g GridCoordinate) String() string {
	return g.Key()
}

// FeedRecord is one item of either feed. Observation items carry ObsrValue,
// forecast items carry FcstDate/FcstTime/FcstValue; the upstream reuses the
// same item shape for both.
type FeedRecord struct {
	BaseDate  string  `json:"baseDate,omitempty"`
	BaseTime  string  `json:"baseTime,omitempty"`
	Category  string  `json:"category"`
	FcstDate  string  `json:"fcstDate,omitempty"`
	FcstTime  string  `json:"fcstTime,omitempty"`
	ObsrValue *string `json:"obsrValue,omitempty"`
	FcstValue *string `json:"fcstValue,omitempty"`
	NX        int     `json:"nx,omitempty"`
	NY        int     `json:"ny,omitempty"`
}

// Value returns the observation value, falling back to the forecast value.
func (r FeedRecord) Value() (string, bool) {
	if r.ObsrValue != nil {
		return *r.ObsrValue, true
	}
	if r.FcstValue != nil {
		return *r.FcstValue, true
	}
	return "", false
}

// NowSummary is the current-conditions part of a Snapshot.
type NowSummary struct {
	Temp     *float64 `json:"temp"`
	Humidity *float64 `json:"hum"`
	Wind     *float64 `json:"wind"`
	Pop      *int     `json:"pop"`
	CondText string   `json:"cond_text"`
	Icon     string   `json:"icon"`
}

// TomorrowSummary is the next-day part of a Snapshot.
type TomorrowSummary struct {
	High     *int   `json:"hi"`
	Low      *int   `json:"low"`
	Pop      *int   `json:"pop"`
	CondText string `json:"cond_text"`
	Icon     string `json:"icon"`
	Delta    *int   `json:"delta"`
}

// FeedEcho is the per-feed diagnostic block echoed back to callers.
type FeedEcho struct {
	OK       bool         `json:"ok"`
	Error    string       `json:"error,omitempty"`
	BaseDate string       `json:"base_date,omitempty"`
	BaseTime string       `json:"base_time,omitempty"`
	Fallback bool         `json:"fallback,omitempty"`
	Items    []FeedRecord `json:"items,omitempty"`
}

// RawFeeds groups the diagnostic echoes of both feeds.
type RawFeeds struct {
	Observation FeedEcho `json:"ncst"`
	Forecast    FeedEcho `json:"fcst"`
}

// Snapshot is the assembled response for one grid cell.
type Snapshot struct {
	OK              bool            `json:"ok"`
	Cached          bool            `json:"cached"`
	NX              int             `json:"nx"`
	NY              int             `json:"ny"`
	Now             NowSummary      `json:"now"`
	Tomorrow        TomorrowSummary `json:"tomorrow"`
	FeelsC          *int            `json:"feels_c"`
	Band            string          `json:"band"`
	OutfitText      string          `json:"outfit_text"`
	AirTipText      string          `json:"air_tip_text"`
	TomorrowTipText string          `json:"tomorrow_tip_text"`
	Raw             RawFeeds        `json:"raw"`
	CreatedAt       time.Time       `json:"created_at"`
}
