package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kjstillabower/weather-outfit-service/internal/basetime"
	"github.com/kjstillabower/weather-outfit-service/internal/client"
	"github.com/kjstillabower/weather-outfit-service/internal/comfort"
	"github.com/kjstillabower/weather-outfit-service/internal/feed"
	"github.com/kjstillabower/weather-outfit-service/internal/messages"
	"github.com/kjstillabower/weather-outfit-service/internal/models"
	"github.com/kjstillabower/weather-outfit-service/internal/observability"
)

// tomorrowConditionSlot is the forecast slot used for tomorrow's condition.
const tomorrowConditionSlot = "1200"

// feedResult is the outcome of one feed after any fallback.
type feedResult struct {
	items    []models.FeedRecord
	base     basetime.BaseTime
	fallback bool
	err      error
}

func (r feedResult) echo() models.FeedEcho {
	e := models.FeedEcho{
		OK:       r.err == nil,
		BaseDate: r.base.Date,
		BaseTime: r.base.Time,
		Fallback: r.fallback,
		Items:    r.items,
	}
	if r.err != nil {
		e.Error = r.err.Error()
	}
	return e
}

// assemble fetches both feeds concurrently and derives a snapshot. The
// returned error joins per-feed failures; the snapshot is always usable.
func (s *SnapshotService) assemble(ctx context.Context, grid models.GridCoordinate) (models.Snapshot, error) {
	start := time.Now()
	now := s.clock.Now()

	var ncst, fcst feedResult
	var g errgroup.Group
	g.Go(func() error {
		ncst = s.fetchObservation(ctx, grid, now)
		return nil
	})
	g.Go(func() error {
		fcst = s.fetchForecast(ctx, grid, now)
		return nil
	})
	_ = g.Wait()

	snap := s.derive(grid, now, ncst, fcst)
	observability.SnapshotAssemblyDuration.Observe(time.Since(start).Seconds())
	observability.ComfortBandTotal.WithLabelValues(snap.Band).Inc()

	var errs []error
	if ncst.err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", client.EndpointObservation, ncst.err))
	}
	if fcst.err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", client.EndpointForecast, fcst.err))
	}
	return snap, errors.Join(errs...)
}

// fetchObservation calls the nowcast feed for the current hour and retries
// once against the previous hour when that yields nothing.
func (s *SnapshotService) fetchObservation(ctx context.Context, grid models.GridCoordinate, now time.Time) feedResult {
	logger := s.loggerFor(ctx)
	base := basetime.Observation(now)
	items, firstErr := s.client.Call(ctx, client.EndpointObservation, client.Params{Grid: grid, Base: base})
	if firstErr == nil && len(items) > 0 {
		return feedResult{items: items, base: base}
	}
	if errors.Is(firstErr, client.ErrConfiguration) {
		s.recordFeedError(client.EndpointObservation, firstErr)
		return feedResult{base: base, err: firstErr}
	}

	fb := basetime.ObservationFallback(now)
	observability.ObservationFallbacksTotal.Inc()
	logger.Debug("observation fallback",
		zap.String("grid", grid.Key()),
		zap.String("base_time", base.Time),
		zap.String("fallback_time", fb.Time),
		zap.Error(firstErr),
	)
	items, err := s.client.Call(ctx, client.EndpointObservation, client.Params{Grid: grid, Base: fb})
	if isEmpty(items, err) {
		if isEmpty(nil, firstErr) {
			err = fmt.Errorf("%w for base %s %s nor %s %s", ErrEmptyData, base.Date, base.Time, fb.Date, fb.Time)
		} else {
			err = fmt.Errorf("base %s %s: %w; previous hour %s %s returned no records", base.Date, base.Time, firstErr, fb.Date, fb.Time)
		}
	}
	if err != nil {
		s.recordFeedError(client.EndpointObservation, err)
		logger.Warn("observation feed failed", zap.String("grid", grid.Key()), zap.Error(err))
		return feedResult{base: fb, fallback: true, err: err}
	}
	return feedResult{items: items, base: fb, fallback: true}
}

// isEmpty reports whether a call produced no records without failing:
// either an empty item list or result code 03.
func isEmpty(items []models.FeedRecord, err error) bool {
	if err != nil {
		return errors.Is(err, client.ErrNoData)
	}
	return len(items) == 0
}

func (s *SnapshotService) fetchForecast(ctx context.Context, grid models.GridCoordinate, now time.Time) feedResult {
	base := basetime.Forecast(now)
	items, err := s.client.Call(ctx, client.EndpointForecast, client.Params{Grid: grid, Base: base})
	if err != nil {
		s.recordFeedError(client.EndpointForecast, err)
		s.loggerFor(ctx).Warn("forecast feed failed", zap.String("grid", grid.Key()), zap.Error(err))
		return feedResult{base: base, err: err}
	}
	return feedResult{items: items, base: base}
}

func (s *SnapshotService) recordFeedError(endpoint client.Endpoint, err error) {
	category := client.CategorizeError(err, ErrEmptyData)
	observability.UpstreamErrorsTotal.WithLabelValues(string(endpoint), string(category)).Inc()
}

// derive computes every snapshot field from whatever the two feeds returned.
// A failed feed leaves its fields nil or at their placeholder.
func (s *SnapshotService) derive(grid models.GridCoordinate, now time.Time, ncst, fcst feedResult) models.Snapshot {
	obs := feed.LatestObservation(ncst.items)
	temp := obs.Float(feed.CategoryTempNow)
	hum := obs.Float(feed.CategoryHumidity)
	wind := obs.Float(feed.CategoryWindSpeed)

	window := feed.NewWindow(fcst.items)
	slot, next := basetime.Slot(now)
	if !window.Has(slot.Date, slot.Time) {
		slot = next
	}
	nowPop := feed.ParseInt(lookupOrEmpty(window, slot.Date, slot.Time, feed.CategoryPrecipChance))
	nowCond := window.ConditionAt(slot.Date, slot.Time)

	tomorrow := basetime.Tomorrow(now)
	high, low := window.HighLow(tomorrow)
	tmrCond := window.ConditionAt(tomorrow, tomorrowConditionSlot)
	ref := low
	if ref == nil {
		ref = high
	}
	delta := comfort.TomorrowDelta(temp, ref)

	feels := comfort.FeelsLike(temp, wind, hum)
	band := comfort.Classify(feels)
	today := basetime.Today(now)

	tomorrowTip := messages.Placeholder
	if delta != nil {
		tomorrowTip = s.banks.TomorrowText(today, comfort.TomorrowTip(*delta))
	}

	return models.Snapshot{
		OK: true,
		NX: grid.NX,
		NY: grid.NY,
		Now: models.NowSummary{
			Temp:     temp,
			Humidity: hum,
			Wind:     wind,
			Pop:      nowPop,
			CondText: nowCond.Text,
			Icon:     nowCond.Icon,
		},
		Tomorrow: models.TomorrowSummary{
			High:     high,
			Low:      low,
			Pop:      window.MaxInt(tomorrow, feed.CategoryPrecipChance),
			CondText: tmrCond.Text,
			Icon:     tmrCond.Icon,
			Delta:    delta,
		},
		FeelsC:          roundPtr(feels),
		Band:            string(band),
		OutfitText:      s.banks.OutfitText(today, band),
		AirTipText:      s.banks.TipText(today, comfort.EnvironmentTip(temp, wind, hum)),
		TomorrowTipText: tomorrowTip,
		Raw: models.RawFeeds{
			Observation: ncst.echo(),
			Forecast:    fcst.echo(),
		},
		CreatedAt: now,
	}
}

func lookupOrEmpty(w feed.Window, date, slot, category string) string {
	v, _ := w.Lookup(date, slot, category)
	return v
}

func roundPtr(v *float64) *int {
	if v == nil {
		return nil
	}
	r := int(math.Round(*v))
	return &r
}
