package comfort

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestFeelsLike_UnknownTemperature(t *testing.T) {
	assert.Nil(t, FeelsLike(nil, f(10), f(50)))
}

func TestFeelsLike_WindChillBranch(t *testing.T) {
	got := FeelsLike(f(3.0), f(6.0), f(80))
	require.NotNil(t, got)
	assert.InDelta(t, -1.6604, *got, 0.0005)
	assert.Equal(t, Cold, Classify(got))
}

func TestFeelsLike_WindChillBoundaries(t *testing.T) {
	// Wind exactly 1.3 m/s does not trigger wind chill.
	assert.Equal(t, 5.0, *FeelsLike(f(5), f(1.3), nil))
	// Temperature just above 10°C does not trigger wind chill.
	assert.Equal(t, 10.1, *FeelsLike(f(10.1), f(8), nil))
	// Exactly 10°C does.
	assert.Less(t, *FeelsLike(f(10), f(8), nil), 10.0)
}

func TestFeelsLike_WindChillDecreasesWithWind(t *testing.T) {
	for _, temp := range []float64{-15, -5, 0, 3, 10} {
		prev := *FeelsLike(f(temp), f(1.31), nil)
		assert.Less(t, prev, temp, "near-threshold wind should still be below raw temperature")
		for w := 1.5; w <= 30; w += 0.5 {
			cur := *FeelsLike(f(temp), f(w), nil)
			assert.Less(t, cur, prev, "temp=%v wind=%v", temp, w)
			prev = cur
		}
	}
}

func TestFeelsLike_HeatIndexBranch(t *testing.T) {
	got := FeelsLike(f(30), f(2), f(70))
	require.NotNil(t, got)
	assert.InDelta(t, 35.038, *got, 0.001)
	assert.Equal(t, VeryHot, Classify(got))
}

func TestFeelsLike_HeatIndexNeedsHumidity(t *testing.T) {
	assert.Equal(t, 30.0, *FeelsLike(f(30), f(2), nil))
}

func TestFeelsLike_HeatIndexNonDecreasingWithHumidity(t *testing.T) {
	for temp := 27.0; temp <= 40; temp += 1 {
		prev := *FeelsLike(f(temp), nil, f(0))
		for rh := 1.0; rh <= 100; rh++ {
			cur := *FeelsLike(f(temp), nil, f(rh))
			assert.GreaterOrEqual(t, cur, prev, "temp=%v rh=%v", temp, rh)
			prev = cur
		}
	}
}

func TestFeelsLike_PlainTemperature(t *testing.T) {
	assert.Equal(t, 20.0, *FeelsLike(f(20), f(10), f(90)))
	assert.Equal(t, 26.9, *FeelsLike(f(26.9), nil, f(90)))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		in   *float64
		want Band
	}{
		{nil, Mild},
		{f(-40), VeryCold},
		{f(-5.01), VeryCold},
		{f(-5.0), Cold},
		{f(1.99), Cold},
		{f(2), Cool},
		{f(9.99), Cool},
		{f(10), Mild},
		{f(17.9), Mild},
		{f(18), Warm},
		{f(23.9), Warm},
		{f(24), Hot},
		{f(27.9), Hot},
		{f(28.0), VeryHot},
		{f(45), VeryHot},
	}
	for _, tt := range tests {
		name := "nil"
		if tt.in != nil {
			name = fmt.Sprintf("%v", *tt.in)
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.in))
		})
	}
}

func TestClassify_Monotonic(t *testing.T) {
	rank := make(map[Band]int, len(Bands))
	for i, b := range Bands {
		rank[b] = i
	}
	prev := rank[Classify(f(-50))]
	for v := -50.0; v <= 50; v += 0.01 {
		cur := rank[Classify(f(v))]
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestPickMessage_Deterministic(t *testing.T) {
	msgs := []string{"a", "b", "c"}
	seed := OutfitSeed("20250115", Cold)
	first := PickMessage(msgs, seed)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, PickMessage(msgs, seed))
	}
	// sha256("20250115:cold") mod 3 == 2
	assert.Equal(t, "c", first)
}

func TestPickMessage_EveryMessageReachable(t *testing.T) {
	msgs := []string{"a", "b", "c", "d", "e"}
	seen := make(map[string]bool)
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 365; i++ {
		date := day.AddDate(0, 0, i).Format("20060102")
		seen[PickMessage(msgs, OutfitSeed(date, Mild))] = true
	}
	assert.Len(t, seen, len(msgs))
}

func TestPickMessage_Empty(t *testing.T) {
	assert.Equal(t, "", PickMessage(nil, "x"))
	assert.Equal(t, "only", PickMessage([]string{"only"}, "anything"))
}

func TestSeeds(t *testing.T) {
	assert.Equal(t, "20250115:very-cold", OutfitSeed("20250115", VeryCold))
	assert.Equal(t, "tip:20250115:windy", TipSeed("20250115", TipWindy))
	assert.Equal(t, "tmr:20250115:similar", TomorrowSeed("20250115", TomorrowSimilar))
}
