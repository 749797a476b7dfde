// Package forecast estimates expected daily patient volume from visit
// history. The model is a per-weekday mean: day of week dominates emergency
// department arrival patterns, and a profile this small retrains on every
// request instead of being fitted offline.
package forecast

import (
	"math"
	"time"
)

// DailyCount is one day of visit history.
type DailyCount struct {
	Date  time.Time
	Count int
}

// Prediction is the wire form of a single forecast point.
type Prediction struct {
	Date              string `json:"date"`
	PredictedBusyness int    `json:"predicted_busyness"`
}

// Predictor holds a fitted weekday profile.
type Predictor struct {
	byWeekday [7]float64
	hasDay    [7]bool
	overall   float64
	fitted    bool
}

// Fit builds the profile from history. Empty history yields a predictor that
// answers zero for every date.
func Fit(history []DailyCount) *Predictor {
	p := &Predictor{}
	if len(history) == 0 {
		return p
	}

	var sums [7]float64
	var counts [7]int
	var total float64
	for _, d := range history {
		wd := int(d.Date.Weekday())
		sums[wd] += float64(d.Count)
		counts[wd]++
		total += float64(d.Count)
	}
	for wd := 0; wd < 7; wd++ {
		if counts[wd] > 0 {
			p.byWeekday[wd] = sums[wd] / float64(counts[wd])
			p.hasDay[wd] = true
		}
	}
	p.overall = total / float64(len(history))
	p.fitted = true
	return p
}

// Predict returns the expected visit count for a date. Weekdays never seen in
// the history fall back to the overall mean.
func (p *Predictor) Predict(date time.Time) int {
	if !p.fitted {
		return 0
	}
	wd := int(date.Weekday())
	if p.hasDay[wd] {
		return int(math.Round(p.byWeekday[wd]))
	}
	return int(math.Round(p.overall))
}
