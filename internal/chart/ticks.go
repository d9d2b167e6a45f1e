package chart

import (
	"time"
)

// DefaultTickTarget is roughly how many month ticks fit across the panel
const DefaultTickTarget = 24

// secondsPerMonth is the nominal month used to size the tick step
const secondsPerMonth = int64(30 * 24 * time.Hour / time.Second)

// Tick is one vertical gridline position on the time axis
type Tick struct {
	Timestamp      int64
	IsYearBoundary bool
	IsRangeStart   bool
}

// MonthStep returns how many months separate consecutive ticks so that
// about target ticks span [start, end]. It never returns less than one.
func MonthStep(start, end int64, target int) int {
	if target <= 0 {
		target = DefaultTickTarget
	}
	span := end - start
	if span <= 0 {
		return 1
	}
	perTick := span / int64(target)
	if span%int64(target) != 0 {
		perTick++
	}
	months := perTick / secondsPerMonth
	if perTick%secondsPerMonth != 0 {
		months++
	}
	if months < 1 {
		months = 1
	}
	return int(months)
}

// GenerateTicks returns the month ticks between start and end, ascending.
// The first tick is the first month boundary strictly after start; later
// ticks advance by MonthStep months while they do not pass end. The first
// tick and every January tick are year boundaries.
func GenerateTicks(cal Calendar, start, end int64, target int) []Tick {
	if end <= start {
		return nil
	}
	step := MonthStep(start, end, target)

	var ticks []Tick
	for ts := cal.StartOfMonthAfter(start, 1); ts <= end; {
		first := len(ticks) == 0
		ticks = append(ticks, Tick{
			Timestamp:      ts,
			IsYearBoundary: first || cal.Month(ts) == time.January,
			IsRangeStart:   first,
		})

		next := cal.StartOfMonthAfter(ts, step)
		if next <= ts {
			// A calendar that fails to advance would never reach end.
			break
		}
		ts = next
	}
	return ticks
}
