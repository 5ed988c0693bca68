package apply

import (
	"math"

	"github.com/peebo/peebo/internal/model"
)

const (
	progressFloor   = 10
	progressSpan    = 85
	progressCeiling = 95
	// progressDecay shrinks the remaining distance to the blind estimate cap on every poll.
	progressDecay = 0.9
	blindCap      = 90
)

// EstimateProgress returns the progress of a running task.
//
// When the provider reports steps, progress is the step count against the
// assumed step budget. Otherwise it approaches 90 asymptotically with the
// number of polls. The result is never lower than prev and never reaches 100
// while running.
func EstimateProgress(prev, polls, steps, budget int) int {
	var p int
	switch {
	case steps > 0 && budget > 0:
		p = min(progressFloor+steps*progressSpan/budget, progressCeiling)
	default:
		p = blindCap - int(progressSpan*math.Pow(progressDecay, float64(max(polls, 0))))
	}

	p = max(prev, p)
	if p >= 100 {
		p = 99
	}
	return model.ClampProgress(p)
}
