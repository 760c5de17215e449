// Package runlog persists recorded trajectory runs to SQLite and CSV.
package runlog

import (
	"time"

	"github.com/google/uuid"

	"github.com/gwillem/hebidemo/pkg/recorder"
)

// Run is one recorded trajectory with the parameters it ran with.
type Run struct {
	ID        string
	StartedAt time.Time
	Family    string
	Names     []string
	Duration  float64
	Rate      float64
	Title     string
	Series    *recorder.Series
}

// RunInfo summarizes a stored run.
type RunInfo struct {
	ID        string
	StartedAt time.Time
	Names     []string
	Samples   int
	Title     string
}

// NewRun assigns a fresh identifier.
func NewRun(started time.Time, family string, names []string, duration, rate float64) Run {
	return Run{
		ID:        uuid.NewString(),
		StartedAt: started,
		Family:    family,
		Names:     names,
		Duration:  duration,
		Rate:      rate,
	}
}
