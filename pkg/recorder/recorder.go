// Package recorder stores trajectory samples in fixed-capacity parallel series.
package recorder

// Sample is one control-loop step.
type Sample struct {
	Time float64 // s
	PAct float64 // rad
	PCmd float64 // rad
	VAct float64 // rad/s
	VCmd float64 // rad/s
}

// Series holds five parallel series of equal capacity, written positionally
// at a cursor. Only the prefix [0, Len()) is valid.
type Series struct {
	Time []float64
	PAct []float64
	PCmd []float64
	VAct []float64
	VCmd []float64

	cursor int
}

// New preallocates a series for capacity samples.
func New(capacity int) *Series {
	return &Series{
		Time: make([]float64, capacity),
		PAct: make([]float64, capacity),
		PCmd: make([]float64, capacity),
		VAct: make([]float64, capacity),
		VCmd: make([]float64, capacity),
	}
}

// Capacity returns the sample count for duration seconds at rate samples/s.
func Capacity(duration, rate float64) int {
	return int(rate * duration)
}

// Record writes s at the cursor and advances it. Callers check Full first;
// writing past capacity panics.
func (r *Series) Record(s Sample) {
	i := r.cursor
	r.Time[i] = s.Time
	r.PAct[i] = s.PAct
	r.PCmd[i] = s.PCmd
	r.VAct[i] = s.VAct
	r.VCmd[i] = s.VCmd
	r.cursor++
}

// Len returns the cursor.
func (r *Series) Len() int {
	return r.cursor
}

// Cap returns the fixed capacity.
func (r *Series) Cap() int {
	return len(r.Time)
}

// Full reports whether the cursor reached capacity.
func (r *Series) Full() bool {
	return r.cursor >= len(r.Time)
}

// At returns sample i of the valid prefix.
func (r *Series) At(i int) Sample {
	return Sample{
		Time: r.Time[i],
		PAct: r.PAct[i],
		PCmd: r.PCmd[i],
		VAct: r.VAct[i],
		VCmd: r.VCmd[i],
	}
}

// Valid returns a view of the valid prefix sharing storage with r.
func (r *Series) Valid() *Series {
	n := r.cursor
	return &Series{
		Time:   r.Time[:n:n],
		PAct:   r.PAct[:n:n],
		PCmd:   r.PCmd[:n:n],
		VAct:   r.VAct[:n:n],
		VCmd:   r.VCmd[:n:n],
		cursor: n,
	}
}

// FromSamples builds a full series from stored samples.
func FromSamples(samples []Sample) *Series {
	r := New(len(samples))
	for _, s := range samples {
		r.Record(s)
	}
	return r
}

// Samples copies the valid prefix out as rows.
func (r *Series) Samples() []Sample {
	out := make([]Sample, r.cursor)
	for i := range out {
		out[i] = r.At(i)
	}
	return out
}
