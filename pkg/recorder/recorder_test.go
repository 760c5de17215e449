package recorder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapacity(t *testing.T) {
	assert.Equal(t, 500, Capacity(5.0, 100))
	assert.Equal(t, 0, Capacity(0, 100))
}

func TestSeries_RecordAndValid(t *testing.T) {
	r := New(4)
	assert.Equal(t, 4, r.Cap())
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Valid().Time)

	r.Record(Sample{Time: 0, PAct: 0.1, PCmd: 1, VAct: 0.2, VCmd: 0})
	r.Record(Sample{Time: 0.01, PAct: 0.3, PCmd: 1, VAct: 0.4, VCmd: 0})

	v := r.Valid()
	require.Equal(t, 2, v.Len())
	assert.Equal(t, []float64{0, 0.01}, v.Time)
	assert.Equal(t, []float64{0.1, 0.3}, v.PAct)
	assert.Equal(t, []float64{1, 1}, v.PCmd)
	assert.Equal(t, []float64{0.2, 0.4}, v.VAct)
	assert.Equal(t, []float64{0, 0}, v.VCmd)
	assert.True(t, v.Full(), "a valid view is exactly full")
	assert.False(t, r.Full())
}

func TestSeries_Full(t *testing.T) {
	r := New(2)
	r.Record(Sample{})
	r.Record(Sample{})
	assert.True(t, r.Full())
	assert.Panics(t, func() { r.Record(Sample{}) })
	assert.Equal(t, 2, r.Len())
}

func TestSeries_SamplesRoundTrip(t *testing.T) {
	in := []Sample{
		{Time: 0, PAct: 1, PCmd: 2, VAct: 3, VCmd: 4},
		{Time: 0.01, PAct: 5, PCmd: 6, VAct: 7, VCmd: 8},
	}
	r := FromSamples(in)
	assert.Equal(t, in, r.Samples())
	assert.Equal(t, in[1], r.At(1))
}
