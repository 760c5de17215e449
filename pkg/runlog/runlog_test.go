package runlog

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/hebidemo/pkg/recorder"
)

func testSeries() *recorder.Series {
	s := recorder.New(10)
	for i := 0; i < 4; i++ {
		s.Record(recorder.Sample{
			Time: float64(i) / 100,
			PAct: 0.1 * float64(i),
			PCmd: 1,
			VAct: -0.5,
			VCmd: 0,
		})
	}
	return s
}

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.sqlite"))
	require.NoError(t, store.Init(context.Background()))
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestNewRun_UniqueIDs(t *testing.T) {
	a := NewRun(time.Now(), "robotlab", []string{"3.2"}, 5, 100)
	b := NewRun(time.Now(), "robotlab", []string{"3.2"}, 5, 100)
	assert.Len(t, a.ID, 36)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestSQLiteStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	started := time.Date(2026, 10, 19, 9, 30, 0, 123, time.UTC)
	run := NewRun(started, "robotlab", []string{"3.2", "3.3"}, 5, 100)
	run.Title = "step response"
	run.Series = testSeries()
	require.NoError(t, store.SaveRun(ctx, run))

	loaded, ok, err := store.LoadRun(ctx, run.ID)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, run.ID, loaded.ID)
	assert.True(t, started.Equal(loaded.StartedAt))
	assert.Equal(t, run.Names, loaded.Names)
	assert.Equal(t, "step response", loaded.Title)
	assert.Equal(t, 5.0, loaded.Duration)
	assert.Equal(t, 100.0, loaded.Rate)
	require.Equal(t, 4, loaded.Series.Len())
	assert.Equal(t, run.Series.Samples(), loaded.Series.Samples())
}

func TestSQLiteStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	run := NewRun(time.Now(), "robotlab", []string{"3.2"}, 5, 100)
	run.Series = testSeries()
	require.NoError(t, store.SaveRun(ctx, run))

	run.Series = recorder.FromSamples(run.Series.Samples()[:2])
	require.NoError(t, store.SaveRun(ctx, run))

	loaded, ok, err := store.LoadRun(ctx, run.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, loaded.Series.Len())
}

func TestSQLiteStore_Missing(t *testing.T) {
	_, ok, err := newStore(t).LoadRun(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	older := NewRun(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "robotlab", []string{"a"}, 1, 100)
	older.Series = testSeries()
	newer := NewRun(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), "robotlab", []string{"b"}, 1, 100)
	newer.Series = recorder.New(3)
	require.NoError(t, store.SaveRun(ctx, older))
	require.NoError(t, store.SaveRun(ctx, newer))

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID, runs[0].ID)
	assert.Equal(t, 0, runs[0].Samples)
	assert.Equal(t, older.ID, runs[1].ID)
	assert.Equal(t, 4, runs[1].Samples)
	assert.Equal(t, []string{"a"}, runs[1].Names)
}

func TestSQLiteStore_NotInitialized(t *testing.T) {
	store := NewSQLiteStore("")
	assert.Error(t, store.Init(context.Background()))
	_, err := store.ListRuns(context.Background())
	assert.Error(t, err)
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testSeries()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "time,p_act,p_cmd,v_act,v_cmd", lines[0])
	assert.Equal(t, "0.01,0.1,1,-0.5,0", lines[2])

	back, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, testSeries().Samples(), back.Samples())
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("a,b\n1,2\n"))
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("time,p_act,p_cmd,v_act,v_cmd\n0,x,0,0,0\n"))
	assert.Error(t, err)
}
