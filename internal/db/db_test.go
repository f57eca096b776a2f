package db

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/bodysim/internal/los"
	"github.com/banshee-data/bodysim/internal/monitoring"
	"github.com/banshee-data/bodysim/internal/timeutil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) (*DB, *timeutil.MockClock) {
	t.Helper()
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(nil) })

	db, err := NewDB(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := timeutil.NewMockClock(time.Unix(1_700_000_000, 0))
	db.Clock = clock
	return db, clock
}

func TestNewDBMigratesToLatest(t *testing.T) {
	db, _ := setupTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	// Re-running is a no-op.
	require.NoError(t, db.MigrateUp())

	for _, table := range []string{"los_runs", "los_sensor_summaries"} {
		var n int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&n))
		assert.Equal(t, 1, n, table)
	}
}

func TestMigrateDown(t *testing.T) {
	db, _ := setupTestDB(t)

	require.NoError(t, db.MigrateDown())
	version, _, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='los_sensor_summaries'`).Scan(&n))
	assert.Zero(t, n)
}

func TestOpenDBLeavesSchemaAlone(t *testing.T) {
	monitoring.SetLogger(nil)
	db, err := OpenDB(filepath.Join(t.TempDir(), "bare.db"))
	require.NoError(t, err)
	defer db.Close()

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, dirty)
}

func TestRunLifecycle(t *testing.T) {
	db, clock := setupTestDB(t)

	run := &Run{
		Source:      "synthetic",
		OutputDir:   "/tmp/out",
		FrameStart:  1,
		FrameEnd:    100,
		SampleCount: 64,
		ParamsJSON:  json.RawMessage(`{"workers":4}`),
		Workers:     4,
	}
	require.NoError(t, db.InsertRun(run))
	assert.NotEmpty(t, run.RunID)
	assert.Equal(t, RunRunning, run.Status)
	assert.Equal(t, clock.Now().UnixNano(), run.StartedAt)

	clock.Advance(1500 * time.Millisecond)
	require.NoError(t, db.CompleteRun(run.RunID, RunCompleted, 75.5, nil))

	got, err := db.GetRun(run.RunID)
	require.NoError(t, err)
	want := &Run{
		RunID:        run.RunID,
		Source:       "synthetic",
		OutputDir:    "/tmp/out",
		FrameStart:   1,
		FrameEnd:     100,
		SampleCount:  64,
		SampleRadius: 75.5,
		Workers:      4,
		Status:       RunCompleted,
		ParamsJSON:   json.RawMessage(`{"workers":4}`),
		StartedAt:    run.StartedAt,
		FinishedAt:   clock.Now().UnixNano(),
		DurationMs:   1500,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetRun mismatch (-want +got):\n%s", diff)
	}
}

func TestCompleteRunFailed(t *testing.T) {
	db, _ := setupTestDB(t)

	run := &Run{Source: "feed", OutputDir: "out", FrameStart: 1, FrameEnd: 2, SampleCount: 8}
	require.NoError(t, db.InsertRun(run))
	require.NoError(t, db.CompleteRun(run.RunID, RunFailed, 0, errors.New("pose unavailable")))

	got, err := db.GetRun(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, RunFailed, got.Status)
	assert.Equal(t, "pose unavailable", got.ErrorMessage)
	assert.Equal(t, 1, got.Workers)
	assert.Nil(t, got.ParamsJSON)
}

func TestRunErrors(t *testing.T) {
	db, _ := setupTestDB(t)

	_, err := db.GetRun("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	err = db.CompleteRun("missing", RunCompleted, 0, nil)
	assert.ErrorIs(t, err, ErrRunNotFound)

	err = db.CompleteRun("missing", RunRunning, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	err = db.InsertSummaries("missing", []los.SensorSummary{{SensorID: "a"}})
	assert.ErrorIs(t, err, ErrRunNotFound)

	run := &Run{RunID: "fixed", Source: "feed", OutputDir: "out", FrameStart: 1, FrameEnd: 1, SampleCount: 1}
	require.NoError(t, db.InsertRun(run))
	assert.Error(t, db.InsertRun(&Run{RunID: "fixed", Source: "feed", OutputDir: "out"}), "duplicate run id")
}

func TestListRuns(t *testing.T) {
	db, clock := setupTestDB(t)

	var ids []string
	for i := 0; i < 3; i++ {
		run := &Run{Source: "synthetic", OutputDir: "out", FrameStart: 1, FrameEnd: 10, SampleCount: 16}
		require.NoError(t, db.InsertRun(run))
		ids = append(ids, run.RunID)
		clock.Advance(time.Second)
	}

	runs, err := db.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].RunID)
	assert.Equal(t, ids[0], runs[2].RunID)

	runs, err = db.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[1], runs[1].RunID)
}

func TestSummaries(t *testing.T) {
	db, _ := setupTestDB(t)

	run := &Run{Source: "synthetic", OutputDir: "out", FrameStart: 1, FrameEnd: 4, SampleCount: 16}
	require.NoError(t, db.InsertRun(run))

	summaries := []los.SensorSummary{
		{SensorID: "wrist_r", Name: "Right wrist", Frames: 4, MeanInterference: 0.25, StdDevInterference: 0.1, MaxInterference: 0.5, LOSClearFraction: 0.75},
		{SensorID: "chest", Name: "Chest", Frames: 4, LOSClearFraction: 1},
	}
	require.NoError(t, db.InsertSummaries(run.RunID, summaries))

	got, err := db.ListSummaries(run.RunID)
	require.NoError(t, err)
	if diff := cmp.Diff(summaries, got); diff != "" {
		t.Errorf("ListSummaries mismatch (-want +got):\n%s", diff)
	}

	// Replacing keeps only the new set.
	require.NoError(t, db.InsertSummaries(run.RunID, summaries[1:]))
	got, err = db.ListSummaries(run.RunID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "chest", got[0].SensorID)

	none, err := db.ListSummaries("other")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDSN(t *testing.T) {
	assert.Equal(t,
		"a.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)&_pragma=temp_store(MEMORY)",
		dsn("a.db"))
	assert.Equal(t,
		"file:a.db?mode=rwc&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)&_pragma=temp_store(MEMORY)",
		dsn("file:a.db?mode=rwc"))
}
