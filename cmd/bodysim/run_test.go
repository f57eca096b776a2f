package main

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/bodysim/internal/config"
	"github.com/banshee-data/bodysim/internal/db"
	"github.com/banshee-data/bodysim/internal/fsutil"
	"github.com/banshee-data/bodysim/internal/los"
	"github.com/banshee-data/bodysim/internal/pose"
	"github.com/banshee-data/bodysim/internal/results"
	"github.com/banshee-data/bodysim/internal/simulator"
	"github.com/banshee-data/bodysim/internal/testutil"
	"github.com/banshee-data/bodysim/internal/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int           { return &v }
func strPtr(v string) *string     { return &v }
func boolPtr(v bool) *bool        { return &v }
func floatPtr(v float64) *float64 { return &v }

func newTestRunner(t *testing.T, cfg *config.RunConfig) (*runner, *fsutil.MemoryFileSystem) {
	t.Helper()
	testutil.MuteLogs(t)
	mfs := fsutil.NewMemoryFileSystem()
	return &runner{
		cfg:   cfg,
		fs:    mfs,
		clock: timeutil.NewMockClock(time.Unix(1_700_000_000, 0)),
	}, mfs
}

func TestRunSynthetic(t *testing.T) {
	cfg := &config.RunConfig{
		SyntheticFrames: intPtr(6),
		SampleCount:     intPtr(16),
		Workers:         intPtr(2),
		OutputDir:       strPtr("out"),
		Selections: []simulator.Selection{
			{SensorID: "wrist_r", Plugin: simulator.ChannelPlugin, Variables: []string{"path_loss"}},
		},
	}
	r, mfs := newTestRunner(t, cfg)

	res, err := r.run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.FrameStart)
	assert.Equal(t, 6, res.FrameEnd)
	assert.Greater(t, res.SampleRadius, 0.0)

	for _, sensor := range pose.NewSynthetic(6).Roster() {
		for _, sub := range []string{results.TrajectoryDir, results.InterferenceDir, results.DirectLOSDir} {
			assert.True(t, mfs.Exists(filepath.Join("out", sub, results.FileName(sensor.ID))), "%s/%s", sub, sensor.ID)
		}
		assert.True(t, mfs.Exists(filepath.Join("out", PlotsDir, results.FileBase(sensor.ID)+".png")))
	}
	assert.True(t, mfs.Exists(filepath.Join("out", simulator.SimDir, "sensor_wrist_r-c.csv")))
	assert.True(t, mfs.Exists(filepath.Join("out", DashboardFile)))
}

func TestRunFeedWithHistory(t *testing.T) {
	cfg := &config.RunConfig{
		FeedDir:     strPtr("feed"),
		FrameStart:  intPtr(2),
		SampleCount: intPtr(8),
		OutputDir:   strPtr("out"),
		Plots:       boolPtr(false),
		DBPath:      strPtr(filepath.Join(t.TempDir(), "runs.db")),
	}
	r, mfs := newTestRunner(t, cfg)

	provider, roster := testutil.OccludedPair()
	require.NoError(t, pose.WriteFeed(mfs, "feed", provider, roster, 1, 3))

	res, err := r.run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.FrameStart)
	assert.Equal(t, 3, res.FrameEnd)
	assert.Equal(t, []bool{false}, res.Records["a"][0].DirectLOS)
	assert.False(t, mfs.Exists(filepath.Join("out", DashboardFile)))

	store, err := db.NewDB(cfg.GetDBPath())
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, db.RunCompleted, runs[0].Status)
	assert.Equal(t, "feed:feed", runs[0].Source)
	assert.Equal(t, res.SampleRadius, runs[0].SampleRadius)

	summaries, err := store.ListSummaries(runs[0].RunID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "A", summaries[0].Name)
	assert.Zero(t, summaries[0].LOSClearFraction)
}

func TestRunRecordsFailure(t *testing.T) {
	cfg := &config.RunConfig{
		FeedDir:     strPtr("feed"),
		SampleCount: intPtr(8),
		OutputDir:   strPtr("out"),
		DBPath:      strPtr(filepath.Join(t.TempDir(), "runs.db")),
	}
	r, mfs := newTestRunner(t, cfg)

	provider, roster := testutil.OccludedPair()
	require.NoError(t, pose.WriteFeed(mfs, "feed", provider, roster, 1, 2))
	mfs.FailOn(filepath.Join("out", results.DirectLOSDir))

	_, err := r.run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, los.ErrWriteResults), "got %v", err)

	store, err := db.NewDB(cfg.GetDBPath())
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, db.RunFailed, runs[0].Status)
	assert.Contains(t, runs[0].ErrorMessage, los.ErrWriteResults.Error())
}

func TestRunUnencodableParams(t *testing.T) {
	cfg := &config.RunConfig{
		SyntheticFrames: intPtr(3),
		SampleRadius:    floatPtr(math.NaN()),
		OutputDir:       strPtr("out"),
		DBPath:          strPtr(filepath.Join(t.TempDir(), "runs.db")),
	}
	r, mfs := newTestRunner(t, cfg)

	_, err := r.run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode run parameters")
	assert.Empty(t, mfs.Files())

	store, err := db.NewDB(cfg.GetDBPath())
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.ListRuns(0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRunRejectsBadSelectionBeforeSweep(t *testing.T) {
	cfg := &config.RunConfig{
		SyntheticFrames: intPtr(3),
		OutputDir:       strPtr("out"),
		Selections: []simulator.Selection{
			{SensorID: "chest", Plugin: "Missing"},
		},
	}
	r, mfs := newTestRunner(t, cfg)

	_, err := r.run(context.Background())
	assert.ErrorIs(t, err, simulator.ErrUnknownPlugin)
	assert.Empty(t, mfs.Files())
}

func TestRunCancelled(t *testing.T) {
	cfg := &config.RunConfig{SyntheticFrames: intPtr(3), OutputDir: strPtr("out")}
	r, mfs := newTestRunner(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, mfs.Files())
}

func TestRunMissingFeed(t *testing.T) {
	cfg := &config.RunConfig{FeedDir: strPtr("nowhere"), OutputDir: strPtr("out")}
	r, _ := newTestRunner(t, cfg)

	_, err := r.run(context.Background())
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "open pose source"), err.Error())
}
