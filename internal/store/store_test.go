package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/banshee-data/sensorlaw/internal/measurement"
	"github.com/banshee-data/sensorlaw/internal/monitoring"
	"github.com/banshee-data/sensorlaw/internal/pdf"
	"github.com/banshee-data/sensorlaw/internal/sim"
	"github.com/banshee-data/sensorlaw/internal/testutil"
	"github.com/banshee-data/sensorlaw/internal/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(testutil.TempDBPath(t))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func tableRun(t *testing.T, start time.Time, count int) (sim.Request[int], *sim.Result[int]) {
	t.Helper()
	tbl, err := pdf.NewTable([][]float64{
		{0.9, 0.1}, {0.9, 0.1},
		{0.2, 0.8}, {0.2, 0.8},
	}, 2, 2, pdf.NewSource(5))
	require.NoError(t, err)
	m, err := measurement.New[int, int](tbl, measurement.WithLogger(monitoring.Discard))
	require.NoError(t, err)

	clock := timeutil.NewMockClock(start)
	clock.AutoAdvance(time.Second)
	req := sim.Request[int]{State: 1, Sensor: 0, Count: count, Method: pdf.Inversion}
	res, err := sim.Run(context.Background(), m, req, sim.WithClock(clock), sim.WithLogger(monitoring.Discard))
	require.NoError(t, err)
	return req, res
}

// ---------------------------------------------------------------------------
// Migrations
// ---------------------------------------------------------------------------

func TestOpenAppliesMigrations(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	// Running again is a no-op.
	require.NoError(t, db.MigrateUp())
}

func TestReopenKeepsData(t *testing.T) {
	t.Parallel()
	path := testutil.TempDBPath(t)

	db, err := Open(path)
	require.NoError(t, err)
	req, res := tableRun(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 10)
	run, err := NewRun("table", req, res, true)
	require.NoError(t, err)
	require.NoError(t, db.RecordRun(context.Background(), run))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	got, err := db.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Len(t, got.Samples, 10)
}

func TestMigrateDown(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	require.NoError(t, db.MigrateDown())
	version, _, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	require.NoError(t, db.MigrateUp())
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
}

// ---------------------------------------------------------------------------
// Runs
// ---------------------------------------------------------------------------

func TestNewRun(t *testing.T) {
	t.Parallel()

	req, res := tableRun(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 20)

	run, err := NewRun("table", req, res, true)
	require.NoError(t, err)
	assert.Equal(t, res.ID.String(), run.ID)
	assert.Equal(t, "inversion", run.Method)
	assert.Equal(t, 20, run.SampleCount)
	assert.JSONEq(t, `1`, string(run.State))
	assert.JSONEq(t, `0`, string(run.Sensor))
	require.Len(t, run.Samples, 20)
	for i, s := range run.Samples {
		assert.Equal(t, i, s.Index)
		var z int
		require.NoError(t, json.Unmarshal(s.Value, &z))
		assert.Equal(t, res.Samples[i], z)
		assert.Equal(t, res.Likelihoods[i], s.Likelihood)
	}

	run, err = NewRun("table", req, res, false)
	require.NoError(t, err)
	assert.Nil(t, run.Sensor)
}

func TestRecordAndGetRun(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	ctx := context.Background()

	start := time.Date(2026, 2, 3, 4, 5, 6, 7, time.UTC)
	req, res := tableRun(t, start, 50)
	run, err := NewRun("table", req, res, true)
	require.NoError(t, err)
	require.NoError(t, db.RecordRun(ctx, run))

	got, err := db.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "table", got.Kind)
	assert.Equal(t, "inversion", got.Method)
	assert.Equal(t, 50, got.SampleCount)
	assert.True(t, start.Equal(got.StartedAt))
	assert.Equal(t, time.Second, got.FinishedAt.Sub(got.StartedAt))
	assert.JSONEq(t, string(run.State), string(got.State))
	assert.JSONEq(t, string(run.Sensor), string(got.Sensor))
	require.Len(t, got.Samples, 50)
	for i := range got.Samples {
		assert.Equal(t, run.Samples[i].Index, got.Samples[i].Index)
		assert.JSONEq(t, string(run.Samples[i].Value), string(got.Samples[i].Value))
		assert.Equal(t, run.Samples[i].Likelihood, got.Samples[i].Likelihood)
	}

	// Duplicate IDs are rejected and nothing partial is written.
	assert.Error(t, db.RecordRun(ctx, run))
	got, err = db.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, got.Samples, 50)
}

func TestRunWithoutSensorStoresNull(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	ctx := context.Background()

	req, res := tableRun(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 3)
	run, err := NewRun("table", req, res, false)
	require.NoError(t, err)
	require.NoError(t, db.RecordRun(ctx, run))

	got, err := db.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Sensor)
}

func TestGetRunNotFound(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	_, err := db.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	err = db.DeleteRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRunsNewestFirst(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := range 3 {
		req, res := tableRun(t, base.Add(time.Duration(i)*time.Hour), 5)
		run, err := NewRun("table", req, res, true)
		require.NoError(t, err)
		require.NoError(t, db.RecordRun(ctx, run))
		ids = append(ids, run.ID)
	}

	runs, err := db.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[0], runs[2].ID)
	for _, r := range runs {
		assert.Empty(t, r.Samples)
	}

	runs, err = db.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestDeleteRun(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	ctx := context.Background()

	req, res := tableRun(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 8)
	run, err := NewRun("table", req, res, true)
	require.NoError(t, err)
	require.NoError(t, db.RecordRun(ctx, run))

	require.NoError(t, db.DeleteRun(ctx, run.ID))
	_, err = db.GetRun(ctx, run.ID)
	assert.ErrorIs(t, err, ErrRunNotFound)

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sim_samples`).Scan(&n))
	assert.Zero(t, n)
}
