package jobs

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"quizsolver-backend/lib/testutil"
	"quizsolver-backend/services/jobs/db"
	"quizsolver-backend/services/solver"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func setupStore(t testing.TB) (*Store, func()) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/jobs",
		DbSchema: db.Schema,
	})
	return NewStore(res.DB), cleanup
}

func TestStoreRoundTrip(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	job := Job{
		Id:        "job-a",
		Email:     "student@example.edu",
		Url:       "https://quiz.example.com/1",
		Status:    StatusPending,
		CreatedAt: time.Unix(1700000000, 0),
	}

	{
		_, err := store.GetJob(ctx, "job-a")
		require.ErrorIs(t, err, sql.ErrNoRows)
	}
	{
		err := store.CreateJob(ctx, job)
		require.NoError(t, err)

		got, err := store.GetJob(ctx, "job-a")
		require.NoError(t, err)
		diff := cmp.Diff(job, got)
		if diff != "" {
			t.Fatal(diff)
		}
	}
	{
		started := time.Unix(1700000050, 0)
		ended := time.Unix(1700000110, 0)
		answer := solver.NumberAnswer(4)

		job.Status = StatusDone
		job.StartedAt = &started
		job.EndedAt = &ended
		job.Result = &solver.Result{
			Status:       solver.StatusNoSubmit,
			Url:          "https://quiz.example.com/3",
			Answer:       &answer,
			LastResponse: map[string]any{"correct": true},
		}

		err := store.UpdateJob(ctx, job)
		require.NoError(t, err)

		got, err := store.GetJob(ctx, "job-a")
		require.NoError(t, err)
		diff := cmp.Diff(job, got)
		if diff != "" {
			t.Fatal(diff)
		}
	}
	{
		job.Status = StatusPanicked
		job.Result = nil
		job.Panic = "runtime error: index out of range"

		err := store.UpdateJob(ctx, job)
		require.NoError(t, err)

		got, err := store.GetJob(ctx, "job-a")
		require.NoError(t, err)
		require.Equal(t, StatusPanicked, got.Status)
		require.Equal(t, "runtime error: index out of range", got.Panic)
		require.Nil(t, got.Result)
	}
}

func TestStoreListOrder(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	base := time.Unix(1700000000, 0)
	for _, job := range []Job{
		{Id: "job-a", Email: "a@example.edu", Url: "https://quiz.example.com/a", Status: StatusDone, CreatedAt: base},
		{Id: "job-b", Email: "b@example.edu", Url: "https://quiz.example.com/b", Status: StatusDone, CreatedAt: base.Add(time.Second * 10)},
		{Id: "job-c", Email: "c@example.edu", Url: "https://quiz.example.com/c", Status: StatusRunning, CreatedAt: base.Add(time.Second * 5)},
	} {
		err := store.CreateJob(ctx, job)
		require.NoError(t, err)
	}

	{
		jobs, err := store.ListJobs(ctx, 10)
		require.NoError(t, err)
		require.Len(t, jobs, 3)
		require.Equal(t, "job-b", jobs[0].Id)
		require.Equal(t, "job-c", jobs[1].Id)
		require.Equal(t, "job-a", jobs[2].Id)
	}
	{
		jobs, err := store.ListJobs(ctx, 2)
		require.NoError(t, err)
		require.Len(t, jobs, 2)
		require.Equal(t, "job-b", jobs[0].Id)
		require.Equal(t, "job-c", jobs[1].Id)
	}
}
