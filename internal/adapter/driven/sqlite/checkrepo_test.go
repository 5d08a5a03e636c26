package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

func TestCheckRepo_ReplaceAndGet(t *testing.T) {
	db := setupTestDB(t)
	prID := addTestPR(t, db, "octocat/hello-world", 1)
	checkRepo := NewCheckRepo(db)
	ctx := context.Background()

	started := time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC)
	completed := time.Date(2026, 2, 10, 10, 5, 0, 0, time.UTC)

	checks := []model.RefCheck{
		{
			ID:            1002,
			Source:        model.CheckSourceCheckRun,
			Name:          "lint",
			Status:        model.CheckStatusCompleted,
			Conclusion:    model.ConclusionFailure,
			AppName:       "GitHub Actions",
			CheckSuiteID:  77,
			HeadSHA:       "abc123",
			HTMLURL:       "https://github.com/octocat/hello-world/runs/1002",
			OutputSummary: "**2 errors**",
			StartedAt:     started,
			CompletedAt:   completed,
		},
		{
			ID:         1001,
			Source:     model.CheckSourceCommitStatus,
			Name:       "ci/build",
			Status:     model.CheckStatusInProgress,
			DetailsURL: "https://ci.example.com/build/1",
		},
	}

	require.NoError(t, checkRepo.ReplaceChecksForPR(ctx, prID, checks))

	got, err := checkRepo.GetChecksByPR(ctx, prID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Ordered by name, so the commit status comes first.
	assert.Equal(t, int64(1001), got[0].ID)
	assert.Equal(t, prID, got[0].PRID)
	assert.Equal(t, model.CheckSourceCommitStatus, got[0].Source)
	assert.Equal(t, model.ConclusionNone, got[0].Conclusion)
	assert.True(t, got[0].StartedAt.IsZero())
	assert.True(t, got[0].CompletedAt.IsZero())

	assert.Equal(t, "lint", got[1].Name)
	assert.Equal(t, model.ConclusionFailure, got[1].Conclusion)
	assert.Equal(t, int64(77), got[1].CheckSuiteID)
	assert.Equal(t, "**2 errors**", got[1].OutputSummary)
	assert.True(t, got[1].IsActionsJob())
	assert.Equal(t, started, got[1].StartedAt)
	assert.Equal(t, completed, got[1].CompletedAt)
}

func TestCheckRepo_ReplaceRemovesOld(t *testing.T) {
	db := setupTestDB(t)
	prID := addTestPR(t, db, "octocat/hello-world", 1)
	checkRepo := NewCheckRepo(db)
	ctx := context.Background()

	first := []model.RefCheck{
		{ID: 1, Source: model.CheckSourceCheckRun, Name: "old", Status: model.CheckStatusCompleted},
	}
	second := []model.RefCheck{
		{ID: 2, Source: model.CheckSourceCheckRun, Name: "new", Status: model.CheckStatusQueued},
	}

	require.NoError(t, checkRepo.ReplaceChecksForPR(ctx, prID, first))
	require.NoError(t, checkRepo.ReplaceChecksForPR(ctx, prID, second))

	got, err := checkRepo.GetChecksByPR(ctx, prID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Name)
}

func TestCheckRepo_SameIDDifferentSource(t *testing.T) {
	db := setupTestDB(t)
	prID := addTestPR(t, db, "octocat/hello-world", 1)
	checkRepo := NewCheckRepo(db)
	ctx := context.Background()

	checks := []model.RefCheck{
		{ID: 5, Source: model.CheckSourceCheckRun, Name: "a", Status: model.CheckStatusCompleted},
		{ID: 5, Source: model.CheckSourceCommitStatus, Name: "b", Status: model.CheckStatusCompleted},
	}
	require.NoError(t, checkRepo.ReplaceChecksForPR(ctx, prID, checks))

	got, err := checkRepo.GetChecksByPR(ctx, prID)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestCheckRepo_EmptyReplace(t *testing.T) {
	db := setupTestDB(t)
	prID := addTestPR(t, db, "octocat/hello-world", 1)
	checkRepo := NewCheckRepo(db)
	ctx := context.Background()

	require.NoError(t, checkRepo.ReplaceChecksForPR(ctx, prID, []model.RefCheck{
		{ID: 1, Source: model.CheckSourceCheckRun, Name: "build", Status: model.CheckStatusCompleted},
	}))
	require.NoError(t, checkRepo.ReplaceChecksForPR(ctx, prID, nil))

	got, err := checkRepo.GetChecksByPR(ctx, prID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCheckRepo_CascadeOnPRDelete(t *testing.T) {
	db := setupTestDB(t)
	prID := addTestPR(t, db, "octocat/hello-world", 1)
	checkRepo := NewCheckRepo(db)
	ctx := context.Background()

	require.NoError(t, checkRepo.ReplaceChecksForPR(ctx, prID, []model.RefCheck{
		{ID: 1, Source: model.CheckSourceCheckRun, Name: "build", Status: model.CheckStatusCompleted},
	}))
	require.NoError(t, NewPRRepo(db).Delete(ctx, "octocat/hello-world", 1))

	got, err := checkRepo.GetChecksByPR(ctx, prID)
	require.NoError(t, err)
	assert.Empty(t, got)
}
