package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

func TestRepoSettingsRepo_GetSettingsMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepoSettingsRepo(db)

	settings, err := repo.GetSettings(context.Background(), "owner/nonexistent")
	require.NoError(t, err)
	assert.Nil(t, settings)
}

func TestRepoSettingsRepo_SetAndGetSettings(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepoSettingsRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.SetSettings(ctx, model.RepoSettings{
		RepoFullName:         "owner/repo",
		NotificationsEnabled: false,
		Scope:                model.NotifyScopeAll,
	}))

	settings, err := repo.GetSettings(ctx, "owner/repo")
	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.Equal(t, "owner/repo", settings.RepoFullName)
	assert.False(t, settings.NotificationsEnabled)
	assert.Equal(t, model.NotifyScopeAll, settings.Scope)
}

func TestRepoSettingsRepo_SetSettingsUpdates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepoSettingsRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.SetSettings(ctx, model.RepoSettings{
		RepoFullName: "owner/repo",
		Scope:        model.NotifyScopeAll,
	}))
	require.NoError(t, repo.SetSettings(ctx, model.DefaultRepoSettings("owner/repo")))

	settings, err := repo.GetSettings(ctx, "owner/repo")
	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.True(t, settings.NotificationsEnabled)
	assert.Equal(t, model.NotifyScopeAuthored, settings.Scope)
}
