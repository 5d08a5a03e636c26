package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/ciwatch/internal/domain/port/driven"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v failed: %v\n%s", args, err, out)
	}
	return strings.TrimSpace(string(out))
}

func newTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	runGit(t, dir, "init", "-b", "main")
	runGit(t, dir, "config", "user.email", "test@test.com")
	runGit(t, dir, "config", "user.name", "Test Author")
	return dir
}

func commitFile(t *testing.T, dir, name, content, message string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	runGit(t, dir, "add", name)
	runGit(t, dir, "commit", "-m", message)
	return runGit(t, dir, "rev-parse", "HEAD")
}

func TestGetCommit(t *testing.T) {
	requireGit(t)
	dir := newTestRepo(t)
	sha := commitFile(t, dir, "a.txt", "a", "Add a\n\nLonger description.")

	commit, err := NewRepository("").GetCommit(context.Background(), dir, sha)

	require.NoError(t, err)
	assert.Equal(t, sha, commit.SHA)
	assert.Equal(t, "Test Author", commit.Author)
	assert.Equal(t, "Add a", commit.Summary)
	assert.Equal(t, "Longer description.", commit.Body)
	assert.False(t, commit.Timestamp.IsZero())
}

func TestGetCommit_NotFound(t *testing.T) {
	requireGit(t)
	dir := newTestRepo(t)
	commitFile(t, dir, "a.txt", "a", "Add a")

	_, err := NewRepository("").GetCommit(context.Background(), dir, "0123456789abcdef0123456789abcdef01234567")

	assert.ErrorIs(t, err, driven.ErrCommitNotFound)
}

func TestCheckoutPullRequest(t *testing.T) {
	requireGit(t)
	upstream := newTestRepo(t)
	commitFile(t, upstream, "a.txt", "a", "Base")

	runGit(t, upstream, "checkout", "-b", "feature")
	prHead := commitFile(t, upstream, "b.txt", "b", "Feature work")
	runGit(t, upstream, "update-ref", "refs/pull/7/head", prHead)
	runGit(t, upstream, "checkout", "main")

	clone := t.TempDir()
	runGit(t, "", "clone", upstream, clone)

	repo := NewRepository("")
	require.NoError(t, repo.CheckoutPullRequest(context.Background(), clone, 7, "feature"))

	assert.Equal(t, "feature", runGit(t, clone, "rev-parse", "--abbrev-ref", "HEAD"))
	assert.Equal(t, prHead, runGit(t, clone, "rev-parse", "HEAD"))

	// Checking out again with an unchanged head is a no-op.
	require.NoError(t, repo.CheckoutPullRequest(context.Background(), clone, 7, "feature"))
	assert.Equal(t, prHead, runGit(t, clone, "rev-parse", "HEAD"))
}

func TestCheckoutPullRequest_DefaultBranchName(t *testing.T) {
	requireGit(t)
	upstream := newTestRepo(t)
	head := commitFile(t, upstream, "a.txt", "a", "Base")
	runGit(t, upstream, "update-ref", "refs/pull/3/head", head)

	clone := t.TempDir()
	runGit(t, "", "clone", upstream, clone)

	require.NoError(t, NewRepository("").CheckoutPullRequest(context.Background(), clone, 3, ""))
	assert.Equal(t, "pr/3", runGit(t, clone, "rev-parse", "--abbrev-ref", "HEAD"))
}

func TestCheckoutPullRequest_MissingRef(t *testing.T) {
	requireGit(t)
	upstream := newTestRepo(t)
	commitFile(t, upstream, "a.txt", "a", "Base")

	clone := t.TempDir()
	runGit(t, "", "clone", upstream, clone)

	err := NewRepository("").CheckoutPullRequest(context.Background(), clone, 99, "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch pull request #99")
}

func TestGetCommit_NotARepository(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(dir))

	_, err := NewRepository("").GetCommit(context.Background(), dir, "0123456789abcdef0123456789abcdef01234567")

	require.Error(t, err)
	assert.NotErrorIs(t, err, driven.ErrCommitNotFound)
	assert.Contains(t, err.Error(), "not a usable git repository")
}

// prFixture is an upstream with refs/pull/7/head on branch feature and a
// clone of it that has user identity configured.
func prFixture(t *testing.T) (upstream, clone, prHead string) {
	t.Helper()
	upstream = newTestRepo(t)
	commitFile(t, upstream, "a.txt", "a", "Base")
	runGit(t, upstream, "checkout", "-b", "feature")
	prHead = commitFile(t, upstream, "b.txt", "b", "Feature work")
	runGit(t, upstream, "update-ref", "refs/pull/7/head", prHead)
	runGit(t, upstream, "checkout", "main")

	clone = t.TempDir()
	runGit(t, "", "clone", upstream, clone)
	runGit(t, clone, "config", "user.email", "test@test.com")
	runGit(t, clone, "config", "user.name", "Test Author")
	return upstream, clone, prHead
}

func TestCheckoutPullRequest_FastForwardsExistingBranch(t *testing.T) {
	requireGit(t)
	upstream, clone, _ := prFixture(t)
	repo := NewRepository("")
	require.NoError(t, repo.CheckoutPullRequest(context.Background(), clone, 7, "feature"))
	runGit(t, clone, "checkout", "main")

	runGit(t, upstream, "checkout", "feature")
	newHead := commitFile(t, upstream, "c.txt", "c", "More feature work")
	runGit(t, upstream, "update-ref", "refs/pull/7/head", newHead)

	require.NoError(t, repo.CheckoutPullRequest(context.Background(), clone, 7, "feature"))
	assert.Equal(t, "feature", runGit(t, clone, "rev-parse", "--abbrev-ref", "HEAD"))
	assert.Equal(t, newHead, runGit(t, clone, "rev-parse", "HEAD"))
}

func TestCheckoutPullRequest_DivergedBranchUntouched(t *testing.T) {
	requireGit(t)
	_, clone, prHead := prFixture(t)

	// A local feature branch with unpushed work that the PR head lacks.
	runGit(t, clone, "checkout", "-b", "feature")
	local := commitFile(t, clone, "local.txt", "mine", "Unpushed work")
	runGit(t, clone, "checkout", "main")

	err := NewRepository("").CheckoutPullRequest(context.Background(), clone, 7, "feature")

	require.ErrorIs(t, err, driven.ErrBranchDiverged)
	assert.Equal(t, local, runGit(t, clone, "rev-parse", "refs/heads/feature"))
	assert.Equal(t, "main", runGit(t, clone, "rev-parse", "--abbrev-ref", "HEAD"))
	assert.NotEqual(t, prHead, local)
}
