package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ericfisherdev/ciwatch/internal/adapter/driven/browser"
	gitadapter "github.com/ericfisherdev/ciwatch/internal/adapter/driven/git"
	githubadapter "github.com/ericfisherdev/ciwatch/internal/adapter/driven/github"
	"github.com/ericfisherdev/ciwatch/internal/adapter/driven/notify"
	sqliteadapter "github.com/ericfisherdev/ciwatch/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/ciwatch/internal/application"
	"github.com/ericfisherdev/ciwatch/internal/config"
	"github.com/ericfisherdev/ciwatch/internal/domain/model"
	"github.com/ericfisherdev/ciwatch/internal/domain/port/driven"
)

// app holds the wired adapters and services shared by serve and check.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *sqliteadapter.DB

	repoStore     *sqliteadapter.RepoRepo
	prStore       *sqliteadapter.PRRepo
	checkStore    *sqliteadapter.CheckRepo
	settingsStore *sqliteadapter.RepoSettingsRepo
	muteStore     *sqliteadapter.MuteRepo
	history       *sqliteadapter.NotificationRepo

	provider    *application.GitHubClientProvider
	tracker     *application.CheckTracker
	checkStates *sqliteadapter.CheckStateRepo
	git         *gitadapter.Repository
	notifier    driven.Notifier
	checks      *application.ChecksService
	credentials *application.CredentialService
}

func logFatal(err error) {
	slog.Error("fatal error", "error", err)
}

// newLogger installs a text slog handler on stderr as the default logger.
func newLogger(level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// openApp loads configuration, opens the database and wires every adapter.
// The caller must call close.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.LogLevel)
	logger.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"poll_interval", cfg.PollInterval,
		"notifier", cfg.Notifier,
		"github_username", cfg.GitHubUsername,
	)

	// Dual reader/writer with WAL mode.
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	schemaVersion, err := sqliteadapter.RunMigrations(db.Writer)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("database ready", "path", cfg.DBPath, "schema_version", schemaVersion)

	a := &app{
		cfg:           cfg,
		logger:        logger,
		db:            db,
		repoStore:     sqliteadapter.NewRepoRepo(db),
		prStore:       sqliteadapter.NewPRRepo(db),
		checkStore:    sqliteadapter.NewCheckRepo(db),
		settingsStore: sqliteadapter.NewRepoSettingsRepo(db),
		muteStore:     sqliteadapter.NewMuteRepo(db),
		history:       sqliteadapter.NewNotificationRepo(db),
		git:           gitadapter.NewRepository(gitadapter.DefaultRemote),
	}
	credentialStore := sqliteadapter.NewCredentialRepo(db, cfg.SecretKey)

	a.notifier, err = notify.New(cfg.Notifier, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	// Stored credentials take priority over env vars.
	token, username := application.ResolveGitHubCredentials(ctx, credentialStore, cfg.GitHubToken, cfg.GitHubUsername)

	var client driven.GitHubAPI
	if token != "" && username != "" {
		client = githubadapter.NewClient(token, username)
		logger.Info("github client created", "username", username)
	} else {
		logger.Info("no github credentials configured, cycles are inactive until a token is set")
	}
	a.provider = application.NewGitHubClientProvider(client, username)

	a.checkStates = sqliteadapter.NewCheckStateRepo(db)
	a.tracker = application.NewCheckTracker(a.checkStates)
	a.checks = application.NewChecksService(a.provider, a.prStore, a.checkStore, a.repoStore, a.git, browser.NewOpener())
	a.credentials = application.NewCredentialService(credentialStore, a.provider, githubadapter.ValidateToken,
		func(token, username string) driven.GitHubAPI { return githubadapter.NewClient(token, username) })

	if err := a.seedRepository(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return a, nil
}

// seedRepository registers CIWATCH_REPOSITORY and makes it current.
func (a *app) seedRepository(ctx context.Context) error {
	fullName := a.cfg.Repository
	if fullName == "" {
		return nil
	}
	owner, name, _ := strings.Cut(fullName, "/")

	err := a.repoStore.Add(ctx, model.Repository{
		FullName:  fullName,
		Owner:     owner,
		Name:      name,
		LocalPath: a.cfg.RepoPath,
	})
	switch {
	case errors.Is(err, driven.ErrRepoAlreadyExists):
		if err := a.syncLocalPath(ctx, fullName); err != nil {
			return err
		}
	case err != nil:
		return fmt.Errorf("add repository %s: %w", fullName, err)
	}
	if err := a.repoStore.SetCurrent(ctx, fullName); err != nil {
		return fmt.Errorf("select repository %s: %w", fullName, err)
	}
	a.logger.Info("current repository", "repo", fullName, "local_path", a.cfg.RepoPath)
	return nil
}

// syncLocalPath applies CIWATCH_REPO_PATH to an already registered
// repository. An unset variable keeps the stored path.
func (a *app) syncLocalPath(ctx context.Context, fullName string) error {
	if a.cfg.RepoPath == "" {
		return nil
	}
	existing, err := a.repoStore.GetByFullName(ctx, fullName)
	if err != nil {
		return fmt.Errorf("load repository %s: %w", fullName, err)
	}
	if existing == nil || existing.LocalPath == a.cfg.RepoPath {
		return nil
	}
	if err := a.repoStore.SetLocalPath(ctx, fullName, a.cfg.RepoPath); err != nil {
		return fmt.Errorf("update local path of %s: %w", fullName, err)
	}
	a.logger.Info("local clone path updated", "repo", fullName, "from", existing.LocalPath, "to", a.cfg.RepoPath)
	return nil
}

// notificationService builds the notification loop. dryRun suppresses
// notifying and recording, and evaluates checks with a tracker that reads
// the recorded state without updating it.
func (a *app) notificationService(dryRun bool) *application.NotificationService {
	tracker := a.tracker
	if dryRun {
		tracker = application.NewReadOnlyCheckTracker(a.checkStates)
	}
	return application.NewNotificationService(application.NotificationDeps{
		Provider:         a.provider,
		Repos:            a.repoStore,
		PRs:              a.prStore,
		Checks:           a.checkStore,
		Tracker:          tracker,
		Settings:         a.settingsStore,
		Mutes:            a.muteStore,
		History:          a.history,
		Git:              a.git,
		Notifier:         a.notifier,
		PollInterval:     a.cfg.PollInterval,
		MinCheckInterval: a.cfg.MinCheckInterval,
		DialogBaseURL:    "http://" + a.cfg.ListenAddr,
		DryRun:           dryRun,
	})
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}
}
