package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

func checkCmd() *cobra.Command {
	var (
		dryRun bool
		repo   string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run one check cycle for the current repository",
		Long: `Run one forced check cycle for the current repository and print the
notifications it produced. With --dry-run nothing is shown or recorded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runCheck(ctx, cmd.OutOrStdout(), repo, dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print notifications without showing or recording them")
	cmd.Flags().StringVar(&repo, "repo", "", "select this repository (owner/name) before checking")
	return cmd
}

func runCheck(ctx context.Context, out io.Writer, repo string, dryRun bool) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	svc := a.notificationService(dryRun)
	if repo != "" {
		if err := a.repoStore.SetCurrent(ctx, repo); err != nil {
			return fmt.Errorf("select repository %s: %w", repo, err)
		}
	}

	notifications, err := svc.RunOnce(ctx, true)
	if err != nil {
		return err
	}
	printNotifications(out, notifications)
	return nil
}

func printNotifications(out io.Writer, notifications []model.Notification) {
	if len(notifications) == 0 {
		fmt.Fprintln(out, "No new check failures.")
		return
	}
	for _, n := range notifications {
		fmt.Fprintf(out, "%s\n%s\n", n.Title, n.Body)
		if n.DialogURL != "" {
			fmt.Fprintf(out, "%s\n", n.DialogURL)
		}
		fmt.Fprintln(out)
	}
}
