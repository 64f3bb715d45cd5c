package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/koopa0/sessionvault/internal/session"
)

// NewSessionsCmd creates the sessions command (factory pattern)
func NewSessionsCmd(app *App) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage session lifecycle",
	}

	sessionsCmd.AddCommand(newSessionsCreateCmd(app))
	sessionsCmd.AddCommand(newSessionsListCmd(app))
	sessionsCmd.AddCommand(newSessionsShowCmd(app))
	sessionsCmd.AddCommand(newSessionsTransitionCmd(app, "suspend", "Suspend an active session"))
	sessionsCmd.AddCommand(newSessionsTransitionCmd(app, "resume", "Resume a suspended session"))
	sessionsCmd.AddCommand(newSessionsTransitionCmd(app, "complete", "Complete a session (terminal)"))
	sessionsCmd.AddCommand(newSessionsDeleteCmd(app))

	return sessionsCmd
}

func newSessionsCreateCmd(app *App) *cobra.Command {
	var (
		name        string
		description string
		tags        []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new session",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, _, err := app.Manager.CreateSession(cmd.Context(), session.CreateOptions{
				Name:        name,
				Description: description,
				Tags:        tags,
			})
			if err != nil {
				return fmt.Errorf("failed to create session: %w", err)
			}
			fmt.Println(sess.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "session name")
	cmd.Flags().StringVarP(&description, "description", "d", "", "session description")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "session tag (repeatable)")

	return cmd
}

func newSessionsListCmd(app *App) *cobra.Command {
	var (
		state string
		tags  []string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsList(cmd.Context(), app, session.Query{
				State: session.State(state),
				Tags:  tags,
				Limit: limit,
			})
		},
	}

	cmd.Flags().StringVarP(&state, "state", "s", "", "filter by state (active, suspended, completed)")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "filter by tag (repeatable, all must match)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 100, "maximum sessions to list")

	return cmd
}

func newSessionsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session with storage accounting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsShow(cmd.Context(), app, args[0])
		},
	}
}

func newSessionsTransitionCmd(app *App, verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <session-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid session ID: %s", args[0])
			}

			ctx := cmd.Context()
			secCtx := app.adminContext(id)
			switch verb {
			case "suspend":
				err = app.Manager.SuspendSession(ctx, secCtx, id)
			case "resume":
				err = app.Manager.ResumeSession(ctx, secCtx, id)
			case "complete":
				err = app.Manager.CompleteSession(ctx, secCtx, id)
			}
			if err != nil {
				return fmt.Errorf("failed to %s session: %w", verb, err)
			}
			fmt.Printf("session %s %sd\n", id, verb)
			return nil
		},
	}
}

func newSessionsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session and all its artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid session ID: %s", args[0])
			}
			if err := app.Manager.DeleteSession(cmd.Context(), app.adminContext(id), id); err != nil {
				return fmt.Errorf("failed to delete session: %w", err)
			}
			fmt.Printf("session %s deleted\n", id)
			return nil
		},
	}
}

func runSessionsList(ctx context.Context, app *App, query session.Query) error {
	sessions, err := app.Manager.ListSessions(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATE\tTAGS\tCREATED\tUPDATED")
	for _, sess := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\t%s\n",
			sess.ID,
			sess.Name,
			sess.State,
			sess.Tags,
			formatTime(sess.CreatedAt),
			formatTime(sess.UpdatedAt),
		)
	}
	return w.Flush()
}

func runSessionsShow(ctx context.Context, app *App, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid session ID: %s", rawID)
	}

	sess, err := app.Manager.GetSession(ctx, app.adminContext(id), id)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	fmt.Printf("Session ID: %s\n", sess.ID)
	fmt.Printf("Name: %s\n", sess.Name)
	if sess.Description != "" {
		fmt.Printf("Description: %s\n", sess.Description)
	}
	fmt.Printf("State: %s\n", sess.State)
	if len(sess.Tags) > 0 {
		fmt.Printf("Tags: %v\n", sess.Tags)
	}
	fmt.Printf("Created: %s\n", formatTime(sess.CreatedAt))
	fmt.Printf("Updated: %s\n", formatTime(sess.UpdatedAt))
	fmt.Printf("Artifacts: %d (%d bytes)\n", sess.ArtifactCount, sess.TotalBytes)
	return nil
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}
