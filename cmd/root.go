// Package cmd implements the sessionvault command-line interface.
//
// Design: Following the pattern used by kubectl, hugo, and other
// standard Go CLI tools, all application logic is contained in
// the cmd package, leaving main.go as a minimal entry point.
// Subcommands are built with factory functions that take their
// dependencies explicitly, keeping them testable without global state.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/koopa0/sessionvault/internal/config"
	"github.com/koopa0/sessionvault/internal/log"
)

// Execute is the main entry point for the sessionvault CLI.
func Execute() error {
	// Version and help work even if config is invalid
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			return runVersion(nil)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := log.New(log.Config{Level: cfg.LogLevelSlog(), JSON: cfg.LogJSON})

	root, cleanup, err := newRootCmd(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	return root.Execute()
}

// newRootCmd wires the storage stack and registers subcommands. The
// returned cleanup closes the state store and drains the event bus.
func newRootCmd(cfg *config.Config, logger log.Logger) (*cobra.Command, func(), error) {
	app, cleanup, err := buildApp(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	root := &cobra.Command{
		Use:   "sessionvault",
		Short: "Content-addressed session and artifact storage",
		Long: `sessionvault persists conversational sessions and the artifacts
they produce. Artifacts are content-addressed, deduplicated, and
transparently compressed; sessions follow an Active/Suspended/Completed
lifecycle.`,
		SilenceUsage: true,
	}

	root.AddCommand(NewSessionsCmd(app))
	root.AddCommand(NewArtifactsCmd(app))
	root.AddCommand(NewVersionCmd(cfg))

	return root, cleanup, nil
}
