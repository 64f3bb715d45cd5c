package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koopa0/sessionvault/internal/config"
)

// Version information (injected at build time via ldflags)
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// NewVersionCmd creates the version command (factory pattern)
func NewVersionCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(cfg)
		},
	}
}

func runVersion(cfg *config.Config) error {
	fmt.Printf("sessionvault %s\n", AppVersion)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)

	// cfg is nil when version is requested before config loads
	if cfg != nil {
		fmt.Println()
		fmt.Println("Configuration:")
		fmt.Printf("  Backend: %s\n", cfg.Backend)
		fmt.Printf("  Data dir: %s\n", cfg.DataDir)
		fmt.Printf("  Compression threshold: %d bytes\n", cfg.CompressionThreshold)
		fmt.Printf("  Cache capacity: %d\n", cfg.CacheCapacity)
	}
	return nil
}
