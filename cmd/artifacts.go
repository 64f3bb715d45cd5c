package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/koopa0/sessionvault/internal/artifact"
)

// NewArtifactsCmd creates the artifacts command (factory pattern)
func NewArtifactsCmd(app *App) *cobra.Command {
	artifactsCmd := &cobra.Command{
		Use:   "artifacts",
		Short: "Store and retrieve session artifacts",
	}

	artifactsCmd.AddCommand(newArtifactsStoreCmd(app))
	artifactsCmd.AddCommand(newArtifactsGetCmd(app))
	artifactsCmd.AddCommand(newArtifactsQueryCmd(app))

	return artifactsCmd
}

func newArtifactsStoreCmd(app *App) *cobra.Command {
	var (
		typ  string
		name string
	)

	cmd := &cobra.Command{
		Use:   "store <session-id> <file>",
		Short: "Store a file as a session artifact",
		Long: `Store a file as a session artifact. The artifact ID is the content
hash of the file, so storing identical content twice is a no-op that
prints the same ID. Use "-" to read the payload from stdin.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArtifactsStore(cmd.Context(), app, args[0], args[1], artifact.Type(typ), name)
		},
	}

	cmd.Flags().StringVarP(&typ, "type", "t", string(artifact.TypeOther),
		"artifact type (user_input, tool_output, generated_file, other)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "logical artifact name (defaults to the file name)")

	return cmd
}

func newArtifactsGetCmd(app *App) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get <session-id> <artifact-id>",
		Short: "Retrieve an artifact's payload",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArtifactsGet(cmd.Context(), app, args[0], args[1], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write payload to file instead of stdout")

	return cmd
}

func newArtifactsQueryCmd(app *App) *cobra.Command {
	var (
		typ    string
		prefix string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "query <session-id>",
		Short: "List a session's artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArtifactsQuery(cmd.Context(), app, args[0], artifact.Filter{
				Type:       artifact.Type(typ),
				NamePrefix: prefix,
				Limit:      limit,
			})
		},
	}

	cmd.Flags().StringVarP(&typ, "type", "t", "", "filter by artifact type")
	cmd.Flags().StringVarP(&prefix, "prefix", "p", "", "filter by name prefix")
	cmd.Flags().IntVarP(&limit, "limit", "l", 100, "maximum artifacts to list")

	return cmd
}

func runArtifactsStore(ctx context.Context, app *App, rawID, file string, typ artifact.Type, name string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid session ID: %s", rawID)
	}

	var payload []byte
	if file == "-" {
		payload, err = readAllStdin()
	} else {
		payload, err = os.ReadFile(file) // #nosec G304 -- CLI user supplies the path deliberately
	}
	if err != nil {
		return fmt.Errorf("reading payload: %w", err)
	}

	if name == "" && file != "-" {
		name = baseName(file)
	}
	if name == "" {
		name = "stdin"
	}

	meta, err := app.Manager.StoreArtifact(ctx, app.adminContext(id), id, typ, name, payload)
	if err != nil {
		return fmt.Errorf("failed to store artifact: %w", err)
	}

	fmt.Println(meta.ID)
	return nil
}

func runArtifactsGet(ctx context.Context, app *App, rawID, artifactID, output string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid session ID: %s", rawID)
	}

	art, err := app.Manager.GetArtifact(ctx, app.adminContext(id), id, artifactID)
	if err != nil {
		return fmt.Errorf("failed to get artifact: %w", err)
	}

	if output == "" {
		_, err = os.Stdout.Write(art.Payload)
		return err
	}
	if err := os.WriteFile(output, art.Payload, 0o600); err != nil {
		return fmt.Errorf("writing payload: %w", err)
	}
	fmt.Printf("wrote %d bytes to %s\n", len(art.Payload), output)
	return nil
}

func runArtifactsQuery(ctx context.Context, app *App, rawID string, filter artifact.Filter) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid session ID: %s", rawID)
	}

	summaries, err := app.Manager.QueryArtifacts(ctx, app.adminContext(id), id, filter)
	if err != nil {
		return fmt.Errorf("failed to query artifacts: %w", err)
	}

	if len(summaries) == 0 {
		fmt.Println("No artifacts found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tNAME\tSIZE\tCOMPRESSED\tCREATED")
	for _, meta := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%t\t%s\n",
			shortID(meta.ID),
			meta.Type,
			meta.Name,
			meta.SizeBytes,
			meta.Compressed,
			formatTime(meta.CreatedAt),
		)
	}
	return w.Flush()
}

func readAllStdin() ([]byte, error) {
	return io.ReadAll(os.Stdin)
}

func baseName(path string) string {
	return filepath.Base(path)
}

// shortID abbreviates a content hash for table display.
func shortID(id string) string {
	if len(id) > 16 {
		return id[:16] + "…"
	}
	return id
}
