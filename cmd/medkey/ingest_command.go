package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"medkey/internal/api"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var (
		indexVectors bool
		jsonOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "ingest <base.csv>",
		Short: "Load a curated exam base into the registry",
		Long: "Parses the curated base CSV, creates master key groups with " +
			"deterministic fingerprints, and optionally embeds and indexes " +
			"each group for dense retrieval.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			summary, err := api.IngestBase(cmd.Context(), api.IngestRequest{
				Config:       cfg,
				Logger:       ctx.ensureLogger(),
				Path:         args[0],
				IndexVectors: indexVectors,
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, summary)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "rows: %d\n", summary.Rows)
			fmt.Fprintf(out, "groups: %d\n", summary.Groups)
			fmt.Fprintf(out, "fingerprints: %d\n", summary.Fingerprints)
			fmt.Fprintf(out, "vectors: %d\n", summary.Vectors)
			fmt.Fprintf(out, "skipped: %d\n", summary.Skipped)
			return nil
		},
	}

	cmd.Flags().BoolVar(&indexVectors, "index-vectors", false, "Embed and upsert groups into the vector index")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the summary as JSON")

	return cmd
}
