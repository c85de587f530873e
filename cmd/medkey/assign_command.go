package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"medkey/internal/api"
	"medkey/internal/masterkey"
)

func newAssignCommand(ctx *commandContext) *cobra.Command {
	var (
		method       string
		specimen     string
		registryPath string
		jsonOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "assign <record name>",
		Short: "Assign a record to a master key group",
		Long: "Resolves one exam record against the registry. By default the " +
			"durable registry store is used and the decision is persisted; " +
			"pass --registry to run statelessly against a JSON snapshot.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.ensureLogger()

			record := masterkey.Record{
				Name:     strings.TrimSpace(args[0]),
				Method:   strings.TrimSpace(method),
				Specimen: strings.TrimSpace(specimen),
			}

			var decision masterkey.Decision
			if registryPath != "" {
				registry, err := loadRegistrySnapshot(registryPath)
				if err != nil {
					return err
				}
				retriever, err := api.BuildRetriever(cfg, nil, logger)
				if err != nil {
					return err
				}
				assigner := api.NewAssigner(cfg, retriever, logger)
				decision, err = assigner.Assign(cmd.Context(), record, registry)
				if err != nil {
					return err
				}
			} else {
				decision, err = api.AssignRecord(cmd.Context(), api.AssignRequest{
					Config: cfg,
					Logger: logger,
					Record: record,
				})
				if err != nil {
					return err
				}
			}

			if jsonOutput {
				return writeJSON(cmd, api.ResponseFromDecision(decision))
			}

			out := cmd.OutOrStdout()
			verb := "created"
			if decision.Reused {
				verb = "reused"
			}
			fmt.Fprintf(out, "%s %s (%s)\n", record.Name, decision.MasterKey, verb)
			if decision.HasScore {
				fmt.Fprintf(out, "score: %.4f\n", decision.Score)
			} else {
				fmt.Fprintln(out, "score: n/a (no candidates)")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&method, "method", "", "Analytical method of the record")
	cmd.Flags().StringVar(&specimen, "specimen", "", "Specimen type of the record")
	cmd.Flags().StringVar(&registryPath, "registry", "", "Registry snapshot JSON file for stateless assignment")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the wire-format JSON response")

	return cmd
}

func loadRegistrySnapshot(path string) (masterkey.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry snapshot: %w", err)
	}
	var registry masterkey.Registry
	if err := json.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("parse registry snapshot %s: %w", path, err)
	}
	if registry == nil {
		return nil, errors.New("registry snapshot must be a JSON object")
	}
	return registry, nil
}
