package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"medkey/internal/registrystore"
)

func newRegistryCommand(ctx *commandContext) *cobra.Command {
	registryCmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect the master key registry",
	}

	registryCmd.AddCommand(newRegistryListCommand(ctx))
	registryCmd.AddCommand(newRegistryShowCommand(ctx))
	registryCmd.AddCommand(newRegistryStatsCommand(ctx))

	return registryCmd
}

func (c *commandContext) withStore(fn func(*registrystore.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := registrystore.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newRegistryListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List master key groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *registrystore.Store) error {
				groups, err := store.Groups(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, groups)
				}
				if len(groups) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "registry is empty")
					return nil
				}
				rows := make([][]string, 0, len(groups))
				for _, g := range groups {
					rows = append(rows, []string{g.MasterKey, g.CanonicalName, strconv.Itoa(g.Members)})
				}
				if !stdoutIsTerminal() {
					for _, row := range rows {
						fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", row[0], row[1], row[2])
					}
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Master Key", "Canonical Name", "Members"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit groups as JSON")
	return cmd
}

func newRegistryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <master key>",
		Short: "Show one master key group with its members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *registrystore.Store) error {
				detail, err := store.Group(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if detail == nil {
					return fmt.Errorf("master key %s not found", args[0])
				}
				if jsonOutput {
					return writeJSON(cmd, detail)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s  %s\n", detail.MasterKey, detail.CanonicalName)
				for _, member := range detail.Members {
					fmt.Fprintf(out, "  - %s\n", member)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the group as JSON")
	return cmd
}

func newRegistryStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show registry counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *registrystore.Store) error {
				stats, err := store.CollectStats(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, stats)
				}
				rows := [][]string{
					{"master keys", strconv.Itoa(stats.MasterKeys)},
					{"members", strconv.Itoa(stats.Members)},
					{"fingerprints", strconv.Itoa(stats.Fingerprints)},
					{"assignments", strconv.Itoa(stats.Assignments)},
					{"reused", strconv.Itoa(stats.Reused)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Counter", "Value"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit counters as JSON")
	return cmd
}
