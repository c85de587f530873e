package main

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"medkey/internal/api"
	"medkey/internal/registrystore"
	"medkey/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the assignment HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.ensureLogger()

			address := bind
			if address == "" {
				address = cfg.APIBind
			}
			if address == "" {
				return errors.New("no bind address: set api_bind in config or pass --bind")
			}

			store, err := registrystore.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			retriever, err := api.BuildRetriever(cfg, store, logger)
			if err != nil {
				return err
			}
			assigner := api.NewAssigner(cfg, retriever, logger)

			srv, err := server.New(address, assigner, store, logger)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := srv.Start(runCtx); err != nil {
				return err
			}
			<-runCtx.Done()
			srv.Stop()
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address, overrides api_bind from config")
	return cmd
}
