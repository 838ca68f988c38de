package main

import (
	"github.com/spf13/cobra"

	"github.com/sozercan/cheatsheet-ai/internal/server"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := server.New(a.cfg.Server, a.pipeline, a.memory, a.persister)
			return srv.Run()
		},
	}
}
