package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"kinlib/adapters/api"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scoring and enrichment API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Server.Port = port
			}
			c, err := containerFor(cmd, cfg)
			if err != nil {
				return err
			}

			server := &http.Server{
				Addr:              ":" + cfg.Server.Port,
				Handler:           api.NewServer(c.Scoring, c.ScanService, c.EnrichmentService),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				server.Shutdown(ctx)
			}()

			log.Printf("Starting kinlib API on http://localhost:%s", cfg.Server.Port)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Listen port (default PORT or 8080)")
	return cmd
}
