package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rareaward/formflow/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the nomination submission endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger()

		srv := server.New(server.Config{
			Addr:            cfg.ListenAddr,
			ReferencePrefix: cfg.ReferencePrefix,
			AllowAllOrigins: cfg.AllowAllOrigins,
		}, log)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()
		log.Info().Str("addr", cfg.ListenAddr).Msg("listening")

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case <-stop:
			log.Info().Msg("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
