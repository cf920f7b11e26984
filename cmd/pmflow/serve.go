package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pmflow/app/api"
	"pmflow/app/config"
	"pmflow/pkg/log"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and run the timer sweep",
	RunE: func(cmd *cobra.Command, args []string) error {
		noSweep, _ := cmd.Flags().GetBool("no-sweep")

		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		server := api.NewServer(rt.engine, api.Options{
			EnforcePermissions: config.Config.API.EnforcePermissions,
			Metrics:            rt.metrics.Handler(),
		})
		addr := fmt.Sprintf("%s:%d", config.Config.API.Host, config.Config.API.Port)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			log.Infof(nil, "serving api on %s", addr)
			return server.ListenAndServe(gctx, addr)
		})
		if !noSweep {
			g.Go(func() error {
				err := rt.sweeper().Run(gctx)
				if err == context.Canceled {
					return nil
				}
				return err
			})
		}
		err = g.Wait()
		log.Infof(nil, "pmflow stopped")
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("no-sweep", false, "do not fire timers from this process")
}
