package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.trai.ch/bindle/internal/adapters/web"
)

const shutdownGrace = 5 * time.Second

func (c *CLI) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve compiled modules over HTTP, rebuilding on file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			noWatch, _ := cmd.Flags().GetBool("no-watch")
			ctx := cmd.Context()

			application := c.components.App
			if !noWatch {
				if err := application.Watch(ctx); err != nil {
					return err
				}
			}

			// Build the first generation before accepting requests, so the
			// first page load never pays the full walk.
			if _, err := application.Map(ctx); err != nil {
				return err
			}

			server := web.NewServer(application, c.components.Logger)
			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start(addr)
			}()

			c.components.Logger.Info("serving modules on " + addr)

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().StringP("addr", "a", ":3000", "Address to listen on")
	cmd.Flags().Bool("no-watch", false, "Disable file watching and map invalidation")
	return cmd
}
