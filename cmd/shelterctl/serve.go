package main

import (
	"fmt"
	"net"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shelterdb/internal/adapters/httpapi"
	"shelterdb/internal/blob"
	"shelterdb/internal/logging"
	"shelterdb/internal/persistence"
	"shelterdb/internal/submissions"
	"shelterdb/internal/watch"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the collections over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cat, err := a.open(cmd)
			if err != nil {
				return err
			}
			log := logging.Zap(a.logger)

			if a.cfg.Watch {
				dir, err := a.overlayDir()
				if err != nil {
					return err
				}
				w, err := watch.New(dir, cat, watch.WithLogger(log))
				if err != nil {
					return err
				}
				if err := w.Start(ctx); err != nil {
					return err
				}
				defer w.Stop()
			}

			if addr == "" {
				addr = a.cfg.HTTP.Addr
			}
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}
			api := httpapi.NewHandler(cat, submissions.New(cat, submissions.WithLogger(log)))
			api.Logger = log
			a.logger.Info("serving", zap.String("addr", ln.Addr().String()))
			fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", ln.Addr())
			return httpapi.Serve(ctx, ln, httpapi.Routes(api, a.registry))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}

// overlayDir is the directory holding overlay files, which only exists when
// overlays are stored as blobs on the local filesystem.
func (a *app) overlayDir() (string, error) {
	if a.cfg.Storage.Driver != string(persistence.DriverBlob) || a.cfg.Blob.Driver != string(blob.DriverFilesystem) {
		return "", fmt.Errorf("watch requires storage driver blob over blob driver fs, have %s over %s", a.cfg.Storage.Driver, a.cfg.Blob.Driver)
	}
	prefix := a.cfg.Storage.BlobPrefix
	if prefix == "" {
		prefix = "overlay/"
	}
	return filepath.Join(a.cfg.Blob.FSRoot, filepath.FromSlash(prefix)), nil
}
