package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shelterdb/internal/blob"
	"shelterdb/internal/config"
	"shelterdb/internal/core"
	"shelterdb/internal/fixture"
	"shelterdb/internal/logging"
	"shelterdb/internal/persistence"
)

// app holds the process-wide state shared by subcommands. Backends are
// opened lazily so commands that only print static data stay cheap.
type app struct {
	configPath string
	verbose    bool
	trace      bool

	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry

	blobs   blob.Store
	kv      persistence.Store
	catalog *core.Catalog
}

// newRootCmd wires the command tree around a. The caller closes a once the
// command has run, whether or not it failed.
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "shelterctl",
		Short:         "Inspect and edit shelter collections",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			logger, err := logging.New(cfg.Logging.Level, a.verbose)
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (default $SHELTER_CONFIG)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&a.trace, "trace", false, "write JSON trace spans to stderr")

	root.AddCommand(
		newCollectionsCmd(),
		newListCmd(a),
		newGetCmd(a),
		newAddCmd(a),
		newUpdateCmd(a),
		newPatchCmd(a),
		newDeleteCmd(a),
		newResetCmd(a),
		newDiffCmd(a),
		newServeCmd(a),
		newFixturesCmd(a),
	)
	return root
}

// openBlobs opens the configured blob store once.
func (a *app) openBlobs(ctx context.Context) (blob.Store, error) {
	if a.blobs != nil {
		return a.blobs, nil
	}
	blobs, err := blob.Open(ctx, a.cfg.BlobConfig())
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	a.blobs = blobs
	return blobs, nil
}

// open builds the catalog over the configured backends.
func (a *app) open(cmd *cobra.Command) (*core.Catalog, error) {
	if a.catalog != nil {
		return a.catalog, nil
	}
	ctx := cmd.Context()
	var blobs blob.Store
	if a.cfg.NeedsBlob() {
		var err error
		if blobs, err = a.openBlobs(ctx); err != nil {
			return nil, err
		}
	}
	kv, err := persistence.Open(ctx, a.cfg.PersistenceConfig(), blobs)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.kv = kv
	fixtures, err := fixture.Open(a.cfg.FixtureConfig(), blobs)
	if err != nil {
		return nil, err
	}

	a.registry = prometheus.NewRegistry()
	prom, err := core.NewPrometheusMetricsRecorder(a.registry)
	if err != nil {
		return nil, err
	}
	opts := []core.Option{
		core.WithLogger(logging.Zap(a.logger)),
		core.WithMetricsRecorder(core.MultiMetricsRecorder(prom, core.NewExpvarMetricsRecorder(""))),
	}
	if a.trace {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(cmd.ErrOrStderr())))
	}
	for _, c := range a.cfg.AuthoritativeCollections() {
		opts = append(opts, core.WithCollectionMergeMode(c, core.MergeOverlayAuthoritative))
	}
	a.catalog = core.NewCatalog(kv, fixtures, opts...)
	a.logger.Debug("catalog opened",
		zap.String("storage", a.cfg.Storage.Driver),
		zap.String("fixtures", a.cfg.Fixtures.Driver))
	return a.catalog, nil
}

func (a *app) close() {
	if a.kv != nil {
		if err := persistence.Close(a.kv); err != nil && a.logger != nil {
			a.logger.Warn("closing storage", zap.Error(err))
		}
		a.kv = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// collection resolves name against an opened catalog.
func (a *app) collection(cmd *cobra.Command, name string) (core.Collection, error) {
	cat, err := a.open(cmd)
	if err != nil {
		return nil, err
	}
	col, err := cat.Collection(name)
	var unknown core.ErrUnknownCollection
	if errors.As(err, &unknown) {
		return nil, fmt.Errorf("%w (known: %v)", err, cat.Names())
	}
	return col, err
}
