// Package commands implements the leapextract subcommands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapextract/internal/cli/output"
	"github.com/leapstack-labs/leapextract/internal/config"
	"github.com/leapstack-labs/leapextract/internal/extraction"
	"github.com/leapstack-labs/leapextract/internal/registry"
	"github.com/leapstack-labs/leapextract/internal/state"
	"github.com/leapstack-labs/leapextract/pkg/adapter"
	"github.com/leapstack-labs/leapextract/pkg/dialect"
)

// Runtime is the per-invocation environment shared by commands.
type Runtime struct {
	Config *config.Config
	Logger *slog.Logger
	Out    *output.Renderer
}

type runtimeKey struct{}

// WithRuntime stores rt in ctx.
func WithRuntime(ctx context.Context, rt *Runtime) context.Context {
	return context.WithValue(ctx, runtimeKey{}, rt)
}

// RuntimeFrom returns the runtime stored in ctx, or a default one.
func RuntimeFrom(ctx context.Context) *Runtime {
	if rt, ok := ctx.Value(runtimeKey{}).(*Runtime); ok {
		return rt
	}
	return &Runtime{
		Config: &config.Config{
			Target:       &config.TargetConfig{Type: config.DefaultTargetType},
			StatePath:    config.DefaultStateFile,
			OutputFormat: config.DefaultOutput,
		},
		Logger: slog.New(slog.DiscardHandler),
		Out:    output.NewRenderer(os.Stdout, os.Stderr, output.ModeAuto),
	}
}

// newRegistry builds the format registry with the configured fallback families.
func (rt *Runtime) newRegistry() *registry.FormatRegistry {
	var opts []registry.Option
	if families := rt.Config.Formats.FallbackFamilies; len(families) > 0 {
		opts = append(opts, registry.WithFallbackFamilies(families...))
	}
	return registry.NewDefault(rt.Logger, opts...)
}

// openStore opens the state store, creating its directory when needed.
func (rt *Runtime) openStore() (*state.SQLiteStore, error) {
	path := rt.Config.StatePath
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore(rt.Logger)
	if err := store.Open(path); err != nil {
		return nil, err
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// session holds the resources of a command talking to the datastore.
type session struct {
	ds        adapter.Adapter
	store     *state.SQLiteStore
	extractor *extraction.Extractor
}

// openSession connects to the configured target and builds an extractor.
// The state store is opened when withStore is set; products are then
// recorded in it.
func (rt *Runtime) openSession(ctx context.Context, withStore bool) (_ *session, err error) {
	cfg := rt.Config
	d, err := dialect.Resolve(cfg.DialectName())
	if err != nil {
		return nil, err
	}

	ds, err := adapter.NewAdapter(cfg.AdapterConfig(), rt.Logger)
	if err != nil {
		return nil, err
	}
	if err := ds.Connect(ctx, cfg.AdapterConfig()); err != nil {
		return nil, fmt.Errorf("failed to connect to %s target: %w", cfg.Target.Type, err)
	}
	s := &session{ds: ds}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	ecfg := extraction.Config{
		Datastore:        ds,
		Dialect:          d,
		Registry:         rt.newRegistry(),
		KeepFailedTables: cfg.Extraction.KeepFailedTables,
		Observer:         logStateChanges(rt.Logger),
		Logger:           rt.Logger,
	}
	if withStore {
		if s.store, err = rt.openStore(); err != nil {
			return nil, err
		}
		ecfg.Products = s.store
	}

	if s.extractor, err = extraction.New(ecfg); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the session resources.
func (s *session) Close() error {
	var errs []error
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	errs = append(errs, s.ds.Close())
	return errors.Join(errs...)
}

func logStateChanges(logger *slog.Logger) extraction.Observer {
	return func(c extraction.StateChange) {
		attrs := []any{
			slog.String("run_id", c.RunID),
			slog.String("format", c.Format.String()),
			slog.String("state", c.State.String()),
		}
		if c.Sheet != "" {
			attrs = append(attrs, slog.String("sheet", c.Sheet))
		}
		if c.Table != "" {
			attrs = append(attrs, slog.String("table", c.Table), slog.Int64("rows", c.Rows))
		}
		logger.Debug("extraction state", attrs...)
	}
}
