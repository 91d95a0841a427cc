package app

import (
	"context"
	"fmt"
	"os"

	"github.com/apiwire-hq/apiwire/internal/config"
	"github.com/apiwire-hq/apiwire/internal/logger"
	"github.com/apiwire-hq/apiwire/internal/tokenstore"
	"github.com/apiwire-hq/apiwire/pkg/services"
	"github.com/apiwire-hq/apiwire/pkg/sinks"
	"github.com/apiwire-hq/apiwire/pkg/typedhttp"
)

// Runtime wires the service registry, typed client, token store, and call
// record sinks into a ready-to-use caller.
type Runtime struct {
	cfg      *config.Config
	registry *services.Registry
	client   *typedhttp.Client
	fanout   *sinks.Fanout
	store    tokenstore.Store
	log      logger.Logger
}

// NewRuntime builds the runtime from config files.
func NewRuntime(ctx context.Context, cfg *config.Config, log logger.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	registry, err := services.LoadRegistry(cfg.ServicesFile)
	if err != nil {
		return nil, fmt.Errorf("load services registry: %w", err)
	}
	svcList := registry.All()
	svcIDs := make([]string, 0, len(svcList))
	for _, s := range svcList {
		svcIDs = append(svcIDs, s.ID)
	}
	log.InfoObj("services registry loaded", "services_meta", map[string]any{
		"count": len(svcIDs),
		"ids":   svcIDs,
	})

	fanout, err := buildFanout(ctx, cfg.SinksFile, log)
	if err != nil {
		return nil, fmt.Errorf("build sinks: %w", err)
	}
	log.InfoObj("call record sinks ready", "sinks_meta", map[string]any{
		"count": fanout.Size(),
	})

	storeOpts := tokenstore.Options{
		TokenTTL:        cfg.TokenTTL,
		CleanupInterval: cfg.TokenCleanup,
	}
	store, err := tokenstore.NewStore(cfg.TokenStoreType, cfg.BBoltPath, storeOpts)
	if err != nil {
		return nil, fmt.Errorf("init token store: %w", err)
	}
	log.InfoObj("token store initialized", "token_store_config", map[string]any{
		"type":            cfg.TokenStoreType,
		"path":            cfg.BBoltPath,
		"ttl_seconds":     int(cfg.TokenTTL.Seconds()),
		"cleanup_seconds": int(cfg.TokenCleanup.Seconds()),
	})

	transport := typedhttp.NewRestyTransport(cfg.HTTPTimeout)
	client := typedhttp.New(transport, typedhttp.WithReporter(&fanoutReporter{fanout: fanout, log: log}))

	return &Runtime{
		cfg:      cfg,
		registry: registry,
		client:   client,
		fanout:   fanout,
		store:    store,
		log:      log,
	}, nil
}

// buildFanout loads sink configs when the file exists; a missing sinks file
// means reporting is disabled, not a startup failure.
func buildFanout(ctx context.Context, path string, log logger.Logger) (*sinks.Fanout, error) {
	if _, err := os.Stat(path); err != nil {
		log.WarnObj("sinks file not found; call reporting disabled", "sinks_file", path)
		return sinks.NewFanout(nil), nil
	}

	reg, err := sinks.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load sinks registry: %w", err)
	}

	built, err := sinks.BuildAll(ctx, sinks.DefaultRegistry(), reg.Enabled(), log)
	if err != nil {
		return nil, err
	}
	return sinks.NewFanout(built), nil
}

// fanoutReporter forwards call reports to the sink fanout.
type fanoutReporter struct {
	fanout *sinks.Fanout
	log    logger.Logger
}

func (f *fanoutReporter) Report(ctx context.Context, rep typedhttp.CallReport) {
	if f == nil || f.fanout == nil || f.fanout.Size() == 0 {
		return
	}
	if _, err := f.fanout.Deliver(ctx, sinks.NewRecord(rep)); err != nil {
		f.log.WarnObj("call record delivery failed", "sink_error", err.Error())
	}
}

// Registry exposes the loaded service registry.
func (r *Runtime) Registry() *services.Registry { return r.registry }

// Close releases runtime resources.
func (r *Runtime) Close() {
	if r == nil || r.store == nil {
		return
	}
	if err := r.store.Close(); err != nil {
		r.log.ErrorObj("token store close failed", "error", err)
	}
}
