package cli

import (
	"fmt"
	"log/slog"

	"github.com/crabritto/arbor"
	"github.com/crabritto/arbor/internal/config"
	"github.com/crabritto/arbor/internal/metrics"
	"github.com/crabritto/arbor/pkg/adapters/analysis"
	"github.com/crabritto/arbor/pkg/adapters/redis"
	"github.com/crabritto/arbor/pkg/domain"
	"github.com/crabritto/arbor/pkg/persistence"
)

// Runtime is a Service together with the resources it was built from.
type Runtime struct {
	Service *arbor.Service
	Metrics *metrics.Metrics
	Logger  *slog.Logger

	closers []func() error
}

// Close releases store connections.
func (r *Runtime) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewRuntime builds a Service from configuration with standard CLI conventions.
func NewRuntime(cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	rt := &Runtime{
		Metrics: metrics.New(),
		Logger:  logger,
	}

	client := analysis.NewClient(cfg.Service.BaseURL,
		analysis.WithTimeout(cfg.Service.Timeout),
		analysis.WithEnvelope(cfg.Service.Envelope),
		analysis.WithLogger(logger),
	)

	opts := []arbor.Option{
		arbor.WithLogger(logger),
		arbor.WithMetrics(rt.Metrics),
		arbor.WithAnalyzer(client),
		arbor.WithKeyScheme(domain.KeyScheme(cfg.Wire.KeyScheme)),
		arbor.WithDisplay(cfg.Display.Delimiter, cfg.Display.StaticBaseURL),
	}

	if cfg.Store.Backend == "redis" {
		rc := cfg.Store.Redis
		storeOpts := []redis.Option{
			redis.WithPrefix(rc.Prefix),
			redis.WithTTL(rc.TTL),
		}
		if rc.EncryptionKey != "" {
			keys, err := persistence.ParseKeys(rc.EncryptionKey, rc.FallbackKeys)
			if err != nil {
				return nil, err
			}
			codec, err := persistence.NewEncryptedCodec(nil, keys)
			if err != nil {
				return nil, err
			}
			storeOpts = append(storeOpts, redis.WithCodec(codec))
		}
		store := redis.New(rc.Addr, rc.Password, rc.DB, storeOpts...)
		locker := redis.NewLocker(store.Client(), rc.Prefix)
		opts = append(opts, arbor.WithStore(store), arbor.WithLocker(locker, rc.LockTTL))
		rt.closers = append(rt.closers, store.Close)
		logger.Info("Using Redis session store", "addr", rc.Addr, "prefix", rc.Prefix, "ttl", rc.TTL, "encrypted", rc.EncryptionKey != "")
	}

	svc, err := arbor.New(opts...)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("error initializing arbor: %w", err)
	}
	rt.Service = svc
	return rt, nil
}
