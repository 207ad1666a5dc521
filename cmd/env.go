package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/actprep/internal/app"
	"github.com/abhisek/actprep/internal/config"
	"github.com/abhisek/actprep/internal/llm"
	"github.com/abhisek/actprep/internal/logger"
	"github.com/abhisek/actprep/internal/pinata"
	"github.com/abhisek/actprep/internal/questiongen"
	"github.com/abhisek/actprep/internal/store"
	"github.com/abhisek/actprep/internal/telemetry"
)

// env holds everything a command needs. Close releases it.
type env struct {
	cfg     *config.Config
	log     *logger.Logger
	store   *store.Store
	app     *app.App
	metrics *telemetry.Metrics
	timings *telemetry.Timings

	closers []func()
}

type envOptions struct {
	// withLLM builds the question generator. A missing provider is not an
	// error; generation is then unavailable.
	withLLM bool
}

func newEnv(cmd *cobra.Command, opts envOptions) (*env, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	e := &env{cfg: cfg, log: log}
	e.closers = append(e.closers, log.Sync)

	dbPath, err := resolveDBPath(cmd, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	e.store = st
	e.closers = append(e.closers, func() { _ = st.Close() })

	shutdown, err := telemetry.InitTracing(ctx, log, telemetry.TracingConfig{
		Enabled:     cfg.OTel.Enabled,
		ServiceName: cfg.OTel.ServiceName,
		Version:     version,
		Stdout:      cfg.OTel.Stdout,
	})
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	e.closers = append(e.closers, func() { _ = shutdown(context.Background()) })

	e.timings = telemetry.NewTimings()
	e.metrics = telemetry.NewMetrics()
	recorders := []telemetry.Recorder{e.timings, e.metrics}
	if cfg.OTel.Enabled {
		recorders = append(recorders, telemetry.NewTracer(nil))
	}
	rec := telemetry.Multi(recorders...)

	source, sink, err := e.responseStore(ctx)
	if err != nil {
		e.Close()
		return nil, err
	}

	params, err := cfg.Params()
	if err != nil {
		e.Close()
		return nil, err
	}
	seeds, _ := cfg.Seeds()
	baseline, _ := cfg.BaselineScores()

	deps := app.Deps{
		Source:    source,
		Sink:      sink,
		Snapshots: st.SnapshotRepo(),
		Logger:    log,
		Recorder:  rec,
		Counter:   e.metrics,
	}

	if opts.withLLM {
		provider, llmCfg, err := llm.NewProviderFromEnv(ctx, llm.Options{
			EventRepo: st.EventRepo(),
			Logger:    log,
			Recorder:  rec,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "LLM provider not configured:", err)
			fmt.Fprintln(os.Stderr, "Question generation will be unavailable.")
		} else {
			log.Info("llm provider ready", "provider", llmCfg.Provider, "model", provider.ModelID())
			genCfg := questiongen.DefaultConfig()
			genCfg.Timeout = llmCfg.Timeout
			deps.Generator = questiongen.New(provider, genCfg,
				questiongen.WithLogger(log),
				questiongen.WithRecorder(rec),
				questiongen.WithCounter(e.metrics),
			)
		}
	}

	e.app = app.New(deps, app.Settings{
		Params:       params,
		Seeds:        seeds,
		Baseline:     baseline,
		FetchLimit:   cfg.Store.FetchLimit,
		FetchTimeout: cfg.Store.FetchTimeout,
		Cooldown:     cfg.Cooldown,
	})
	return e, nil
}

// responseStore picks the configured blob source and sink.
func (e *env) responseStore(ctx context.Context) (store.BlobSource, store.BlobSink, error) {
	if e.cfg.Store.Backend != config.BackendPinata {
		repo := e.store.ResponseRepo()
		return repo, repo, nil
	}

	var opts []pinata.Option
	if addr := e.cfg.Pinata.RedisAddr; addr != "" {
		cache, err := pinata.NewRedisCache(ctx, addr, 0)
		if err != nil {
			e.log.Warn("pin cache disabled", "error", err)
		} else {
			opts = append(opts, pinata.WithCache(cache))
			e.closers = append(e.closers, func() { _ = cache.Close() })
		}
	}

	client, err := pinata.New(e.log, pinata.Config{
		JWT:        e.cfg.Pinata.JWT,
		APIURL:     e.cfg.Pinata.APIURL,
		GatewayURL: e.cfg.Pinata.GatewayURL,
		Timeout:    e.cfg.Store.FetchTimeout,
	}, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("init pinata: %w", err)
	}
	return client, client, nil
}

func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
}
