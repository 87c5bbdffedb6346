package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/makstermee/Gym-planner/internal/config"
	"github.com/makstermee/Gym-planner/internal/localcache"
	"github.com/makstermee/Gym-planner/internal/logging"
	"github.com/makstermee/Gym-planner/internal/metrics"
	"github.com/makstermee/Gym-planner/internal/prefs"
	"github.com/makstermee/Gym-planner/internal/remote"
	"github.com/makstermee/Gym-planner/internal/remote/memory"
	"github.com/makstermee/Gym-planner/internal/remote/mongodoc"
	"github.com/makstermee/Gym-planner/internal/remote/redisdoc"
	"github.com/makstermee/Gym-planner/internal/session"
	"github.com/makstermee/Gym-planner/internal/state"
	"github.com/makstermee/Gym-planner/internal/timer"
	"github.com/makstermee/Gym-planner/internal/ui"
)

const (
	connectTimeout  = 5 * time.Second
	shutdownTimeout = 5 * time.Second

	// offlineDir holds the memory backend's replica, relative to the cache dir.
	offlineDir = "offline"
)

// Options configure the gymplanner runtime.
type Options struct {
	ConfigPath  string
	PrefsPath   string // empty uses default ~/.config/gymplanner/prefs.toml
	EnvFile     string // empty uses ./.env; a missing file is ignored
	Identity    string // overrides the configured identity
	LogToStderr bool
	// Config skips loading from ConfigPath when set.
	Config *config.Config
	// Remote replaces the configured backend. Close leaves it open.
	Remote remote.Channel
}

// Runtime is the wired core: one store, one timer service and one session
// controller sharing a remote channel and a local cache.
type Runtime struct {
	Config    config.Config
	Prefs     prefs.Prefs
	PrefsPath string
	Remote    remote.Channel
	Store     *state.Store
	Timers    *timer.Service
	Session   *session.Controller
	Metrics   *metrics.Manager
	Logger    logrus.FieldLogger

	registry     *prometheus.Registry
	metricsSrv   *http.Server
	closeRemote  func(context.Context) error
	closeLogging func() error
}

// Open loads configuration and builds the runtime. When an identity is known
// the store is bound to it before Open returns; the first snapshot may still
// be on its way.
func Open(ctx context.Context, opts Options) (*Runtime, error) {
	var cfg config.Config
	if opts.Config != nil {
		cfg = *opts.Config
	} else {
		if err := config.LoadEnvFile(opts.EnvFile); err != nil {
			return nil, err
		}
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if opts.Identity != "" {
		cfg.Identity = opts.Identity
	}

	logFile := cfg.LogFile
	if opts.LogToStderr {
		logFile = ""
	}
	logCloser := logging.Setup(logging.SetupParams{
		LogFileName: logFile,
		LogToStderr: opts.LogToStderr,
		LogLevel:    cfg.LogLevel,
	})
	logger := logrus.StandardLogger().WithField("app", "gymplanner")

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	userPrefs, _ := prefs.Load(prefsPath)

	rt := &Runtime{
		Config:       cfg,
		Prefs:        userPrefs,
		PrefsPath:    prefsPath,
		Logger:       logger,
		registry:     prometheus.NewRegistry(),
		closeLogging: logCloser.Close,
	}
	rt.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rt.Metrics = metrics.NewManager(metrics.Namespace, metrics.Subsystem, rt.registry)

	ch := opts.Remote
	if ch == nil {
		var closeRemote func(context.Context) error
		var err error
		ch, closeRemote, err = newRemote(ctx, cfg, logger)
		if err != nil {
			_ = logCloser.Close()
			return nil, err
		}
		rt.closeRemote = closeRemote
	}
	rt.Remote = ch

	rt.Store = state.New(state.Options{
		Remote:   ch,
		Cache:    newCache(cfg.Cache),
		Debounce: cfg.Debounce,
		Logger:   logger,
		Metrics:  rt.Metrics,
	})
	rt.Timers = timer.NewService(nil)
	rt.Session = session.New(session.Options{
		Store:    rt.Store,
		Timers:   rt.Timers,
		AutoRest: cfg.Workout.AutoRest,
		Rest:     time.Duration(cfg.Workout.RestSeconds) * time.Second,
		Logger:   logger,
		Metrics:  rt.Metrics,
	})

	if cfg.MetricsAddr != "" {
		rt.serveMetrics(cfg.MetricsAddr)
	}

	if cfg.Identity != "" {
		if err := rt.Store.Bind(ctx, cfg.Identity); err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("bind identity: %w", err)
		}
	}

	logger.WithFields(logrus.Fields{
		"remote":   cfg.Remote.Backend,
		"cache":    cfg.Cache.Backend,
		"identity": cfg.Identity,
		"debounce": cfg.Debounce,
	}).Info("runtime ready")
	return rt, nil
}

// Run opens the runtime, runs the terminal UI until the user quits or ctx is
// cancelled, and closes the runtime.
func Run(ctx context.Context, opts Options) (err error) {
	rt, err := Open(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, rt.Close())
	}()

	return ui.Run(ui.Options{
		Context:     ctx,
		Store:       rt.Store,
		Session:     rt.Session,
		Clocks:      rt.Timers,
		Prefs:       rt.Prefs,
		PrefsPath:   rt.PrefsPath,
		RestOptions: rt.Config.Workout.RestOptions,
		Logger:      rt.Logger,
	})
}

// newRemote connects the configured backend. The memory backend keeps its
// replica under the cache directory so offline data outlives the process.
func newRemote(ctx context.Context, full config.Config, logger logrus.FieldLogger) (remote.Channel, func(context.Context) error, error) {
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	cfg := full.Remote
	switch cfg.Backend {
	case config.BackendRedis:
		client, err := redisdoc.Connect(connectCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return redisdoc.New(client, logger), closeRedis(client), nil
	case config.BackendMongo:
		client, err := mongodoc.Connect(connectCtx, cfg.MongoURI)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		coll := client.Database(cfg.MongoDatabase).Collection(mongodoc.CollectionName)
		return mongodoc.New(coll, logger), client.Disconnect, nil
	case config.BackendMemory, "":
		replica := localcache.NewFile(filepath.Join(full.Cache.Dir, offlineDir))
		return memory.NewPersistent(replica), func(context.Context) error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown remote backend %q", cfg.Backend)
	}
}

func closeRedis(client *redis.Client) func(context.Context) error {
	return func(context.Context) error { return client.Close() }
}

func newCache(cfg config.Cache) localcache.Cache {
	if cfg.Backend == config.CacheMemory {
		return localcache.NewMemory(localcache.DefaultMemorySize)
	}
	return localcache.NewFile(cfg.Dir)
}

// MetricsHandler serves the runtime's prometheus registry.
func (r *Runtime) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Runtime) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.MetricsHandler())
	r.metricsSrv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.Logger.Errorf("metrics server: %s", err)
		}
	}()
	r.Logger.WithField("addr", addr).Info("serving metrics")
}

// Close flushes pending edits and releases everything Open created. Errors
// from the individual steps are combined.
func (r *Runtime) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error
	if r.Session != nil {
		r.Session.Close()
	}
	if r.Store != nil {
		if ferr := r.Store.Flush(ctx); ferr != nil {
			err = multierr.Append(err, fmt.Errorf("flush: %w", ferr))
		}
		r.Store.Close()
	}
	if r.Timers != nil {
		r.Timers.Close()
	}
	if r.metricsSrv != nil {
		err = multierr.Append(err, r.metricsSrv.Shutdown(ctx))
	}
	if r.closeRemote != nil {
		err = multierr.Append(err, r.closeRemote(ctx))
	}
	if r.closeLogging != nil {
		err = multierr.Append(err, r.closeLogging())
	}
	return err
}
