package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"reflect"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/jeralabs/jera/export"
	"github.com/jeralabs/jera/featureflag"
	"github.com/jeralabs/jera/graph"
	jerahttp "github.com/jeralabs/jera/http"
	"github.com/jeralabs/jera/manifest"
	"github.com/jeralabs/jera/models"
	"github.com/jeralabs/jera/sector"
	"github.com/jeralabs/jera/spatial"
	"github.com/jeralabs/jera/stream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
)

var (
	// The Jera version number. Set at build.
	version = "v0.3.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "jera_info",
		Help:        "Jera information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr              string        `cli:""        env:"JERA_ADDR"                help:"Listening address for client connections."`
	AdminAddr         string        `cli:""        env:"JERA_ADMIN_ADDR"          help:"Admin listening address."`
	Manifest          string        `cli:""        env:"JERA_MANIFEST"            help:"Path to the build manifest."`
	Output            string        `cli:""        env:"JERA_OUTPUT"              help:"Path where the graph export is written."`
	Build             bool          `cli:""        env:"-"                        help:"Run one generation cycle, write the export and exit."`
	LogLevel          string        `cli:""        env:"JERA_LOG_LEVEL"           help:"Log level (debug|info|warning|error)."`
	LogIndent         bool          `cli:""        env:"JERA_LOG_INDENT"          help:"Indent logs."`
	ClientIdleTimeout time.Duration `cli:",hidden" env:"JERA_CLIENT_IDLE_TIMEOUT" help:"Time until an idle streaming client will be disconnected."`
	RebuildInterval   time.Duration `cli:",hidden" env:"JERA_REBUILD_INTERVAL"    help:"The duration between generation cycles while serving. 0 disables rebuilds."`
	FeatureFlags      []string      `cli:",hidden" env:"JERA_FEATURE_FLAGS"       help:"Comma separated feature flags"`
	Events            eventsConfig  `cli:",hidden" env:"-"                        help:"Event pusher configuration."`
	Version           bool          `cli:""        env:"-"                        help:"Show version."`
	Help              bool          `cli:""        env:"-"                        help:"Show help."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"JERA_EVENTS_ENDPOINT"       help:"Endpoint to where events are pushed."`
	FlushInterval time.Duration `cli:",hidden" env:"JERA_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"JERA_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"JERA_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	conf := config{
		Addr:              ":4000",
		AdminAddr:         ":18190",
		Manifest:          "jera.yml",
		Output:            "world_graph.json",
		LogLevel:          logs.InfoLevel.String(),
		ClientIdleTimeout: time.Minute * 5,
		Events: eventsConfig{
			FlushInterval: events.DefaultFlushInterval,
			BatchSize:     events.DefaultBatchSize,
			QueueSize:     events.DefaultQueueSize,
		},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts the Jera world generation server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	transport := metrics.HTTPTransport(http.DefaultTransport)

	if conf.Events.Endpoint != "" {
		eventsPusher := events.Pusher{
			Endpoint:      conf.Events.Endpoint,
			FlushInterval: conf.Events.FlushInterval,
			BatchSize:     conf.Events.BatchSize,
			QueueSize:     conf.Events.QueueSize,
			Transport:     transport,
		}
		go eventsPusher.Start()
		defer eventsPusher.Close()

		eventsLogger := events.Logger{
			Pusher:           &eventsPusher,
			SDKType:          "jera",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	m, err := manifest.Load(conf.Manifest)
	if err != nil {
		logs.Fatal(errors.New("loading manifest failed").Wrap(err))
	}

	flags := featureflag.New(conf.FeatureFlags)

	idx, tree, err := runCycle(m, flags)
	if err != nil {
		logs.Fatal(errors.New("generation cycle failed").Wrap(err))
	}

	if conf.Build {
		if err := export.WriteFile(conf.Output, tree); err != nil {
			logs.Fatal(errors.New("writing graph export failed").Wrap(err))
		}
		logs.WithTag("output", conf.Output).
			WithTag("nodes", tree.Len()).
			WithTag("assets", idx.AssetCount()).
			Info("graph export written")
		return
	}

	var store spatial.Store
	store.Publish(idx)

	streamer, err := sector.New(m.WorldBounds(), m.SectorSize, sector.Metric(m.Metric))
	if err != nil {
		logs.Fatal(errors.New("creating sector streamer failed").Wrap(err))
	}

	streamHandler := &stream.Handler{
		Streamer:          streamer,
		Store:             &store,
		ClientIdleTimeout: conf.ClientIdleTimeout,
		FeatureFlags:      flags,
		ConnIDs:           &models.SequentialIDGenerator{},
	}

	if conf.RebuildInterval > 0 {
		go rebuildLoop(ctx, conf.RebuildInterval, m, flags, &store)
	}

	var service http.ServeMux
	service.Handle("/stream", jerahttp.HandleWithCORS(jerahttp.HandleStream(ctx, streamHandler)))
	service.Handle("/assets/query", jerahttp.HandleWithCORS(jerahttp.HandleAssetQuery(&store, flags)))
	service.Handle("/health", jerahttp.HandleWithCORS(http.HandlerFunc(jerahttp.HandleHealthCheck)))
	service.Handle("/version", jerahttp.HandleWithCORS(http.HandlerFunc(jerahttp.HandleVersion(version))))

	readinessCheck := func() bool {
		_, ok := store.Current()
		return ok
	}
	service.Handle("/ready", jerahttp.HandleWithCORS(http.HandlerFunc(jerahttp.HandleReadyCheck(readinessCheck))))

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", jerahttp.HandleHealthCheck)
	admin.HandleFunc("/version", jerahttp.HandleVersion(version))
	admin.HandleFunc("/ready", jerahttp.HandleReadyCheck(readinessCheck))
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("manifest", conf.Manifest).
		WithTag("assets", idx.AssetCount()).
		WithTag("nodes", tree.Len()).
		Info("starting jera server")

	jerahttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			jerahttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)
}

// runCycle runs one generation cycle: load assets, build the spatial index,
// compose the content graph.
func runCycle(m manifest.Manifest, flags featureflag.FeatureFlag) (*spatial.Index, *graph.Tree, error) {
	assets, err := manifest.LoadAssets(m.AssetFile)
	if err != nil {
		return nil, nil, errors.New("loading asset list failed").Wrap(err)
	}

	idx, err := spatial.Build(m.WorldBounds(), assets, m.IndexOptions())
	if err != nil {
		return nil, nil, errors.New("building spatial index failed").Wrap(err)
	}

	parallel := true
	flags.IfSet(featureflag.FlagDisableParallelGraphBuild, func() {
		parallel = false
	})

	tree, err := graph.Build(idx, m.GraphConfig(parallel))
	if err != nil {
		return nil, nil, errors.New("building content graph failed").Wrap(err)
	}

	logDiagnostics("index", idx.Diagnostics())
	logDiagnostics("graph", tree.Diagnostics())

	return idx, tree, nil
}

// rebuildLoop reruns the generation cycle on a fixed interval and publishes
// the fresh index. Streaming clients keep querying the previous index until
// the publish.
func rebuildLoop(ctx context.Context, interval time.Duration, m manifest.Manifest, flags featureflag.FeatureFlag, store *spatial.Store) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			idx, tree, err := runCycle(m, flags)
			if err != nil {
				logs.Warn(errors.New("generation cycle failed").Wrap(err))
				continue
			}
			store.Publish(idx)
			logs.WithTag("assets", idx.AssetCount()).
				WithTag("nodes", tree.Len()).
				Info("index rebuilt")
		}
	}
}

func logDiagnostics(stage string, diags models.Diagnostics) {
	for _, w := range diags {
		logs.WithTag("stage", stage).
			WithTag("kind", w.Kind).
			WithTag("asset_id", w.AssetID).
			WithTag("detail", w.Detail).
			Debug("build warning")
	}
	if len(diags) != 0 {
		logs.WithTag("stage", stage).
			WithTag("warnings", len(diags)).
			Info("build completed with warnings")
	}
}

func validateConfig(conf config) error {
	if conf.Manifest == "" {
		return errors.New("manifest path is empty")
	}
	if conf.Build && conf.Output == "" {
		return errors.New("output path is empty")
	}
	if conf.ClientIdleTimeout <= 0 {
		return errors.New("client idle timeout must be positive").
			WithTag("client_idle_timeout", conf.ClientIdleTimeout)
	}
	return nil
}
