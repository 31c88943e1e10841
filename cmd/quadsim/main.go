package main

import (
	"context"
	"fmt"
	"io"
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
	"github.com/aukilabs/smartquad/featureflag"
	"github.com/aukilabs/smartquad/geo"
	quadhttp "github.com/aukilabs/smartquad/http"
	"github.com/aukilabs/smartquad/sim"
	quadwebsocket "github.com/aukilabs/smartquad/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

var (
	// The Quadsim version number. Set at build.
	version = "v0.1.0"

	// set to 1 at startup, useful for SUM query
	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "quadsim_info",
		Help:        "Quadsim information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr              string        `cli:""        env:"QUADSIM_ADDR"               help:"Listening address for client connections."`
	AdminAddr         string        `cli:""        env:"QUADSIM_ADMIN_ADDR"         help:"Admin listening address."`
	LogLevel          string        `cli:""        env:"QUADSIM_LOG_LEVEL"          help:"Log level (debug|info|warning|error)."`
	LogIndent         bool          `cli:""        env:"QUADSIM_LOG_INDENT"         help:"Indent logs."`
	StepInterval      time.Duration `cli:",hidden" env:"QUADSIM_STEP_INTERVAL"      help:"The duration of a simulation step."`
	BroadcastInterval time.Duration `cli:",hidden" env:"QUADSIM_BROADCAST_INTERVAL" help:"The duration between websocket updates."`
	World             worldConfig   `cli:",hidden" env:"-"                          help:"World configuration."`
	Events            eventsConfig  `cli:",hidden" env:"-"                          help:"Event pusher configuration."`
	FeatureFlags      []string      `cli:",hidden" env:"QUADSIM_FEATURE_FLAGS"      help:"Comma separated feature flags"`
	Version           bool          `cli:""        env:"-"                          help:"Show version."`
	Help              bool          `cli:""        env:"-"                          help:"Show help."`
}

type worldConfig struct {
	HalfWidth    int `cli:",hidden" env:"QUADSIM_WORLD_HALF_WIDTH"   help:"The world half-width."`
	HalfHeight   int `cli:",hidden" env:"QUADSIM_WORLD_HALF_HEIGHT"  help:"The world half-height."`
	CellCapacity int `cli:",hidden" env:"QUADSIM_WORLD_CELL_CAP"     help:"The number of agents an index cell holds before subdividing."`
	MinCellSize  int `cli:",hidden" env:"QUADSIM_WORLD_MIN_CELL"     help:"The half-extent below which index cells stop subdividing."`
	Agents       int `cli:",hidden" env:"QUADSIM_WORLD_AGENTS"       help:"The number of agents spawned at startup."`
	Seed         int `cli:",hidden" env:"QUADSIM_WORLD_SEED"         help:"Seed for the movement randomness. Zero seeds from the clock."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"QUADSIM_EVENTS_ENDPOINT"       help:"Endpoint to where events are pushed."`
	FlushInterval time.Duration `cli:",hidden" env:"QUADSIM_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"QUADSIM_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"QUADSIM_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	conf := config{
		Addr:              ":4000",
		AdminAddr:         ":18190",
		LogLevel:          logs.InfoLevel.String(),
		StepInterval:      time.Millisecond * 100,
		BroadcastInterval: time.Millisecond * 200,
		World: worldConfig{
			HalfWidth:    512,
			HalfHeight:   512,
			CellCapacity: 8,
			MinCellSize:  8,
			Agents:       500,
		},
		Events: eventsConfig{
			FlushInterval: events.DefaultFlushInterval,
			BatchSize:     events.DefaultBatchSize,
			QueueSize:     events.DefaultQueueSize,
		},
	}

	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts a Quadsim server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	if conf.Events.Endpoint != "" {
		eventsPusher := events.Pusher{
			Endpoint:      conf.Events.Endpoint,
			FlushInterval: conf.Events.FlushInterval,
			BatchSize:     conf.Events.BatchSize,
			QueueSize:     conf.Events.QueueSize,
			Transport:     metrics.HTTPTransport(http.DefaultTransport),
		}
		go eventsPusher.Start()
		defer eventsPusher.Close()

		eventsLogger := events.Logger{
			Pusher:           &eventsPusher,
			SDKType:          "quadsim",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	flags := featureflag.New(conf.FeatureFlags)

	world := sim.NewWorld(sim.WorldConfig{
		Bounds: geo.Boundary{
			HX: float64(conf.World.HalfWidth),
			HY: float64(conf.World.HalfHeight),
		},
		CellCapacity: conf.World.CellCapacity,
		MinCellSize:  float64(conf.World.MinCellSize),
		Seed:         int64(conf.World.Seed),
	})
	if err := world.Spawn(conf.World.Agents); err != nil {
		logs.Fatal(errors.New("spawning agents failed").Wrap(err))
	}

	syncWorld := sim.NewSyncWorld(world)

	go func() {
		ticker := time.NewTicker(conf.StepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return

			case <-ticker.C:
				syncWorld.Step(conf.StepInterval.Seconds())
			}
		}
	}()

	newHandler := func() quadwebsocket.Handler {
		var h quadwebsocket.Handler = &quadwebsocket.RealtimeHandler{
			Agents: syncWorld,
			Flags:  flags,
		}
		h = quadwebsocket.HandlerWithMetrics(h)
		h = quadwebsocket.HandlerWithLogs(h)
		return h
	}

	var service http.ServeMux
	service.Handle("/", quadhttp.HandleWithCORS(
		quadwebsocket.Handle(newHandler, conf.BroadcastInterval)))
	service.Handle("/health", quadhttp.HandleWithCORS(http.HandlerFunc(quadhttp.HandleHealthCheck)))
	service.Handle("/version", quadhttp.HandleWithCORS(quadhttp.HandleVersion(version)))

	readinessCheck := func() bool {
		return syncWorld.Len() >= conf.World.Agents
	}
	service.Handle("/ready", quadhttp.HandleWithCORS(quadhttp.HandleReadyCheck(readinessCheck)))

	if !flags.IsSet(featureflag.FlagDisableRestAPI) {
		service.Handle("/agents", quadhttp.HandleWithCORS(quadhttp.HandleAgents(syncWorld)))
	}

	service.Handle("/ping", websocket.Server{
		Handler: func(ws *websocket.Conn) {
			defer ws.Close()
			io.Copy(ws, ws)
		},
	})

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", quadhttp.HandleHealthCheck)
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))
	admin.HandleFunc("/ready", quadhttp.HandleReadyCheck(readinessCheck))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("world_id", world.ID()).
		WithTag("agents", syncWorld.Len()).
		Info("starting quadsim server")

	quadhttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			quadhttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)
}
