// Command supervisor runs the suit safety supervisor loop: it wires
// board bring-up, configuration, the hazard evaluator, the audit sink
// and its telemetry/archive/notify backends, Prometheus metrics, and
// the Secondary Link transport, then runs the loop until terminated.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/aegissuit/supervisor/internal/actuator"
	"github.com/aegissuit/supervisor/internal/audit"
	"github.com/aegissuit/supervisor/internal/boardinit"
	"github.com/aegissuit/supervisor/internal/clock"
	"github.com/aegissuit/supervisor/internal/config"
	"github.com/aegissuit/supervisor/internal/hazard"
	"github.com/aegissuit/supervisor/internal/metrics"
	"github.com/aegissuit/supervisor/internal/secondary"
	"github.com/aegissuit/supervisor/internal/secondary/grpcframe"
	"github.com/aegissuit/supervisor/internal/secondary/identity"
	"github.com/aegissuit/supervisor/internal/secureelement"
	"github.com/aegissuit/supervisor/internal/sensors"
	"github.com/aegissuit/supervisor/internal/supervisor"
	"github.com/aegissuit/supervisor/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the supervisor config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	go serveMetrics(cfg.Metrics.ListenAddr, reg)

	var link secondary.Link
	var secondaryVerifier *identity.SecondaryVerifier

	err = boardinit.Sequence(ctx, []boardinit.Step{
		{Name: "secondary_link", Run: func(ctx context.Context) error {
			l, verifier, err := dialSecondary(ctx, cfg)
			link, secondaryVerifier = l, verifier
			return err
		}},
	})
	if err != nil {
		slog.Error("board bring-up failed", "err", err)
		os.Exit(1)
	}
	if secondaryVerifier != nil {
		defer secondaryVerifier.Close()
	}

	element, err := secureelement.NewSoft(os.Getenv("PROVISIONING_APPROVAL_CODE"))
	if err != nil {
		slog.Error("secure element init failed", "err", err)
		os.Exit(1)
	}

	queue := telemetry.NewRedisQueue(telemetry.RedisQueueConfig{
		Addr:   cfg.Telemetry.RedisAddr,
		Key:    cfg.Telemetry.RedisKey,
		MaxLen: cfg.Telemetry.MaxLen,
	})

	sink := audit.NewSink(cfg.NodeID, element, queue, m)
	if cfg.Archive.Enabled {
		arc, err := telemetry.NewSpannerArchive(ctx, cfg.Archive.Project, cfg.Archive.Instance, cfg.Archive.Database, cfg.Archive.Table)
		if err != nil {
			slog.Warn("archive backend unavailable, continuing without it", "err", err)
		} else {
			sink.Archive = arc
		}
	}
	if cfg.Notify.Enabled {
		notifier, err := telemetry.NewCloudTasksNotifier(ctx, cfg.Notify.Project, cfg.Notify.Location, cfg.Notify.Queue, cfg.Notify.TargetURL)
		if err != nil {
			slog.Warn("ops notifier unavailable, continuing without it", "err", err)
		} else {
			sink.Notifier = notifier
		}
	}

	actuatorPort := &hilActuator{}
	actuatorCtrl := supervisor.NewActuatorController(actuatorPort, sink)

	thresholds := hazard.Thresholds{
		HeartbeatTimeoutMs:   uint32(cfg.Hazard.HeartbeatTimeoutMs),
		LoadThresholdKg:      float32(cfg.Hazard.LoadThresholdKg),
		SensorMismatchRatio:  float32(cfg.Hazard.SensorMismatchRatio),
		DropRateThresholdKgS: float32(cfg.Hazard.DropRateThresholdKgS),
	}

	loop := supervisor.NewLoop(cfg.NodeID, clock.NewSystem(), &hilSensors{}, link, actuatorCtrl, hazard.NewEvaluator(thresholds), sink, m)
	loop.SampleInterval = cfg.Hazard.SampleInterval()
	loop.Boot(ctx)

	slog.Info("supervisor loop starting", "node_id", cfg.NodeID, "sample_interval", loop.SampleInterval)
	if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("supervisor loop exited with error", "err", err)
		os.Exit(1)
	}
	slog.Info("supervisor loop stopped")
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Warn("metrics listener stopped", "err", err)
	}
}

// dialSecondary builds the Secondary Link backend the config selects.
// The i2c backend requires a HIL build providing a real i2cframe.Bus —
// none ships in this repo, since bit-banging a hardware bus from a Go
// process is board-specific glue outside the supervisor's scope — so
// selecting it here is a configuration error, not a silent fallback.
func dialSecondary(ctx context.Context, cfg *config.Config) (secondary.Link, *identity.SecondaryVerifier, error) {
	switch cfg.Secondary.Backend {
	case "grpc":
		verifier, err := identity.NewSecondaryVerifier(ctx, cfg.Identity.SPIFFESocketPath, cfg.Identity.TrustDomain)
		if err != nil {
			return nil, nil, err
		}
		cc, err := grpc.NewClient(cfg.Secondary.GRPCAddr, grpc.WithTransportCredentials(credentials.NewTLS(verifier.ClientTLSConfig())))
		if err != nil {
			return nil, verifier, err
		}
		return grpcframe.NewLink(cc), verifier, nil
	default:
		return nil, nil, errUnsupportedBackend(cfg.Secondary.Backend)
	}
}

type errUnsupportedBackend string

func (e errUnsupportedBackend) Error() string {
	return "unsupported secondary link backend (no in-repo HIL bus driver): " + string(e)
}

// hilSensors and hilActuator are placeholders for the board-specific ADC
// and GPIO glue a real HIL build supplies; this binary is the
// software-in-the-loop target and never touches real hardware.
type hilSensors struct{ sensors.Fake }

type hilActuator struct{}

func (hilActuator) SetMechReleaseLine(locked bool)              {}
func (hilActuator) SetDescentLine(enabled bool)                 {}
func (hilActuator) SetStatusLED(pattern actuator.StatusPattern) {}
