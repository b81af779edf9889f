package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"screenlink/internal/core/domain"
	"screenlink/internal/core/ports"
	"screenlink/internal/core/services"
	"screenlink/internal/infrastructure/capture"
	"screenlink/internal/infrastructure/encoding"
	"screenlink/internal/infrastructure/ice"
	"screenlink/internal/infrastructure/media"
	"screenlink/internal/infrastructure/monitoring"
	"screenlink/internal/infrastructure/render"
	sigchan "screenlink/internal/infrastructure/signal"
	"screenlink/pkg/config"
	"screenlink/pkg/logger"
	"screenlink/pkg/tracing"
)

func main() {
	var (
		configPath = flag.String("config", "configs/config.yaml", "path to the YAML configuration")
		listenPort = flag.Int("listen-port", 0, "wait for the peer on this port")
		call       = flag.String("call", "", "connect to a listening peer, host:port")

		view      = flag.Bool("view", false, "receive and display the peer's screen")
		shareIdx  = flag.Int("screenshare-screen", -1, "share the screen with this index")
		shareAll  = flag.Bool("screenshare-all", false, "share the union of all screens")
		shareRect = flag.String("screenshare-rectangle", "", "share an explicit WIDTHxHEIGHT+X,Y region")

		bitrate = flag.Int("bitrate", 2048, "video bitrate in kbit/s")
		latency = flag.Int("latency", 1000, "latency budget in milliseconds")
		fps     = flag.Int("fps", 30, "capture frame rate")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format).Sugar()
	defer log.Sync()

	params, err := buildParams(*listenPort, *call, *view, *shareIdx, *shareAll, *shareRect, *bitrate, *latency, *fps)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	if err := run(cfg, params, log); err != nil {
		log.Errorw("session ended with error", "error", err)
		os.Exit(1)
	}
}

// buildParams folds the CLI flags into a validated parameter set.
func buildParams(listenPort int, call string, view bool, shareIdx int, shareAll bool, shareRect string, bitrate, latency, fps int) (domain.ParameterSet, error) {
	var params domain.ParameterSet

	switch {
	case listenPort != 0 && call != "":
		return params, fmt.Errorf("--listen-port and --call are mutually exclusive")
	case listenPort != 0:
		params.Mode = domain.ModeListen
		params.Endpoint = domain.Endpoint{Port: listenPort}
	case call != "":
		host, portStr, err := net.SplitHostPort(call)
		if err != nil {
			return params, fmt.Errorf("--call wants host:port: %w", err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return params, fmt.Errorf("--call wants a numeric port: %w", err)
		}
		params.Mode = domain.ModeCall
		params.Endpoint = domain.Endpoint{Host: host, Port: port}
	default:
		return params, fmt.Errorf("one of --listen-port or --call is required")
	}

	sharing := shareIdx >= 0 || shareAll || shareRect != ""
	switch {
	case view && sharing:
		return params, fmt.Errorf("--view and --screenshare-* are mutually exclusive")
	case view:
		params.Role = domain.RoleViewer
	case sharing:
		params.Role = domain.RoleHost
		mp := &domain.MediaParams{
			ScreenIndex: shareIdx,
			AllScreens:  shareAll,
			FPS:         fps,
			BitrateKbps: bitrate,
			LatencyMS:   latency,
		}
		if !shareAll && shareRect == "" && shareIdx < 0 {
			mp.ScreenIndex = 0
		}
		if shareRect != "" {
			rect, err := domain.ParseCaptureRect(shareRect)
			if err != nil {
				return params, err
			}
			mp.Rect = &rect
		}
		params.Media = mp
	default:
		return params, fmt.Errorf("one of --view or --screenshare-* is required")
	}

	return params, params.Validate()
}

func run(cfg *config.Config, params domain.ParameterSet, log *zap.SugaredLogger) error {
	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "screenlink",
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}()

	var metrics ports.MetricsRecorder = services.NoopMetrics()
	var exporter *http.Server
	if cfg.Monitoring.PrometheusEnabled {
		metrics = monitoring.NewPrometheusCollector()
		health := monitoring.NewHealthChecker()
		exporter = monitoring.StartExporter(cfg.Monitoring.PrometheusPort, health, log)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			monitoring.StopExporter(ctx, exporter)
		}()
	}

	negotiator := ice.NewNegotiator(
		ice.Config{
			STUNServers:        cfg.ICE.STUNServers,
			NegotiationTimeout: cfg.Session.NegotiationTimeout,
			KeepaliveInterval:  cfg.ICE.KeepaliveInterval,
			FailedTimeout:      cfg.ICE.FailedTimeout,
		},
		sigchan.Config{
			HandshakeTimeout: cfg.Signal.HandshakeTimeout,
			DialAttempts:     cfg.Signal.DialAttempts,
			DialBackoff:      cfg.Signal.DialBackoff,
			PingInterval:     cfg.Signal.PingInterval,
			WriteTimeout:     cfg.Signal.WriteTimeout,
		},
		log,
	)

	builder := media.NewBuilder(
		capture.NewService(log),
		encoding.NewService(),
		&render.PlayerFactory{Command: cfg.Media.PlayerCommand, Logger: log},
		media.Config{
			MTU:            cfg.Media.MTU,
			PayloadType:    cfg.Media.PayloadType,
			RTCPInterval:   cfg.Media.RTCPInterval,
			ReceiveLatency: cfg.Media.ReceiveLatency,
			ReceiveFPSHint: cfg.Media.ReceiveFPSHint,
		},
		metrics,
		log,
	)

	session, err := services.NewSession(params, negotiator, builder,
		services.WithLogger(log),
		services.WithMetrics(metrics),
		services.WithConfig(services.SessionConfig{
			DrainTimeout:  cfg.Session.DrainTimeout,
			StatsInterval: cfg.Session.StatsInterval,
			EventBuffer:   cfg.Session.EventBuffer,
		}),
	)
	if err != nil {
		return err
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		log.Info("interrupt, shutting down")
		session.Cancel()
	}()

	log.Infow("session starting",
		"session_id", session.ID(),
		"role", params.Role,
		"mode", params.Mode,
		"endpoint", params.Endpoint.String(),
	)
	session.Start(context.Background())

	var failure error
	for ev := range session.Events() {
		switch e := ev.(type) {
		case domain.StateChanged:
			log.Infow("state", "from", e.Old, "to", e.New)
		case domain.Progress:
			log.Infow("checking connectivity", "checked", e.CandidatesChecked, "total", e.Total)
		case domain.ErrorEvent:
			log.Errorw("session error", "kind", e.Kind, "message", e.Message)
			failure = fmt.Errorf("%s: %s", e.Kind, e.Message)
		case domain.StreamStats:
			log.Infow("stream",
				"kbps", fmt.Sprintf("%.0f", e.BitrateKbps),
				"fps", fmt.Sprintf("%.1f", e.FPS),
				"rtt", e.LatencyObserved,
				"loss", fmt.Sprintf("%.2f%%", e.PacketLoss*100),
				"dropped", e.FramesDropped,
			)
		}
	}
	<-session.Done()
	log.Infow("session finished", "state", session.State())
	return failure
}
