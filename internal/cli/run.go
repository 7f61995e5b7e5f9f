package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bear-monitor/internal/alert"
	"bear-monitor/internal/common/httpserver"
	"bear-monitor/internal/common/mqtt"
	"bear-monitor/internal/cooldown"
	"bear-monitor/internal/httpapi"
	"bear-monitor/internal/scheduler"
	"bear-monitor/internal/session"
	"bear-monitor/internal/transport"
	mqttgw "bear-monitor/internal/transport/mqtt"
	"bear-monitor/internal/transport/rfcomm"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runNoConnect bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to the wearable and start monitoring",
	Long: `Connect to the configured wearable, classify telemetry, relay critical
alerts and serve the status API.

Examples:
  bear-monitor run
  TRANSPORT=mqtt MQTT_BROKER=tcp://gateway:1883 bear-monitor run
  bear-monitor run --no-connect   # connect later via POST /api/v1/session/connect`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMonitor(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runNoConnect, "no-connect", false, "Do not connect to the device on startup")
}

func runMonitor(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg, log := a.cfg, a.logger

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	provider, cleanup, err := buildProvider(a)
	if err != nil {
		return err
	}
	defer cleanup()

	var cooldowns cooldown.Store
	if cfg.Alert.CooldownBackend == "redis" {
		cooldowns = cooldown.NewRedisStore(a.redis, cfg.Alert.CooldownPrefix)
	}
	relay := alert.NewHTTPRelay(cfg.Alert.RelayURL, cfg.Alert.Timeout, log)
	dispatcher := alert.NewDispatcher(relay, a.auth, cooldowns, alert.Options{
		QueueSize: cfg.Alert.QueueSize,
		Timeout:   cfg.Alert.Timeout,
		Enabled:   a.settings.HealthAlertsEnabled,
	}, log)
	// worker 使用独立的 context：关闭时先排空队列中的告警，再取消
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	dispatcher.Start(workerCtx)
	defer dispatcher.Stop()

	sess := session.New(provider, dispatcher, session.Options{
		HistoryCapacity:          cfg.Session.HistoryCapacity,
		Location:                 loc,
		ResetCooldownsAtMidnight: cfg.Session.ResetCooldownsAtMidnight,
	}, log)
	defer sess.Disconnect()

	reset := scheduler.NewDailyReset(sess, cfg.Session.ResetCheckInterval, nil, log)

	router := httpapi.NewRouter()
	router.RegisterMonitorRoutes(httpapi.NewMonitorHandler(sess, a.settings, cfg.Target, log))
	srv := httpserver.NewServer(cfg.HTTPAddr, router, log)

	errCh := make(chan error, 2)
	go func() {
		errCh <- srv.Start()
	}()
	go func() {
		if err := reset.Start(ctx); err != nil && ctx.Err() == nil {
			errCh <- err
		}
	}()

	if _, ok := a.auth.Token(); !ok {
		log.Warn("Not signed in, critical alerts will not be relayed (run `bear-monitor login`)")
	}
	if !runNoConnect {
		if !sess.Connect(ctx, cfg.Target) {
			log.Warn("Initial connect failed, waiting for POST /api/v1/session/connect")
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("Monitor stopped with error", zap.Error(err))
			runErr = err
		}
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop HTTP server", zap.Error(err))
	}
	return runErr
}

// buildProvider 按 TRANSPORT 构建传输
func buildProvider(a *app) (transport.Provider, func(), error) {
	cfg, log := a.cfg, a.logger
	switch cfg.Transport {
	case "mqtt":
		client, err := mqtt.NewClient(&cfg.MQTT, log)
		if err != nil {
			return nil, nil, err
		}
		gw := mqttgw.NewGateway(client, cfg.MQTTTopicPrefix, cfg.MQTT.QoS, cfg.GatewayDevices, log)
		client.OnConnectionLost(gw.ConnectionLost)
		return gw.Provider(), client.Disconnect, nil
	case "rfcomm":
		if len(cfg.RFCOMMDevices) == 0 {
			log.Warn("No RFCOMM devices configured (set RFCOMM_DEVICES=address,name,/dev/rfcomm0)")
		}
		t := rfcomm.New(cfg.RFCOMMDevices, nil, log)
		return t.Provider(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported transport %q", cfg.Transport)
	}
}
