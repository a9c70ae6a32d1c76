package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	_ "github.com/nerrad567/gray-logic-rf433/migrations"

	"github.com/nerrad567/gray-logic-rf433/internal/api"
	rfbridge "github.com/nerrad567/gray-logic-rf433/internal/bridges/rf433"
	"github.com/nerrad567/gray-logic-rf433/internal/discovery"
	"github.com/nerrad567/gray-logic-rf433/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-rf433/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-rf433/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-rf433/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-rf433/internal/infrastructure/modbus"
	"github.com/nerrad567/gray-logic-rf433/internal/infrastructure/mqtt"
)

// healthCheckInterval is how often the run loop re-checks infrastructure.
const healthCheckInterval = time.Minute

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Receive frames and publish them to MQTT",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts.configPath)
		},
	}
}

// run is the bridge's main loop, separated from the command for testability.
func run(ctx context.Context, configPath string) error {
	log := logging.Default()
	log.Info("starting RF433 bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := loadConfig(configPath, false)
	if err != nil {
		return err
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)

	// Receiver first: without a pin there is nothing to bridge.
	rx, err := openReceiver(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rx.Close(); closeErr != nil {
			log.Error("error closing receiver", "error", closeErr)
		}
	}()

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	recorder := rfbridge.NewRecorder(db.DB)
	recorder.SetLogger(log)
	if err := recorder.Start(); err != nil {
		return fmt.Errorf("starting transmitter recorder: %w", err)
	}
	defer recorder.Stop()

	mqttClient, err := connectMQTT(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()

	bridgeOpts := rfbridge.BridgeOptions{
		Source:         rx.dev,
		MQTT:           mqttClient,
		Version:        version,
		HealthInterval: cfg.GetHealthInterval(),
		Logger:         log.With("component", "bridge"),
		Recorder:       recorder,
	}

	var hub *api.Hub
	if cfg.API.Enabled {
		hub = api.NewHub(cfg.WebSocket, log.With("component", "websocket"))
		bridgeOpts.Observer = hub
	}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		bridgeOpts.Metrics = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	if cfg.Modbus.Enabled {
		registers, err := modbus.NewWriter(cfg.Modbus)
		if err != nil {
			return err
		}
		defer registers.Close()
		bridgeOpts.Registers = registers
		log.Info("Modbus export enabled", "endpoint", cfg.Modbus.Endpoint, "slots", cfg.Modbus.Slots)
	}

	bridge, err := rfbridge.NewBridge(bridgeOpts)
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if err := rx.dev.StartReceiving(); err != nil {
		return fmt.Errorf("starting receiver: %w", err)
	}
	if err := bridge.Start(ctx); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer bridge.Stop()

	if cfg.API.Enabled {
		srv, err := api.New(api.Deps{
			Config:   cfg.API,
			WS:       cfg.WebSocket,
			Logger:   log.With("component", "api"),
			Receiver: rx.dev,
			Bridge:   bridge,
			DB:       db,
			Hub:      hub,
			Version:  version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer srv.Close()

		if cfg.Discovery.Enabled {
			adv, err := discovery.Advertise(cfg.Discovery, srv.Port(), discovery.Info{
				Version:  version,
				SiteID:   cfg.Site.ID,
				Protocol: cfg.Receiver.Protocol,
				Pin:      cfg.Receiver.Pin,
			})
			if err != nil {
				log.Warn("mDNS advertisement failed", "error", err)
			} else {
				defer adv.Shutdown()
				log.Info("advertising API over mDNS", "instance", cfg.Discovery.Instance, "port", srv.Port())
			}
		}
	}

	log.Info("initialisation complete, receiving")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bridge.Run(gctx)
	})
	g.Go(func() error {
		return watchHealth(gctx, log, db, mqttClient, influxClient)
	})

	err = g.Wait()
	log.Info("RF433 bridge stopping", "reason", stopReason(ctx, err))
	return err
}

func connectMQTT(cfg *config.Config, log *logging.Logger) (*mqtt.Client, error) {
	lwt, err := rfbridge.LWTPayload()
	if err != nil {
		return nil, fmt.Errorf("building LWT: %w", err)
	}

	client, err := mqtt.Connect(cfg.MQTT, mqtt.Will{
		Topic:   mqtt.Topics{}.BridgeHealth(rfbridge.Protocol),
		Payload: lwt,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}

	client.SetLogger(log)
	client.SetOnConnect(func() {
		log.Info("MQTT connected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	return client, nil
}

// healthCheck verifies all infrastructure connections are healthy.
// influxClient may be nil when InfluxDB is disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}

// watchHealth logs infrastructure failures until ctx ends. Failures are
// not fatal: MQTT and InfluxDB reconnect on their own.
func watchHealth(ctx context.Context, log *logging.Logger, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := healthCheck(checkCtx, db, mqttClient, influxClient); err != nil {
				log.Warn("health check failed", "error", err)
			}
			cancel()
		}
	}
}

func stopReason(ctx context.Context, err error) string {
	switch {
	case err != nil:
		return err.Error()
	case ctx.Err() != nil:
		return "shutdown signal"
	default:
		return "receiver stopped"
	}
}
