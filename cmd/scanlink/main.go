// Scanlink gateway - pairs scanner apps with the desktop host.
//
// The gateway announces itself on the local network, accepts scanner
// WebSocket connections, answers the pairing handshake and keeps the host
// informed about connection lifecycle events over MQTT.
//
// `scanlink token` prints a bearer token for the host device API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/scanlink/scanlink-core/migrations"

	"github.com/scanlink/scanlink-core/internal/discovery"
	"github.com/scanlink/scanlink-core/internal/gateway"
	"github.com/scanlink/scanlink-core/internal/host"
	"github.com/scanlink/scanlink-core/internal/identity"
	"github.com/scanlink/scanlink-core/internal/infrastructure/config"
	"github.com/scanlink/scanlink-core/internal/infrastructure/database"
	"github.com/scanlink/scanlink-core/internal/infrastructure/influxdb"
	"github.com/scanlink/scanlink-core/internal/infrastructure/logging"
	"github.com/scanlink/scanlink-core/internal/infrastructure/mqtt"
	"github.com/scanlink/scanlink-core/internal/settings"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "token" {
		os.Exit(runToken(os.Args[2:], os.Stdout, os.Stderr))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
// It returns nil on clean shutdown and an error only for startup failures.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Scanlink gateway",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	appVersion := version
	if cfg.App.Version != "" {
		appVersion = cfg.App.Version
	}

	log = logging.New(cfg.Logging, appVersion)
	log.Info("configuration loaded", "path", configPath, "level", cfg.Logging.Level)

	// Settings store
	db, err := database.Open(ctx, database.Config{
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}

	store := settings.NewSQLiteStore(db.DB)
	if loadErr := store.Load(ctx); loadErr != nil {
		// Defaults are already published; the next host update overwrites the row.
		log.Warn("stored settings unreadable, using defaults", "path", cfg.Database.Path, "error", loadErr)
	} else {
		log.Info("settings loaded", "path", cfg.Database.Path)
	}

	resolver := identity.NewResolver(store, settings.KeyServerUUID, identity.WithLogger(log))

	deps := gateway.Deps{
		Config:   cfg.Server,
		AppName:  cfg.App.Name,
		Version:  appVersion,
		Logger:   log,
		Settings: store,
		Identity: resolver,

		AuthSecret: cfg.Security.JWT.Secret,
	}
	if deps.AuthSecret == "" {
		log.Warn("security.jwt.secret not set, device API requests will be rejected")
	}

	// Host channel (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient = connectMQTT(cfg.MQTT, log)
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		notifier := host.NewMQTTNotifier(mqttClient)
		deps.Notifier = notifier
		deps.Relay = notifier
	} else {
		log.Info("MQTT disabled, host events will not be published")
	}

	// Connection telemetry (optional)
	influxClient, err := influxdb.Connect(cfg.InfluxDB, cfg.App.Name)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		log.Warn("InfluxDB unavailable, telemetry disabled", "error", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		deps.Telemetry = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	// Discovery
	if cfg.Discovery.Enabled {
		advertiser, advErr := newAdvertiser(cfg.Discovery, appVersion, log)
		if advErr != nil {
			return fmt.Errorf("configuring discovery: %w", advErr)
		}
		deps.Advertiser = advertiser
	} else {
		log.Info("discovery disabled")
	}

	gw, err := gateway.New(deps)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}
	if startErr := gw.Start(ctx); startErr != nil {
		return fmt.Errorf("starting gateway: %w", startErr)
	}
	defer func() {
		if closeErr := gw.Close(); closeErr != nil {
			log.Error("error closing gateway", "error", closeErr)
		}
	}()

	if mqttClient != nil {
		commands := host.NewCommands(gw, store)
		commands.SetLogger(log)
		if subErr := commands.Subscribe(mqttClient); subErr != nil {
			return fmt.Errorf("subscribing to host commands: %w", subErr)
		}
	}

	log.Info("initialisation complete, waiting for shutdown signal",
		"address", gw.Addr().String(),
		"path", cfg.Server.Path,
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses SCANLINK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SCANLINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// connectMQTT starts the host broker connection and installs logging callbacks.
// The broker may come up after the gateway; paho retries until it does.
func connectMQTT(cfg config.MQTTConfig, log *logging.Logger) *mqtt.Client {
	client := mqtt.Start(cfg)
	client.SetLogger(log)
	client.SetOnConnect(func() {
		log.Info("MQTT connected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connecting",
		"broker", fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port),
		"client_id", cfg.Broker.ClientID,
		"topic_prefix", cfg.TopicPrefix,
	)
	return client
}

// newAdvertiser builds the mDNS advertiser from the configured strategy order.
func newAdvertiser(cfg config.DiscoveryConfig, appVersion string, log *logging.Logger) (*discovery.Advertiser, error) {
	strategies, err := discovery.NewStrategies(cfg.Strategies, discovery.Options{
		Interface: cfg.Interface,
		TTL:       cfg.TTL,
	})
	if err != nil {
		return nil, err
	}

	advertiser := discovery.NewAdvertiser(discovery.Config{
		ServiceType: cfg.ServiceType,
		Domain:      cfg.Domain,
		Text:        []string{"version=" + appVersion},
	}, strategies...)
	advertiser.SetLogger(log)
	return advertiser, nil
}
