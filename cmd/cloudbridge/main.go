// Gray Logic Cloud Bridge
//
// Exposes window coverings from the Tuya device cloud to Alexa, Google
// Home, HomeKit, SmartThings and Matter. Ecosystem commands arrive over
// MQTT or the HTTP API, are translated into cloud calls, and the resulting
// state is pushed back to every ecosystem.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nerrad567/gray-logic-cloudbridge/internal/api"
	"github.com/nerrad567/gray-logic-cloudbridge/internal/auth"
	"github.com/nerrad567/gray-logic-cloudbridge/internal/bridge"
	"github.com/nerrad567/gray-logic-cloudbridge/internal/cloud"
	"github.com/nerrad567/gray-logic-cloudbridge/internal/eventbus"
	"github.com/nerrad567/gray-logic-cloudbridge/internal/history"
	"github.com/nerrad567/gray-logic-cloudbridge/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-cloudbridge/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-cloudbridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-cloudbridge/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-cloudbridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-cloudbridge/internal/platform"
	"github.com/nerrad567/gray-logic-cloudbridge/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	configEnv         = "CLOUDBRIDGE_CONFIG"
	manufacturer      = "Gray Logic"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	if len(os.Args) > 1 && os.Args[1] == "issue-token" {
		err = issueToken(os.Args[2:], os.Stdout)
	} else {
		err = run(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// issueToken prints an API access token signed with the configured secret.
//
//	cloudbridge issue-token -subject dashboard -scope read -ttl 720h
func issueToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	fs.SetOutput(out)
	subject := fs.String("subject", "", "token subject, e.g. the client name")
	scope := fs.String("scope", string(auth.ScopeRead), "token scope: read or control")
	ttl := fs.Duration("ttl", auth.DefaultTTL, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subject == "" {
		return errors.New("-subject is required")
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	tok, err := auth.GenerateAccessToken(*subject, auth.Scope(*scope), cfg.Security.JWT.Secret, cfg.Security.JWT.Issuer, *ttl)
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}
	fmt.Fprintln(out, tok)
	return nil
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Gray Logic Cloud Bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"region", cfg.Cloud.Region,
		"platforms", cfg.Bridge.Platforms,
	)

	// Command log
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
	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	commandLog := history.NewSQLiteRepository(db.DB)
	log.Info("database ready", "path", cfg.Database.Path)

	// Device cloud
	events := eventbus.New[cloud.Event]()
	events.OnDrop = bridge.ObserveDroppedEvent
	defer events.Close()

	cloudClient, err := cloud.NewClient(cloud.Options{
		ClientID: cfg.Cloud.ClientID,
		Secret:   cfg.Cloud.Secret,
		Region:   cfg.Cloud.Region,
		BaseURL:  cfg.Cloud.BaseURL,
		HomeID:   cfg.Cloud.HomeID,
		Timeout:  cfg.Cloud.RequestTimeout,
		Logger:   log.Component("cloud"),
		Bus:      events,
	})
	if err != nil {
		return fmt.Errorf("creating cloud client: %w", err)
	}

	// MQTT (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
		mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled; adapters will not publish")
	}

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
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
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Ecosystem adapters
	adapterOpts := platform.Options{
		Logger:       log.Component("platform"),
		Manufacturer: manufacturer,
	}
	if mqttClient != nil {
		adapterOpts.Publisher = mqttClient
	}
	adapters, err := platform.New(cfg.Bridge.Platforms, adapterOpts)
	if err != nil {
		return fmt.Errorf("creating adapters: %w", err)
	}

	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	go hub.Run(ctx)

	orchOpts := bridge.Options{
		Cloud:        cloudClient,
		Directory:    cloud.NewDirectory(cloudClient),
		Adapters:     adapters,
		Events:       events,
		CommandLog:   commandLog,
		Broadcaster:  hub,
		Logger:       log.Component("bridge"),
		SyncInterval: cfg.Bridge.SyncInterval,
		ResyncDelay:  cfg.Bridge.ResyncDelay,
	}
	if influxClient != nil {
		orchOpts.History = influxClient
	}
	orch, err := bridge.New(orchOpts)
	if err != nil {
		return fmt.Errorf("creating orchestrator: %w", err)
	}
	defer func() {
		log.Info("stopping orchestrator")
		orch.Stop()
	}()

	var health *bridge.HealthReporter
	if mqttClient != nil {
		health = bridge.NewHealthReporter(bridge.HealthReporterConfig{
			BridgeID:  cfg.Bridge.ID,
			Version:   version,
			Interval:  cfg.Bridge.HealthInterval,
			Publisher: mqttClient,
			Session:   cloudClient.Session(),
			Devices:   orch,
			Logger:    log.Component("health"),
		})
		if pubErr := health.PublishStarting(); pubErr != nil {
			log.Warn("publishing starting health failed", "error", pubErr)
		}
	}

	if initErr := orch.Initialize(ctx); initErr != nil {
		return fmt.Errorf("initialising bridge: %w", initErr)
	}
	log.Info("bridge initialised", "devices", orch.DeviceCount(), "platforms", orch.Platforms())

	if mqttClient != nil {
		ingress := bridge.NewCommandIngress(mqttClient, orch, orch.Platforms(), log.Component("ingress"))
		if startErr := ingress.Start(); startErr != nil {
			return fmt.Errorf("starting command ingress: %w", startErr)
		}
		defer ingress.Stop()

		health.Start(ctx)
		defer health.Stop()
	}

	srv, err := api.New(api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Security:   cfg.Security,
		Logger:     log.Component("api"),
		Bridge:     orch,
		Cloud:      cloudClient,
		CommandLog: commandLog,
		Hub:        hub,
		Gatherer:   newMetricsRegistry(),
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := srv.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")
	return nil
}

func getConfigPath() string {
	if path := os.Getenv(configEnv); path != "" {
		return path
	}
	return defaultConfigPath
}

// newMetricsRegistry collects the bridge's own metrics plus the Go runtime
// and process collectors.
func newMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	reg.MustRegister(cloud.MetricsCollectors()...)
	reg.MustRegister(platform.MetricsCollectors()...)
	reg.MustRegister(bridge.MetricsCollectors()...)
	return reg
}

const healthCheckTimeout = 5 * time.Second

func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
