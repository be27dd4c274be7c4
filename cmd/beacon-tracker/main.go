/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command beacon-tracker discovers beacon endpoints, polls or tracks their
// readings and records tracking sessions. It serves the query/control API
// and, when enabled, publishes events to NATS JetStream.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/carverauto/beaconradar/pkg/api"
	"github.com/carverauto/beaconradar/pkg/config"
	"github.com/carverauto/beaconradar/pkg/endpoint"
	"github.com/carverauto/beaconradar/pkg/endpoint/behaviors"
	"github.com/carverauto/beaconradar/pkg/kv"
	"github.com/carverauto/beaconradar/pkg/lifecycle"
	"github.com/carverauto/beaconradar/pkg/logger"
	"github.com/carverauto/beaconradar/pkg/models"
	"github.com/carverauto/beaconradar/pkg/natsutil"
	"github.com/carverauto/beaconradar/pkg/recording"
	"github.com/carverauto/beaconradar/pkg/recordstore"
	"github.com/carverauto/beaconradar/pkg/registry"
	"github.com/carverauto/beaconradar/pkg/session"
	"github.com/carverauto/beaconradar/pkg/simulator"
	"github.com/carverauto/beaconradar/pkg/timeline"
	"github.com/carverauto/beaconradar/pkg/version"
	"golang.org/x/sync/errgroup"
)

const (
	defaultConfigBucket = "beaconradar-config"
	persistTimeout      = 15 * time.Second
)

var errNoNATS = errors.New("events are enabled but no nats section is configured")

func main() {
	configPath := flag.String("config", "/etc/beaconradar/tracker.json", "Path to config file")
	simulate := flag.Bool("simulate", false, "Scan simulated endpoints instead of a radio")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetFullVersion())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *simulate); err != nil {
		log.Fatalf("beacon-tracker: %v", err)
	}
}

func run(ctx context.Context, configPath string, simulate bool) error {
	cfgLoader := config.NewConfig(nil)

	configKV, err := bootstrapConfigKV(ctx)
	if err != nil {
		return err
	}

	if configKV != nil {
		defer func() { _ = configKV.Close() }()

		cfgLoader.SetKVStore(configKV)
	}

	var cfg models.TrackerConfig
	if err := cfgLoader.LoadAndValidate(ctx, configPath, &cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	mainLogger, err := lifecycle.CreateComponentLogger(ctx, cfg.ServiceName, cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	defer func() {
		if err := lifecycle.ShutdownLogger(); err != nil {
			log.Printf("Failed to shutdown logger: %v", err)
		}
	}()

	initMetrics(ctx, &cfg, mainLogger)

	if simulate && (cfg.Simulator == nil || !cfg.Simulator.Enabled) {
		cfg.Simulator = models.DefaultSimulatorConfig()
	}

	policies, err := timeline.PoliciesFromConfig(cfg.Compactors)
	if err != nil {
		return fmt.Errorf("invalid compactors: %w", err)
	}

	var (
		factory *endpoint.Factory
		sim     *simulator.Simulator
		radio   session.Connector
	)

	if cfg.Simulator != nil && cfg.Simulator.Enabled {
		sim = simulator.New(*cfg.Simulator,
			simulator.ResolverFunc(func(name string) (string, bool) { return factory.Resolve(name) }),
			mainLogger)
		radio = sim
	} else {
		mainLogger.Warn().Msg("No scanner configured, only synthetic endpoints will be tracked")
	}

	factory = endpoint.NewFactory(radio, cfg.Endpoint, mainLogger,
		endpoint.WithAliases(behaviors.DefaultAliases),
		endpoint.WithAliases(cfg.EndpointTypes))
	behaviors.Register(factory)

	reg := registry.New(factory, cfg.Registry, mainLogger)
	defer reg.Close()

	positioning := behaviors.NewPositioning(reg, mainLogger, nil)
	if err := reg.AddSynthetic(positioning.Endpoint); err != nil {
		return err
	}

	store, err := recordstore.Open(ctx, cfg.Storage, cfg.NATS, mainLogger)
	if err != nil {
		return fmt.Errorf("failed to open recording store: %w", err)
	}

	defer func() { _ = store.Close() }()

	manager := recording.NewManager(reg, store, policies, mainLogger)
	if err := manager.Init(ctx); err != nil {
		mainLogger.Error().Err(err).Msg("Recording index unavailable, starting with an empty one")
	}

	sanitized, err := config.SanitizeForDisplay(&cfg)
	if err != nil {
		mainLogger.Warn().Err(err).Msg("Failed to render configuration for the status API")
	}

	server := api.NewServer(cfg.API, mainLogger,
		api.WithEndpoints(reg),
		api.WithRecorder(manager),
		api.WithServiceName(cfg.ServiceName),
		api.WithConfig(sanitized))
	reg.AddListener(server.Hub())
	manager.AddListener(server.Hub())

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Events.Enabled {
		bridge, closeEvents, err := startEvents(ctx, &cfg, mainLogger)
		if err != nil {
			return err
		}

		defer closeEvents()

		reg.AddListener(bridge)
		manager.AddListener(bridge)

		g.Go(func() error { return ignoreCanceled(bridge.Run(gctx)) })
	}

	g.Go(func() error { return ignoreCanceled(reg.Start(gctx)) })
	g.Go(func() error { return server.Start(gctx) })

	if sim != nil {
		g.Go(func() error { return ignoreCanceled(sim.Run(gctx, reg, positioning)) })
	}

	if configKV != nil {
		g.Go(func() error {
			config.WatchKV(gctx, configKV, configPath, mainLogger, func(data []byte) {
				reloadLogging(data, mainLogger)
			})

			return nil
		})
	}

	mainLogger.Info().
		Str("version", version.GetFullVersion()).
		Str("storage", cfg.Storage.Backend).
		Bool("simulator", sim != nil).
		Bool("events", cfg.Events.Enabled).
		Msg("Beacon tracker started")

	err = g.Wait()

	persistActive(manager, mainLogger)

	return err
}

// bootstrapConfigKV connects to the configuration bucket when
// CONFIG_SOURCE=kv. The connection settings come from the environment since
// the configuration itself lives in the bucket.
func bootstrapConfigKV(ctx context.Context) (kv.KVStore, error) {
	if !strings.EqualFold(os.Getenv("CONFIG_SOURCE"), "kv") {
		return nil, nil
	}

	natsCfg := &models.NATSConfig{
		URL:    os.Getenv("KV_NATS_URL"),
		Domain: os.Getenv("KV_NATS_DOMAIN"),
	}

	if dir := os.Getenv("KV_CERT_DIR"); dir != "" {
		natsCfg.Security = &models.SecurityConfig{
			CertDir:  dir,
			CertFile: "client.pem",
			KeyFile:  "client-key.pem",
			CAFile:   "root.pem",
		}
	}

	if err := natsCfg.Validate(); err != nil {
		return nil, fmt.Errorf("CONFIG_SOURCE=kv requires KV_NATS_URL: %w", err)
	}

	bucket := os.Getenv("KV_BUCKET")
	if bucket == "" {
		bucket = defaultConfigBucket
	}

	bootLogger, err := lifecycle.CreateComponentLogger(ctx, "config-bootstrap", nil)
	if err != nil {
		return nil, err
	}

	store, err := kv.NewNatsStore(ctx, natsCfg, bucket, bootLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to config bucket: %w", err)
	}

	return store, nil
}

func initMetrics(ctx context.Context, cfg *models.TrackerConfig, log logger.Logger) {
	if cfg.Logging == nil {
		return
	}

	_, err := logger.InitializeMetrics(ctx, logger.MetricsConfig{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: version.GetVersion(),
		OTel:           &cfg.Logging.OTel,
	})

	switch {
	case errors.Is(err, logger.ErrOTelMetricsDisabled):
	case err != nil:
		log.Warn().Err(err).Msg("Failed to initialize OTel metrics")
	default:
		log.Info().Str("endpoint", cfg.Logging.OTel.Endpoint).Msg("OTel metrics exporter initialized")
	}
}

func startEvents(ctx context.Context, cfg *models.TrackerConfig, log logger.Logger) (*natsutil.Bridge, func(), error) {
	if cfg.NATS == nil {
		return nil, nil, errNoNATS
	}

	nc, err := natsutil.Connect(cfg.NATS, cfg.ServiceName, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := natsutil.JetStream(nc, cfg.NATS.Domain)
	if err != nil {
		nc.Close()
		return nil, nil, err
	}

	publisher := natsutil.NewEventPublisher(js, cfg.Events.StreamName, cfg.ServiceName)
	if err := publisher.EnsureStream(ctx, cfg.Events.Subjects); err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to prepare event stream: %w", err)
	}

	closeFn := func() {
		if err := nc.Drain(); err != nil {
			log.Debug().Err(err).Msg("NATS drain failed")
		}
	}

	return natsutil.NewBridge(publisher, log, 0), closeFn, nil
}

// reloadLogging applies the logging section of an updated configuration.
// Every other change takes effect on restart.
func reloadLogging(data []byte, log logger.Logger) {
	var next models.TrackerConfig
	if err := config.Decode(data, &next); err != nil {
		log.Warn().Err(err).Msg("Ignoring invalid configuration update")
		return
	}

	level, err := lifecycle.ApplyLevel(next.Logging)
	if err != nil {
		log.Warn().Err(err).Msg("Ignoring invalid log level")
		return
	}

	log.Info().Str("level", level.String()).Msg("Configuration updated; log level applied, other changes need a restart")
}

// persistActive stops and saves a recording still running at shutdown.
func persistActive(manager *recording.Manager, log logger.Logger) {
	if !manager.IsRecording() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if _, err := manager.StopTracking(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to persist active recording on shutdown")
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}
