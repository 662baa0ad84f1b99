package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "reservoir_controller/docs"
	"reservoir_controller/internal/actuation"
	"reservoir_controller/internal/handlers"
	"reservoir_controller/internal/logger"
	"reservoir_controller/internal/models"
	"reservoir_controller/internal/notify"
	"reservoir_controller/internal/repository"
	"reservoir_controller/internal/repository/db"
	"reservoir_controller/internal/sensors"
	"reservoir_controller/internal/server"
	"reservoir_controller/internal/service"

	"github.com/spf13/viper"
)

const defaultPollTick = 1 * time.Second

func main() {
	// init logger
	log := logger.Get(logger.InfoLevel)

	// load config.yml
	if err := loadConfig(); err != nil {
		log.Fatalw("error reading config", "err", err)
	}

	// open DB
	sqlDB, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Fatalw("failed to close sqlite", "err", cerr)
		}
	}()

	repos := repository.NewRepository(sqlDB)

	var reservoirs []models.ReservoirConfig
	if err := viper.UnmarshalKey("reservoirs", &reservoirs); err != nil {
		log.Fatalw("error parsing reservoir topology", "err", err)
	}
	if len(reservoirs) == 0 {
		log.Warnw("no reservoirs configured")
	}

	store := sensors.NewStore(viper.GetDuration("control.reading_max_age"))
	totals := sensors.NewTotalizer()

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	act := connectActuation(ctx, store, totals, log)

	// The notifier mutes while any reservoir is feeding. Its gate is
	// bound after NewService because the feeding state lives there.
	var services *service.Service
	notifier := notify.NewWebhookNotifier(
		viper.GetString("notify.webhook_url"),
		func() bool { return services != nil && services.FeedingActive() },
		log,
	)

	services = service.NewService(repos, store, totals, act, notifier, log, service.Options{
		Reservoirs:     reservoirs,
		FeedingTimeout: viper.GetDuration("control.feeding_timeout"),
		MaxDoseSeconds: viper.GetFloat64("control.max_dose_seconds"),
		SigningKey:     viper.GetString("auth.signing_key"),
	})

	// A readable but empty calibration store is a fresh install; a
	// failing one is fatal before any pump can run.
	count, err := services.VerifyStore(ctx)
	if err != nil {
		log.Fatalw("failed to read calibration store", "err", err)
	}
	if count == 0 {
		log.Warnw("no pump calibrations on record; dosing stays suppressed until pumps are calibrated")
	}

	apiHandler := handlers.NewHandler(services, log)

	// start the control loop
	pollTick := viper.GetDuration("control.poll_interval")
	if pollTick <= 0 {
		pollTick = defaultPollTick
	}
	go services.Control.Run(ctx, pollTick)

	// periodic snapshot events
	sampler := service.NewSamplerService(services.Monitoring, services.Flow, reservoirs, repos.Events, log)
	if err := sampler.Start(); err != nil {
		log.Fatalw("failed to start sampler", "err", err)
	}
	defer sampler.Stop()

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "reservoir.db")
		dbPath = "reservoir.db"
	}
	return db.InitDB(dbPath)
}

// connectActuation dials the MQTT broker and returns an actuator and
// sensor ingest bound to it. Without a broker the controller still
// serves the API and logs actuation instead of publishing it.
func connectActuation(ctx context.Context, store *sensors.Store, totals *sensors.Totalizer, log *logger.Logger) actuation.Actuator {
	broker := viper.GetString("mqtt.broker")
	if broker == "" {
		log.Warnw("mqtt.broker not set; actuation and sensor ingest are log-only")
		return actuation.NewLogActuator(log)
	}

	client, err := sensors.Connect(ctx, sensors.MQTTConfig{
		Broker:   broker,
		ClientID: viper.GetString("mqtt.client_id"),
		Username: viper.GetString("mqtt.username"),
		Password: viper.GetString("mqtt.password"),
	}, log)
	if err != nil {
		log.Fatalw("failed to connect mqtt broker", "broker", broker, "err", err)
	}

	ingest := sensors.NewIngest(client, store, totals, log)
	if err := ingest.Subscribe(); err != nil {
		log.Fatalw("failed to subscribe to sensor topics", "err", err)
	}

	return actuation.NewMQTTActuator(client)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
