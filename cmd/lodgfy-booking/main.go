package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lodgfy-booking/common/database"
	"lodgfy-booking/common/logger"
	commonmqtt "lodgfy-booking/common/mqtt"
	commonredis "lodgfy-booking/common/redis"
	"lodgfy-booking/internal/auth"
	"lodgfy-booking/internal/calendar"
	"lodgfy-booking/internal/config"
	"lodgfy-booking/internal/domain"
	"lodgfy-booking/internal/events"
	httpapi "lodgfy-booking/internal/http"
	"lodgfy-booking/internal/migrations"
	"lodgfy-booking/internal/repository"
	"lodgfy-booking/internal/service"
	"lodgfy-booking/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// stores is the persistence wiring shared by both services.
type stores struct {
	tx           repository.TxManager
	locker       repository.UnitLocker
	units        repository.UnitStore
	reservations repository.ReservationStore
}

func main() {
	cfg := config.Load()

	var logOpts []logger.Option
	if cfg.Log.File != "" {
		logOpts = append(logOpts, logger.WithFile(cfg.Log.File, 100, 5))
	}
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "lodgfy-booking", logOpts...)
	if err != nil {
		log, _ = zap.NewProduction()
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Postgres when reachable, otherwise in-memory stores.
	var db *sql.DB
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for lodgfy-booking", zap.String("host", cfg.Database.Host))
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory stores", zap.Error(err))
		}
	}
	if db != nil && os.Getenv("DB_AUTO_MIGRATE") == "true" {
		if err := migrations.Apply(ctx, db); err != nil {
			log.Fatal("Schema migration failed", zap.Error(err))
		}
	}

	var st stores
	if db != nil {
		st = stores{
			tx:           repository.NewPostgresTxManager(db),
			locker:       repository.NewPostgresUnitLocker(),
			units:        repository.NewPostgresUnitsRepository(db),
			reservations: repository.NewPostgresReservationsRepository(db),
		}
	} else {
		mem := repository.NewMemoryStore()
		st = stores{tx: mem, locker: mem, units: mem, reservations: mem}
	}

	var redisClient *redis.Client
	redisOK := false
	needRedis := (cfg.Lock.Mode == "redis" && db != nil) || cfg.Events.HasSink("redis")
	if needRedis {
		redisClient = commonredis.NewRedisClient(&cfg.Redis)
		if err := commonredis.Ping(ctx, redisClient); err != nil {
			log.Warn("Redis unreachable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			redisOK = true
		}
	}
	var kv store.KV
	if redisOK {
		kv = store.NewRedisKV(redisClient)
	}
	var lockMode string
	st.locker, lockMode = chooseUnitLocker(cfg.Lock.Mode, db != nil, kv, cfg.Lock.TTL, st.locker, log)
	log.Info("Unit locker selected", zap.String("mode", lockMode), zap.Duration("ttl", cfg.Lock.TTL))

	guests := buildGuestDirectory(cfg, db, log)

	observers, closeSinks := buildObservers(cfg, db, redisClient, log)
	dispatcher := events.NewDispatcher(cfg.Events.QueueSize, cfg.Events.Workers, cfg.Events.SinkTimeout, log, observers...)
	dispatcher.Start()

	policy := service.BookingPolicy{
		Clock:       calendar.RealClock{},
		Location:    cfg.Booking.Location,
		MaxStayDays: cfg.Booking.MaxStayDays,
	}
	reservations := service.NewReservationService(st.tx, st.locker, st.units, st.reservations, guests, policy, dispatcher, log)
	units := service.NewUnitService(st.tx, st.locker, st.units, st.reservations, policy, log)

	router := httpapi.NewRouter(log)
	checks := map[string]httpapi.HealthCheck{}
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return commonredis.Ping(ctx, redisClient) }
	}
	router.RegisterHealthRoutes(checks)
	router.RegisterReservationRoutes(httpapi.NewReservationHandler(reservations, log))
	router.RegisterUnitRoutes(httpapi.NewUnitHandler(units, log))

	opts := httpapi.Options{CORSOrigins: cfg.HTTP.CORSOrigins}
	if cfg.Auth.JWTSecret != "" {
		opts.Tokens = auth.NewJWTValidator(cfg.Auth.JWTSecret)
	} else {
		log.Warn("AUTH_JWT_SECRET not set, API is unauthenticated")
	}

	srv := service.NewServer(cfg.HTTP.Addr, router.Handler(opts), cfg.HTTP.WriteTimeout, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case err := <-errCh:
		log.Error("HTTP server stopped", zap.Error(err))
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		log.Warn("Event dispatcher did not drain", zap.Error(err))
	}
	if dropped := dispatcher.Dropped(); dropped > 0 {
		log.Warn("Reservation events dropped", zap.Uint64("count", dropped))
	}
	closeSinks()
	_ = commonredis.Close(redisClient)
	_ = database.Close(db)
}

// chooseUnitLocker layers the Redis lease in front of the Postgres advisory
// lock. The memory backend and an unreachable Redis keep the base locker.
func chooseUnitLocker(mode string, dbActive bool, kv store.KV, ttl time.Duration, base repository.UnitLocker, log *zap.Logger) (repository.UnitLocker, string) {
	if mode != "redis" {
		return base, "local"
	}
	if !dbActive {
		log.Warn("UNIT_LOCK_MODE=redis ignored without a database; using local locks")
		return base, "local"
	}
	if kv == nil {
		log.Warn("Redis lock unavailable; using Postgres advisory locks only")
		return base, "local"
	}
	return store.NewRedisUnitLocker(kv, ttl, base, log), "redis"
}

func buildGuestDirectory(cfg *config.Config, db *sql.DB, log *zap.Logger) repository.GuestDirectory {
	mode := cfg.GuestDirectory.Mode
	if mode == "postgres" && db == nil {
		log.Warn("Guest directory falls back to memory, DB not available")
		mode = "memory"
	}
	switch mode {
	case "postgres":
		return repository.NewPostgresGuestDirectory(db)
	case "http":
		log.Info("Guest directory over HTTP", zap.String("base_url", cfg.GuestDirectory.BaseURL))
		return repository.NewHTTPGuestDirectory(cfg.GuestDirectory.BaseURL, cfg.GuestDirectory.Timeout, log)
	default:
		guests := repository.NewMemoryGuestDirectory()
		// Dev bootstrap so the API can be exercised without a guest service.
		if os.Getenv("SEED_DEMO_GUEST") != "false" {
			guests.Put(domain.Guest{GuestID: "guest-demo", Name: "Demo Guest", Email: "demo@lodgfy.local"})
		}
		return guests
	}
}

// buildObservers creates one observer per EVENT_SINKS entry. Sinks whose backend is
// unavailable are skipped with a warning; bookings never depend on them.
// The returned func releases sink connections after the dispatcher has drained.
func buildObservers(cfg *config.Config, db *sql.DB, redisClient *redis.Client, log *zap.Logger) ([]events.Observer, func()) {
	var out []events.Observer
	var closers []func()
	for _, sink := range cfg.Events.Sinks {
		switch sink {
		case "log":
			out = append(out, events.NewLogObserver(log))
		case "audit":
			if db == nil {
				log.Warn("Audit sink needs Postgres, skipped")
				continue
			}
			out = append(out, events.NewAuditObserver(db))
		case "redis":
			if redisClient == nil {
				continue
			}
			out = append(out, events.NewRedisStreamObserver(redisClient, cfg.Events.Stream, cfg.Events.StreamMax))
		case "mqtt":
			if !cfg.MQTT.Enabled {
				log.Warn("MQTT sink listed but MQTT_ENABLED is false, skipped")
				continue
			}
			c, err := commonmqtt.NewClient(&cfg.MQTT.MQTTConfig, log)
			if err != nil {
				log.Warn("MQTT sink unavailable", zap.Error(err))
				continue
			}
			closers = append(closers, c.Disconnect)
			out = append(out, events.NewMQTTObserver(c, cfg.MQTT.TopicPrefix))
		case "kafka":
			w, err := events.NewKafkaWriter(&cfg.Kafka)
			if err != nil {
				log.Warn("Kafka sink unavailable", zap.Error(err))
				continue
			}
			closers = append(closers, func() {
				if err := w.Close(); err != nil {
					log.Warn("Kafka writer close failed", zap.Error(err))
				}
			})
			out = append(out, events.NewKafkaObserver(w))
		default:
			log.Warn("Unknown event sink", zap.String("sink", sink))
		}
	}
	log.Info("Event sinks configured", zap.Int("count", len(out)), zap.Strings("sinks", cfg.Events.Sinks))
	return out, func() {
		for _, c := range closers {
			c()
		}
	}
}
