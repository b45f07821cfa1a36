package app

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Fellisss/Weather1/internal/config"
	"github.com/Fellisss/Weather1/internal/db"
	"github.com/Fellisss/Weather1/internal/httpapi"
	"github.com/Fellisss/Weather1/internal/metrics"
	"github.com/Fellisss/Weather1/internal/migrate"
	"github.com/Fellisss/Weather1/internal/modules/observations"
	"github.com/Fellisss/Weather1/internal/modules/observations/service"
	"github.com/Fellisss/Weather1/internal/modules/observations/views"
	"github.com/Fellisss/Weather1/internal/mqtt"
	"github.com/Fellisss/Weather1/internal/telemetry"
)

const (
	mqttConnectTimeout = 5 * time.Second
	shutdownTimeout    = 10 * time.Second
)

func Run(ctx context.Context, cfg config.Config, version string) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"staticDir", cfg.StaticDir,
		"sqliteDriver", cfg.SQLiteDriver,
		"sqlitePath", cfg.SQLitePath,
		"sqliteMaxOpenConns", cfg.SQLiteMaxOpenConns,
		"sqliteMaxIdleConns", cfg.SQLiteMaxIdleConns,
		"sqliteConnMaxLifetime", cfg.SQLiteConnMaxLifetime,
		"timezone", cfg.Location.String(),
		"cities", len(cfg.Cities),
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopicPrefix", cfg.MQTTTopicPrefix,
		"sentry", cfg.SentryDSN != "",
	)

	flush, err := telemetry.Init(telemetry.Options{
		DSN:         cfg.SentryDSN,
		Environment: cfg.AppEnv,
		Release:     version,
	})
	if err != nil {
		return err
	}
	defer flush()

	dbConn, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := db.Close(dbConn)
		if closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	if err := migrate.Run(ctx, dbConn); err != nil {
		return err
	}

	var ok int
	err = dbConn.QueryRowContext(ctx, `SELECT 1`).Scan(&ok)
	if err != nil {
		return err
	}
	if ok != 1 {
		return errors.New("database connection failed")
	}
	slog.Info("database connection successful")

	gormDB, err := db.Gorm(dbConn)
	if err != nil {
		return err
	}

	if err := views.LoadTemplates(); err != nil {
		return err
	}

	m, err := metrics.New(nil)
	if err != nil {
		return err
	}

	var publisher service.EventPublisher
	var mqttPublisher *mqtt.Publisher
	if cfg.MQTTBroker != "" {
		mqttPublisher = mqtt.NewPublisher(cfg, slog.Default())
		// A short timeout keeps startup from blocking when the broker is down;
		// paho keeps retrying in the background.
		connectCtx, connectCancel := context.WithTimeout(ctx, mqttConnectTimeout)
		err = mqttPublisher.Connect(connectCtx)
		connectCancel()
		if err != nil {
			slog.Warn("mqtt connection failed (continuing without change events)", "error", err)
		}
		publisher = mqttPublisher
	}

	mux := httpapi.NewMux(dbConn, cfg.StaticDir, m)
	observations.RegisterFeature(mux, gormDB, service.Options{
		Location:  cfg.Location,
		Cities:    cfg.Cities,
		Publisher: publisher,
		Recorder:  m,
		Logger:    slog.Default(),
	})

	srv := httpapi.NewServer(cfg, mux, m, slog.Default())
	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if mqttPublisher != nil {
			mqttPublisher.Disconnect()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	if mqttPublisher != nil {
		slog.Info("mqtt disconnecting")
		mqttPublisher.Disconnect()
	}

	return ctx.Err()
}
