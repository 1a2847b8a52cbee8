package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "elapsed_timer/docs"
	"elapsed_timer/internal/config"
	"elapsed_timer/internal/handlers"
	"elapsed_timer/internal/link"
	"elapsed_timer/internal/logger"
	"elapsed_timer/internal/metrics"
	"elapsed_timer/internal/protocol"
	"elapsed_timer/internal/repository"
	"elapsed_timer/internal/repository/db"
	"elapsed_timer/internal/server"
	"elapsed_timer/internal/service"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

// role decides link orientation and defaults.
type role string

const (
	roleSlave  role = "slave"
	roleMaster role = "master"
	roleRemote role = "remote"
)

// bootstrap loads config and builds the process logger.
func bootstrap() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(viper.New(), configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("error reading config: %w", err)
	}
	return cfg, logger.Get(cfg.Log.Level), nil
}

// openDB initializes the SQLite database using configuration.
func openDB(cfg *config.Config, log *logger.Logger) (*sql.DB, error) {
	log.Infow("opening sqlite", "path", cfg.DB.Path)
	return db.InitDB(cfg.DB.Path)
}

// openLink connects to the peer node. A "none" link yields a nil transport.
func openLink(cfg *config.Config, r role, log *logger.Logger) (link.Transport, error) {
	switch cfg.Link.Kind {
	case config.LinkSerial:
		log.Infow("opening serial link", "port", cfg.Link.Serial.Port, "baud", cfg.Link.Serial.Baud)
		t, err := link.OpenSerial(link.SerialConfig{
			Port:        cfg.Link.Serial.Port,
			Baud:        cfg.Link.Serial.Baud,
			ReadTimeout: cfg.Link.Serial.ReadTimeout,
		})
		if err != nil {
			return nil, err
		}
		return t, nil
	case config.LinkNATS:
		tx, rx := cfg.Link.NATS.TxSubject, cfg.Link.NATS.RxSubject
		if r == roleSlave {
			tx, rx = rx, tx
		}
		log.Infow("connecting nats link", "url", cfg.Link.NATS.URL, "tx", tx, "rx", rx)
		t, err := link.DialNATS(link.NATSConfig{
			URL:         cfg.Link.NATS.URL,
			Name:        "elapsed-timer-" + string(r),
			TxSubject:   tx,
			RxSubject:   rx,
			ReadTimeout: cfg.Link.NATS.ReadTimeout,
		})
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		log.Infow("no peer link configured")
		return nil, nil
	}
}

// newMetrics builds the registry served on /metrics and the recorder feeding it.
func newMetrics() (*prom.Registry, *metrics.PrometheusRecorder) {
	reg := prom.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.NewPrometheusRecorder(reg)
}

// serviceOptions maps config onto the service layer.
func serviceOptions(cfg *config.Config, rec metrics.Recorder, log *logger.Logger, tr link.Transport, defaultSource string) (service.Options, error) {
	mode, err := protocol.ParseMode(cfg.Parser.Mode)
	if err != nil {
		return service.Options{}, err
	}
	return service.Options{
		Engine: service.EngineOptions{
			Namespace: cfg.Timer.Namespace,
			Period:    cfg.Timer.Period,
			Policy:    service.PersistencePolicy(cfg.Persistence.Policy),
			Recorder:  rec,
			Logger:    log,
		},
		ParserMode:       mode,
		MonitorFromStore: cfg.Monitoring.SourceOr(defaultSource) == config.SourceStore,
		Link:             tr,
	}, nil
}

// timerNode is the shared body of the slave and remote roles: a restored
// engine behind the HTTP/WebSocket surface. The slave also listens on the link.
func timerNode(r role, listen bool, defaultSource string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	log = log.Named(string(r))

	sqlDB, err := openDB(cfg, log)
	if err != nil {
		log.Errorw("failed to init sqlite", "err", err)
		return err
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	tr, err := openLink(cfg, r, log)
	if err != nil {
		log.Errorw("failed to open link", "err", err)
		return err
	}
	if tr != nil {
		defer func() { _ = tr.Close() }()
	}

	reg, rec := newMetrics()

	// Only the remote forwards resets; the slave's link leads back to the master.
	var forward link.Transport
	if r == roleRemote {
		forward = tr
	}
	opts, err := serviceOptions(cfg, rec, log, forward, defaultSource)
	if err != nil {
		return err
	}

	// wire dependencies
	repos := repository.NewRepository(sqlDB)
	services := service.NewService(repos, opts)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = services.Engine.Restore(ctx)
	go services.Engine.Run(ctx)

	if listen && tr != nil {
		go service.NewCommandListener(tr, services.Engine, rec, log).Run(ctx)
	}

	hub := handlers.NewHub()
	broadcaster, err := service.NewBroadcaster(services.Monitoring, hub, cfg.WS.BroadcastInterval, nil, log)
	if err != nil {
		return err
	}
	broadcaster.Start()
	defer func() { _ = broadcaster.Stop() }()

	apiHandler := handlers.NewHandler(services, hub, metrics.HTTPHandler(reg), log)

	srv := &server.Server{}
	runHTTPServer(srv, cfg.HTTP.Port, apiHandler, log)

	waitForShutdown(cancel, srv, log)
	return nil
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		log.Infow("http server listening", "port", port)
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
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
