package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"mail-job-intake/internal/config"
	"mail-job-intake/internal/db"
	"mail-job-intake/internal/handler"
	"mail-job-intake/internal/mailbox"
	"mail-job-intake/internal/metrics"
	"mail-job-intake/internal/repository"
	"mail-job-intake/internal/router"
	"mail-job-intake/internal/scheduler"
	"mail-job-intake/internal/service"
)

// Run initializes and starts the application
func Run() error {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	logrus.Info("Starting Mail Job Intake Service")

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logrus.SetLevel(level)
	} else {
		logrus.Warnf("Unknown log level %q, keeping info", cfg.Log.Level)
	}

	fetcher, err := newFetcher(&cfg.Mailbox)
	if err != nil {
		return err
	}

	jobs, err := newRepository(&cfg.Store)
	if err != nil {
		return err
	}

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)
	intake := service.NewIntake(fetcher, jobs, m)

	sched, err := scheduler.NewScheduler(&cfg.Scheduler, intake)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	h := handler.NewHandlers(sched)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.SetupRouter(h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// The first cycle runs right away to pick up mail that arrived while the
	// service was down.
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	go func() {
		logrus.Infof("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sched.Stop(); err != nil {
		logrus.Errorf("Failed to stop scheduler: %v", err)
	}
	if err := sched.Wait(ctx); err != nil {
		logrus.Errorf("Email check did not finish before shutdown: %v", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	if err := fetcher.Close(); err != nil {
		logrus.Errorf("Failed to close fetcher: %v", err)
	}

	logrus.Info("Server stopped gracefully")
	return nil
}

func newFetcher(cfg *config.MailboxConfig) (mailbox.Fetcher, error) {
	switch cfg.Provider {
	case config.ProviderGmail:
		f, err := mailbox.NewGmailAPIFetcher(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gmail API fetcher: %w", err)
		}
		logrus.Info("Using Gmail API for email fetching")
		return f, nil
	default:
		logrus.Infof("Using IMAP server %s for email fetching", cfg.Address())
		return mailbox.NewIMAPFetcher(cfg), nil
	}
}

func newRepository(cfg *config.StoreConfig) (repository.JobRepository, error) {
	switch cfg.Driver {
	case config.DriverPostgres, config.DriverMySQL:
		conn, err := db.Init(*cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		logrus.Infof("Using %s database for jobs", cfg.Driver)
		return repository.NewGormRepository(conn, cfg.Timeout), nil
	default:
		logrus.Infof("Using REST store at %s for jobs", cfg.URL)
		return repository.NewRESTRepository(cfg), nil
	}
}
