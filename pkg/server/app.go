package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"RatioLab/internal/usecase"
	"RatioLab/pkg/config"
	xhttp "RatioLab/pkg/http"
	pkgkafka "RatioLab/pkg/kafka"
	"RatioLab/pkg/logger"
	"RatioLab/pkg/queue"
)

// Mode selects what Run does.
type Mode string

const (
	ModeServe       Mode = "serve"
	ModeWorker      Mode = "worker"
	ModeGrid        Mode = "grid"
	ModeOracle      Mode = "oracle"
	ModeWalkForward Mode = "walkforward"
)

// ParseMode validates a -mode flag value.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeServe, ModeWorker, ModeGrid, ModeOracle, ModeWalkForward:
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q (serve, worker, grid, oracle, walkforward)", s)
}

// OneShot describes a single backtest run from the command line. The result is written
// to Out as indented JSON.
type OneShot struct {
	Symbol string
	From   time.Time
	To     time.Time
	Out    io.Writer
}

// Closer is a named resource released on shutdown.
type Closer struct {
	Name  string
	Close func() error
}

// App encapsulates the application lifecycle.
type App struct {
	cfg        *config.Config
	log        *logger.Logger
	bt         *usecase.Backtester
	handler    xhttp.Handler
	jobs       *usecase.JobHandler
	consumer   *pkgkafka.Consumer
	queue      *queue.RedisQueue
	closers    []Closer
	httpServer *xhttp.Server
}

// New creates an App. consumer and q may be nil; closers run in order on shutdown.
func New(
	cfg *config.Config,
	log *logger.Logger,
	bt *usecase.Backtester,
	handler xhttp.Handler,
	jobs *usecase.JobHandler,
	consumer *pkgkafka.Consumer,
	q *queue.RedisQueue,
	closers []Closer,
) *App {
	if log == nil {
		log = logger.Nop()
	}
	return &App{
		cfg:      cfg,
		log:      log,
		bt:       bt,
		handler:  handler,
		jobs:     jobs,
		consumer: consumer,
		queue:    q,
		closers:  closers,
	}
}

// Run executes mode and blocks until it finishes or an interrupt arrives.
func (a *App) Run(mode Mode, once OneShot) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch mode {
	case ModeServe:
		err = a.serve(ctx)
	case ModeWorker:
		err = a.work(ctx)
	case ModeGrid, ModeOracle, ModeWalkForward:
		err = a.runOnce(ctx, mode, once)
	default:
		err = fmt.Errorf("unknown mode %q", mode)
	}

	if serr := a.shutdown(); err == nil {
		err = serr
	}
	return err
}

func (a *App) startHTTP() error {
	a.httpServer = xhttp.NewServer(a.log, []xhttp.Handler{a.handler},
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(a.cfg.Server.SlowThreshold),
		xhttp.WithCORS(a.cfg.Server.CORSOrigins),
	)
	return a.httpServer.Start()
}

func (a *App) serve(ctx context.Context) error {
	if err := a.startHTTP(); err != nil {
		a.log.Error("http server start error", logger.Error(err))
		return err
	}
	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return nil
}

// work consumes backtest jobs from the configured transport. The HTTP server also runs
// so /metrics stays scrapeable.
func (a *App) work(ctx context.Context) error {
	if a.jobs == nil {
		return errors.New("worker mode: no job handler")
	}
	switch {
	case a.consumer != nil:
		a.consumer.RegisterHandler(a.jobs)
		if err := a.consumer.Start(); err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		a.log.Info("kafka consumer started", logger.String("topic", a.jobs.Topic()))
	case a.queue != nil:
		if err := a.queue.Start(ctx); err != nil {
			return fmt.Errorf("redis queue: %w", err)
		}
	default:
		return fmt.Errorf("worker mode: no %s job transport configured", a.cfg.Jobs.Transport)
	}

	if a.cfg.Metrics.Enabled {
		if err := a.startHTTP(); err != nil {
			a.log.Error("http server start error", logger.Error(err))
		}
	}
	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return nil
}

func (a *App) runOnce(ctx context.Context, mode Mode, once OneShot) error {
	if once.Symbol == "" {
		return errors.New("one-shot run: symbol is required")
	}
	out := once.Out
	if out == nil {
		out = os.Stdout
	}
	cfg := a.cfg.Backtest
	start := time.Now()

	var res interface{}
	switch mode {
	case ModeGrid:
		req, err := usecase.GridRequestFromConfig(once.Symbol, once.From, once.To, cfg)
		if err != nil {
			return err
		}
		lb, err := a.bt.RunGrid(ctx, req)
		if err != nil {
			return err
		}
		res = lb
	case ModeOracle:
		req, err := usecase.ActionsRequestFromConfig(once.Symbol, once.From, once.To, cfg)
		if err != nil {
			return err
		}
		rep, err := a.bt.DailyBest(ctx, req)
		if err != nil {
			return err
		}
		res = rep
	case ModeWalkForward:
		req, err := usecase.WalkForwardRequestFromConfig(once.Symbol, once.From, once.To, cfg)
		if err != nil {
			return err
		}
		rep, err := a.bt.WalkForward(ctx, req)
		if err != nil {
			return err
		}
		res = rep
	}

	a.log.Info("one-shot run finished",
		logger.String("mode", string(mode)),
		logger.String("symbol", once.Symbol),
		logger.Duration("elapsed", time.Since(start)))

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

// shutdown stops consumers and the HTTP server, then releases resources.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", logger.Error(err))
		}
	}
	if a.queue != nil {
		if err := a.queue.Stop(ctx); err != nil {
			a.log.Warn("redis queue stop error", logger.Error(err))
		}
	}
	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", logger.Error(err))
		}
	}

	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.log.Warn("close error", logger.String("resource", c.Name), logger.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", c.Name, err))
		}
	}
	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
