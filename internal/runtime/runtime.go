package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loqalabs/loqa-translate/internal/bus"
	"github.com/loqalabs/loqa-translate/internal/config"
	"github.com/loqalabs/loqa-translate/internal/display"
	"github.com/loqalabs/loqa-translate/internal/natsserver"
	"github.com/loqalabs/loqa-translate/internal/pipeline"
	"github.com/loqalabs/loqa-translate/internal/selector"
	"github.com/loqalabs/loqa-translate/internal/speech"
	"github.com/loqalabs/loqa-translate/internal/translate"
	"github.com/nats-io/nats.go"
)

var telemetrySetup = setupTelemetry

type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	tracerClose func(context.Context) error
	metrics     http.Handler
	ready       atomic.Bool
	wg          sync.WaitGroup

	embedded *natsserver.EmbeddedServer
	bus      *bus.Client
	langSub  *nats.Subscription
	view     *display.Memory
	selector *selector.Selector
	pipeline *pipeline.Pipeline
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := telemetrySetup(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry
	r.metrics = metricsHandler

	if err := r.setup(ctx); err != nil {
		r.teardown()
		if serr := shutdownTelemetry(context.Background()); serr != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", serr.Error()))
		}
		return err
	}

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
			cancel()
		}
	}()

	r.ready.Store(true)
	r.logger.Info("runtime started", slog.String("addr", addr))

	<-ctx.Done()
	r.ready.Store(false)
	r.logger.Info("runtime stopping")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()
	r.teardown()

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

// setup builds the bus, display surfaces, selector and pipeline.
func (r *Runtime) setup(ctx context.Context) error {
	if r.cfg.Bus.Enabled {
		embedded, err := natsserver.Start(r.cfg.Bus, r.logger)
		if err != nil {
			return err
		}
		r.embedded = embedded
		busCfg := r.cfg.Bus
		if embedded != nil {
			busCfg.Servers = []string{embedded.ClientURL()}
		}
		client, err := bus.Connect(ctx, busCfg, r.cfg.RuntimeName, r.logger)
		if err != nil {
			return err
		}
		r.bus = client
	}

	r.view = display.NewMemory()
	surface := display.Fanout{r.view}
	switch r.cfg.Display.Mode {
	case "stdout":
		surface = append(surface, display.NewWriter(os.Stdout))
	case "bus":
		surface = append(surface, display.NewBusSurface(r.bus, r.logger))
	}

	r.selector = selector.New(r.cfg.Translation.SelectorDefault)
	if r.bus != nil {
		sub, err := r.selector.Bind(r.bus, r.logger)
		if err != nil {
			return err
		}
		r.langSub = sub
	}

	recognizer, err := newRecognizer(r.cfg.Speech, r.bus)
	if err != nil {
		return err
	}
	client := translate.NewClient(r.cfg.Translation.Endpoint, r.cfg.Translation.APIKey, nil)
	requester := translate.NewRequester(ctx, client, surface, r.cfg.Translation.FallbackLang, r.cfg.Display.Label, r.logger)
	r.pipeline = pipeline.New(ctx, recognizer, r.cfg.Speech.Language, requester, r.selector, r.logger)
	return nil
}

func (r *Runtime) teardown() {
	if r.pipeline != nil {
		r.pipeline.Close()
	}
	if r.langSub != nil {
		_ = r.langSub.Unsubscribe()
	}
	r.bus.Close()
	r.embedded.Shutdown()
}

func newRecognizer(cfg config.SpeechConfig, client *bus.Client) (speech.Recognizer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Mode {
	case "exec":
		return speech.NewExecRecognizer(cfg)
	case "bus":
		if client == nil {
			return nil, fmt.Errorf("speech mode bus requires a bus connection")
		}
		return speech.NewBusRecognizer(client, time.Duration(cfg.SessionWindowMS)*time.Millisecond), nil
	default:
		return speech.NewMockRecognizer(cfg.MockTranscript, cfg.MockError), nil
	}
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
