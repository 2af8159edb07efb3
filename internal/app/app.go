// ABOUTME: Application runtime shared by the CLI commands
// ABOUTME: Owns logging, metrics and feed servers and runs sessions with optional TUI
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/Resonate-Protocol/resonate-codec/internal/config"
	"github.com/Resonate-Protocol/resonate-codec/internal/feed"
	"github.com/Resonate-Protocol/resonate-codec/internal/metrics"
	"github.com/Resonate-Protocol/resonate-codec/internal/ui"
	"github.com/Resonate-Protocol/resonate-codec/pkg/transfer"
)

// App runs encode, decode and playback jobs for the CLI
type App struct {
	settings *config.Settings
	logFile  *os.File
	metrics  *metrics.Metrics

	metricsServer *http.Server
	hub           *feed.Hub
	serveDone     chan struct{}
}

// New sets up logging and starts the optional metrics and feed servers
func New(settings *config.Settings) (*App, error) {
	a := &App{
		settings: settings,
		metrics:  metrics.New(),
	}

	if err := a.setupLogging(); err != nil {
		return nil, err
	}

	if addr := settings.Metrics.Addr; addr != "" {
		if err := a.startMetrics(addr); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	if addr := settings.Feed.Addr; addr != "" {
		hub := feed.NewHub(settings.Log.Debug)
		if err := hub.Start(addr); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to start progress feed: %w", err)
		}
		a.hub = hub
	}

	return a, nil
}

// setupLogging sends logs to stdout and the log file. With the TUI on,
// logs go only to the file so they do not tear the display.
func (a *App) setupLogging() error {
	var console io.Writer = os.Stdout
	if a.settings.UI.Enabled {
		console = io.Discard
	}

	if a.settings.Log.File == "" {
		log.SetOutput(console)
		return nil
	}

	f, err := os.OpenFile(a.settings.Log.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("error opening log file: %w", err)
	}
	a.logFile = f

	if a.settings.UI.Enabled {
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}
	return nil
}

func (a *App) startMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	a.metricsServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	a.serveDone = make(chan struct{})

	go func() {
		defer close(a.serveDone)
		if err := a.metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Metrics server error: %v", err)
		}
	}()

	log.Printf("Metrics available at http://%s/metrics", ln.Addr())
	return nil
}

// Metrics returns the session metrics
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// Close stops the servers and closes the log file
func (a *App) Close() error {
	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			log.Printf("Warning: metrics server shutdown: %v", err)
		}
		cancel()
		<-a.serveDone
		a.metricsServer = nil
	}
	if a.hub != nil {
		if err := a.hub.Close(); err != nil {
			log.Printf("Warning: feed shutdown: %v", err)
		}
		a.hub = nil
	}
	if a.logFile != nil {
		log.SetOutput(os.Stdout)
		err := a.logFile.Close()
		a.logFile = nil
		return err
	}
	return nil
}

// attach adds the metrics and feed observers for one session
func (a *App) attach(observers *transfer.Observers, kind, id string) {
	*observers = append(*observers, a.metrics.Observer(kind))
	if a.hub != nil {
		*observers = append(*observers, a.hub.Observer(id, kind))
	}
}

// run executes fn, showing the TUI when enabled. The TUI observer is added
// to observers and its quit key requests stop.
func (a *App) run(kind string, job ui.Job, vol ui.VolumeControl, observers *transfer.Observers,
	stop *transfer.StopFlag, fn func() transfer.Result) transfer.Result {
	if !a.settings.UI.Enabled {
		res := fn()
		a.metrics.ObserveResult(kind, res)
		return res
	}

	prog := ui.NewProgram(ui.NewModel(job, stop, vol))
	uiObs := ui.NewObserver(prog)
	*observers = append(*observers, uiObs)

	var res transfer.Result
	done := make(chan struct{})
	go func() {
		defer close(done)
		res = fn()
		uiObs.Done(res)
	}()

	if _, err := prog.Run(); err != nil {
		log.Printf("Warning: TUI exited: %v", err)
	}
	// The program only quits on its own once the session is done
	stop.Request()
	<-done

	a.metrics.ObserveResult(kind, res)
	return res
}

// resultError turns a failed result into an error for the CLI
func resultError(res transfer.Result) error {
	if res.Outcome == transfer.Failed {
		return res.Err
	}
	return nil
}
