package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/glefebvre/zapper/internal/logger"
)

// Hook is a named cleanup step run during graceful shutdown.
type Hook struct {
	Name string
	Fn   func(context.Context) error
}

// Handler manages graceful shutdown of the application
type Handler struct {
	mu             sync.Mutex
	hooks          []Hook
	timeout        time.Duration
	signalChan     chan os.Signal
	shutdownChan   chan struct{}
	isShuttingDown bool
	ctx            context.Context
	cancel         context.CancelFunc
	log            *logger.Logger
}

// New creates a new shutdown handler
func New(timeout time.Duration) *Handler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		timeout:      timeout,
		signalChan:   make(chan os.Signal, 1),
		shutdownChan: make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
		log:          logger.AppLogger(),
	}
}

// Register adds a named shutdown hook.
// Hooks run sequentially in reverse order of registration (LIFO), so the
// event loop registered first is stopped last.
func (h *Handler) Register(name string, fn func(context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, Hook{Name: name, Fn: fn})
}

// Context is cancelled as soon as shutdown starts.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// Wait blocks until a shutdown signal is received or ctx is done, then
// runs the registered hooks.
func (h *Handler) Wait(ctx context.Context) error {
	signal.Notify(h.signalChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(h.signalChan)

	select {
	case sig := <-h.signalChan:
		h.log.WithFields(map[string]interface{}{"signal": sig.String()}).Info("shutdown signal received")
	case <-ctx.Done():
	case <-h.shutdownChan:
	}
	return h.Shutdown()
}

// Shutdown executes all registered hooks within the configured timeout.
// Calling it more than once is a no-op.
func (h *Handler) Shutdown() error {
	h.mu.Lock()
	if h.isShuttingDown {
		h.mu.Unlock()
		return nil
	}
	h.isShuttingDown = true
	hooks := make([]Hook, len(h.hooks))
	copy(hooks, h.hooks)
	h.mu.Unlock()

	close(h.shutdownChan)
	h.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		var errs []error
		for i := len(hooks) - 1; i >= 0; i-- {
			hook := hooks[i]
			if err := hook.Fn(ctx); err != nil {
				h.log.WithFields(map[string]interface{}{"hook": hook.Name}).Error("shutdown hook failed", err)
				errs = append(errs, err)
				continue
			}
			h.log.WithFields(map[string]interface{}{"hook": hook.Name}).Debug("shutdown hook completed")
		}
		done <- errors.Join(errs...)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		h.log.Warn("graceful shutdown timed out")
		return ctx.Err()
	}
}

// IsShuttingDown returns true if shutdown has been initiated
func (h *Handler) IsShuttingDown() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.isShuttingDown
}

// ShutdownChan returns a channel that is closed when shutdown is initiated
func (h *Handler) ShutdownChan() <-chan struct{} {
	return h.shutdownChan
}

// TriggerShutdown programmatically triggers a shutdown
func (h *Handler) TriggerShutdown() {
	select {
	case h.signalChan <- syscall.SIGTERM:
	default:
	}
}
