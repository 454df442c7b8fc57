package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hetpatel-11/Adobe-Premiere-Pro-MCP-sub000/internal/log"
)

// Dispatcher sends script commands to the external executor and awaits the
// correlated responses.
type Dispatcher struct {
	cfg       Config
	transport Transport
	logger    *slog.Logger
	now       func() time.Time

	mu          sync.Mutex
	initialized bool
}

// New creates a Dispatcher with the file transport. Initialize must be
// called before Execute.
func New(cfg Config) *Dispatcher {
	cfg = cfg.withDefaults()
	return &Dispatcher{
		cfg:       cfg,
		transport: NewFileTransport(cfg.Dir, cfg.PollInterval),
		logger:    log.WithComponent("bridge"),
		now:       time.Now,
	}
}

// NewWithTransport creates a Dispatcher over a caller-supplied transport.
func NewWithTransport(cfg Config, t Transport) *Dispatcher {
	cfg = cfg.withDefaults()
	return &Dispatcher{
		cfg:       cfg,
		transport: t,
		logger:    log.WithComponent("bridge"),
		now:       time.Now,
	}
}

// Dir returns the scratch directory this dispatcher operates on.
func (d *Dispatcher) Dir() string {
	return d.cfg.Dir
}

// Timeout returns the per-call timeout.
func (d *Dispatcher) Timeout() time.Duration {
	return d.cfg.Timeout
}

// Initialize creates the scratch directory with owner-only permissions and
// arms the dispatcher. Filesystem errors propagate unchanged.
func (d *Dispatcher) Initialize() error {
	if d.cfg.Dir == "" {
		return fmt.Errorf("bridge directory is empty")
	}
	if err := os.MkdirAll(d.cfg.Dir, 0o700); err != nil {
		return fmt.Errorf("create bridge directory: %w", err)
	}

	d.mu.Lock()
	d.initialized = true
	d.mu.Unlock()

	d.logger.Info("bridge initialized", "dir", d.cfg.Dir, "timeout", d.cfg.Timeout, "poll_interval", d.cfg.PollInterval)
	return nil
}

// RunResult is the outcome of one exchange. ID is set as soon as a
// correlation id was assigned, including on timeout, so callers can journal
// failed exchanges and locate orphaned files.
type RunResult struct {
	ID      string
	Payload json.RawMessage
	Elapsed time.Duration
}

// Execute runs script in the host and returns the parsed response payload
// verbatim. Application-level success or failure travels inside the payload;
// the dispatcher only fails on its own errors (not initialized, timeout,
// filesystem, unparseable response).
func (d *Dispatcher) Execute(ctx context.Context, script string) (json.RawMessage, error) {
	res, err := d.Run(ctx, script)
	return res.Payload, err
}

// Run is Execute with the correlation id and timing exposed, for callers
// that journal or stream command lifecycle.
func (d *Dispatcher) Run(ctx context.Context, script string) (RunResult, error) {
	return d.RunWithID(ctx, uuid.NewString(), script)
}

// RunWithID runs script under a caller-chosen correlation id, so the caller
// can record the dispatch before the exchange completes. The id must be
// unique per exchange.
func (d *Dispatcher) RunWithID(ctx context.Context, id, script string) (RunResult, error) {
	if !d.ready() {
		return RunResult{}, ErrNotInitialized
	}
	if id == "" {
		return RunResult{}, fmt.Errorf("correlation id is empty")
	}
	start := d.now()
	cmd := CommandRecord{ID: id, Script: script, Timestamp: start.UTC()}

	if err := d.transport.Send(ctx, cmd); err != nil {
		return RunResult{ID: id}, fmt.Errorf("send command %s: %w", id, err)
	}
	d.logger.Debug("command dispatched", "command_id", id, "script_bytes", len(script))

	payload, err := d.transport.Await(ctx, id, start.Add(d.cfg.Timeout))
	elapsed := d.now().Sub(start)
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			// Both files stay on disk for post-mortem; Sweep reclaims them.
			d.logger.Warn("command timed out", "command_id", id, "timeout", d.cfg.Timeout)
			return RunResult{ID: id, Elapsed: elapsed}, fmt.Errorf("command %s: no response after %s: %w", id, d.cfg.Timeout, ErrTimeout)
		}
		return RunResult{ID: id, Elapsed: elapsed}, err
	}

	d.transport.Discard(id)
	d.logger.Debug("command completed", "command_id", id, "elapsed_ms", elapsed.Milliseconds())
	return RunResult{ID: id, Payload: payload, Elapsed: elapsed}, nil
}

func (d *Dispatcher) ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.initialized
}
