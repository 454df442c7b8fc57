package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Transport carries one correlated command/response exchange between the
// dispatcher and the external executor. The file-based implementation is the
// only backend today; a socket or pipe transport can be swapped in without
// touching call sites.
type Transport interface {
	// Send makes the command visible to the external executor.
	Send(ctx context.Context, cmd CommandRecord) error

	// Await blocks until the response correlated with id arrives, deadline
	// passes (ErrTimeout), or ctx is cancelled.
	Await(ctx context.Context, id string, deadline time.Time) (json.RawMessage, error)

	// Discard best-effort removes both records of a finished exchange.
	Discard(id string)
}

// FileTransport implements Transport over a shared scratch directory.
type FileTransport struct {
	dir          string
	pollInterval time.Duration

	// Injectable for tests; wall clock and real sleeps by default.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

var _ Transport = (*FileTransport)(nil)

// NewFileTransport creates a file-backed transport rooted at dir.
func NewFileTransport(dir string, pollInterval time.Duration) *FileTransport {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &FileTransport{
		dir:          dir,
		pollInterval: pollInterval,
		now:          time.Now,
		sleep:        sleepContext,
	}
}

// Send serializes cmd to command-<id>.json, owner-readable only.
func (t *FileTransport) Send(ctx context.Context, cmd CommandRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encode command record: %w", err)
	}

	path := filepath.Join(t.dir, CommandFilename(cmd.ID))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write command file: %w", err)
	}
	return nil
}

// Await polls for response-<id>.json at the configured interval. A file that
// exists but holds invalid JSON is a terminal parse error, not a retry:
// executors are expected to write the response atomically (temp file + rename).
func (t *FileTransport) Await(ctx context.Context, id string, deadline time.Time) (json.RawMessage, error) {
	path := filepath.Join(t.dir, ResponseFilename(id))

	for {
		data, err := os.ReadFile(path)
		if err == nil {
			var payload json.RawMessage
			if uerr := json.Unmarshal(data, &payload); uerr != nil {
				return nil, fmt.Errorf("parse response for command %q: %w", id, uerr)
			}
			return payload, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read response for command %q: %w", id, err)
		}

		if !t.now().Before(deadline) {
			return nil, ErrTimeout
		}
		if err := t.sleep(ctx, t.pollInterval); err != nil {
			return nil, err
		}
	}
}

// Discard removes both files of an exchange. A missing command file is
// normal: the executor may have deleted it after writing the response.
func (t *FileTransport) Discard(id string) {
	_ = os.Remove(filepath.Join(t.dir, CommandFilename(id)))
	_ = os.Remove(filepath.Join(t.dir, ResponseFilename(id)))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
