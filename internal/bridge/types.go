package bridge

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultTimeout bounds a single Execute call.
	DefaultTimeout = 30 * time.Second

	// DefaultPollInterval is the sleep between response file checks.
	DefaultPollInterval = 100 * time.Millisecond
)

var (
	// ErrNotInitialized is returned by Execute before Initialize has completed.
	ErrNotInitialized = errors.New("dispatcher not initialized")

	// ErrTimeout is returned when no response file appeared within the timeout.
	ErrTimeout = errors.New("timed out waiting for response")
)

// CommandRecord is the on-disk request half of one exchange, serialized to
// command-<id>.json in the scratch directory.
type CommandRecord struct {
	ID        string    `json:"id"`
	Script    string    `json:"script"`
	Timestamp time.Time `json:"timestamp"`
}

// Config configures a Dispatcher. There is no ambient state: independent
// dispatchers with separate directories can coexist in one process.
type Config struct {
	// Dir is the scratch directory shared with the external executor.
	Dir string

	// Timeout bounds each Execute call. Zero means DefaultTimeout.
	Timeout time.Duration

	// PollInterval is the sleep between response checks. Zero means
	// DefaultPollInterval.
	PollInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	return c
}

// SessionDir returns a fresh scratch directory path under the system temp
// directory, keyed by a random session id so concurrent server instances on
// the same machine never share a directory.
func SessionDir() string {
	return filepath.Join(os.TempDir(), "premiere-bridge-"+uuid.NewString())
}

// CommandFilename returns the file name convention for a command record.
func CommandFilename(id string) string {
	return "command-" + id + ".json"
}

// ResponseFilename returns the file name convention for a response record.
func ResponseFilename(id string) string {
	return "response-" + id + ".json"
}
