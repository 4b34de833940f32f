package app

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"github.com/specialistvlad/poolsweep/internal/config"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// SetupAppTest creates a new app instance with debug logging captured in the
// returned buffer.
func SetupAppTest(t *testing.T, cfg *Config, loader config.Loader, opts ...Option) (*App, *SafeBuffer) {
	t.Helper()

	logBuffer := &SafeBuffer{}
	cfg.LogLevel = "debug"
	opts = append([]Option{WithLogWriter(logBuffer)}, opts...)
	testApp := NewApp(logBuffer, cfg, loader, opts...)

	t.Cleanup(func() {
		if os.Getenv("POOLSWEEP_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}
