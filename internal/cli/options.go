package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/animgraph/internal/logging"
)

// Backends accepted by Options.Backend.
const (
	BackendFile  = "file"
	BackendLoam  = "loam"
	BackendRedis = "redis"
)

// Options holds the flags shared by every command.
type Options struct {
	// Dir is the project directory.
	Dir string
	// Backend selects where definitions and sessions live.
	Backend string
	// RedisURL addresses the redis backend, e.g. "redis://localhost:6379/0".
	RedisURL string
	// Prefix namespaces every redis key.
	Prefix string
	// LogLevel is one of debug, info, warn, error or off.
	LogLevel string
	// LogFormat is text or json.
	LogFormat string
	// SessionKey, base64 encoded, seals stored sessions with AES-GCM.
	// Empty stores them in the clear.
	SessionKey string
	// SessionFallbackKeys are older keys still accepted when loading.
	SessionFallbackKeys []string
}

// NewLogger maps --log-level and --log-format values to a logger on
// stderr. "off" and "" discard everything.
func NewLogger(level, format string) (*slog.Logger, error) {
	lvl, enabled, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return logging.NewNop(), nil
	}
	switch strings.ToLower(format) {
	case "", "text":
		return logging.New(lvl), nil
	case "json":
		return logging.NewWithWriter(os.Stderr, lvl, true), nil
	}
	return nil, fmt.Errorf("unknown log format %q", format)
}

// printSystemMessage prints a standardized system message to stdout.
func printSystemMessage(format string, args ...any) {
	fmt.Printf(">>> %s\n", fmt.Sprintf(format, args...))
}
