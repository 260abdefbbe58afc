package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/animgraph"
	"github.com/aretw0/animgraph/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "animgraph",
	Short: "animgraph evaluates layered animation state machines",
	Long: `animgraph loads animation controllers (layers of state machines playing
clips and blend trees) from a project directory, validates and formats them,
simulates scenarios and serves live animator sessions over HTTP.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("dir", ".", "Directory containing the animgraph project")
	rootCmd.PersistentFlags().String("backend", cli.BackendFile, "Definition backend: file, loam or redis")
	rootCmd.PersistentFlags().String("redis-url", "", "Redis URL for the redis backend (default redis://localhost:6379/0)")
	rootCmd.PersistentFlags().String("prefix", "", "Key prefix for the redis backend")
	rootCmd.PersistentFlags().String("log-level", "off", "Log level: debug, info, warn, error or off")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
}

func options(cmd *cobra.Command) cli.Options {
	flags := cmd.Flags()
	dir, _ := flags.GetString("dir")
	backend, _ := flags.GetString("backend")
	redisURL, _ := flags.GetString("redis-url")
	prefix, _ := flags.GetString("prefix")
	level, _ := flags.GetString("log-level")
	format, _ := flags.GetString("log-format")
	return cli.Options{
		Dir:                 dir,
		Backend:             backend,
		RedisURL:            redisURL,
		Prefix:              prefix,
		LogLevel:            level,
		LogFormat:           format,
		SessionKey:          os.Getenv(sessionKeyEnv),
		SessionFallbackKeys: splitList(os.Getenv(sessionFallbackEnv)),
	}
}

// Environment variables holding base64 session keys.
const (
	sessionKeyEnv      = "ANIMGRAPH_SESSION_KEY"
	sessionFallbackEnv = "ANIMGRAPH_SESSION_FALLBACK_KEYS"
)

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func logger(cmd *cobra.Command) (*slog.Logger, error) {
	opts := options(cmd)
	return cli.NewLogger(opts.LogLevel, opts.LogFormat)
}

func engine(cmd *cobra.Command) (*animgraph.Engine, *slog.Logger, error) {
	log, err := logger(cmd)
	if err != nil {
		return nil, nil, err
	}
	eng, err := cli.NewEngine(options(cmd), log)
	if err != nil {
		return nil, nil, err
	}
	return eng, log, nil
}
