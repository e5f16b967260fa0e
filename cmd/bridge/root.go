package main

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jenkins-mcp-integ/internal/config"
	"github.com/jenkins-mcp-integ/internal/dispatch"
	"github.com/jenkins-mcp-integ/internal/jenkins"
	"github.com/jenkins-mcp-integ/internal/lifecycle"
	"github.com/jenkins-mcp-integ/internal/namespace"
)

var (
	configPath string
	debugFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Jenkins bridge for conversational clients",
	Long: `bridge mediates between conversational clients and a Jenkins server.

It resolves free-form job references against the live job namespace,
triggers and tracks builds, and exposes the closed action set over two
surfaces: an authenticated REST API (serve) and MCP over stdio (mcp).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(checkCmd)
}

// core is the wired application graph shared by both serving surfaces.
type core struct {
	cfg        *config.Config
	client     *jenkins.Client
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
}

func buildCore(logOut *os.File) (*core, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Logging.Level
	if debugFlag {
		level = "debug"
	}
	logger := newLogger(logOut, level)
	logger.Info("configuration loaded", slog.String("path", configPath))

	user, token, err := cfg.Jenkins.ResolveCredentials()
	if err != nil {
		return nil, fmt.Errorf("resolve jenkins credentials: %w", err)
	}

	httpClient := newHTTPClient(cfg.Jenkins.SkipTLSVerify, cfg.Jenkins.Timeout.Duration)
	client := jenkins.New(cfg.Jenkins.BaseURL, user, token, httpClient,
		logger.With(slog.String("component", "jenkins_client")))

	fetcher := namespace.NewFetcher(client,
		logger.With(slog.String("component", "namespace_fetcher")))
	orch := lifecycle.New(client, cfg.Orchestrator.QueuePollInterval.Duration,
		cfg.Orchestrator.RecentBuildsLimit,
		logger.With(slog.String("component", "lifecycle")))
	dispatcher := dispatch.New(fetcher, orch, client,
		cfg.Orchestrator.QueueWaitTimeout.Duration,
		logger.With(slog.String("component", "dispatcher")))

	return &core{cfg: cfg, client: client, dispatcher: dispatcher, logger: logger}, nil
}

func newLogger(out *os.File, level string) *slog.Logger {
	handler := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler)
}

func parseLevel(lvl string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newHTTPClient(skipTLSVerify bool, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if skipTLSVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
