// Command facet-mcp starts the FACET MCP server: a WebSocket tool-dispatch
// endpoint for AI agents plus an HTTP health check. Configuration comes from
// MCP_* environment variables; flags override host, port and log level.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	facetmcp "github.com/rokoss21/FACET-mcp"
	"github.com/rokoss21/FACET-mcp/config"
	"github.com/rokoss21/FACET-mcp/facet"
	"github.com/rokoss21/FACET-mcp/logging"
)

func main() {
	cfg := config.Load()

	host := flag.String("host", cfg.Server.Host, "server host")
	port := flag.Int("port", cfg.Server.Port, "server port")
	logLevel := flag.String("log-level", cfg.Logging.Level, "logging level (DEBUG, INFO, WARN, ERROR)")
	flag.Parse()

	cfg.Server.Host = *host
	cfg.Server.Port = *port
	cfg.Logging.Level = *logLevel

	logCfg := logging.DefaultLoggerConfig()
	logCfg.Level = logging.ParseLevel(cfg.Logging.Level)
	logCfg.Format = cfg.Logging.Format
	logger := logging.New(logCfg)

	srv, err := facetmcp.New(func(o *facetmcp.Options) {
		o.Config = cfg
		o.Logger = logger
		o.ExecuteFunc = executeJSONDocument
	})
	if err != nil {
		logger.Error("server.config_error", "error", err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server.failed", "error", err.Error())
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("server.signal_received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.CloseTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("server.shutdown_error", "error", err.Error())
		}
	}
}

// executeJSONDocument is the bundled document executor: it accepts documents
// whose substituted source is a JSON object and returns it as the execution
// result.
//
// TODO: swap in the FACET language engine once its Go port is available;
// callers then get full document semantics instead of the JSON subset.
func executeJSONDocument(_ context.Context, source string) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(source), &doc); err != nil {
		return nil, &facet.DocumentError{Message: fmt.Sprintf("cannot parse document: %v", err)}
	}
	return doc, nil
}
