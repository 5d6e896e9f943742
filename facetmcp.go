// Package facetmcp provides a high-level façade over the FACET MCP server
// components. Most applications interact with this package by:
//  1. Loading a config.Config (config.Load for the environment surface)
//  2. Creating a server via New(), injecting the document executor
//  3. Calling ListenAndServe / Shutdown on the returned server
//
// The façade wires the execution engine, the validator cache and the tool
// registry together according to the enabled-tool configuration; the
// individual packages remain usable on their own for embedding.
package facetmcp

import (
	"fmt"

	"github.com/rokoss21/FACET-mcp/config"
	"github.com/rokoss21/FACET-mcp/facet"
	"github.com/rokoss21/FACET-mcp/logging"
	"github.com/rokoss21/FACET-mcp/schema"
	"github.com/rokoss21/FACET-mcp/server"
	"github.com/rokoss21/FACET-mcp/tool"
)

// Options configures server construction.
type Options struct {
	// Config is the full server configuration. Defaults to config.Default().
	Config config.Config
	// ExecuteFunc is the document executor backing the execute tool. When
	// nil, execute calls fail with a DocumentError but the server still
	// serves apply_lenses and validate_schema.
	ExecuteFunc facet.ExecuteFunc
	// Logger receives structured server logs. Defaults to a slog JSON
	// logger at the configured level.
	Logger logging.Logger
}

// New wires a ready-to-run server from the given options.
func New(optFns ...func(o *Options)) (*server.Server, error) {
	opts := Options{Config: config.Default()}
	for _, fn := range optFns {
		fn(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		cfg := logging.DefaultLoggerConfig()
		cfg.Level = logging.ParseLevel(opts.Config.Logging.Level)
		cfg.Format = opts.Config.Logging.Format
		logger = logging.New(cfg)
	}

	registry, err := buildRegistry(opts, logger)
	if err != nil {
		return nil, err
	}
	return server.New(opts.Config, registry, logger), nil
}

// buildRegistry constructs the enabled tools in the configured order.
func buildRegistry(opts Options, logger logging.Logger) (*tool.Registry, error) {
	engine := facet.NewEngine(opts.ExecuteFunc, func(o *facet.EngineOptions) {
		o.MaxTemplateVariables = opts.Config.Tools.MaxTemplateVariables
	})
	validator := schema.NewValidator()

	constructors := map[string]func() tool.Tool{
		"execute": func() tool.Tool {
			return tool.NewExecuteTool(engine, logger)
		},
		"apply_lenses": func() tool.Tool {
			return tool.NewApplyLensesTool(logger, func(o *tool.ApplyLensesOptions) {
				o.AllowedLenses = opts.Config.Tools.AllowedLenses
				o.MaxChainLength = opts.Config.Tools.MaxLensChainLength
			})
		},
		"validate_schema": func() tool.Tool {
			return tool.NewValidateSchemaTool(validator, logger)
		},
	}

	tools := make([]tool.Tool, 0, len(opts.Config.Tools.EnabledTools))
	for _, name := range opts.Config.Tools.EnabledTools {
		construct, ok := constructors[name]
		if !ok {
			return nil, fmt.Errorf("unknown tool in configuration: %s", name)
		}
		tools = append(tools, construct())
	}
	return tool.NewRegistry(tools...)
}
