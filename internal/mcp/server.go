// Package mcp exposes the pipeline over the Model Context Protocol, so AI
// tools can inspect captured activity, trigger enrichment and synthesis, and
// replay saved plans through one stdio server.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/deskpilot/internal/config"
	"github.com/nvandessel/deskpilot/internal/pipeline"
)

// Config holds MCP server configuration.
type Config struct {
	// Name is the server name reported to clients.
	Name string

	// Version is the server version reported to clients.
	Version string

	// Root is the directory holding the data directory.
	Root string
}

// Server wraps the pipeline behind an MCP stdio server.
type Server struct {
	server *sdk.Server
	pipe   *pipeline.Pipeline
	root   string

	closeOnce sync.Once
	closeErr  error
}

// NewServer creates an MCP server over the pipeline rooted at cfg.Root,
// initializing the data directory if needed.
func NewServer(cfg *Config) (*Server, error) {
	if cfg.Name == "" {
		cfg.Name = "deskpilot"
	}

	conf, err := config.Load(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	pipe, err := pipeline.Open(cfg.Root, conf, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("opening pipeline: %w", err)
	}

	s := &Server{
		server: sdk.NewServer(&sdk.Implementation{Name: cfg.Name, Version: cfg.Version}, nil),
		pipe:   pipe,
		root:   cfg.Root,
	}
	s.registerTools()
	return s, nil
}

// Run serves MCP over stdio until the client disconnects or ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &sdk.StdioTransport{})
}

// Close releases the pipeline. Safe to call more than once.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.pipe.Close()
	})
	return s.closeErr
}

type emptyArgs struct{}

type learnArgs struct {
	Name      string `json:"name" jsonschema:"plan name to save the workflow under"`
	Overwrite bool   `json:"overwrite,omitempty" jsonschema:"replace an existing plan of the same name"`
}

type runArgs struct {
	Name string `json:"name" jsonschema:"name of the saved plan to replay"`
}

type cleanupArgs struct {
	TTLHours int `json:"ttl_hours,omitempty" jsonschema:"delete artifacts older than this many hours (default from config)"`
}

type lineResult struct {
	Line string `json:"line"`
}

type plansResult struct {
	Plans []string `json:"plans"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "deskpilot_status",
		Description: "Report captured event counts, enrichment backlog and saved plans",
	}, func(ctx context.Context, req *sdk.CallToolRequest, _ emptyArgs) (*sdk.CallToolResult, pipeline.Status, error) {
		st, err := s.pipe.Status()
		if err != nil {
			return nil, pipeline.Status{}, err
		}
		return textResult(st.Line()), st, nil
	})

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "deskpilot_enrich",
		Description: "Run one enrichment batch, attaching OCR text and transcriptions to pending events",
	}, func(ctx context.Context, req *sdk.CallToolRequest, _ emptyArgs) (*sdk.CallToolResult, lineResult, error) {
		report, err := s.pipe.Enrich(ctx)
		if err != nil {
			return nil, lineResult{}, err
		}
		return textResult(report.Line()), lineResult{Line: report.Line()}, nil
	})

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "deskpilot_learn",
		Description: "Synthesize a plan from recent captured activity and save it under the given name",
	}, func(ctx context.Context, req *sdk.CallToolRequest, args learnArgs) (*sdk.CallToolResult, lineResult, error) {
		report, err := s.pipe.Learn(ctx, args.Name, args.Overwrite)
		if err != nil {
			return nil, lineResult{}, err
		}
		return textResult(report.Line()), lineResult{Line: report.Line()}, nil
	})

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "deskpilot_run",
		Description: "Replay a saved plan through the input simulator",
	}, func(ctx context.Context, req *sdk.CallToolRequest, args runArgs) (*sdk.CallToolResult, lineResult, error) {
		result, err := s.pipe.Run(ctx, args.Name)
		if err != nil {
			return nil, lineResult{}, err
		}
		return textResult(result.Line()), lineResult{Line: result.Line()}, nil
	})

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "deskpilot_plans",
		Description: "List saved plans in creation order",
	}, func(ctx context.Context, req *sdk.CallToolRequest, _ emptyArgs) (*sdk.CallToolResult, plansResult, error) {
		plans, err := s.pipe.Plans().List()
		if err != nil {
			return nil, plansResult{}, err
		}
		if plans == nil {
			plans = []string{}
		}
		line := fmt.Sprintf("%d plan(s): %v", len(plans), plans)
		if len(plans) == 0 {
			line = "no plans saved"
		}
		return textResult(line), plansResult{Plans: plans}, nil
	})

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "deskpilot_cleanup",
		Description: "Delete raw screenshot and audio artifacts older than the retention TTL",
	}, func(ctx context.Context, req *sdk.CallToolRequest, args cleanupArgs) (*sdk.CallToolResult, lineResult, error) {
		ttl := time.Duration(args.TTLHours) * time.Hour
		report, err := s.pipe.Cleanup(ctx, ttl)
		if err != nil {
			return nil, lineResult{}, err
		}
		return textResult(report.Line()), lineResult{Line: report.Line()}, nil
	})
}

func textResult(line string) *sdk.CallToolResult {
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: line}},
	}
}
