// Package mcp exposes the page, model and guide operations as MCP tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/v0xg/shadowlight/internal/ai"
	"github.com/v0xg/shadowlight/internal/config"
	"github.com/v0xg/shadowlight/internal/crawler"
	"github.com/v0xg/shadowlight/internal/guide"
	"github.com/v0xg/shadowlight/internal/session"
	"github.com/v0xg/shadowlight/internal/theme"
)

// Assistant is the panel-side client the tools drive.
type Assistant interface {
	Scrape(ctx context.Context) (*crawler.DistilledMap, error)
	Highlight(ctx context.Context, selector string) error
	ClearHighlight(ctx context.Context) error
	ApplyMode(ctx context.Context, mode theme.Mode) error
	ApplyFilter(ctx context.Context, expr string) error
	ApplyTheme(ctx context.Context, textColor, bgColor string) error
	ResetTheme(ctx context.Context) error
	Navigate(ctx context.Context, target string) error
	Summarize(ctx context.Context, mode ai.SummaryMode) (*ai.SummaryResult, error)
	Chat(ctx context.Context, query string) (string, error)
	Repurpose(ctx context.Context, format ai.RepurposeFormat) (string, error)
	Resolve(ctx context.Context, goal string) (*guide.Plan, error)
}

// Guide is the navigation session the guide_* tools control.
type Guide interface {
	Start(ctx context.Context, goal string) error
	Advance(ctx context.Context) error
	Stop(ctx context.Context)
	Status() session.Status
}

// Tool describes the contract for MCP tool implementations.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

// Server wires the MCP runtime to the assistant and the guide session.
type Server struct {
	assistant Assistant
	guide     Guide
	log       *zap.Logger
	tools     map[string]Tool
	mcpServer *mcpserver.MCPServer
}

// NewServer constructs the server and registers all tools.
func NewServer(cfg config.MCPConfig, a Assistant, g Guide, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	mcpSrv := mcpserver.NewMCPServer(
		cfg.Name,
		cfg.Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithLogging(),
		mcpserver.WithRecovery(),
	)

	s := &Server{
		assistant: a,
		guide:     g,
		log:       log,
		tools:     make(map[string]Tool),
		mcpServer: mcpSrv,
	}
	s.registerAllTools()
	return s
}

// Start serves over stdio until ctx ends or stdin closes.
func (s *Server) Start(ctx context.Context) error {
	return s.Listen(ctx, os.Stdin, os.Stdout)
}

// Listen serves the stdio protocol on the given streams.
func (s *Server) Listen(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := mcpserver.NewStdioServer(s.mcpServer)
	s.log.Info("mcp server listening", zap.Int("tools", len(s.tools)))
	return stdio.Listen(ctx, in, out)
}

// ToolNames lists registered tools in name order.
func (s *Server) ToolNames() []string {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExecuteTool executes a tool directly.
func (s *Server) ExecuteTool(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	tool, exists := s.tools[name]
	if !exists {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	return tool.Execute(ctx, args)
}

func (s *Server) registerAllTools() {
	// Page
	s.registerTool(&scrapePageTool{a: s.assistant})
	s.registerTool(&highlightTool{a: s.assistant})
	s.registerTool(&clearHighlightTool{a: s.assistant})
	s.registerTool(&contrastTool{a: s.assistant})
	s.registerTool(&themeTool{a: s.assistant})
	s.registerTool(&resetThemeTool{a: s.assistant})
	s.registerTool(&navigateTool{a: s.assistant})

	// Model
	s.registerTool(&summarizeTool{a: s.assistant})
	s.registerTool(&generateNavTool{a: s.assistant})
	s.registerTool(&chatTool{a: s.assistant})
	s.registerTool(&repurposeTool{a: s.assistant})

	// Guided session
	s.registerTool(&guideStartTool{g: s.guide})
	s.registerTool(&guideNextTool{g: s.guide})
	s.registerTool(&guideStopTool{g: s.guide})
	s.registerTool(&guideStatusTool{g: s.guide})
}

func (s *Server) registerTool(tool Tool) {
	s.tools[tool.Name()] = tool

	schema, err := json.Marshal(tool.InputSchema())
	if err != nil {
		schema = json.RawMessage(`{"type":"object"}`)
	}

	mcpTool := mcp.NewToolWithRawSchema(tool.Name(), tool.Description(), schema)
	s.mcpServer.AddTool(mcpTool, s.wrapTool(tool))
}

func (s *Server) wrapTool(tool Tool) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		if args == nil {
			args = map[string]interface{}{}
		}

		result, err := tool.Execute(ctx, args)
		if err != nil {
			s.log.Debug("tool failed", zap.String("tool", tool.Name()), zap.Error(err))
			return &mcp.CallToolResult{
				Content: []mcp.Content{mcp.NewTextContent(fmt.Sprintf("tool %s failed: %s", tool.Name(), userMessage(err)))},
				IsError: true,
			}, nil
		}

		payload := marshalToolPayload(tool.Name(), result)
		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.NewTextContent(string(payload))},
			IsError: false,
		}, nil
	}
}

func marshalToolPayload(toolName string, result interface{}) []byte {
	payload, marshalErr := json.Marshal(result)
	if marshalErr == nil {
		return payload
	}

	fallback := map[string]interface{}{
		"success": false,
		"error":   fmt.Sprintf("tool %s returned non-serializable payload: %v", toolName, marshalErr),
	}
	payload, fallbackErr := json.Marshal(fallback)
	if fallbackErr == nil {
		return payload
	}

	return []byte(fmt.Sprintf(`{"success":false,"error":"tool %s failed to encode payload"}`, toolName))
}
