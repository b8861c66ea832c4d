package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"os"

	"github.com/ironsheep/vision-job/internal/imaging"
	"github.com/ironsheep/vision-job/internal/ocr"
	"github.com/ironsheep/vision-job/internal/pipeline"
	"github.com/ironsheep/vision-job/internal/tools"
	"github.com/ironsheep/vision-job/internal/vision"
)

// Server handles MCP protocol communication for one vision job.
type Server struct {
	cache    *imaging.ImageCache
	registry *vision.Registry
	pipeline *pipeline.Pipeline
	ocr      *ocr.Reader
	log      *slog.Logger

	gridSpacing int
	gridColor   color.RGBA
	version     string

	in  io.Reader
	out io.Writer
}

// Option configures a Server.
type Option func(*Server)

// WithRegistry replaces the default tool registry.
func WithRegistry(r *vision.Registry) Option {
	return func(s *Server) { s.registry = r }
}

// WithPipeline replaces the default empty pipeline.
func WithPipeline(p *pipeline.Pipeline) Option {
	return func(s *Server) { s.pipeline = p }
}

// WithOCRReader sets the reader reported by vision_list_tool_types.
func WithOCRReader(r *ocr.Reader) Option {
	return func(s *Server) { s.ocr = r }
}

// WithLogger sets the logger. Protocol traffic owns stdout, so loggers must
// write elsewhere.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithGrid sets the default grid drawn by vision_get_overlay.
func WithGrid(spacing int, c color.RGBA) Option {
	return func(s *Server) {
		s.gridSpacing = spacing
		s.gridColor = c
	}
}

// WithVersion sets the version reported during initialize.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(s *Server) {
		s.in = in
		s.out = out
	}
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// New creates a new MCP server instance
func New(opts ...Option) *Server {
	s := &Server{
		cache:       imaging.NewImageCache(),
		log:         slog.New(slog.NewTextHandler(os.Stderr, nil)),
		gridSpacing: 50,
		gridColor:   imaging.Cyan,
		version:     "dev",
		in:          os.Stdin,
		out:         os.Stdout,
	}
	for _, o := range opts {
		o(s)
	}
	if s.registry == nil {
		s.registry = tools.NewRegistry()
	}
	if s.pipeline == nil {
		s.pipeline = pipeline.New(pipeline.WithLogger(s.log))
	}
	if s.ocr == nil {
		s.ocr = ocr.NewReader(ocr.DefaultLanguage, "")
	}
	return s
}

// Run reads requests from the input until it is exhausted.
func (s *Server) Run() error {
	scanner := bufio.NewScanner(s.in)
	// Base64 images arrive inline.
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 64*1024*1024)

	encoder := json.NewEncoder(s.out)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.log.Warn("failed to parse request", "error", err)
			continue
		}

		resp := s.handleRequest(&req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.log.Error("failed to encode response", "error", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	s.log.Debug("request", "method", req.Method, "id", req.ID)
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "vision-mcp",
				"version": s.version,
			},
		},
	}
}

// handleToolsList returns every tool definition.
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
