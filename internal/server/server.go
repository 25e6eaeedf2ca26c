package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/ironsheep/shape-vision/internal/detection"
	"github.com/ironsheep/shape-vision/internal/imaging"
)

// ServerName is reported in the initialize handshake.
const ServerName = "shape-vision"

// Server handles MCP protocol communication
type Server struct {
	cache    *imaging.ImageCache
	pipeline *detection.Pipeline
	version  string
	debug    bool

	// Tables for per-call strategy overrides; nil selects the built-in
	// table of that strategy.
	hsvTable detection.ColorTable
	rgbTable detection.ColorTable
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

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the version reported in serverInfo.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithCache shares an image cache with other components.
func WithCache(c *imaging.ImageCache) Option {
	return func(s *Server) { s.cache = c }
}

// WithColorTables sets the tables used when a tool call names a color
// strategy. They should be the tables the pipeline was configured with.
func WithColorTables(hsv, rgb detection.ColorTable) Option {
	return func(s *Server) {
		s.hsvTable = hsv
		s.rgbTable = rgb
	}
}

// WithDebug logs every request method and tool name.
func WithDebug(debug bool) Option {
	return func(s *Server) { s.debug = debug }
}

// New creates a server that answers shape tools with pipeline, or with a
// default pipeline when it is nil. Per-call overrides derive a new pipeline
// from pipeline's options.
func New(pipeline *detection.Pipeline, opts ...Option) *Server {
	s := &Server{
		cache:    imaging.NewImageCache(),
		pipeline: pipeline,
		version:  "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pipeline == nil {
		// Default options always validate.
		s.pipeline, _ = detection.NewPipeline(detection.DefaultOptions())
	}
	return s
}

// Run starts the MCP server, reading from stdin and writing to stdout
func (s *Server) Run() error {
	return s.Serve(os.Stdin, os.Stdout)
}

// Serve answers newline-delimited JSON-RPC requests from r on w until r is
// exhausted.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			log.Printf("Failed to parse request: %v", err)
			if err := encoder.Encode(s.errorResponse(nil, -32700, "Parse error", err.Error())); err != nil {
				log.Printf("Failed to encode response: %v", err)
			}
			continue
		}

		resp := s.handleRequest(&req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				log.Printf("Failed to encode response: %v", err)
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
	if s.debug {
		log.Printf("Request %v: %s", req.ID, req.Method)
	}

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
				"name":    ServerName,
				"version": s.version,
			},
		},
	}
}
