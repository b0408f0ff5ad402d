package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/scan-splitter/internal/imaging"
	"github.com/ironsheep/scan-splitter/internal/segment"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke ("photos_detect" or "photos_annotate").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// contentResult is a tool result that supplies its own MCP content items
// instead of a single JSON text item.
type contentResult interface {
	content() []map[string]interface{}
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	content := []map[string]interface{}{
		{
			"type": "text",
			"text": mustMarshalJSON(result),
		},
	}
	if cr, ok := result.(contentResult); ok {
		content = cr.content()
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": content,
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "photos_detect":
		return s.handlePhotosDetect(ctx, args)
	case "photos_annotate":
		return s.handlePhotosAnnotate(ctx, args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

type photosArgs struct {
	Path     string `json:"path"`
	UseAI    bool   `json:"use_ai"`
	Previews *bool  `json:"previews"`
}

func parsePhotosArgs(args json.RawMessage) (photosArgs, error) {
	var a photosArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return a, err
	}
	if a.Path == "" {
		return a, errors.New("path is required")
	}
	return a, nil
}

// segmentError keeps input errors descriptive and replaces anything else
// with the generic failure message.
func segmentError(err error) error {
	if segment.IsInputError(err) {
		return err
	}
	return errors.New(segment.ErrorResult(err).Error)
}

// loadRequest reads the page from disk and builds a segmentation request.
func loadRequest(a photosArgs) (segment.Request, error) {
	data, err := imaging.LoadFile(a.Path)
	if err != nil {
		return segment.Request{}, err
	}
	return segment.Request{
		Image:        data,
		UseAI:        a.UseAI,
		SkipPreviews: a.Previews != nil && !*a.Previews,
	}, nil
}

func (s *Server) handlePhotosDetect(ctx context.Context, args json.RawMessage) (interface{}, error) {
	a, err := parsePhotosArgs(args)
	if err != nil {
		return nil, err
	}
	req, err := loadRequest(a)
	if err != nil {
		return nil, err
	}
	res, err := s.seg.Detect(ctx, req)
	if err != nil {
		return nil, segmentError(err)
	}
	return res, nil
}

// annotateResult returns the overlay as an MCP image item after a short
// text summary.
type annotateResult struct {
	overlay *imaging.OverlayResult
	result  *segment.DetectionResult
}

func (r annotateResult) content() []map[string]interface{} {
	summary := map[string]interface{}{
		"photos":         r.result.Photos,
		"originalWidth":  r.result.OriginalWidth,
		"originalHeight": r.result.OriginalHeight,
		"method":         r.result.Method,
	}
	return []map[string]interface{}{
		{
			"type": "text",
			"text": mustMarshalJSON(summary),
		},
		{
			"type":     "image",
			"data":     base64.StdEncoding.EncodeToString(r.overlay.PNG),
			"mimeType": r.overlay.MimeType,
		},
	}
}

func (s *Server) handlePhotosAnnotate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	a, err := parsePhotosArgs(args)
	if err != nil {
		return nil, err
	}
	req, err := loadRequest(a)
	if err != nil {
		return nil, err
	}
	overlay, res, err := s.seg.Annotate(ctx, req)
	if err != nil {
		return nil, segmentError(err)
	}
	return annotateResult{overlay: overlay, result: res}, nil
}
