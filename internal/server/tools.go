package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pageSchema(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"path": map[string]interface{}{
			"type":        "string",
			"description": "Absolute path to the scanned page",
		},
		"use_ai": map[string]interface{}{
			"type":        "boolean",
			"description": "Ask the configured vision model first, falling back to histogram detection. Default false",
			"default":     false,
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   []string{"path"},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name: "photos_detect",
			Description: "Find every printed photo on a scanned page. Returns one bounding box per photo " +
				"in source pixels (x, y, width, height), a confidence, and optionally a small JPEG preview.",
			InputSchema: pageSchema(map[string]interface{}{
				"previews": map[string]interface{}{
					"type":        "boolean",
					"description": "Include a base64 JPEG preview and average colour for each photo. Default true",
					"default":     true,
				},
			}),
		},
		{
			Name: "photos_annotate",
			Description: "Detect the photos on a scanned page and return the page as PNG with each box " +
				"outlined and numbered. Use this to check a detection visually.",
			InputSchema: pageSchema(nil),
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
