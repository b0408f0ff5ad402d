// Package server implements the MCP (Model Context Protocol) server for photo
// detection on scanned pages.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - photos_detect: Bounding boxes, confidences and previews of every photo
//     on a page
//   - photos_annotate: The page as PNG with the detected boxes drawn on it
//
// Pages are read from disk on every call; nothing is cached between calls.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	srv := server.New(segment.New(segment.DefaultOptions(), nil, nil))
//	if err := srv.Run(ctx); err != nil {
//	    logrus.Fatal(err)
//	}
package server
