// Package server implements the MCP (Model Context Protocol) server that
// exposes one vision job to an MCP client.
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
// Tool catalogue:
//   - vision_list_tool_types: Tool types by category, and OCR availability
//
// Job editing:
//   - vision_add_tool: Create, configure and append a tool
//   - vision_remove_tool: Remove a tool and its connections
//   - vision_move_tool: Change a tool's position in the run order
//   - vision_list_tools: Tools with parameters, plus connections
//   - vision_configure_tool: Change a tool's parameters
//   - vision_train_pattern: Train a template or feature matcher from a file
//
// Connections:
//   - vision_connect, vision_disconnect: image, result or coordinates links
//   - vision_clear: Drop every tool, or only the connections
//
// Execution:
//   - vision_set_image: Source image from a path or base64 data
//   - vision_run: Run the job and return every result
//   - vision_run_tool: Run a single tool in isolation
//   - vision_get_overlay: Latest overlay as base64 PNG, optionally gridded
//
// # Image Caching
//
// Images loaded by path are cached and reused until the file changes on
// disk, so a path rewritten by a camera yields the new frame. vision_clear
// drops the cache along with the tools. The pipeline copies the source
// image, so cached images are never modified.
//
// # Error Handling
//
// Control errors (unknown tool id, rejected parameter, self-connection) are
// returned as JSON-RPC errors with code -32000 and the Go error string as
// data. A vision tool that runs and fails is not an error: the failure kind
// and message are part of the returned result.
//
// # Usage
//
//	srv := server.New(server.WithLogger(logger))
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
