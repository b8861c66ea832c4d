package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var idProperty = map[string]interface{}{
	"type":        "string",
	"description": "Tool id returned by vision_add_tool",
}

var regionProperty = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"x":      map[string]interface{}{"type": "integer"},
		"y":      map[string]interface{}{"type": "integer"},
		"width":  map[string]interface{}{"type": "integer"},
		"height": map[string]interface{}{"type": "integer"},
	},
	"description": "Optional rectangle in image coordinates",
}

var connectionProperties = map[string]interface{}{
	"source": map[string]interface{}{
		"type":        "string",
		"description": "Id of the tool whose result feeds the connection",
	},
	"target": map[string]interface{}{
		"type":        "string",
		"description": "Id of the tool that consumes it",
	},
	"kind": map[string]interface{}{
		"type":        "string",
		"enum":        []string{"image", "result", "coordinates"},
		"description": "image routes the output image, result skips the target when the source fails, coordinates moves the target's ROI",
	},
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Tool catalogue
		{
			Name:        "vision_list_tool_types",
			Description: "List the tool types that can be added to the job, grouped by category, and report whether OCR is available.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},

		// Job editing
		{
			Name:        "vision_add_tool",
			Description: "Create a tool of the given type, optionally configure it, and append it to the job (or insert it at index). Returns the new tool's id and parameters.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"type": map[string]interface{}{
						"type":        "string",
						"description": "Tool type id, e.g. BlobTool or CaliperTool",
					},
					"params": map[string]interface{}{
						"type":        "object",
						"description": "Initial parameters; name, enabled, use_roi and roi are accepted by every tool",
					},
					"index": map[string]interface{}{
						"type":        "integer",
						"description": "Optional position in the run order",
					},
				},
				"required": []string{"type"},
			},
		},
		{
			Name:        "vision_remove_tool",
			Description: "Remove a tool and every connection that references it.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{"id": idProperty},
				"required":   []string{"id"},
			},
		},
		{
			Name:        "vision_move_tool",
			Description: "Move a tool to a new position in the run order.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": idProperty,
					"index": map[string]interface{}{
						"type":        "integer",
						"description": "New 0-based position, clamped to the list",
					},
				},
				"required": []string{"id", "index"},
			},
		},
		{
			Name:        "vision_list_tools",
			Description: "List the job's tools in run order with their parameters, plus all connections.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "vision_configure_tool",
			Description: "Set parameters on a tool. Unknown keys and out-of-range values are rejected and leave the tool unchanged.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": idProperty,
					"params": map[string]interface{}{
						"type":        "object",
						"description": "Parameters to change",
					},
				},
				"required": []string{"id", "params"},
			},
		},
		{
			Name:        "vision_train_pattern",
			Description: "Train a TemplateMatchTool or FeatureMatchTool from an image file, optionally cropped to a region.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": idProperty,
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the pattern image",
					},
					"region": regionProperty,
				},
				"required": []string{"id", "path"},
			},
		},

		// Connections
		{
			Name:        "vision_connect",
			Description: "Connect two tools. Connecting the same pair with the same kind twice has no effect.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": connectionProperties,
				"required":   []string{"source", "target", "kind"},
			},
		},
		{
			Name:        "vision_disconnect",
			Description: "Remove a connection.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": connectionProperties,
				"required":   []string{"source", "target", "kind"},
			},
		},
		{
			Name:        "vision_clear",
			Description: "Remove every tool and connection and drop cached images, or only the connections.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"connections_only": map[string]interface{}{
						"type":        "boolean",
						"description": "Keep the tools and drop only the connections",
					},
				},
			},
		},

		// Execution
		{
			Name:        "vision_set_image",
			Description: "Set the job's source image from a file path or base64 data.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
					"image_base64": map[string]interface{}{
						"type":        "string",
						"description": "PNG, JPEG or GIF data, used when path is empty",
					},
				},
			},
		},
		{
			Name:        "vision_run",
			Description: "Run every enabled tool in order on the source image and return each tool's result.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "vision_run_tool",
			Description: "Run one tool in isolation on the source image or on an image file. Connections are ignored.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": idProperty,
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Optional image file; defaults to the source image",
					},
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        "vision_get_overlay",
			Description: "Return the latest overlay (or one tool's overlay) as base64 PNG, optionally with a coordinate grid.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": map[string]interface{}{
						"type":        "string",
						"description": "Optional tool id; defaults to the last overlay of the run",
					},
					"grid": map[string]interface{}{
						"type":        "boolean",
						"description": "Draw a labelled coordinate grid",
					},
					"grid_spacing": map[string]interface{}{
						"type":        "integer",
						"description": "Grid spacing in pixels; defaults to the configured spacing",
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor. Default 1.0",
						"default":     1.0,
					},
				},
			},
		},
	}
}
