package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/vision-job/internal/imaging"
	"github.com/ironsheep/vision-job/internal/ocr"
	"github.com/ironsheep/vision-job/internal/pipeline"
	"github.com/ironsheep/vision-job/internal/vision"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "vision_add_tool", "vision_run").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
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
// A vision tool that runs but fails is not an error: its failure is part of
// the returned result.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.log.Warn("tool call failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	switch name {
	// Tool catalogue
	case "vision_list_tool_types":
		return s.handleListToolTypes(args)

	// Job editing
	case "vision_add_tool":
		return s.handleAddTool(args)
	case "vision_remove_tool":
		return s.handleRemoveTool(args)
	case "vision_move_tool":
		return s.handleMoveTool(args)
	case "vision_list_tools":
		return s.handleListTools(args)
	case "vision_configure_tool":
		return s.handleConfigureTool(args)
	case "vision_train_pattern":
		return s.handleTrainPattern(args)

	// Connections
	case "vision_connect":
		return s.handleConnect(args)
	case "vision_disconnect":
		return s.handleDisconnect(args)
	case "vision_clear":
		return s.handleClear(args)

	// Execution
	case "vision_set_image":
		return s.handleSetImage(args)
	case "vision_run":
		return s.handleRun(args)
	case "vision_run_tool":
		return s.handleRunTool(args)
	case "vision_get_overlay":
		return s.handleGetOverlay(args)

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
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Response shapes ===

type toolTypeInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type categoryInfo struct {
	Name  string         `json:"name"`
	Types []toolTypeInfo `json:"types"`
}

// ToolInfo describes one tool in the job.
type ToolInfo struct {
	ID         string           `json:"id"`
	Type       string           `json:"type"`
	Name       string           `json:"name"`
	Enabled    bool             `json:"enabled"`
	UseROI     bool             `json:"use_roi"`
	ROI        vision.RectParam `json:"roi"`
	Parameters vision.Params    `json:"parameters"`
	Trained    *bool            `json:"trained,omitempty"`
}

func describeTool(t vision.Tool) ToolInfo {
	b := t.Base()
	info := ToolInfo{
		ID:         b.ID,
		Type:       b.Type,
		Name:       b.Name,
		Enabled:    b.Enabled,
		UseROI:     b.UseROI,
		ROI:        vision.RectParamOf(b.ROI),
		Parameters: t.Parameters(),
	}
	if tr, ok := t.(vision.Trainable); ok {
		trained := tr.Trained()
		info.Trained = &trained
	}
	return info
}

// RunResponse is returned by vision_run.
type RunResponse struct {
	Success    bool             `json:"success"`
	ElapsedMS  float64          `json:"elapsed_ms"`
	Results    []*vision.Result `json:"results"`
	HasOverlay bool             `json:"has_overlay"`
}

// === Tool catalogue ===

func (s *Server) handleListToolTypes(args json.RawMessage) (interface{}, error) {
	names, byCategory := s.registry.Categories()
	cats := make([]categoryInfo, 0, len(names))
	for _, n := range names {
		c := categoryInfo{Name: n}
		for _, id := range byCategory[n] {
			c.Types = append(c.Types, toolTypeInfo{ID: id, DisplayName: s.registry.DisplayName(id)})
		}
		cats = append(cats, c)
	}
	return struct {
		Categories []categoryInfo `json:"categories"`
		OCR        ocr.Info       `json:"ocr"`
	}{cats, s.ocr.Probe()}, nil
}

// === Job editing ===

type addToolArgs struct {
	Type   string        `json:"type"`
	Params vision.Params `json:"params"`
	Index  *int          `json:"index"`
}

func (s *Server) handleAddTool(args json.RawMessage) (interface{}, error) {
	var a addToolArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	t, ok := s.registry.Create(a.Type)
	if !ok {
		return nil, fmt.Errorf("unknown tool type: %q", a.Type)
	}
	if err := vision.Configure(t, a.Params); err != nil {
		return nil, err
	}
	if err := s.pipeline.AddTool(t); err != nil {
		return nil, err
	}
	if a.Index != nil {
		if err := s.pipeline.MoveTool(t.Base().ID, *a.Index); err != nil {
			return nil, err
		}
	}
	return describeTool(t), nil
}

type toolIDArgs struct {
	ID string `json:"id"`
}

func (s *Server) handleRemoveTool(args json.RawMessage) (interface{}, error) {
	var a toolIDArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := s.pipeline.RemoveTool(a.ID); err != nil {
		return nil, err
	}
	return map[string]interface{}{"removed": a.ID}, nil
}

type moveToolArgs struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
}

func (s *Server) handleMoveTool(args json.RawMessage) (interface{}, error) {
	var a moveToolArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := s.pipeline.MoveTool(a.ID, a.Index); err != nil {
		return nil, err
	}
	return s.handleListTools(nil)
}

func (s *Server) handleListTools(json.RawMessage) (interface{}, error) {
	ts := s.pipeline.Tools()
	infos := make([]ToolInfo, len(ts))
	for i, t := range ts {
		infos[i] = describeTool(t)
	}
	return struct {
		Tools       []ToolInfo            `json:"tools"`
		Connections []pipeline.Connection `json:"connections"`
	}{infos, s.pipeline.Connections()}, nil
}

type configureToolArgs struct {
	ID     string        `json:"id"`
	Params vision.Params `json:"params"`
}

func (s *Server) handleConfigureTool(args json.RawMessage) (interface{}, error) {
	var a configureToolArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	t, err := s.tool(a.ID)
	if err != nil {
		return nil, err
	}
	if err := vision.Configure(t, a.Params); err != nil {
		return nil, err
	}
	return describeTool(t), nil
}

type trainPatternArgs struct {
	ID     string            `json:"id"`
	Path   string            `json:"path"`
	Region *vision.RectParam `json:"region,omitempty"`
}

func (s *Server) handleTrainPattern(args json.RawMessage) (interface{}, error) {
	var a trainPatternArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	t, err := s.tool(a.ID)
	if err != nil {
		return nil, err
	}
	tr, ok := t.(vision.Trainable)
	if !ok {
		return nil, fmt.Errorf("%s (%s) cannot be trained", t.Base().Name, t.Base().Type)
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	var pattern image.Image = img
	if a.Region != nil {
		pattern, _ = imaging.ExtractROI(img, a.Region.Rect(), true)
		if imaging.Empty(pattern) {
			return nil, fmt.Errorf("region %v lies outside the pattern image", a.Region.Rect())
		}
	}
	if err := tr.Train(pattern); err != nil {
		return nil, err
	}
	return describeTool(t), nil
}

// === Connections ===

type connectArgs struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Kind   string `json:"kind"`
}

func (s *Server) handleConnect(args json.RawMessage) (interface{}, error) {
	var a connectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	kind, err := pipeline.ParseConnectionKind(a.Kind)
	if err != nil {
		return nil, err
	}
	if err := s.pipeline.Connect(a.Source, a.Target, kind); err != nil {
		return nil, err
	}
	return map[string]interface{}{"connections": s.pipeline.Connections()}, nil
}

func (s *Server) handleDisconnect(args json.RawMessage) (interface{}, error) {
	var a connectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	kind, err := pipeline.ParseConnectionKind(a.Kind)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"removed":     s.pipeline.Disconnect(a.Source, a.Target, kind),
		"connections": s.pipeline.Connections(),
	}, nil
}

type clearArgs struct {
	ConnectionsOnly bool `json:"connections_only"`
}

func (s *Server) handleClear(args json.RawMessage) (interface{}, error) {
	var a clearArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.ConnectionsOnly {
		s.pipeline.ClearConnections()
	} else {
		s.pipeline.ClearTools()
		s.cache.Clear()
	}
	return s.handleListTools(nil)
}

// === Execution ===

type setImageArgs struct {
	Path        string `json:"path"`
	ImageBase64 string `json:"image_base64"`
}

func (s *Server) handleSetImage(args json.RawMessage) (interface{}, error) {
	var a setImageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	switch {
	case a.Path != "":
		img, info, err := s.cache.LoadWithInfo(a.Path)
		if err != nil {
			return nil, err
		}
		s.pipeline.SetImage(img)
		return info, nil
	case a.ImageBase64 != "":
		img, err := imaging.DecodeBase64(a.ImageBase64)
		if err != nil {
			return nil, err
		}
		s.pipeline.SetImage(img)
		b := img.Bounds()
		return map[string]interface{}{"width": b.Dx(), "height": b.Dy()}, nil
	default:
		return nil, errors.New("either path or image_base64 is required")
	}
}

func (s *Server) handleRun(json.RawMessage) (interface{}, error) {
	sum, err := s.pipeline.Run()
	if err != nil {
		return nil, err
	}
	return RunResponse{
		Success:    sum.Success,
		ElapsedMS:  float64(sum.Elapsed.Microseconds()) / 1000,
		Results:    sum.Results,
		HasOverlay: sum.Overlay != nil,
	}, nil
}

type runToolArgs struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

func (s *Server) handleRunTool(args json.RawMessage) (interface{}, error) {
	var a runToolArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	var img image.Image
	if a.Path != "" {
		var err error
		if img, err = s.cache.Load(a.Path); err != nil {
			return nil, err
		}
	}
	return s.pipeline.RunTool(a.ID, img)
}

type getOverlayArgs struct {
	ID          string  `json:"id"`
	Grid        bool    `json:"grid"`
	GridSpacing int     `json:"grid_spacing"`
	Scale       float64 `json:"scale"`
}

func (s *Server) handleGetOverlay(args json.RawMessage) (interface{}, error) {
	var a getOverlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	if a.GridSpacing == 0 {
		a.GridSpacing = s.gridSpacing
	}

	var overlay image.Image
	if a.ID != "" {
		t, err := s.tool(a.ID)
		if err != nil {
			return nil, err
		}
		if r := t.Base().LastResult; r.HasOverlay() {
			overlay = r.Overlay
		}
	} else {
		overlay = s.pipeline.Overlay()
	}
	if imaging.Empty(overlay) {
		return nil, errors.New("no overlay available; run the job first")
	}

	if a.Grid {
		c := imaging.NewCanvas(overlay)
		c.Grid(a.GridSpacing, s.gridColor, true)
		overlay = c.Image()
	}
	return imaging.EncodePNG(overlay, a.Scale)
}

func (s *Server) tool(id string) (vision.Tool, error) {
	t, ok := s.pipeline.Tool(id)
	if !ok {
		return nil, fmt.Errorf("tool %s: %w", id, pipeline.ErrToolNotFound)
	}
	return t, nil
}
