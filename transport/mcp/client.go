package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/minesweeper/game/engine"
	"github.com/wricardo/mcp-training/minesweeper/game/records"
	"github.com/wricardo/mcp-training/minesweeper/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
	log        *zap.Logger
}

// NewClient creates a new MCP client that calls the REST API. log may be nil.
func NewClient(baseURL string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log.Named("mcp"),
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Minesweeper",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Minesweeper - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Open every cell that does not hide a mine. Opening a mine loses the game.
The first reveal is always safe: mines are placed after it, away from it.

BOARD LEGEND:
  #  closed     F  flagged     ?  questioned
  .  empty      1-8  mines in the 8 neighbours     *  mine (after a loss)

AVAILABLE TOOLS:
- create_session: Start a game on a preset (easy, medium, hard or a custom one)
- list_sessions: List active sessions
- board: Show the current board
- reveal: Open a cell
- toggle_mark: Cycle a closed cell through flag, question and closed
- chord: Open the neighbours of a number whose flags are all placed
- reset: Start the same preset over
- history: Show past commands
- leaderboard: Best times for a difficulty
- list_presets: Available presets

Coordinates are 0-based (row, col).`),
	)

	c.registerTools()
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func cellTool(name, description string) mcp.Tool {
	return mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"row": map[string]interface{}{
					"type":        "integer",
					"description": "Row of the cell (0-based)",
				},
				"col": map[string]interface{}{
					"type":        "integer",
					"description": "Column of the cell (0-based)",
				},
				"elapsed_seconds": map[string]interface{}{
					"type":        "integer",
					"description": "Elapsed seconds reported by the player's own timer (optional)",
				},
			},
			Required: []string{"session_id", "row", "col"},
		},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"preset": map[string]interface{}{
					"type":        "string",
					"description": "Preset name such as easy, medium or hard (optional)",
				},
				"player": map[string]interface{}{
					"type":        "string",
					"description": "Player name recorded on the leaderboard (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "board",
		Description: "Show the current board of a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleBoard)

	c.mcpServer.AddTool(cellTool("reveal", "Open a cell"), c.moveHandler("reveal"))
	c.mcpServer.AddTool(cellTool("toggle_mark", "Cycle the mark on a closed cell: closed, flagged, questioned"), c.moveHandler("mark"))
	c.mcpServer.AddTool(cellTool("chord", "Open the closed neighbours of an open number whose flags match it"), c.moveHandler("chord"))

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset",
		Description: "Start the session's game over with new mines",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "history",
		Description: "Show the commands applied to a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number (default 1)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Entries per page (default 20)",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Sort order (default desc)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleHistory)

	// Presets and records
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "leaderboard",
		Description: "Best times for a difficulty",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"difficulty": map[string]interface{}{
					"type":        "string",
					"description": "Preset name or label, e.g. easy",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Number of records (default 10, 0 for all)",
				},
			},
			Required: []string{"difficulty"},
		},
	}, c.handleLeaderboard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_presets",
		Description: "List available difficulty presets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListPresets)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.log.Debug("api call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode))

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Tool arguments

type sessionArgs struct {
	SessionID string `mapstructure:"session_id"`
}

type cellArgs struct {
	SessionID      string `mapstructure:"session_id"`
	Row            *int   `mapstructure:"row"`
	Col            *int   `mapstructure:"col"`
	ElapsedSeconds *int   `mapstructure:"elapsed_seconds"`
}

type historyArgs struct {
	SessionID string `mapstructure:"session_id"`
	Page      int    `mapstructure:"page"`
	Limit     int    `mapstructure:"limit"`
	Order     string `mapstructure:"order"`
}

type leaderboardArgs struct {
	Difficulty string `mapstructure:"difficulty"`
	Limit      *int   `mapstructure:"limit"`
}

var errMissingSession = errors.New("session_id is required")

// decodeArgs maps tool arguments onto a struct. Numbers arrive from JSON
// as float64 and numeric strings are accepted too.
func decodeArgs(request mcp.CallToolRequest, out interface{}) error {
	args, _ := request.Params.Arguments.(map[string]interface{})
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// withJSON appends the raw JSON of v as a second text block
func withJSON(text string, v interface{}) *mcp.CallToolResult {
	result := mcp.NewToolResultText(text)
	if data, err := json.MarshalIndent(v, "", "  "); err == nil {
		result.Content = append(result.Content, mcp.NewTextContent(string(data)))
	}
	return result
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Preset string `mapstructure:"preset"`
		Player string `mapstructure:"player"`
	}
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]string{}
	if args.Preset != "" {
		body["preset"] = args.Preset
	}
	if args.Player != "" {
		body["player"] = args.Player
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return withJSON(formatSessionInfo(&session), session.Board), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		phase := engine.Pending
		if s.Board != nil {
			phase = s.Board.Phase
		}
		fmt.Fprintf(&b, "- %s (%s, Player: %s, Phase: %s, Created: %s)\n",
			s.ID, s.Difficulty, s.Player, phase, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleBoard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args sessionArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if args.SessionID == "" {
		return mcp.NewToolResultError(errMissingSession.Error()), nil
	}

	var board engine.BoardView
	if err := c.apiCall(ctx, "GET", sessionPath(args.SessionID, "/board"), nil, &board); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return withJSON(formatBoard(&board), &board), nil
}

// moveHandler serves reveal, toggle_mark and chord; endpoint is the REST
// path segment
func (c *Client) moveHandler(endpoint string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args cellArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if args.SessionID == "" {
			return mcp.NewToolResultError(errMissingSession.Error()), nil
		}
		if args.Row == nil || args.Col == nil {
			return mcp.NewToolResultError("row and col are required"), nil
		}

		body := map[string]interface{}{
			"row": *args.Row,
			"col": *args.Col,
		}
		if args.ElapsedSeconds != nil {
			body["elapsed_seconds"] = *args.ElapsedSeconds
		}

		var result service.ActionResult
		if err := c.apiCall(ctx, "POST", sessionPath(args.SessionID, "/"+endpoint), body, &result); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return withJSON(formatActionResult(&result), result.Change), nil
	}
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args sessionArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if args.SessionID == "" {
		return mcp.NewToolResultError(errMissingSession.Error()), nil
	}

	var response struct {
		Board *engine.BoardView `json:"board"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(args.SessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := "Game reset. Mines are placed on your first reveal.\n\n"
	if response.Board != nil {
		text += formatBoard(response.Board)
	}
	return mcp.NewToolResultText(text), nil
}

func (c *Client) handleHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args historyArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if args.SessionID == "" {
		return mcp.NewToolResultError(errMissingSession.Error()), nil
	}

	query := url.Values{}
	if args.Page > 0 {
		query.Set("page", strconv.Itoa(args.Page))
	}
	if args.Limit > 0 {
		query.Set("limit", strconv.Itoa(args.Limit))
	}
	if args.Order != "" {
		query.Set("order", args.Order)
	}
	path := sessionPath(args.SessionID, "/history")
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleLeaderboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args leaderboardArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(args.Difficulty) == "" {
		return mcp.NewToolResultError("difficulty is required"), nil
	}

	path := "/api/leaderboard/" + url.PathEscape(args.Difficulty)
	if args.Limit != nil {
		path += "?limit=" + strconv.Itoa(*args.Limit)
	}

	var response struct {
		Difficulty string           `json:"difficulty"`
		Count      int              `json:"count"`
		Records    []records.Record `json:"records"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatLeaderboard(args.Difficulty, response.Records)), nil
}

func (c *Client) handleListPresets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var presets []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/presets", nil, &presets); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Presets:\n\n")
	for _, p := range presets {
		fmt.Fprintf(&b, "- %s: %s, %dx%d with %d mines (%.0f%% density)",
			p.ConfigID, p.Label, p.Rows, p.Cols, p.Mines, p.Density*100)
		if p.Description != "" {
			fmt.Fprintf(&b, " - %s", p.Description)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

// Formatting

func formatSessionInfo(session *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\nPlayer: %s\nDifficulty: %s (%s)\n",
		session.ID, session.Player, session.Difficulty, session.Preset)
	if session.Board != nil {
		b.WriteString("\n")
		b.WriteString(formatBoard(session.Board))
	}
	return b.String()
}

// formatBoard renders the status line, a column header and one row per line
func formatBoard(board *engine.BoardView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Phase: %s | Mines: %d | Flags: %d | Remaining: %d | Opened: %d/%d\n\n",
		board.Phase, board.MineCount, board.FlaggedCount, board.RemainingMines,
		board.OpenedNonMine, board.SafeCells)

	b.WriteString("    ")
	for col := 0; col < board.Cols; col++ {
		fmt.Fprintf(&b, "%-3d", col)
	}
	b.WriteString("\n")

	for row, cells := range board.Cells {
		fmt.Fprintf(&b, "%2d  ", row)
		for _, cell := range cells {
			b.WriteByte(engine.Glyph(cell))
			b.WriteString("  ")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatActionResult(result *service.ActionResult) string {
	var b strings.Builder
	change := result.Change
	if change != nil {
		target := fmt.Sprintf("(%d,%d)", change.Target.Row, change.Target.Col)
		switch {
		case !change.Changed:
			fmt.Fprintf(&b, "%s %s: nothing changed\n", change.Action, target)
		case change.Action == engine.ActionMark:
			fmt.Fprintf(&b, "mark %s: now %s\n", target, change.Mark)
		default:
			fmt.Fprintf(&b, "%s %s: opened %d cells\n", change.Action, target, len(change.Opened))
		}

		switch {
		case change.Detonated != nil:
			fmt.Fprintf(&b, "BOOM! Mine at (%d,%d). Game lost.\n", change.Detonated.Row, change.Detonated.Col)
		case change.Finished() && change.PhaseAfter == engine.Won:
			fmt.Fprintf(&b, "All safe cells opened. You won in %d seconds!\n", result.ElapsedSeconds)
		}
	}

	if rec := result.Record; rec != nil {
		switch {
		case rec.Error != "":
			fmt.Fprintf(&b, "Record not saved: %s\n", rec.Error)
		case rec.NewBest:
			fmt.Fprintf(&b, "New personal best for %s on %s: %ds (previous %ds)\n",
				rec.Player, rec.Label, rec.Seconds, rec.Previous.Seconds)
		case rec.Stored:
			fmt.Fprintf(&b, "First record for %s on %s: %ds\n", rec.Player, rec.Label, rec.Seconds)
		case rec.Previous != nil:
			fmt.Fprintf(&b, "Personal best for %s on %s stays at %ds\n", rec.Player, rec.Label, rec.Previous.Seconds)
		}
	}

	if result.Board != nil {
		b.WriteString("\n")
		b.WriteString(formatBoard(result.Board))
	}
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "History (page %d/%d, %d total):\n\n", history.Page, history.TotalPages, history.Total)
	for _, entry := range history.Entries {
		changed := ""
		if !entry.Changed {
			changed = " (no change)"
		}
		fmt.Fprintf(&b, "%3d. %-6s (%d,%d) opened %d -> %s%s\n",
			entry.Number, entry.Action, entry.Row, entry.Col, entry.Opened, entry.Phase, changed)
	}
	if history.HasNext {
		fmt.Fprintf(&b, "\nMore entries on page %d\n", history.Page+1)
	}
	return b.String()
}

func formatLeaderboard(difficulty string, entries []records.Record) string {
	if len(entries) == 0 {
		return fmt.Sprintf("No records yet for %s\n", difficulty)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Best times for %s:\n\n", entries[0].Difficulty)
	for i, rec := range entries {
		fmt.Fprintf(&b, "%2d. %-20s %4ds  %s\n", i+1, rec.PlayerName, rec.Seconds, rec.RecordedAt.Format("2006-01-02"))
	}
	return b.String()
}
