package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/mcp-training/dice421/game/config"
	"github.com/wricardo/mcp-training/dice421/game/engine"
	"github.com/wricardo/mcp-training/dice421/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"421 Dice",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`421 Dice - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Get rid of your tokens. The last player holding tokens loses the match.

AVAILABLE TOOLS:
- list_rooms / get_room: Browse open rooms
- create_room: Open a room as host
- join_room: Take a seat in a waiting room
- add_bot: Fill a seat with a bot (host only)
- start_match: Start the match (host only, 2+ players)
- roll / stop / keep: Play your turn
- leave_room: Leave a room
- game_state: Current match snapshot
- match_log: Match log with pagination
- list_combos: Combo ranking, strongest first
- list_configs: Available presets
- game_instructions: Full rules

Every play tool needs the room code and your username.`),
	)

	c.registerTools()
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

func integerProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": description,
	}
}

// playSchema is the input of tools acting for a player in a room.
func playSchema(extra map[string]interface{}, required ...string) mcp.ToolInputSchema {
	props := map[string]interface{}{
		"code":     stringProp("Room code"),
		"username": stringProp("Your username in the room"),
	}
	for k, v := range extra {
		props[k] = v
	}
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: props,
		Required:   append([]string{"code", "username"}, required...),
	}
}

func emptySchema() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: map[string]interface{}{},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Rooms
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List open rooms, most recently active first",
		InputSchema: emptySchema(),
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_room",
		Description: "Get the lobby view of a room",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"code": stringProp("Room code"),
			},
			Required: []string{"code"},
		},
	}, c.handleGetRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_room",
		Description: "Create a room and become its host",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"username":     stringProp("Host username"),
				"code":         stringProp("Room code (optional, generated when empty)"),
				"avatar":       stringProp("Avatar emoji (optional)"),
				"max_players":  integerProp("Seats in the room (optional, preset default)"),
				"total_tokens": integerProp("Tokens in the stock (optional, preset default)"),
				"config":       stringProp("Preset name (optional)"),
			},
			Required: []string{"username"},
		},
	}, c.handleCreateRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "join_room",
		Description: "Join a waiting room",
		InputSchema: playSchema(map[string]interface{}{
			"avatar": stringProp("Avatar emoji (optional)"),
		}),
	}, c.handleJoinRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "add_bot",
		Description: "Add a bot to the room (host only)",
		InputSchema: playSchema(nil),
	}, c.handleAddBot)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "start_match",
		Description: "Start the match (host only, at least 2 players)",
		InputSchema: playSchema(nil),
	}, c.handleStartMatch)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "leave_room",
		Description: "Leave a room",
		InputSchema: playSchema(nil),
	}, c.handleLeaveRoom)

	// Play
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "roll",
		Description: "Roll the dice on your turn. In phase 2, kept dice are not rerolled.",
		InputSchema: playSchema(nil),
	}, c.handleRoll)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "stop",
		Description: "Phase 2 only: stop rolling and keep your current combo",
		InputSchema: playSchema(nil),
	}, c.handleStop)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "keep",
		Description: "Phase 2 only: toggle whether a die is kept for the next roll",
		InputSchema: playSchema(map[string]interface{}{
			"idx": integerProp("Die index (0, 1 or 2)"),
		}, "idx"),
	}, c.handleKeep)

	// Match
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current match state",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"code": stringProp("Room code"),
			},
			Required: []string{"code"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "match_log",
		Description: "Get the match log, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"code":  stringProp("Room code"),
				"page":  integerProp("Page number"),
				"limit": integerProp("Items per page"),
			},
			Required: []string{"code"},
		},
	}, c.handleMatchLog)

	// Reference
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_combos",
		Description: "List every combo with its power, token value and odds",
		InputSchema: emptySchema(),
	}, c.handleListCombos)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available room presets",
		InputSchema: emptySchema(),
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the complete rules of 421",
		InputSchema: emptySchema(),
	}, c.handleGameInstructions)
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

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// action posts one room message and renders the outcome.
func (c *Client) action(ctx context.Context, msg service.Inbound) (*mcp.CallToolResult, error) {
	if msg.Code == "" {
		return mcp.NewToolResultError("code is required"), nil
	}

	var result service.ActionResult
	path := fmt.Sprintf("/api/rooms/%s/actions", url.PathEscape(msg.Code))
	if err := c.apiCall(ctx, "POST", path, msg, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		args = map[string]interface{}{}
	}
	return args
}

func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

// playMessage builds a room message from the common code/username arguments.
func playMessage(msgType string, args map[string]interface{}) service.Inbound {
	code, _ := args["code"].(string)
	username, _ := args["username"].(string)
	return service.Inbound{Type: msgType, Code: code, Username: username}
}

// Tool handlers

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count int                `json:"count"`
		Rooms []service.RoomInfo `json:"rooms"`
	}

	if err := c.apiCall(ctx, "GET", "/api/rooms", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if response.Count == 0 {
		return mcp.NewToolResultText("No open rooms. Use create_room to open one."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Open Rooms (%d):\n\n", response.Count)
	for i := range response.Rooms {
		r := &response.Rooms[i]
		fmt.Fprintf(&b, "- %s: %d/%d players, %s, host %s\n",
			r.Room.Code, len(r.Room.Players), r.Room.MaxPlayers, r.Room.Status, r.Room.Host)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, _ := arguments(request)["code"].(string)
	if code == "" {
		return mcp.NewToolResultError("code is required"), nil
	}

	var info service.RoomInfo
	if err := c.apiCall(ctx, "GET", "/api/rooms/"+url.PathEscape(code), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRoomInfo(&info)), nil
}

func (c *Client) handleCreateRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	req := service.Inbound{Type: service.MsgCreate}
	req.Username, _ = args["username"].(string)
	req.Code, _ = args["code"].(string)
	req.Avatar, _ = args["avatar"].(string)
	req.Config, _ = args["config"].(string)
	req.MaxPlayers, _ = intArg(args, "max_players")
	req.TotalTokens, _ = intArg(args, "total_tokens")

	var info service.RoomInfo
	if err := c.apiCall(ctx, "POST", "/api/rooms", req, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created room: %s\n\n%s", info.Room.Code, formatRoomInfo(&info))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleJoinRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	msg := playMessage(service.MsgJoin, args)
	msg.Avatar, _ = args["avatar"].(string)
	return c.action(ctx, msg)
}

func (c *Client) handleAddBot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.action(ctx, playMessage(service.MsgAddBot, arguments(request)))
}

func (c *Client) handleStartMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.action(ctx, playMessage(service.MsgStart, arguments(request)))
}

func (c *Client) handleLeaveRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	msg := playMessage(service.MsgLeave, arguments(request))
	if msg.Code == "" {
		return mcp.NewToolResultError("code is required"), nil
	}

	path := fmt.Sprintf("/api/rooms/%s/actions", url.PathEscape(msg.Code))
	if err := c.apiCall(ctx, "POST", path, msg, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s left room %s", msg.Username, msg.Code)), nil
}

func (c *Client) handleRoll(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.action(ctx, playMessage(service.MsgRoll, arguments(request)))
}

func (c *Client) handleStop(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.action(ctx, playMessage(service.MsgStop, arguments(request)))
}

func (c *Client) handleKeep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	idx, ok := intArg(args, "idx")
	if !ok {
		return mcp.NewToolResultError("idx is required"), nil
	}
	msg := playMessage(service.MsgKeep, args)
	msg.Idx = &idx
	return c.action(ctx, msg)
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, _ := arguments(request)["code"].(string)
	if code == "" {
		return mcp.NewToolResultError("code is required"), nil
	}

	var state engine.MatchState
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/rooms/%s/state", url.PathEscape(code)), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMatchState(&state)), nil
}

func (c *Client) handleMatchLog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	code, _ := args["code"].(string)
	if code == "" {
		return mcp.NewToolResultError("code is required"), nil
	}

	params := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		params.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		params.Set("limit", fmt.Sprint(limit))
	}
	path := fmt.Sprintf("/api/rooms/%s/log", url.PathEscape(code))
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var log service.LogResponse
	if err := c.apiCall(ctx, "GET", path, nil, &log); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatLog(&log)), nil
}

func (c *Client) handleListCombos(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count  int                `json:"count"`
		Combos []engine.ComboInfo `json:"combos"`
	}
	if err := c.apiCall(ctx, "GET", "/api/combos", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatCombos(response.Combos)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []config.PresetInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Presets:\n\n")
	for _, p := range configs {
		fmt.Fprintf(&b, "• %s (%s)\n  %s\n  Players: %d, Tokens: %d\n\n",
			p.Name, p.ConfigID, p.Description, p.MaxPlayers, p.TotalTokens)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `🎲 421 Dice - Complete Instructions

GAME OBJECTIVE:
Get rid of your tokens. The match ends when one player holds every token still in play: that player loses.

SETUP:
• 2 or more players, one host. The host can fill seats with bots and starts the match.
• All tokens start in the stock (21 by default). Nobody holds any.

COMBOS (strongest first):
• 421 is the best roll, worth 8 tokens. Three aces (111) is worth 7.
• Ace pairs and triples are worth their face: 116 and 666 give 6, down to 112 and 222 giving 2.
• Straights (654, 543, 432, 321) are worth 2.
• Everything else is worth 1. The weakest roll is 221.
Use list_combos for the full ranking.

PHASE 1 - CHARGE:
• Each round every player rolls once, in turn order.
• The worst roll takes the best roll's value in tokens from the stock.
• Rolling 221 earns its roller 1 extra token from the stock.
• When every roll ranks the same, nothing is distributed.
• The round loser opens the next round.
• When the stock is empty, players without tokens have won. The others play phase 2.

PHASE 2 - DISCHARGE:
• The round leader rolls up to 3 times and may stop early. The others get as many rolls as the leader used.
• Between rolls, use keep to hold dice; kept dice are not rerolled.
• At the end of a round the best roller gives the value of its combo in tokens to the worst roller.
• If every final combo ranks the same, everybody rolls once more.
• The round loser leads the next round. Players left without tokens have won.

VICTORY CONDITIONS:
• Everyone except the last player holding tokens wins.

COMMANDS:
• roll: roll on your turn
• stop: phase 2, end your turn with the current combo
• keep: phase 2, toggle a die (idx 0-2) before rerolling

Good luck, and may you roll 421!`

// Formatting helpers

func formatRoomInfo(info *service.RoomInfo) string {
	var b strings.Builder
	r := info.Room
	fmt.Fprintf(&b, "Room %s (%s)\n", r.Code, r.Status)
	if r.Config != "" {
		fmt.Fprintf(&b, "Preset: %s\n", r.Config)
	}
	fmt.Fprintf(&b, "Host: %s\n", r.Host)
	fmt.Fprintf(&b, "Seats: %d/%d, Tokens: %d\n", len(r.Players), r.MaxPlayers, r.TotalTokens)
	b.WriteString("Players:\n")
	for _, p := range r.Players {
		tag := ""
		if p.IsBot {
			tag = " (bot)"
		}
		fmt.Fprintf(&b, "  %s %s%s\n", p.Avatar, p.Username, tag)
	}
	if info.Phase > 0 {
		fmt.Fprintf(&b, "Phase: %d", info.Phase)
		if info.Finished {
			b.WriteString(" (finished)")
		} else if info.Current != "" {
			fmt.Fprintf(&b, ", turn: %s", info.Current)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatMatchState(s *engine.MatchState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Match %s: phase %d, round %d\n", s.ID, s.Phase, s.Round)
	fmt.Fprintf(&b, "Stock: %d/%d🪙\n", s.StockTokens, s.TotalTokens)

	current := s.CurrentUsername()
	b.WriteString("Players:\n")
	for _, p := range s.Players {
		marker := "  "
		if p.Username == current && !s.Finished {
			marker = "▶ "
		}
		fmt.Fprintf(&b, "%s%s %s: %d🪙\n", marker, p.Avatar, p.Username, p.Tokens)
	}

	if s.Phase == 1 && s.CurrentDice != nil {
		d := *s.CurrentDice
		fmt.Fprintf(&b, "Last roll: [%s] %s\n", d.Dashed(), engine.Classify(d))
	}

	if s.Phase == 2 {
		fmt.Fprintf(&b, "Rolls left: %d (max %d)\n", s.P2RollsLeft, s.P2MaxRolls)
		if s.P2CurrentDice != nil {
			d := *s.P2CurrentDice
			fmt.Fprintf(&b, "Dice: [%s] %s, kept: %s\n", d.Dashed(), engine.Classify(d), formatKept(s.P2KeptDice))
		}
		for _, name := range s.P2ActivePlayers {
			pr := s.P2Rolls[name]
			if pr == nil {
				continue
			}
			status := "playing"
			combo := pr.LastCombo
			if pr.Done {
				status = "done"
				combo = pr.FinalCombo
			}
			if combo == "" {
				combo = "-"
			}
			fmt.Fprintf(&b, "  %s: %s after %d roll(s), %s\n", name, combo, len(pr.Rolls), status)
		}
	}

	if s.Finished {
		fmt.Fprintf(&b, "\n🏁 FINISHED. Winners: %s. Loser: %s\n",
			strings.Join(s.Winners, ", "), strings.Join(s.Losers, ", "))
	} else if current != "" {
		fmt.Fprintf(&b, "\nTurn: %s\n", current)
	}
	return b.String()
}

func formatKept(kept [3]bool) string {
	marks := make([]string, 3)
	for i, k := range kept {
		if k {
			marks[i] = "🔒"
		} else {
			marks[i] = "·"
		}
	}
	return strings.Join(marks, " ")
}

func formatActionResult(result *service.ActionResult) string {
	var b strings.Builder
	for _, a := range result.Anims {
		b.WriteString(a)
		b.WriteString("\n")
	}
	if len(result.Anims) > 0 {
		b.WriteString("\n")
	}
	if result.State != nil {
		b.WriteString(formatMatchState(result.State))
	} else {
		b.WriteString(formatRoomInfo(&service.RoomInfo{Room: result.Room}))
	}
	return b.String()
}

func formatLog(log *service.LogResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Match Log (page %d/%d, %d entries):\n", log.Page, log.TotalPages, log.Total)
	for _, e := range log.Entries {
		fmt.Fprintf(&b, "  %s\n", e.Text)
	}
	if log.HasNext {
		fmt.Fprintf(&b, "More: page %d\n", log.Page+1)
	}
	return b.String()
}

func formatCombos(combos []engine.ComboInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Combos (%d), strongest first:\n", len(combos))
	for _, c := range combos {
		fmt.Fprintf(&b, "  %s  power %2d  %d🪙  %d/216\n", c.Key, c.Power, c.Score, c.Ways)
	}
	return b.String()
}
