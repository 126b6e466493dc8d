package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/voltplay/driveworld/game/engine"
	"github.com/voltplay/driveworld/game/service"
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
		baseURL: baseURL,
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
		"DriveWorld",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`DriveWorld - MCP Interface

This is a thin client that proxies all requests to the REST API server.

WORLD OBJECTIVE:
Own virtual land plots on a city grid, deploy chargers on them, and earn
POINTS when drivers charge there. Charging debits the driver every second;
the charger's owner is credited a share.

AVAILABLE TOOLS:
- ensure_identity: Register your identity and receive starter POINTS
- world_state: View the grid, balances, sessions, and recent events
- mint_land: Buy an unowned plot
- deploy_charger: Stake a charger on a plot you own
- start_session / stop_session: Charge on a plot with a charger
- link_charge_point: Associate a real-world charge point with a plot
- spawn_virtual: Auto-mint a plot and deploy a charger from a catalog entry
- recent_events: Read the world event log
- leaderboard: Top earners and their plot counts

ECONOMY: minting costs 50 POINTS, deploying stakes 100 POINTS, and each
charging second moves the charger's rate in POINTS. Watch your balance -
sessions stop automatically when you cannot afford the next second.`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "ensure_identity",
		Description: "Register the active identity. First-time identities receive starter POINTS.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"pubkey": map[string]interface{}{
					"type":        "string",
					"description": "Public key identifying the player",
				},
				"label": map[string]interface{}{
					"type":        "string",
					"description": "Display name (optional)",
				},
			},
			Required: []string{"pubkey"},
		},
	}, c.handleEnsureIdentity)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "world_state",
		Description: "Get the current world: grid ownership, balances, active sessions, recent events",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleWorldState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "mint_land",
		Description: "Buy an unowned plot for the active identity (costs 50 POINTS)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"plot_id": map[string]interface{}{
					"type":        "string",
					"description": "Plot id in row-col form, e.g. \"3-7\"",
				},
			},
			Required: []string{"plot_id"},
		},
	}, c.handleMintLand)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "deploy_charger",
		Description: "Stake a charger on a plot you own (stakes 100 POINTS)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"plot_id": map[string]interface{}{
					"type":        "string",
					"description": "Plot id in row-col form",
				},
				"rate_per_sec": map[string]interface{}{
					"type":        "integer",
					"description": "POINTS drained per charging second (default 2)",
				},
			},
			Required: []string{"plot_id"},
		},
	}, c.handleDeployCharger)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "start_session",
		Description: "Start charging on a plot that has a charger",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"plot_id": map[string]interface{}{
					"type":        "string",
					"description": "Plot id in row-col form",
				},
			},
			Required: []string{"plot_id"},
		},
	}, c.handleStartSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "stop_session",
		Description: "Stop the charging session on a plot",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"plot_id": map[string]interface{}{
					"type":        "string",
					"description": "Plot id in row-col form",
				},
			},
			Required: []string{"plot_id"},
		},
	}, c.handleStopSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "link_charge_point",
		Description: "Associate a catalog charge point with a plot",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"code": map[string]interface{}{
					"type":        "string",
					"description": "Charge point code from the catalog",
				},
				"plot_id": map[string]interface{}{
					"type":        "string",
					"description": "Plot id in row-col form",
				},
				"power_kw": map[string]interface{}{
					"type":        "number",
					"description": "Connector power in kW (optional)",
				},
			},
			Required: []string{"code", "plot_id"},
		},
	}, c.handleLinkChargePoint)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "spawn_virtual",
		Description: "Mint a random free plot and deploy a charger derived from a catalog charge point",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"code": map[string]interface{}{
					"type":        "string",
					"description": "Charge point code from the catalog",
				},
			},
			Required: []string{"code"},
		},
	}, c.handleSpawnVirtual)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "recent_events",
		Description: "Read the world event log, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of events to return (default all)",
				},
			},
		},
	}, c.handleRecentEvents)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "leaderboard",
		Description: "Top identities by lifetime POINTS earned",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Number of entries (default 10)",
				},
			},
		},
	}, c.handleLeaderboard)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
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

// Tool handlers

func (c *Client) handleEnsureIdentity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	pubkey, _ := args["pubkey"].(string)
	label, _ := args["label"].(string)

	var user engine.Identity
	err := c.apiCall("POST", "/api/identity", map[string]string{
		"pubkey": pubkey,
		"label":  label,
	}, &user)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var balance engine.Balance
	if err := c.apiCall("GET", fmt.Sprintf("/api/balances/%s", user.Pubkey), nil, &balance); err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("Identity active: %s (%s)", user.Label, user.Pubkey)), nil
	}

	result := fmt.Sprintf("Identity active: %s (%s)\nBalance: %d POINTS (earned %d, spent %d)",
		user.Label, user.Pubkey, balance.Points, balance.Earned, balance.Spent)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleWorldState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var view service.WorldView
	if err := c.apiCall("GET", "/api/world", nil, &view); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatWorldView(&view)), nil
}

func (c *Client) handleMintLand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	plotID, _ := args["plot_id"].(string)

	var plot engine.Plot
	err := c.apiCall("POST", fmt.Sprintf("/api/plots/%s/mint", plotID), nil, &plot)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Minted plot %s for %s", plot.ID, plot.Owner)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleDeployCharger(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	plotID, _ := args["plot_id"].(string)

	body := map[string]interface{}{}
	if rate, ok := args["rate_per_sec"].(float64); ok {
		body["rate_per_sec"] = int(rate)
	}

	var plot engine.Plot
	err := c.apiCall("POST", fmt.Sprintf("/api/plots/%s/charger", plotID), body, &plot)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rate := 0
	if plot.Charger != nil {
		rate = plot.Charger.RatePerSec
	}
	result := fmt.Sprintf("Charger deployed on %s at %d POINTS/s", plot.ID, rate)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleStartSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	plotID, _ := args["plot_id"].(string)

	err := c.apiCall("POST", fmt.Sprintf("/api/plots/%s/session", plotID), nil, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Charging started on %s", plotID)), nil
}

func (c *Client) handleStopSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	plotID, _ := args["plot_id"].(string)

	err := c.apiCall("DELETE", fmt.Sprintf("/api/plots/%s/session", plotID), nil, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Charging stopped on %s", plotID)), nil
}

func (c *Client) handleLinkChargePoint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	code, _ := args["code"].(string)
	plotID, _ := args["plot_id"].(string)

	body := map[string]interface{}{
		"code":    code,
		"plot_id": plotID,
	}
	if power, ok := args["power_kw"].(float64); ok {
		body["power_kw"] = power
	}

	err := c.apiCall("POST", "/api/links", body, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Linked charge point %s to plot %s", code, plotID)), nil
}

func (c *Client) handleSpawnVirtual(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	code, _ := args["code"].(string)

	var result service.SpawnResult
	err := c.apiCall("POST", fmt.Sprintf("/api/catalog/%s/spawn", code), nil, &result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("Spawned virtual charger from %s\nPlot: %s\nRate: %d POINTS/s (from %.1f kW)",
		result.Code, result.PlotID, result.RatePerSec, result.PowerKW)
	return mcp.NewToolResultText(text), nil
}

func (c *Client) handleRecentEvents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	path := "/api/events"
	if limit, ok := args["limit"].(float64); ok && limit > 0 {
		path = fmt.Sprintf("/api/events?limit=%d", int(limit))
	}

	var response struct {
		Count  int            `json:"count"`
		Events []engine.Event `json:"events"`
	}
	if err := c.apiCall("GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Recent Events (%d, newest first):\n\n", response.Count))
	for _, ev := range response.Events {
		b.WriteString(fmt.Sprintf("[%s] %s %s\n", ev.Ts.Format("15:04:05"), ev.Kind, ev.Text))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleLeaderboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	path := "/api/leaderboard"
	if limit, ok := args["limit"].(float64); ok && limit > 0 {
		path = fmt.Sprintf("/api/leaderboard?limit=%d", int(limit))
	}

	var response struct {
		Count     int                    `json:"count"`
		Standings []engine.OwnerStanding `json:"standings"`
	}
	if err := c.apiCall("GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Leaderboard:\n\n")
	for i, s := range response.Standings {
		b.WriteString(fmt.Sprintf("%d. %s — %d POINTS earned, %d plot(s)\n", i+1, s.Pubkey, s.Earned, s.Plots))
	}
	return mcp.NewToolResultText(b.String()), nil
}

// Formatting helpers

// formatWorldView renders the grid plus balances, sessions and events.
//
// Grid legend:
//
//	. unowned plot
//	L owned land without a charger
//	C charger, idle
//	A charger, actively charging
func formatWorldView(view *service.WorldView) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s — %dx%d grid\n", view.Name, view.Rows, view.Cols))
	if view.User != nil {
		b.WriteString(fmt.Sprintf("Identity: %s (%s)\n", view.User.Label, view.User.Pubkey))
	} else {
		b.WriteString("Identity: none (call ensure_identity first)\n")
	}
	b.WriteString("\n")

	// The grid slice is row-major.
	for r := 0; r < view.Rows; r++ {
		for col := 0; col < view.Cols; col++ {
			idx := r*view.Cols + col
			if idx >= len(view.Grid) {
				break
			}
			b.WriteString(plotChar(view, &view.Grid[idx]))
		}
		b.WriteString("\n")
	}
	b.WriteString("\nLegend: . unowned | L owned | C charger | A charging\n")

	if len(view.Balances) > 0 {
		b.WriteString("\nBalances:\n")
		pubkeys := make([]string, 0, len(view.Balances))
		for pk := range view.Balances {
			pubkeys = append(pubkeys, pk)
		}
		sort.Strings(pubkeys)
		for _, pk := range pubkeys {
			bal := view.Balances[pk]
			b.WriteString(fmt.Sprintf("  %s: %d POINTS (earned %d, spent %d)\n",
				pk, bal.Points, bal.Earned, bal.Spent))
		}
	}

	if len(view.Sessions) > 0 {
		b.WriteString(fmt.Sprintf("\nActive sessions (%d):\n", view.ActiveSessions))
		plotIDs := make([]string, 0, len(view.Sessions))
		for id := range view.Sessions {
			plotIDs = append(plotIDs, id)
		}
		sort.Strings(plotIDs)
		for _, id := range plotIDs {
			sess := view.Sessions[id]
			b.WriteString(fmt.Sprintf("  %s: %s since %s at %d/s\n",
				id, sess.Driver, sess.StartTs.Format("15:04:05"), sess.RatePerSec))
		}
	}

	if len(view.Events) > 0 {
		b.WriteString("\nRecent events:\n")
		for _, ev := range view.Events {
			b.WriteString(fmt.Sprintf("  [%s] %s\n", ev.Kind, ev.Text))
		}
	}

	return b.String()
}

func plotChar(view *service.WorldView, plot *engine.Plot) string {
	if _, charging := view.Sessions[plot.ID]; charging {
		return "A"
	}
	if plot.Charger != nil {
		return "C"
	}
	if plot.Owned() {
		return "L"
	}
	return "."
}
