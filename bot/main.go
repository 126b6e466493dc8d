// Command bot plays the settlement game against a running server. It
// onboards an identity, then runs an expansion strategy: mint land and
// deploy chargers while funds allow, keep a charging session running so
// points keep moving, and report the ledger as it goes.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

type Charger struct {
	RatePerSec int    `json:"rate_per_sec"`
	Staked     int    `json:"staked"`
	Owner      string `json:"owner"`
}

type Plot struct {
	ID      string   `json:"id"`
	Row     int      `json:"row"`
	Col     int      `json:"col"`
	Owner   string   `json:"owner,omitempty"`
	Charger *Charger `json:"charger,omitempty"`
}

type Balance struct {
	Points int `json:"points"`
	Earned int `json:"earned"`
	Spent  int `json:"spent"`
}

type Session struct {
	Driver     string `json:"driver"`
	RatePerSec int    `json:"rate_per_sec"`
}

type Identity struct {
	Pubkey string `json:"pubkey"`
	Label  string `json:"label"`
}

type WorldView struct {
	Name           string             `json:"name"`
	Rows           int                `json:"rows"`
	Cols           int                `json:"cols"`
	Grid           []Plot             `json:"grid"`
	User           *Identity          `json:"user,omitempty"`
	Balances       map[string]Balance `json:"balances"`
	Sessions       map[string]Session `json:"sessions"`
	ActiveSessions int                `json:"active_sessions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Client struct {
	baseURL string
	pubkey  string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) post(path string, payload, result interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewBuffer(data)
	}

	resp, err := c.client.Post(c.baseURL+path, "application/json", body)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		var apiErr errorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("POST %s: %s", path, apiErr.Error)
		}
		return fmt.Errorf("POST %s: %s", path, resp.Status)
	}
	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}

func (c *Client) get(path string, result interface{}) error {
	resp, err := c.client.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func (c *Client) EnsureIdentity(pubkey, label string) error {
	var identity Identity
	if err := c.post("/api/identity", map[string]string{"pubkey": pubkey, "label": label}, &identity); err != nil {
		return err
	}
	c.pubkey = identity.Pubkey
	return nil
}

func (c *Client) World() (*WorldView, error) {
	var view WorldView
	if err := c.get("/api/world", &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *Client) MintLand(plotID string) error {
	return c.post("/api/plots/"+plotID+"/mint", nil, nil)
}

func (c *Client) DeployCharger(plotID string, ratePerSec int) error {
	return c.post("/api/plots/"+plotID+"/charger", map[string]int{"rate_per_sec": ratePerSec}, nil)
}

func (c *Client) StartSession(plotID string) error {
	return c.post("/api/plots/"+plotID+"/session", nil, nil)
}

func (c *Client) Points(view *WorldView) int {
	return view.Balances[c.pubkey].Points
}

func main() {
	serverURL := flag.String("url", "http://localhost:8080", "Game server URL")
	pubkey := flag.String("pubkey", "bot-pubkey", "Identity pubkey to play as")
	label := flag.String("label", "ExpansionBot", "Identity label")
	rate := flag.Int("rate", 2, "Charger rate in POINTS per second")
	rounds := flag.Int("rounds", 60, "Strategy rounds before reporting and exiting")
	delayMs := flag.Int("delay", 1000, "Delay between rounds in milliseconds")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	log.Printf("Connecting to game server at %s", *serverURL)
	client := NewClient(*serverURL)

	if err := client.EnsureIdentity(*pubkey, *label); err != nil {
		log.Fatalf("Failed to ensure identity: %v", err)
	}
	log.Printf("✨ Playing as %s (%s)", *label, *pubkey)

	view, err := client.World()
	if err != nil {
		log.Fatalf("Failed to fetch world: %v", err)
	}
	log.Printf("World %q: %dx%d grid, %d POINTS in hand",
		view.Name, view.Rows, view.Cols, client.Points(view))

	strategy := NewExpansionStrategy(client.pubkey, *rate)

	for round := 1; round <= *rounds; round++ {
		view, err = client.World()
		if err != nil {
			log.Printf("⚠️  Failed to fetch world: %v", err)
			time.Sleep(time.Duration(*delayMs) * time.Millisecond)
			continue
		}

		action := strategy.NextAction(view)
		if *verbose || action.Kind != ActionWait {
			log.Printf("Round %d: points=%d owned=%d chargers=%d sessions=%d -> %s",
				round, client.Points(view),
				strategy.ownedPlots(view), strategy.ownedChargers(view),
				view.ActiveSessions, action)
		}

		switch action.Kind {
		case ActionMint:
			err = client.MintLand(action.PlotID)
		case ActionDeploy:
			err = client.DeployCharger(action.PlotID, *rate)
		case ActionStartSession:
			err = client.StartSession(action.PlotID)
		case ActionWait:
			err = nil
		}
		if err != nil {
			// Conflicts happen when the world moved under us; refetch next round.
			log.Printf("⚠️  %s failed: %v", action.Kind, err)
		}

		time.Sleep(time.Duration(*delayMs) * time.Millisecond)
	}

	view, err = client.World()
	if err != nil {
		log.Fatalf("Failed to fetch final world: %v", err)
	}
	bal := view.Balances[client.pubkey]
	log.Printf("\n=== Final report ===")
	log.Printf("Plots owned: %d/%d", strategy.ownedPlots(view), len(view.Grid))
	log.Printf("Chargers deployed: %d", strategy.ownedChargers(view))
	log.Printf("Balance: %d POINTS (earned %d, spent %d)", bal.Points, bal.Earned, bal.Spent)

	if strategy.ownedPlots(view) == 0 {
		os.Exit(1)
	}
}
