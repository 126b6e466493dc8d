// Desktop viewer for the settlement world. Renders the plot grid, the
// ledger and the live event feed, and lets the player act with the mouse:
// click an unowned plot to mint it, press D on an owned plot to deploy a
// charger, press S to toggle a charging session.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"image/color"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const (
	cellSize     = 56
	cellGap      = 4
	headerHeight = 72
	footerHeight = 96
	screenWidth  = 12*(cellSize+cellGap) + cellGap
	screenHeight = headerHeight + 8*(cellSize+cellGap) + cellGap + footerHeight
	pollInterval = 2 * time.Second
)

var (
	colorBackground = color.RGBA{24, 26, 32, 255}
	colorUnowned    = color.RGBA{52, 56, 66, 255}
	colorOwned      = color.RGBA{46, 90, 60, 255}
	colorRival      = color.RGBA{88, 62, 46, 255}
	colorCharger    = color.RGBA{60, 120, 200, 255}
	colorCharging   = color.RGBA{230, 190, 60, 255}
	colorSelected   = color.RGBA{220, 220, 230, 255}
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

type Event struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
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
	Events         []Event            `json:"events"`
}

// WSMessage is the envelope the hub wraps every broadcast in.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type Game struct {
	baseURL string
	pubkey  string

	stateMutex sync.Mutex
	state      *WorldView
	statusMsg  string
	statusTime time.Time

	lastPoll time.Time
}

func NewGame(baseURL, pubkey, label string) (*Game, error) {
	g := &Game{baseURL: baseURL, pubkey: pubkey}

	if err := g.postJSON("/api/identity", map[string]string{"pubkey": pubkey, "label": label}); err != nil {
		return nil, fmt.Errorf("ensure identity: %w", err)
	}
	if err := g.fetchWorld(); err != nil {
		return nil, fmt.Errorf("fetch world: %w", err)
	}
	if err := g.connectWebSocket(); err != nil {
		// Polling still works without the socket.
		log.Printf("WebSocket unavailable, falling back to polling: %v", err)
	}
	return g, nil
}

func (g *Game) postJSON(path string, payload interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(data)
	}
	resp, err := http.Post(g.baseURL+path, "application/json", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("%s", resp.Status)
	}
	return nil
}

func (g *Game) fetchWorld() error {
	resp, err := http.Get(g.baseURL + "/api/world")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var view WorldView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return err
	}

	g.stateMutex.Lock()
	g.state = &view
	g.stateMutex.Unlock()
	return nil
}

func (g *Game) connectWebSocket() error {
	u, err := url.Parse(g.baseURL)
	if err != nil {
		return err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	wsURL := url.URL{Scheme: scheme, Host: u.Host, Path: "/ws"}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		return err
	}
	go g.listenWebSocket(conn)
	log.Printf("WebSocket connected to %s", wsURL.String())
	return nil
}

func (g *Game) listenWebSocket(conn *websocket.Conn) {
	defer conn.Close()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Printf("WebSocket read error: %v", err)
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("WebSocket JSON parse error: %v", err)
			continue
		}
		if msg.Event != "world_update" {
			continue
		}

		var view WorldView
		if err := json.Unmarshal(msg.Data, &view); err != nil {
			log.Printf("WebSocket world_update parse error: %v", err)
			continue
		}

		g.stateMutex.Lock()
		g.state = &view
		g.stateMutex.Unlock()
	}
}

func (g *Game) setStatus(format string, args ...interface{}) {
	g.statusMsg = fmt.Sprintf(format, args...)
	g.statusTime = time.Now()
}

// plotAt maps a screen coordinate to a plot id, or "" for gaps and chrome.
func (g *Game) plotAt(view *WorldView, x, y int) string {
	if y < headerHeight {
		return ""
	}
	col := (x - cellGap) / (cellSize + cellGap)
	row := (y - headerHeight - cellGap) / (cellSize + cellGap)
	if row < 0 || row >= view.Rows || col < 0 || col >= view.Cols {
		return ""
	}
	// Reject clicks in the gap between cells.
	if (x-cellGap)%(cellSize+cellGap) >= cellSize || (y-headerHeight-cellGap)%(cellSize+cellGap) >= cellSize {
		return ""
	}
	return fmt.Sprintf("%d-%d", row, col)
}

func (g *Game) Update() error {
	g.stateMutex.Lock()
	view := g.state
	g.stateMutex.Unlock()
	if view == nil {
		return nil
	}

	if time.Since(g.lastPoll) > pollInterval {
		g.lastPoll = time.Now()
		go func() {
			if err := g.fetchWorld(); err != nil {
				log.Printf("Poll failed: %v", err)
			}
		}()
	}

	x, y := ebiten.CursorPosition()
	hovered := g.plotAt(view, x, y)

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) && hovered != "" {
		if err := g.postJSON("/api/plots/"+hovered+"/mint", nil); err != nil {
			g.setStatus("Mint %s: %v", hovered, err)
		} else {
			g.setStatus("Minted %s", hovered)
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyD) && hovered != "" {
		if err := g.postJSON("/api/plots/"+hovered+"/charger", map[string]int{"rate_per_sec": 2}); err != nil {
			g.setStatus("Deploy %s: %v", hovered, err)
		} else {
			g.setStatus("Charger deployed on %s", hovered)
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyS) && hovered != "" {
		if _, active := view.Sessions[hovered]; active {
			req, _ := http.NewRequest(http.MethodDelete, g.baseURL+"/api/plots/"+hovered+"/session", nil)
			if _, err := http.DefaultClient.Do(req); err != nil {
				g.setStatus("Stop session %s: %v", hovered, err)
			} else {
				g.setStatus("Session stopped on %s", hovered)
			}
		} else {
			if err := g.postJSON("/api/plots/"+hovered+"/session", nil); err != nil {
				g.setStatus("Start session %s: %v", hovered, err)
			} else {
				g.setStatus("Charging on %s", hovered)
			}
		}
	}

	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(colorBackground)

	g.stateMutex.Lock()
	view := g.state
	statusMsg, statusTime := g.statusMsg, g.statusTime
	g.stateMutex.Unlock()
	if view == nil {
		ebitenutil.DebugPrintAt(screen, "Connecting...", 10, 10)
		return
	}

	g.drawHeader(screen, view)
	g.drawGrid(screen, view)
	g.drawFooter(screen, view, statusMsg, statusTime)
}

func (g *Game) drawHeader(screen *ebiten.Image, view *WorldView) {
	label := "none"
	points := 0
	if view.User != nil {
		label = view.User.Label
		points = view.Balances[view.User.Pubkey].Points
	}
	ebitenutil.DebugPrintAt(screen,
		fmt.Sprintf("%s  |  %dx%d", view.Name, view.Rows, view.Cols), 10, 8)
	ebitenutil.DebugPrintAt(screen,
		fmt.Sprintf("Identity: %s   Balance: %d POINTS   Sessions: %d",
			label, points, view.ActiveSessions), 10, 26)
	ebitenutil.DebugPrintAt(screen,
		"Click: mint   D: deploy charger   S: toggle session", 10, 44)
}

func (g *Game) drawGrid(screen *ebiten.Image, view *WorldView) {
	mx, my := ebiten.CursorPosition()
	hovered := g.plotAt(view, mx, my)

	// Session cells pulse on the shared wall clock so every charging plot
	// blinks in step.
	pulse := float32(0.75 + 0.25*math.Sin(float64(time.Now().UnixMilli())/300))

	mine := ""
	if view.User != nil {
		mine = view.User.Pubkey
	}

	for _, p := range view.Grid {
		if p.Row >= view.Rows || p.Col >= view.Cols {
			continue
		}
		x := float32(cellGap + p.Col*(cellSize+cellGap))
		y := float32(headerHeight + cellGap + p.Row*(cellSize+cellGap))

		fill := colorUnowned
		switch {
		case p.Owner == "":
		case p.Owner == mine:
			fill = colorOwned
		default:
			fill = colorRival
		}
		vector.DrawFilledRect(screen, x, y, cellSize, cellSize, fill, false)

		if p.Charger != nil {
			marker := colorCharger
			if _, active := view.Sessions[p.ID]; active {
				marker = colorCharging
				marker.R = uint8(float32(marker.R) * pulse)
				marker.G = uint8(float32(marker.G) * pulse)
			}
			vector.DrawFilledCircle(screen, x+cellSize/2, y+cellSize/2, cellSize/5, marker, false)
			ebitenutil.DebugPrintAt(screen,
				fmt.Sprintf("%d/s", p.Charger.RatePerSec), int(x)+4, int(y)+cellSize-18)
		}

		if p.ID == hovered {
			vector.StrokeRect(screen, x, y, cellSize, cellSize, 2, colorSelected, false)
			ebitenutil.DebugPrintAt(screen, p.ID, int(x)+4, int(y)+2)
		}
	}
}

func (g *Game) drawFooter(screen *ebiten.Image, view *WorldView, statusMsg string, statusTime time.Time) {
	baseY := headerHeight + cellGap + view.Rows*(cellSize+cellGap) + 8

	if statusMsg != "" && time.Since(statusTime) < 4*time.Second {
		ebitenutil.DebugPrintAt(screen, "> "+statusMsg, 10, baseY)
	}

	// Newest events, capped to the footer.
	shown := 0
	for _, ev := range view.Events {
		if shown >= 3 {
			break
		}
		text := ev.Text
		if len(text) > 90 {
			text = text[:90]
		}
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("[%s] %s", ev.Kind, text), 10, baseY+18+shown*16)
		shown++
	}

	// Compact ledger line, sorted for stable display.
	pubkeys := make([]string, 0, len(view.Balances))
	for pk := range view.Balances {
		pubkeys = append(pubkeys, pk)
	}
	sort.Strings(pubkeys)
	parts := make([]string, 0, len(pubkeys))
	for _, pk := range pubkeys {
		parts = append(parts, fmt.Sprintf("%s:%d", shorten(pk), view.Balances[pk].Points))
	}
	ebitenutil.DebugPrintAt(screen, strings.Join(parts, "  "), 10, baseY+18+3*16)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

func shorten(pubkey string) string {
	if len(pubkey) <= 10 {
		return pubkey
	}
	return pubkey[:8] + ".."
}

func main() {
	serverURL := flag.String("url", "http://localhost:8080", "Game server URL")
	pubkey := flag.String("pubkey", "desktop-pubkey", "Identity pubkey to play as")
	label := flag.String("label", "Desktop", "Identity label")
	flag.Parse()

	game, err := NewGame(*serverURL, *pubkey, *label)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("DriveWorld")
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
