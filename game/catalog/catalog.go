// Package catalog loads the external charge-point feed consumed to spawn
// virtual chargers and suggest settlement rates. The feed is a read-only
// JSON catalog of real-world sites; the engine only ever extracts a numeric
// power hint from it.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
)

// StatusActive marks a charge point that is live on the external network.
const StatusActive = "active"

// Connector is one physical plug on a charge point.
type Connector struct {
	Type    string  `json:"type"`
	PowerKW float64 `json:"power_kw"`
}

// Location is the geographic placement of a charge point.
type Location struct {
	City string  `json:"city"`
	Lat  float64 `json:"lat,omitempty"`
	Lng  float64 `json:"lng,omitempty"`
}

// ChargePoint is one external site in the feed.
type ChargePoint struct {
	Code          string      `json:"code"`
	Name          string      `json:"name"`
	Status        string      `json:"status"`
	Location      Location    `json:"location"`
	Connectors    []Connector `json:"connectors,omitempty"`
	PricePerKWh   float64     `json:"price_per_kwh,omitempty"`
	PriceCurrency string      `json:"price_currency,omitempty"`
}

// PowerKW returns the nominal power of the site: the first connector's
// rating, or the default hint when the feed carries none.
func (cp *ChargePoint) PowerKW() float64 {
	if len(cp.Connectors) > 0 && cp.Connectors[0].PowerKW > 0 {
		return cp.Connectors[0].PowerKW
	}
	return defaultPowerKW
}

// defaultPowerKW is assumed for sites without connector data.
const defaultPowerKW = 3

// Catalog is the parsed feed, indexed by charge-point code.
type Catalog struct {
	ChargePoints []ChargePoint `json:"charge_points"`

	byCode map[string]*ChargePoint
}

// Stats summarizes the feed for the UI header.
type Stats struct {
	Sites       int     `json:"sites"`
	ActiveSites int     `json:"active_sites"`
	Cities      int     `json:"cities"`
	TotalKW     float64 `json:"total_kw"`
}

// Load reads, schema-validates and parses a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse validates raw catalog JSON against the embedded schema and builds
// the code index. Malformed feeds are rejected before any field is read.
func Parse(data []byte) (*Catalog, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := feedSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("catalog does not match schema: %w", err)
	}

	var cat Catalog
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&cat); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	cat.byCode = make(map[string]*ChargePoint, len(cat.ChargePoints))
	for i := range cat.ChargePoints {
		cp := &cat.ChargePoints[i]
		if _, dup := cat.byCode[cp.Code]; dup {
			return nil, fmt.Errorf("duplicate charge point code %q", cp.Code)
		}
		cat.byCode[cp.Code] = cp
	}
	return &cat, nil
}

// ByCode looks up a charge point by its external code.
func (c *Catalog) ByCode(code string) (*ChargePoint, bool) {
	cp, ok := c.byCode[code]
	return cp, ok
}

// Codes returns all charge-point codes in lexical order.
func (c *Catalog) Codes() []string {
	codes := make([]string, 0, len(c.byCode))
	for code := range c.byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// ByCity groups charge points under their city names.
func (c *Catalog) ByCity() map[string][]ChargePoint {
	out := make(map[string][]ChargePoint)
	for _, cp := range c.ChargePoints {
		out[cp.Location.City] = append(out[cp.Location.City], cp)
	}
	return out
}

// Stats computes the feed summary.
func (c *Catalog) Stats() Stats {
	cities := make(map[string]struct{})
	s := Stats{Sites: len(c.ChargePoints)}
	for _, cp := range c.ChargePoints {
		if cp.Status == StatusActive {
			s.ActiveSites++
		}
		cities[cp.Location.City] = struct{}{}
		s.TotalKW += cp.PowerKW()
	}
	s.Cities = len(cities)
	return s
}

// SuggestRate maps a site's real-world power rating to a virtual settlement
// rate: half a point per kW, rounded, never below one.
func SuggestRate(powerKW float64) int {
	if powerKW <= 0 {
		powerKW = defaultPowerKW
	}
	rate := int(math.Round(powerKW * 0.5))
	if rate < 1 {
		rate = 1
	}
	return rate
}
