// Package facility locates the caller and the emergency rooms nearest them.
// Both lookups lean on external services and degrade to safe defaults: a
// dashboard map with a 0,0 pin beats an intake page that refuses to load.
package facility

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Location is the resolved caller position.
type Location struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
	Timezone  string `json:"timezone"`
	Date      string `json:"date"`
	IP        string `json:"ip"`
}

// GeoIP resolves an IP address to coordinates through ipinfo.io.
type GeoIP struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
	now     func() time.Time
}

func NewGeoIP(baseURL string, client *http.Client, logger zerolog.Logger) *GeoIP {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &GeoIP{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// fallback is returned whenever the lookup fails for any reason.
func (g *GeoIP) fallback(ip string) *Location {
	return &Location{
		Latitude:  "0",
		Longitude: "0",
		Timezone:  "UTC",
		Date:      g.now().Format("2006-01-02"),
		IP:        ip,
	}
}

// Resolve never fails: lookup errors and malformed responses come back as
// the 0,0/UTC fallback.
func (g *GeoIP) Resolve(ctx context.Context, ip string) *Location {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/%s/json", g.baseURL, ip), nil)
	if err != nil {
		g.logger.Warn().Err(err).Msg("geoip request build failed")
		return g.fallback(ip)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn().Err(err).Str("ip", ip).Msg("geoip lookup failed")
		return g.fallback(ip)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		g.logger.Warn().Int("status", resp.StatusCode).Str("ip", ip).Msg("geoip lookup rejected")
		return g.fallback(ip)
	}

	var payload struct {
		Loc      string `json:"loc"`
		Timezone string `json:"timezone"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		g.logger.Warn().Err(err).Msg("geoip response unreadable")
		return g.fallback(ip)
	}

	loc := g.fallback(ip)
	if lat, lon, ok := strings.Cut(payload.Loc, ","); ok {
		loc.Latitude = lat
		loc.Longitude = lon
	}
	if payload.Timezone != "" {
		loc.Timezone = payload.Timezone
	}
	return loc
}
