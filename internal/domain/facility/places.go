package facility

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"time"
)

const defaultPlacesBaseURL = "https://maps.googleapis.com/maps/api/place"

// EmergencyRoom is one nearby facility, sorted by distance from the caller.
type EmergencyRoom struct {
	Name       string  `json:"name"`
	Vicinity   string  `json:"vicinity"`
	PlaceID    string  `json:"place_id"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	DistanceKM float64 `json:"distance_km"`
}

// PlacesClient searches the Google Places nearby API for emergency rooms.
type PlacesClient struct {
	apiKey  string
	baseURL string
	radiusM int
	client  *http.Client
}

type PlacesOption func(*PlacesClient)

func WithPlacesBaseURL(u string) PlacesOption {
	return func(p *PlacesClient) { p.baseURL = u }
}

func WithPlacesHTTPClient(c *http.Client) PlacesOption {
	return func(p *PlacesClient) { p.client = c }
}

func NewPlacesClient(apiKey string, radiusM int, opts ...PlacesOption) (*PlacesClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("places api key is required")
	}
	if radiusM <= 0 {
		radiusM = 5000
	}
	p := &PlacesClient{
		apiKey:  apiKey,
		baseURL: defaultPlacesBaseURL,
		radiusM: radiusM,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

type placesResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Name     string `json:"name"`
		Vicinity string `json:"vicinity"`
		PlaceID  string `json:"place_id"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// NearbyEmergencyRooms returns up to maxResults emergency rooms within
// radiusM meters of the given point, closest first. Non-positive radiusM
// falls back to the configured default; non-positive maxResults means 5.
func (p *PlacesClient) NearbyEmergencyRooms(ctx context.Context, lat, lon float64, radiusM, maxResults int) ([]EmergencyRoom, error) {
	if radiusM <= 0 {
		radiusM = p.radiusM
	}
	if maxResults <= 0 {
		maxResults = 5
	}

	q := url.Values{}
	q.Set("location", fmt.Sprintf("%f,%f", lat, lon))
	q.Set("radius", fmt.Sprintf("%d", radiusM))
	q.Set("keyword", "emergency room")
	q.Set("type", "hospital")
	q.Set("key", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.baseURL+"/nearbysearch/json?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build places request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("places request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("places API returned status %d", resp.StatusCode)
	}

	var payload placesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode places response: %w", err)
	}
	// ZERO_RESULTS is a valid empty answer, not a failure.
	if payload.Status != "OK" && payload.Status != "ZERO_RESULTS" {
		return nil, fmt.Errorf("places API status %s: %s", payload.Status, payload.ErrorMessage)
	}

	rooms := make([]EmergencyRoom, 0, len(payload.Results))
	for _, place := range payload.Results {
		rooms = append(rooms, EmergencyRoom{
			Name:       place.Name,
			Vicinity:   place.Vicinity,
			PlaceID:    place.PlaceID,
			Latitude:   place.Geometry.Location.Lat,
			Longitude:  place.Geometry.Location.Lng,
			DistanceKM: haversineKM(lat, lon, place.Geometry.Location.Lat, place.Geometry.Location.Lng),
		})
	}

	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].DistanceKM < rooms[j].DistanceKM
	})
	if len(rooms) > maxResults {
		rooms = rooms[:maxResults]
	}
	return rooms, nil
}

// haversineKM is the great-circle distance between two points in kilometers.
func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKM = 6371.0

	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadiusKM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
