package googlemaps

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/punctualhq/punctual/internal/directions"
)

const successResponse = `{
	"status": "OK",
	"routes": [
		{
			"summary": "Green Line",
			"legs": [
				{
					"distance": {"text": "8.2 km", "value": 8200},
					"duration": {"text": "41 mins", "value": 2460},
					"departure_time": {"text": "8:39 AM", "value": 1748853540},
					"arrival_time": {"text": "9:20 AM", "value": 1748856000},
					"steps": [
						{
							"travel_mode": "WALKING",
							"distance": {"text": "0.4 km", "value": 400},
							"duration": {"text": "5 mins", "value": 300},
							"html_instructions": "Walk to <b>Main St Station</b>"
						},
						{
							"travel_mode": "TRANSIT",
							"distance": {"text": "7.4 km", "value": 7400},
							"duration": {"text": "22 mins", "value": 1320},
							"html_instructions": "Light rail towards Downtown",
							"transit_details": {
								"line": {
									"name": "Green Line",
									"short_name": "G",
									"vehicle": {"type": "TRAM", "name": "Tram"}
								},
								"departure_stop": {"name": "Main St Station"},
								"arrival_stop": {"name": "Central Station"},
								"num_stops": 6,
								"headsign": "Downtown",
								"departure_time": {"value": 1748853840},
								"arrival_time": {"value": 1748855160}
							}
						}
					]
				}
			]
		}
	]
}`

func estimateRequest() directions.EstimateRequest {
	return directions.EstimateRequest{
		Origin:      "100 Main St",
		Destination: "Central Station",
		Basis:       directions.BasisArrival,
		TargetTime:  time.Date(2025, 6, 2, 9, 20, 0, 0, time.UTC),
	}
}

func TestClient_Route_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/maps/api/directions/json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		q := r.URL.Query()
		if q.Get("mode") != "transit" {
			t.Errorf("expected mode=transit, got %q", q.Get("mode"))
		}
		if q.Get("key") != "test-key" {
			t.Errorf("expected key=test-key, got %q", q.Get("key"))
		}
		if q.Get("arrival_time") == "" {
			t.Error("expected arrival_time for ARRIVAL basis")
		}
		if q.Get("departure_time") != "" {
			t.Error("departure_time must not be set for ARRIVAL basis")
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(successResponse))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Logger:     zerolog.Nop(),
	})

	route, err := client.Route(context.Background(), estimateRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if route.DurationSeconds != 2460 {
		t.Errorf("expected duration 2460, got %d", route.DurationSeconds)
	}
	if route.DistanceMeters != 8200 {
		t.Errorf("expected distance 8200, got %d", route.DistanceMeters)
	}
	if len(route.Legs) != 2 {
		t.Fatalf("expected 2 legs, got %d", len(route.Legs))
	}

	walk := route.Legs[0]
	if walk.Mode != "WALKING" {
		t.Errorf("expected first leg WALKING, got %s", walk.Mode)
	}
	if walk.Instructions != "Walk to Main St Station" {
		t.Errorf("expected bold markup stripped, got %q", walk.Instructions)
	}

	transit := route.Legs[1]
	if transit.Transit == nil {
		t.Fatal("expected transit detail on second leg")
	}
	if transit.Transit.LineShortName != "G" {
		t.Errorf("expected line short name G, got %q", transit.Transit.LineShortName)
	}
	if transit.Transit.DepartureStop != "Main St Station" {
		t.Errorf("expected departure stop Main St Station, got %q", transit.Transit.DepartureStop)
	}
	if transit.Transit.NumStops != 6 {
		t.Errorf("expected 6 stops, got %d", transit.Transit.NumStops)
	}
	if transit.Transit.DepartureTime == nil {
		t.Fatal("expected transit departure time")
	}
	wantStop := time.Unix(1748853840, 0).UTC()
	if !transit.Transit.DepartureTime.Equal(wantStop) {
		t.Errorf("expected stop time %v, got %v", wantStop, transit.Transit.DepartureTime)
	}
}

func TestClient_Route_DepartureBasisQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("departure_time") == "" {
			t.Error("expected departure_time for DEPARTURE basis")
		}
		if q.Get("arrival_time") != "" {
			t.Error("arrival_time must not be set for DEPARTURE basis")
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(successResponse))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Logger:     zerolog.Nop(),
	})

	req := estimateRequest()
	req.Basis = directions.BasisDeparture
	if _, err := client.Route(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_Route_ZeroResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "ZERO_RESULTS", "routes": []}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Logger:     zerolog.Nop(),
	})

	_, err := client.Route(context.Background(), estimateRequest())
	if !errors.Is(err, directions.ErrNoRouteFound) {
		t.Errorf("expected ErrNoRouteFound, got %v", err)
	}

	var provErr *directions.Error
	if !errors.As(err, &provErr) {
		t.Fatalf("expected *directions.Error, got %T", err)
	}
	if provErr.Code != "ZERO_RESULTS" {
		t.Errorf("expected code ZERO_RESULTS, got %q", provErr.Code)
	}
}

func TestClient_Route_OverQueryLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "OVER_QUERY_LIMIT", "routes": []}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Logger:     zerolog.Nop(),
	})

	_, err := client.Route(context.Background(), estimateRequest())
	if !errors.Is(err, directions.ErrRateLimitExceeded) {
		t.Errorf("expected ErrRateLimitExceeded, got %v", err)
	}
}

func TestClient_Route_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Logger:     zerolog.Nop(),
	})

	_, err := client.Route(context.Background(), estimateRequest())
	if !errors.Is(err, directions.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestClient_Route_EmptyRoutes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "OK", "routes": []}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Logger:     zerolog.Nop(),
	})

	_, err := client.Route(context.Background(), estimateRequest())
	if !errors.Is(err, directions.ErrNoRouteFound) {
		t.Errorf("expected ErrNoRouteFound, got %v", err)
	}
}
