package googlemaps

// directionsResponse represents the Google Directions API response envelope.
type directionsResponse struct {
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Routes       []apiRoute `json:"routes"`
}

// apiRoute represents a single route alternative.
type apiRoute struct {
	Summary string   `json:"summary,omitempty"`
	Legs    []apiLeg `json:"legs"`
}

// apiLeg represents a leg of the route between two waypoints.
type apiLeg struct {
	Distance      textValue `json:"distance"`
	Duration      textValue `json:"duration"`
	DepartureTime *apiTime  `json:"departure_time,omitempty"`
	ArrivalTime   *apiTime  `json:"arrival_time,omitempty"`
	Steps         []apiStep `json:"steps"`
}

// apiStep represents a single step within a leg.
type apiStep struct {
	TravelMode       string             `json:"travel_mode"`
	Distance         textValue          `json:"distance"`
	Duration         textValue          `json:"duration"`
	HTMLInstructions string             `json:"html_instructions"`
	TransitDetails   *apiTransitDetails `json:"transit_details,omitempty"`
}

// apiTransitDetails carries line and stop information for a transit step.
type apiTransitDetails struct {
	Line          apiLine  `json:"line"`
	DepartureStop apiStop  `json:"departure_stop"`
	ArrivalStop   apiStop  `json:"arrival_stop"`
	NumStops      int      `json:"num_stops"`
	Headsign      string   `json:"headsign,omitempty"`
	DepartureTime *apiTime `json:"departure_time,omitempty"`
	ArrivalTime   *apiTime `json:"arrival_time,omitempty"`
}

// apiLine describes a transit line.
type apiLine struct {
	Name      string     `json:"name,omitempty"`
	ShortName string     `json:"short_name,omitempty"`
	Vehicle   apiVehicle `json:"vehicle"`
}

// apiVehicle describes the vehicle servicing a line.
type apiVehicle struct {
	Type string `json:"type,omitempty"`
	Name string `json:"name,omitempty"`
}

// apiStop is a named transit stop.
type apiStop struct {
	Name string `json:"name"`
}

// textValue is the API's paired human-readable/machine value.
type textValue struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}

// apiTime is the API's timestamp representation.
type apiTime struct {
	Text     string `json:"text,omitempty"`
	TimeZone string `json:"time_zone,omitempty"`
	Value    int64  `json:"value"` // Unix timestamp
}

// Directions API status codes used for error mapping.
const (
	statusOK             = "OK"
	statusZeroResults    = "ZERO_RESULTS"
	statusNotFound       = "NOT_FOUND"
	statusOverQueryLimit = "OVER_QUERY_LIMIT"
	statusRequestDenied  = "REQUEST_DENIED"
	statusInvalidRequest = "INVALID_REQUEST"
)
