package models

// AlertCreateRequest is the payload for creating a transit alert.
type AlertCreateRequest struct {
	PhoneNumber        string      `json:"phoneNumber"`
	Origin             string      `json:"origin"`
	Destination        string      `json:"destination"`
	TargetBasis        TargetBasis `json:"targetBasis"`
	TargetTime         Timestamp   `json:"targetTime"`
	PreparationMinutes int         `json:"preparationMinutes,omitempty"`
}

// Alert is the API representation of a transit alert. Derived times are null
// until the first successful route computation.
type Alert struct {
	ID                 string      `json:"id"`
	PhoneNumber        string      `json:"phoneNumber"`
	Origin             string      `json:"origin"`
	Destination        string      `json:"destination"`
	TargetBasis        TargetBasis `json:"targetBasis"`
	TargetTime         Timestamp   `json:"targetTime"`
	PreparationMinutes int         `json:"preparationMinutes"`

	ComputedDepartureTime *Timestamp `json:"computedDepartureTime,omitempty"`
	ComputedArrivalTime   *Timestamp `json:"computedArrivalTime,omitempty"`
	TotalDurationSeconds  *int       `json:"totalDurationSeconds,omitempty"`
	DistanceMeters        *int       `json:"distanceMeters,omitempty"`
	RoundedDepartureTime  *Timestamp `json:"roundedDepartureTime,omitempty"`
	WakeUpTime            *Timestamp `json:"wakeUpTime,omitempty"`
	FirstTransitStopTime  *Timestamp `json:"firstTransitStopTime,omitempty"`
	TransitNotifyTime     *Timestamp `json:"transitNotifyTime,omitempty"`

	WakeUpSent    bool `json:"wakeUpSent"`
	DepartureSent bool `json:"departureSent"`
	TransitSent   bool `json:"transitSent"`

	Status AlertStatus `json:"status"`

	CreatedAt Timestamp `json:"createdAt"`
	UpdatedAt Timestamp `json:"updatedAt"`
}

// AlertWithRoute pairs an alert with the outcome of its route computation.
// The computation can fail while the alert itself is persisted, so the two
// travel together in create/recalculate responses.
type AlertWithRoute struct {
	Alert            Alert             `json:"alert"`
	RouteComputation *RouteComputation `json:"routeComputation,omitempty"`
}

// RouteComputation summarizes one route estimation attempt.
type RouteComputation struct {
	Success         bool           `json:"success"`
	Error           string         `json:"error,omitempty"`
	DurationSeconds int            `json:"durationSeconds,omitempty"`
	DistanceMeters  int            `json:"distanceMeters,omitempty"`
	Legs            []RouteLeg     `json:"legs,omitempty"`
	FirstTransit    *TransitDetail `json:"firstTransit,omitempty"`
}

// RouteLeg is one step of the estimated trip.
type RouteLeg struct {
	Mode         string         `json:"mode"`
	Distance     string         `json:"distance,omitempty"`
	Duration     string         `json:"duration,omitempty"`
	Instructions string         `json:"instructions,omitempty"`
	Transit      *TransitDetail `json:"transit,omitempty"`
}

// TransitDetail describes a transit leg's line and stops.
type TransitDetail struct {
	LineName      string     `json:"lineName,omitempty"`
	LineShortName string     `json:"lineShortName,omitempty"`
	VehicleType   string     `json:"vehicleType,omitempty"`
	DepartureStop string     `json:"departureStop,omitempty"`
	ArrivalStop   string     `json:"arrivalStop,omitempty"`
	NumStops      int        `json:"numStops,omitempty"`
	Headsign      string     `json:"headsign,omitempty"`
	DepartureTime *Timestamp `json:"departureTime,omitempty"`
	ArrivalTime   *Timestamp `json:"arrivalTime,omitempty"`
}

// AlertList wraps the list response.
type AlertList struct {
	Items []Alert `json:"items"`
	Count int     `json:"count"`
}

// TestMessageRequest is the payload for the delivery test endpoint.
type TestMessageRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Message     string `json:"message,omitempty"`
}

// TestMessageResponse reports the delivery test outcome.
type TestMessageResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	To        string `json:"to"`
}
