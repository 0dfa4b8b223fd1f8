// Package models provides request and response models for the Punctual API.
package models

import (
	"strings"
	"time"
)

// TargetBasis is the route anchoring mode accepted by the API.
type TargetBasis string

const (
	TargetBasisDeparture TargetBasis = "DEPARTURE"
	TargetBasisArrival   TargetBasis = "ARRIVAL"
)

// AlertStatus is the alert lifecycle state exposed by the API.
type AlertStatus string

const (
	AlertStatusPending   AlertStatus = "PENDING"
	AlertStatusSent      AlertStatus = "SENT"
	AlertStatusFailed    AlertStatus = "FAILED"
	AlertStatusCancelled AlertStatus = "CANCELLED"
)

// Timestamp is a time.Time that marshals as RFC3339.
type Timestamp time.Time

// MarshalJSON implements json.Marshaler for Timestamp.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).Format(time.RFC3339) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for Timestamp.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

// TimestampPtr converts an optional time into an optional Timestamp.
func TimestampPtr(t *time.Time) *Timestamp {
	if t == nil {
		return nil
	}
	ts := Timestamp(*t)
	return &ts
}
