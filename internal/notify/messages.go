package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/punctualhq/punctual/internal/directions"
)

// maxRouteSummaryLegs bounds how many legs the departure message considers so
// the summary fits a single SMS segment comfortably. Legs past the cap are
// dropped even when the kept ones render nothing.
const maxRouteSummaryLegs = 3

// clockFormat renders times the way they read on a phone: "08:45 AM".
const clockFormat = "03:04 PM"

// WakeUpMessage formats the wake-up notification text.
func WakeUpMessage(departureTime time.Time, destination string) string {
	return fmt.Sprintf(
		"Good morning! Time to wake up!\n\n"+
			"You need to leave at %s to reach %s on time.\n"+
			"Start getting ready!",
		departureTime.Format(clockFormat), destination,
	)
}

// DepartureMessage formats the time-to-leave notification text with a short
// route summary built from the first legs of the trip.
func DepartureMessage(destination string, arrivalTime time.Time, legs []directions.RouteLeg) string {
	if len(legs) > maxRouteSummaryLegs {
		legs = legs[:maxRouteSummaryLegs]
	}

	var summary []string
	for i := range legs {
		leg := &legs[i]
		switch {
		case leg.Transit != nil:
			line := leg.Transit.LineShortName
			if line == "" {
				line = "Transit"
			}
			summary = append(summary, fmt.Sprintf("%s: %s -> %s",
				line, leg.Transit.DepartureStop, leg.Transit.ArrivalStop))
		case leg.Mode == "WALKING":
			summary = append(summary, "Walk "+leg.Distance)
		}
	}

	return fmt.Sprintf(
		"Time to leave!\n\n"+
			"Destination: %s\n"+
			"Arrival: %s\n\n"+
			"Route:\n%s\n\n"+
			"Have a safe trip!",
		destination, arrivalTime.Format(clockFormat), strings.Join(summary, "\n"),
	)
}

// TransitArrivalMessage formats the transit-arriving-soon notification text.
func TransitArrivalMessage(detail *directions.TransitDetail, minutesUntil int) string {
	line := detail.LineShortName
	if line == "" {
		line = "Your transit"
	}
	stop := detail.DepartureStop
	if stop == "" {
		stop = "the stop"
	}

	return fmt.Sprintf(
		"Transit Alert!\n\n"+
			"%s is arriving at %s in %d minutes.\n"+
			"Head to the stop now!",
		line, stop, minutesUntil,
	)
}
