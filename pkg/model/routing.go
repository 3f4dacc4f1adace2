package model

import "github.com/m-mizutani/goerr/v2"

var (
	ErrInvalidDestination = goerr.New("invalid destination")
)

// Destination is where the router sends an utterance. Beside the
// subsystem pages there are two synthetic destinations: the global
// assistant and the disambiguation sheet.
type Destination string

const (
	DestinationGlobal         Destination = "global"
	DestinationDisambiguation Destination = "disambiguation"
	DestinationTasks          Destination = "tasks"
	DestinationNotes          Destination = "notes"
	DestinationProjects       Destination = "projects"
	DestinationTrees          Destination = "trees"
	DestinationReports        Destination = "reports"
	DestinationCamera         Destination = "camera"
	DestinationVoice          Destination = "voice"
	DestinationFiles          Destination = "files"
	DestinationScanner        Destination = "scanner"
	DestinationMap            Destination = "map"
	DestinationSettings       Destination = "settings"
)

// DestinationFor maps a subsystem page to its routing destination.
func DestinationFor(s Subsystem) Destination {
	return Destination(s)
}

// Validate checks if the destination is a known one
func (d Destination) Validate() error {
	switch d {
	case DestinationGlobal, DestinationDisambiguation:
		return nil
	default:
		return Subsystem(d).Validate()
	}
}

// Subsystem returns the subsystem page behind the destination, or
// false for the synthetic destinations.
func (d Destination) Subsystem() (Subsystem, bool) {
	switch d {
	case DestinationGlobal, DestinationDisambiguation:
		return "", false
	default:
		return Subsystem(d), true
	}
}

// RoutingDecision is the router's verdict for one utterance.
// Confidence is on a 0..100 scale.
type RoutingDecision struct {
	Destination Destination
	Confidence  int
	Reason      string

	// Fallback is set when the decision came from keyword matching
	// because no classification was available.
	Fallback bool
}
