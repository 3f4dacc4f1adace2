package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrInvalidSubsystem = goerr.New("invalid subsystem")
	ErrInvalidMode      = goerr.New("invalid mode")
	ErrInvalidZoomLevel = goerr.New("invalid zoom level")
	ErrEmptyUtterance   = goerr.New("utterance text is empty")
)

// Subsystem identifies one page of the workspace app. The assistant
// routes utterances between these pages.
type Subsystem string

const (
	SubsystemTasks    Subsystem = "tasks"
	SubsystemNotes    Subsystem = "notes"
	SubsystemProjects Subsystem = "projects"
	SubsystemTrees    Subsystem = "trees"
	SubsystemReports  Subsystem = "reports"
	SubsystemCamera   Subsystem = "camera"
	SubsystemVoice    Subsystem = "voice"
	SubsystemFiles    Subsystem = "files"
	SubsystemScanner  Subsystem = "scanner"
	SubsystemMap      Subsystem = "map"
	SubsystemSettings Subsystem = "settings"
)

// Subsystems lists all known subsystems in a stable order.
func Subsystems() []Subsystem {
	return []Subsystem{
		SubsystemTasks,
		SubsystemNotes,
		SubsystemProjects,
		SubsystemTrees,
		SubsystemReports,
		SubsystemCamera,
		SubsystemVoice,
		SubsystemFiles,
		SubsystemScanner,
		SubsystemMap,
		SubsystemSettings,
	}
}

// Validate checks if the subsystem is a known one
func (s Subsystem) Validate() error {
	for _, known := range Subsystems() {
		if s == known {
			return nil
		}
	}
	return goerr.Wrap(ErrInvalidSubsystem, "unknown subsystem", goerr.V("subsystem", string(s)))
}

// Mode describes whether the user works inside a project or on the
// general workspace level.
type Mode string

const (
	ModeGeneral Mode = "general"
	ModeProject Mode = "project"
)

// Validate checks if the mode is valid
func (m Mode) Validate() error {
	switch m {
	case ModeGeneral, ModeProject:
		return nil
	default:
		return goerr.Wrap(ErrInvalidMode, "unknown mode", goerr.V("mode", string(m)))
	}
}

// ZoomLevel is the granularity the user currently looks at.
type ZoomLevel string

const (
	ZoomItem       ZoomLevel = "item"
	ZoomCollection ZoomLevel = "collection"
	ZoomWorkspace  ZoomLevel = "workspace"
)

// Validate checks if the zoom level is valid
func (z ZoomLevel) Validate() error {
	switch z {
	case ZoomItem, ZoomCollection, ZoomWorkspace:
		return nil
	default:
		return goerr.Wrap(ErrInvalidZoomLevel, "unknown zoom level", goerr.V("zoom", string(z)))
	}
}

// UtteranceSource tells where an utterance came from.
type UtteranceSource string

const (
	SourceTyped UtteranceSource = "typed"
	SourceVoice UtteranceSource = "voice"
)

type UtteranceID string

// NewUtteranceID generates a new unique UtteranceID
func NewUtteranceID() UtteranceID {
	return UtteranceID(uuid.New().String())
}

// Utterance is one user input, typed or transcribed from voice.
type Utterance struct {
	ID        UtteranceID
	Text      string
	Source    UtteranceSource
	CreatedAt time.Time
}

// NewUtterance builds an utterance with a fresh ID.
func NewUtterance(text string, source UtteranceSource) *Utterance {
	return &Utterance{
		ID:        NewUtteranceID(),
		Text:      text,
		Source:    source,
		CreatedAt: time.Now(),
	}
}

// Validate checks the utterance has text to work with
func (u *Utterance) Validate() error {
	if u.Text == "" {
		return ErrEmptyUtterance
	}
	return nil
}

// UIContext is a snapshot of what the user sees when an utterance
// arrives. The classifier compares it against what the user says.
type UIContext struct {
	CurrentPage      Subsystem
	Mode             Mode
	Zoom             ZoomLevel
	ActiveProjectID  ProjectID
	SelectedItemID   string
	SelectedItemKind ItemKind
	CapturedAt       time.Time
}

// HasActiveProject reports whether the user works inside a project.
func (c *UIContext) HasActiveProject() bool {
	return c.ActiveProjectID != ""
}

// HasSelectedItem reports whether an item is selected on screen.
func (c *UIContext) HasSelectedItem() bool {
	return c.SelectedItemID != ""
}
