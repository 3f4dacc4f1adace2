package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type (
	TaskID      string
	NoteID      string
	ProjectID   string
	VoiceNoteID string
)

// NewTaskID generates a new unique TaskID
func NewTaskID() TaskID {
	return TaskID(uuid.New().String())
}

// NewNoteID generates a new unique NoteID
func NewNoteID() NoteID {
	return NoteID(uuid.New().String())
}

// NewProjectID generates a new unique ProjectID
func NewProjectID() ProjectID {
	return ProjectID(uuid.New().String())
}

// NewVoiceNoteID generates a new unique VoiceNoteID
func NewVoiceNoteID() VoiceNoteID {
	return VoiceNoteID(uuid.New().String())
}

// ItemKind distinguishes the persisted item types.
type ItemKind string

const (
	ItemKindTask      ItemKind = "task"
	ItemKindNote      ItemKind = "note"
	ItemKindProject   ItemKind = "project"
	ItemKindVoiceNote ItemKind = "voice_note"
)

// Task is a todo created from an utterance or a voice capture.
type Task struct {
	ID        TaskID
	Title     string
	ProjectID ProjectID
	Done      bool
	DueAt     *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Note is a free-form text item.
type Note struct {
	ID        NoteID
	Content   string
	ProjectID ProjectID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Project groups tasks and notes for one site or engagement.
type Project struct {
	ID        ProjectID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// VoiceNote keeps a transcript plus an optional media object key.
type VoiceNote struct {
	ID         VoiceNoteID
	Transcript string
	ProjectID  ProjectID
	MediaKey   string
	CreatedAt  time.Time
}

// ItemSummary is a kind-agnostic view of a stored item, used by
// duplicate lookup and query handlers.
type ItemSummary struct {
	ID        string
	Kind      ItemKind
	Title     string
	ProjectID ProjectID
	Done      bool
	UpdatedAt time.Time
}

// Fingerprint identifies an item by its semantic key instead of its
// ID. Two items with the same fingerprint are duplicates.
type Fingerprint struct {
	Kind      ItemKind
	Key       string
	ProjectID ProjectID
}

// NewFingerprint normalizes the key so lookups are case and
// whitespace insensitive.
func NewFingerprint(kind ItemKind, key string, projectID ProjectID) Fingerprint {
	return Fingerprint{
		Kind:      kind,
		Key:       strings.ToLower(strings.TrimSpace(key)),
		ProjectID: projectID,
	}
}
