package repository

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/canopy/pkg/model"
)

var (
	ErrNotFound = goerr.New("item not found")
)

// Repository defines the interface for workspace item persistence
type Repository interface {
	// PutTask saves a task
	PutTask(ctx context.Context, task *model.Task) error

	// GetTask retrieves a task by ID
	GetTask(ctx context.Context, id model.TaskID) (*model.Task, error)

	// UpdateTask overwrites an existing task
	UpdateTask(ctx context.Context, task *model.Task) error

	// DeleteItem removes an item of the given kind
	DeleteItem(ctx context.Context, kind model.ItemKind, id string) error

	// PutNote saves a note
	PutNote(ctx context.Context, note *model.Note) error

	// PutProject saves a project
	PutProject(ctx context.Context, project *model.Project) error

	// GetProject retrieves a project by ID
	GetProject(ctx context.Context, id model.ProjectID) (*model.Project, error)

	// PutVoiceNote saves a voice note transcript
	PutVoiceNote(ctx context.Context, voiceNote *model.VoiceNote) error

	// FindByFingerprint looks up an item by its semantic key. Returns
	// nil without error when no item matches.
	FindByFingerprint(ctx context.Context, fp model.Fingerprint) (*model.ItemSummary, error)

	// ListItems retrieves item summaries of one kind, newest first.
	// An empty project ID means all projects.
	ListItems(ctx context.Context, kind model.ItemKind, projectID model.ProjectID, limit int) ([]*model.ItemSummary, error)

	// PutHistoryItem appends one entry to the conversation log
	PutHistoryItem(ctx context.Context, item *model.HistoryItem) error

	// ListHistory retrieves conversation log entries in insertion order
	ListHistory(ctx context.Context, offset, limit int) ([]*model.HistoryItem, error)
}
