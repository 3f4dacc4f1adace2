package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/m-mizutani/canopy/pkg/model"
)

const (
	collectionTasks      = "tasks"
	collectionNotes      = "notes"
	collectionProjects   = "projects"
	collectionVoiceNotes = "voice_notes"
	collectionHistory    = "conversation"
)

// Firestore implements Repository backed by Google Cloud Firestore.
type Firestore struct {
	client *firestore.Client
}

var _ Repository = (*Firestore)(nil)

// New creates a Firestore repository for the given project and database.
func New(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID), goerr.V("database", databaseID))
	}
	return &Firestore{client: client}, nil
}

// Close releases the underlying client.
func (f *Firestore) Close() error {
	if err := f.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close firestore client")
	}
	return nil
}

// Stored documents carry the item plus its fingerprint key so
// duplicate lookup is a single indexed query.
type taskDoc struct {
	model.Task
	Fingerprint string
}

type noteDoc struct {
	model.Note
	Fingerprint string
}

type projectDoc struct {
	model.Project
	Fingerprint string
}

func (f *Firestore) PutTask(ctx context.Context, task *model.Task) error {
	fp := model.NewFingerprint(model.ItemKindTask, task.Title, task.ProjectID)
	doc := taskDoc{Task: *task, Fingerprint: fp.Key}
	if _, err := f.client.Collection(collectionTasks).Doc(string(task.ID)).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put task", goerr.V("id", task.ID))
	}
	return nil
}

func (f *Firestore) GetTask(ctx context.Context, id model.TaskID) (*model.Task, error) {
	snap, err := f.client.Collection(collectionTasks).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "task not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get task", goerr.V("id", id))
	}

	var doc taskDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode task", goerr.V("id", id))
	}
	return &doc.Task, nil
}

func (f *Firestore) UpdateTask(ctx context.Context, task *model.Task) error {
	if _, err := f.GetTask(ctx, task.ID); err != nil {
		return err
	}
	return f.PutTask(ctx, task)
}

func (f *Firestore) DeleteItem(ctx context.Context, kind model.ItemKind, id string) error {
	collection, err := collectionFor(kind)
	if err != nil {
		return err
	}

	doc := f.client.Collection(collection).Doc(id)
	if _, err := doc.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "item not found", goerr.V("kind", kind), goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to check item", goerr.V("kind", kind), goerr.V("id", id))
	}
	if _, err := doc.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete item", goerr.V("kind", kind), goerr.V("id", id))
	}
	return nil
}

func (f *Firestore) PutNote(ctx context.Context, note *model.Note) error {
	fp := model.NewFingerprint(model.ItemKindNote, note.Content, note.ProjectID)
	doc := noteDoc{Note: *note, Fingerprint: fp.Key}
	if _, err := f.client.Collection(collectionNotes).Doc(string(note.ID)).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put note", goerr.V("id", note.ID))
	}
	return nil
}

func (f *Firestore) PutProject(ctx context.Context, project *model.Project) error {
	fp := model.NewFingerprint(model.ItemKindProject, project.Name, "")
	doc := projectDoc{Project: *project, Fingerprint: fp.Key}
	if _, err := f.client.Collection(collectionProjects).Doc(string(project.ID)).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put project", goerr.V("id", project.ID))
	}
	return nil
}

func (f *Firestore) GetProject(ctx context.Context, id model.ProjectID) (*model.Project, error) {
	snap, err := f.client.Collection(collectionProjects).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "project not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get project", goerr.V("id", id))
	}

	var doc projectDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode project", goerr.V("id", id))
	}
	return &doc.Project, nil
}

func (f *Firestore) PutVoiceNote(ctx context.Context, voiceNote *model.VoiceNote) error {
	if _, err := f.client.Collection(collectionVoiceNotes).Doc(string(voiceNote.ID)).Set(ctx, voiceNote); err != nil {
		return goerr.Wrap(err, "failed to put voice note", goerr.V("id", voiceNote.ID))
	}
	return nil
}

func (f *Firestore) FindByFingerprint(ctx context.Context, fp model.Fingerprint) (*model.ItemSummary, error) {
	collection, err := collectionFor(fp.Kind)
	if err != nil {
		return nil, err
	}

	query := f.client.Collection(collection).Where("Fingerprint", "==", fp.Key).Limit(1)
	if fp.Kind != model.ItemKindProject {
		query = f.client.Collection(collection).
			Where("Fingerprint", "==", fp.Key).
			Where("ProjectID", "==", string(fp.ProjectID)).
			Limit(1)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query fingerprint", goerr.V("kind", fp.Kind))
	}
	return summaryFromSnap(fp.Kind, snap)
}

func (f *Firestore) ListItems(ctx context.Context, kind model.ItemKind, projectID model.ProjectID, limit int) ([]*model.ItemSummary, error) {
	collection, err := collectionFor(kind)
	if err != nil {
		return nil, err
	}

	query := f.client.Collection(collection).OrderBy("UpdatedAt", firestore.Desc)
	if projectID != "" {
		query = query.Where("ProjectID", "==", string(projectID))
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var items []*model.ItemSummary
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list items", goerr.V("kind", kind))
		}
		summary, err := summaryFromSnap(kind, snap)
		if err != nil {
			return nil, err
		}
		items = append(items, summary)
	}
	return items, nil
}

func (f *Firestore) PutHistoryItem(ctx context.Context, item *model.HistoryItem) error {
	if _, err := f.client.Collection(collectionHistory).Doc(string(item.ID)).Set(ctx, item); err != nil {
		return goerr.Wrap(err, "failed to put history item", goerr.V("id", item.ID))
	}
	return nil
}

func (f *Firestore) ListHistory(ctx context.Context, offset, limit int) ([]*model.HistoryItem, error) {
	query := f.client.Collection(collectionHistory).OrderBy("CreatedAt", firestore.Asc).Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var items []*model.HistoryItem
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list history")
		}
		var item model.HistoryItem
		if err := snap.DataTo(&item); err != nil {
			return nil, goerr.Wrap(err, "failed to decode history item")
		}
		items = append(items, &item)
	}
	return items, nil
}

func collectionFor(kind model.ItemKind) (string, error) {
	switch kind {
	case model.ItemKindTask:
		return collectionTasks, nil
	case model.ItemKindNote:
		return collectionNotes, nil
	case model.ItemKindProject:
		return collectionProjects, nil
	case model.ItemKindVoiceNote:
		return collectionVoiceNotes, nil
	default:
		return "", goerr.New("unknown item kind", goerr.V("kind", kind))
	}
}

func summaryFromSnap(kind model.ItemKind, snap *firestore.DocumentSnapshot) (*model.ItemSummary, error) {
	switch kind {
	case model.ItemKindTask:
		var doc taskDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode task")
		}
		return taskSummary(&doc.Task), nil
	case model.ItemKindNote:
		var doc noteDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode note")
		}
		return noteSummary(&doc.Note), nil
	case model.ItemKindProject:
		var doc projectDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode project")
		}
		return projectSummary(&doc.Project), nil
	default:
		return nil, goerr.New("unknown item kind", goerr.V("kind", kind))
	}
}
