package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/canopy/pkg/model"
)

// Memory is an in-memory repository for local sessions and tests.
type Memory struct {
	mu         sync.RWMutex
	tasks      map[model.TaskID]*model.Task
	notes      map[model.NoteID]*model.Note
	projects   map[model.ProjectID]*model.Project
	voiceNotes map[model.VoiceNoteID]*model.VoiceNote
	history    []*model.HistoryItem
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		tasks:      map[model.TaskID]*model.Task{},
		notes:      map[model.NoteID]*model.Note{},
		projects:   map[model.ProjectID]*model.Project{},
		voiceNotes: map[model.VoiceNoteID]*model.VoiceNote{},
	}
}

var _ Repository = (*Memory)(nil)

func (m *Memory) PutTask(ctx context.Context, task *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *task
	m.tasks[task.ID] = &copied
	return nil
}

func (m *Memory) GetTask(ctx context.Context, id model.TaskID) (*model.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	task, ok := m.tasks[id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "task not found", goerr.V("id", id))
	}
	copied := *task
	return &copied, nil
}

func (m *Memory) UpdateTask(ctx context.Context, task *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[task.ID]; !ok {
		return goerr.Wrap(ErrNotFound, "task not found", goerr.V("id", task.ID))
	}
	copied := *task
	m.tasks[task.ID] = &copied
	return nil
}

func (m *Memory) DeleteItem(ctx context.Context, kind model.ItemKind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch kind {
	case model.ItemKindTask:
		if _, ok := m.tasks[model.TaskID(id)]; !ok {
			return goerr.Wrap(ErrNotFound, "task not found", goerr.V("id", id))
		}
		delete(m.tasks, model.TaskID(id))
	case model.ItemKindNote:
		if _, ok := m.notes[model.NoteID(id)]; !ok {
			return goerr.Wrap(ErrNotFound, "note not found", goerr.V("id", id))
		}
		delete(m.notes, model.NoteID(id))
	case model.ItemKindProject:
		if _, ok := m.projects[model.ProjectID(id)]; !ok {
			return goerr.Wrap(ErrNotFound, "project not found", goerr.V("id", id))
		}
		delete(m.projects, model.ProjectID(id))
	case model.ItemKindVoiceNote:
		if _, ok := m.voiceNotes[model.VoiceNoteID(id)]; !ok {
			return goerr.Wrap(ErrNotFound, "voice note not found", goerr.V("id", id))
		}
		delete(m.voiceNotes, model.VoiceNoteID(id))
	default:
		return goerr.New("unknown item kind", goerr.V("kind", kind))
	}
	return nil
}

func (m *Memory) PutNote(ctx context.Context, note *model.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *note
	m.notes[note.ID] = &copied
	return nil
}

func (m *Memory) PutProject(ctx context.Context, project *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *project
	m.projects[project.ID] = &copied
	return nil
}

func (m *Memory) GetProject(ctx context.Context, id model.ProjectID) (*model.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	project, ok := m.projects[id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "project not found", goerr.V("id", id))
	}
	copied := *project
	return &copied, nil
}

func (m *Memory) PutVoiceNote(ctx context.Context, voiceNote *model.VoiceNote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *voiceNote
	m.voiceNotes[voiceNote.ID] = &copied
	return nil
}

func (m *Memory) FindByFingerprint(ctx context.Context, fp model.Fingerprint) (*model.ItemSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	switch fp.Kind {
	case model.ItemKindTask:
		for _, task := range m.tasks {
			if model.NewFingerprint(fp.Kind, task.Title, task.ProjectID) == fp {
				return taskSummary(task), nil
			}
		}
	case model.ItemKindNote:
		for _, note := range m.notes {
			if model.NewFingerprint(fp.Kind, note.Content, note.ProjectID) == fp {
				return noteSummary(note), nil
			}
		}
	case model.ItemKindProject:
		for _, project := range m.projects {
			if model.NewFingerprint(fp.Kind, project.Name, "") == fp {
				return projectSummary(project), nil
			}
		}
	}
	return nil, nil
}

func (m *Memory) ListItems(ctx context.Context, kind model.ItemKind, projectID model.ProjectID, limit int) ([]*model.ItemSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var items []*model.ItemSummary
	switch kind {
	case model.ItemKindTask:
		for _, task := range m.tasks {
			if projectID == "" || task.ProjectID == projectID {
				items = append(items, taskSummary(task))
			}
		}
	case model.ItemKindNote:
		for _, note := range m.notes {
			if projectID == "" || note.ProjectID == projectID {
				items = append(items, noteSummary(note))
			}
		}
	case model.ItemKindProject:
		for _, project := range m.projects {
			items = append(items, projectSummary(project))
		}
	default:
		return nil, goerr.New("unknown item kind", goerr.V("kind", kind))
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].UpdatedAt.After(items[j].UpdatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *Memory) PutHistoryItem(ctx context.Context, item *model.HistoryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *item
	m.history = append(m.history, &copied)
	return nil
}

func (m *Memory) ListHistory(ctx context.Context, offset, limit int) ([]*model.HistoryItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if offset >= len(m.history) {
		return nil, nil
	}
	end := len(m.history)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	items := make([]*model.HistoryItem, 0, end-offset)
	for _, item := range m.history[offset:end] {
		copied := *item
		items = append(items, &copied)
	}
	return items, nil
}

func taskSummary(task *model.Task) *model.ItemSummary {
	return &model.ItemSummary{
		ID:        string(task.ID),
		Kind:      model.ItemKindTask,
		Title:     task.Title,
		ProjectID: task.ProjectID,
		Done:      task.Done,
		UpdatedAt: task.UpdatedAt,
	}
}

func noteSummary(note *model.Note) *model.ItemSummary {
	title := note.Content
	if len(title) > 80 {
		title = title[:80]
	}
	return &model.ItemSummary{
		ID:        string(note.ID),
		Kind:      model.ItemKindNote,
		Title:     title,
		ProjectID: note.ProjectID,
		UpdatedAt: note.UpdatedAt,
	}
}

func projectSummary(project *model.Project) *model.ItemSummary {
	return &model.ItemSummary{
		ID:        string(project.ID),
		Kind:      model.ItemKindProject,
		Title:     project.Name,
		UpdatedAt: project.UpdatedAt,
	}
}
