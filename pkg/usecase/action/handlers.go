package action

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/canopy/pkg/model"
	"github.com/m-mizutani/canopy/pkg/utils/logging"
)

func (x *Executor) createTask(ctx context.Context, intent *model.IntelligenceIntent, ui *model.UIContext) (*model.ActionResult, error) {
	title := intent.Extracted["title"]
	if title == "" {
		return failure("I need a title for the task"), nil
	}

	fp := model.NewFingerprint(model.ItemKindTask, title, ui.ActiveProjectID)
	if dup, err := x.findDuplicate(ctx, fp); err != nil {
		return nil, err
	} else if dup != nil {
		return duplicate(fmt.Sprintf("A task named %q already exists", dup.Title)), nil
	}

	now := x.now()
	task := &model.Task{
		ID:        model.NewTaskID(),
		Title:     title,
		ProjectID: ui.ActiveProjectID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := x.repo.PutTask(ctx, task); err != nil {
		return nil, goerr.Wrap(err, "failed to save task", goerr.V("title", title))
	}

	logging.From(ctx).Info("task created", "task_id", task.ID, "project_id", task.ProjectID)
	return &model.ActionResult{
		Success:     true,
		Message:     fmt.Sprintf("Task %q created", title),
		CreatedKind: model.ItemKindTask,
		CreatedID:   string(task.ID),
	}, nil
}

func (x *Executor) completeTask(ctx context.Context, intent *model.IntelligenceIntent, ui *model.UIContext) (*model.ActionResult, error) {
	title := intent.Extracted["title"]
	if title == "" {
		return failure("Which task should I mark as done?"), nil
	}

	summary, err := x.findDuplicate(ctx, model.NewFingerprint(model.ItemKindTask, title, ui.ActiveProjectID))
	if err != nil {
		return nil, err
	}
	if summary == nil {
		return failure(fmt.Sprintf("I couldn't find a task named %q", title)), nil
	}

	task, err := x.repo.GetTask(ctx, model.TaskID(summary.ID))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load task", goerr.V("id", summary.ID))
	}
	task.Done = true
	task.UpdatedAt = x.now()
	if err := x.repo.UpdateTask(ctx, task); err != nil {
		return nil, goerr.Wrap(err, "failed to update task", goerr.V("id", task.ID))
	}

	return &model.ActionResult{
		Success:     true,
		Message:     fmt.Sprintf("Marked %q as done", task.Title),
		CreatedKind: model.ItemKindTask,
		CreatedID:   string(task.ID),
	}, nil
}

func (x *Executor) updateItem(ctx context.Context, intent *model.IntelligenceIntent, ui *model.UIContext) (*model.ActionResult, error) {
	if !ui.HasSelectedItem() {
		return failure("Select the item you want to change first"), nil
	}
	if ui.SelectedItemKind != model.ItemKindTask {
		return failure("I can only update tasks for now"), nil
	}

	task, err := x.repo.GetTask(ctx, model.TaskID(ui.SelectedItemID))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load selected task", goerr.V("id", ui.SelectedItemID))
	}
	if target := intent.Extracted["target"]; target != "" {
		task.Title = target
	}
	task.UpdatedAt = x.now()
	if err := x.repo.UpdateTask(ctx, task); err != nil {
		return nil, goerr.Wrap(err, "failed to update task", goerr.V("id", task.ID))
	}

	return &model.ActionResult{
		Success:     true,
		Message:     fmt.Sprintf("Updated %q", task.Title),
		CreatedKind: model.ItemKindTask,
		CreatedID:   string(task.ID),
	}, nil
}

func (x *Executor) deleteItem(ctx context.Context, intent *model.IntelligenceIntent, ui *model.UIContext) (*model.ActionResult, error) {
	target := intent.Extracted["target"]
	if target == "" {
		return failure("Tell me which item to delete"), nil
	}

	for _, kind := range []model.ItemKind{model.ItemKindTask, model.ItemKindNote} {
		summary, err := x.findDuplicate(ctx, model.NewFingerprint(kind, target, ui.ActiveProjectID))
		if err != nil {
			return nil, err
		}
		if summary == nil {
			continue
		}
		if err := x.repo.DeleteItem(ctx, kind, summary.ID); err != nil {
			return nil, goerr.Wrap(err, "failed to delete item", goerr.V("id", summary.ID))
		}
		logging.From(ctx).Info("item deleted", "kind", kind, "id", summary.ID)
		return &model.ActionResult{
			Success: true,
			Message: fmt.Sprintf("Deleted %q", summary.Title),
		}, nil
	}

	return failure(fmt.Sprintf("I couldn't find %q", target)), nil
}

func (x *Executor) createNote(ctx context.Context, intent *model.IntelligenceIntent, ui *model.UIContext) (*model.ActionResult, error) {
	content := intent.Extracted["content"]
	if content == "" {
		return failure("I need some content for the note"), nil
	}

	fp := model.NewFingerprint(model.ItemKindNote, content, ui.ActiveProjectID)
	if dup, err := x.findDuplicate(ctx, fp); err != nil {
		return nil, err
	} else if dup != nil {
		return duplicate("An identical note already exists"), nil
	}

	now := x.now()
	note := &model.Note{
		ID:        model.NewNoteID(),
		Content:   content,
		ProjectID: ui.ActiveProjectID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := x.repo.PutNote(ctx, note); err != nil {
		return nil, goerr.Wrap(err, "failed to save note")
	}

	return &model.ActionResult{
		Success:     true,
		Message:     "Note saved",
		CreatedKind: model.ItemKindNote,
		CreatedID:   string(note.ID),
	}, nil
}

func (x *Executor) createVoiceNote(ctx context.Context, intent *model.IntelligenceIntent, ui *model.UIContext) (*model.ActionResult, error) {
	transcript := intent.Extracted["content"]
	if transcript == "" {
		transcript = intent.Utterance.Text
	}

	voiceNote := &model.VoiceNote{
		ID:         model.NewVoiceNoteID(),
		Transcript: transcript,
		ProjectID:  ui.ActiveProjectID,
		CreatedAt:  x.now(),
	}

	if x.media != nil {
		key := fmt.Sprintf("voice_notes/%s/transcript.txt", voiceNote.ID)
		if err := x.putBlob(ctx, key, transcript); err != nil {
			return nil, err
		}
		voiceNote.MediaKey = key
	}

	if err := x.repo.PutVoiceNote(ctx, voiceNote); err != nil {
		return nil, goerr.Wrap(err, "failed to save voice note")
	}

	return &model.ActionResult{
		Success:     true,
		Message:     "Voice note saved",
		CreatedKind: model.ItemKindVoiceNote,
		CreatedID:   string(voiceNote.ID),
	}, nil
}

func (x *Executor) createProject(ctx context.Context, intent *model.IntelligenceIntent) (*model.ActionResult, error) {
	name := intent.Extracted["name"]
	if name == "" {
		return failure("I need a name for the project"), nil
	}

	fp := model.NewFingerprint(model.ItemKindProject, name, "")
	if dup, err := x.findDuplicate(ctx, fp); err != nil {
		return nil, err
	} else if dup != nil {
		return duplicate(fmt.Sprintf("A project named %q already exists", dup.Title)), nil
	}

	now := x.now()
	project := &model.Project{
		ID:        model.NewProjectID(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := x.repo.PutProject(ctx, project); err != nil {
		return nil, goerr.Wrap(err, "failed to save project", goerr.V("name", name))
	}

	return &model.ActionResult{
		Success:     true,
		Message:     fmt.Sprintf("Project %q created", name),
		CreatedKind: model.ItemKindProject,
		CreatedID:   string(project.ID),
	}, nil
}

func (x *Executor) queryItems(ctx context.Context, intent *model.IntelligenceIntent, ui *model.UIContext) (*model.ActionResult, error) {
	kind := model.ItemKindTask
	switch intent.TargetSubsystem {
	case model.SubsystemNotes:
		kind = model.ItemKindNote
	case model.SubsystemProjects:
		kind = model.ItemKindProject
	}

	items, err := x.repo.ListItems(ctx, kind, ui.ActiveProjectID, 5)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list items", goerr.V("kind", kind))
	}
	if len(items) == 0 {
		return &model.ActionResult{
			Success: true,
			Message: fmt.Sprintf("No %ss found", kind),
		}, nil
	}

	titles := make([]string, 0, len(items))
	for _, item := range items {
		titles = append(titles, item.Title)
	}
	return &model.ActionResult{
		Success: true,
		Message: fmt.Sprintf("Found %d %s(s): %s", len(items), kind, strings.Join(titles, ", ")),
	}, nil
}

// findDuplicate looks up an item by fingerprint, tolerating an empty
// key.
func (x *Executor) findDuplicate(ctx context.Context, fp model.Fingerprint) (*model.ItemSummary, error) {
	if fp.Key == "" {
		return nil, nil
	}
	summary, err := x.repo.FindByFingerprint(ctx, fp)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to check for duplicates")
	}
	return summary, nil
}

func (x *Executor) putBlob(ctx context.Context, key, content string) error {
	writer, err := x.media.Put(ctx, key)
	if err != nil {
		return goerr.Wrap(err, "failed to open media object", goerr.V("key", key))
	}
	if _, err := writer.Write([]byte(content)); err != nil {
		_ = writer.Close()
		return goerr.Wrap(err, "failed to write media object", goerr.V("key", key))
	}
	if err := writer.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize media object", goerr.V("key", key))
	}
	return nil
}

func failure(message string) *model.ActionResult {
	return &model.ActionResult{Success: false, Message: message}
}

func duplicate(message string) *model.ActionResult {
	return &model.ActionResult{
		Success:   false,
		Message:   message,
		Duplicate: true,
	}
}
