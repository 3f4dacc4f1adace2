package history

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/canopy/pkg/model"
	"github.com/m-mizutani/canopy/pkg/repository"
	"github.com/m-mizutani/canopy/pkg/utils/logging"
)

// ringSize bounds the in-memory diagnostic buffer.
const ringSize = 100

// Recorder routes every conversation item through the pollution
// filter. Persistable items go to the repository, everything is kept
// in a bounded ring for diagnostics.
type Recorder struct {
	repo repository.Repository

	mu   sync.Mutex
	ring []*model.HistoryItem
}

// NewRecorder creates a recorder. The repository may be nil for
// sessions that keep no durable log.
func NewRecorder(repo repository.Repository) *Recorder {
	return &Recorder{repo: repo}
}

// Record files one item. It returns whether the item was written to
// the durable log.
func (r *Recorder) Record(ctx context.Context, item *model.HistoryItem, intent *model.IntelligenceIntent) (bool, error) {
	if err := item.Type.Validate(); err != nil {
		return false, goerr.Wrap(err, "cannot record history item")
	}
	if intent != nil {
		item.IntentID = intent.ID
	}

	save := ShouldSave(item, intent)
	item.Saved = save

	r.push(item)

	if !save || r.repo == nil {
		logging.From(ctx).Debug("history item kept ephemeral", "type", item.Type, "id", item.ID)
		return false, nil
	}

	if err := r.repo.PutHistoryItem(ctx, item); err != nil {
		return false, goerr.Wrap(err, "failed to persist history item", goerr.V("id", item.ID))
	}
	return true, nil
}

// Recent returns up to n most recent items from the diagnostic ring,
// oldest first.
func (r *Recorder) Recent(n int) []*model.HistoryItem {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n <= 0 || n > len(r.ring) {
		n = len(r.ring)
	}
	out := make([]*model.HistoryItem, n)
	copy(out, r.ring[len(r.ring)-n:])
	return out
}

func (r *Recorder) push(item *model.HistoryItem) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ring = append(r.ring, item)
	if len(r.ring) > ringSize {
		r.ring = r.ring[len(r.ring)-ringSize:]
	}
}
