package adapter_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/canopy/pkg/adapter"
	"github.com/m-mizutani/canopy/pkg/model"
)

func TestBigQuerySink(t *testing.T) {
	projectID := os.Getenv("TEST_BIGQUERY_PROJECT")
	if projectID == "" {
		t.Skip("TEST_BIGQUERY_PROJECT is not set")
	}

	datasetID := os.Getenv("TEST_BIGQUERY_DATASET")
	if datasetID == "" {
		t.Skip("TEST_BIGQUERY_DATASET is not set")
	}

	table := os.Getenv("TEST_BIGQUERY_TABLE")
	if table == "" {
		t.Skip("TEST_BIGQUERY_TABLE is not set")
	}

	ctx := context.Background()
	sink, err := adapter.NewBigQuerySink(ctx, projectID, adapter.WithTable(datasetID, table))
	gt.NoError(t, err)

	t.Run("Archive", func(t *testing.T) {
		events := []*model.SemanticEvent{
			{
				ID:        model.NewSemanticEventID(),
				Type:      model.EventTaskCreated,
				Target:    "task-archive-test",
				Summary:   "created task: inspect drainage",
				Metadata:  map[string]string{"subsystem": "tasks"},
				CreatedAt: time.Now().UTC(),
			},
			{
				ID:        model.NewSemanticEventID(),
				Type:      model.EventTaskCompleted,
				Target:    "task-archive-test",
				Summary:   "completed task: inspect drainage",
				CreatedAt: time.Now().UTC(),
			},
		}

		gt.NoError(t, sink.Archive(ctx, events))
	})

	t.Run("ArchiveEmpty", func(t *testing.T) {
		gt.NoError(t, sink.Archive(ctx, nil))
	})
}
