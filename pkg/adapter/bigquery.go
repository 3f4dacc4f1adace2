package adapter

import (
	"context"
	"encoding/json"

	"cloud.google.com/go/bigquery"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/canopy/pkg/model"
)

// EventSink is an interface for archiving semantic events for offline
// analysis
type EventSink interface {
	// Archive appends events to the archive table
	Archive(ctx context.Context, events []*model.SemanticEvent) error
}

type bigquerySink struct {
	client    *bigquery.Client
	datasetID string
	tableID   string
}

// BigQueryOption is a functional option for the BigQuery event sink
type BigQueryOption func(*bigquerySink)

// WithTable overrides the destination dataset and table
func WithTable(datasetID, tableID string) BigQueryOption {
	return func(s *bigquerySink) {
		s.datasetID = datasetID
		s.tableID = tableID
	}
}

// NewBigQuerySink creates an event sink writing to BigQuery
func NewBigQuerySink(ctx context.Context, projectID string, opts ...BigQueryOption) (EventSink, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create BigQuery client")
	}

	sink := &bigquerySink{
		client:    client,
		datasetID: "canopy",
		tableID:   "semantic_events",
	}

	for _, opt := range opts {
		opt(sink)
	}

	return sink, nil
}

// Archive appends events to the archive table
func (s *bigquerySink) Archive(ctx context.Context, events []*model.SemanticEvent) error {
	if len(events) == 0 {
		return nil
	}

	rows := make([]*eventRow, 0, len(events))
	for _, event := range events {
		rows = append(rows, &eventRow{event: event})
	}

	inserter := s.client.Dataset(s.datasetID).Table(s.tableID).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return goerr.Wrap(err, "failed to archive events",
			goerr.V("dataset", s.datasetID), goerr.V("table", s.tableID), goerr.V("count", len(events)))
	}
	return nil
}

// eventRow adapts a semantic event to the BigQuery streaming insert
// format. The event ID doubles as the dedup insert ID.
type eventRow struct {
	event *model.SemanticEvent
}

func (r *eventRow) Save() (map[string]bigquery.Value, string, error) {
	row := map[string]bigquery.Value{
		"id":         string(r.event.ID),
		"type":       string(r.event.Type),
		"target":     r.event.Target,
		"project_id": string(r.event.ProjectID),
		"summary":    r.event.Summary,
		"created_at": r.event.CreatedAt,
	}
	if len(r.event.Metadata) > 0 {
		data, err := json.Marshal(r.event.Metadata)
		if err != nil {
			return nil, "", goerr.Wrap(err, "failed to encode event metadata", goerr.V("id", r.event.ID))
		}
		row["metadata"] = string(data)
	}
	return row, string(r.event.ID), nil
}
