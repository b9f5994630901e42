// Package connector exposes the pipeline to the managed sync runtime: a
// table description and a sync operation that consumes the prior opaque
// state and yields insert and log events plus the updated state.
package connector

import (
	"context"
	"fmt"

	"github.com/xhad/sophie/internal/models"
	"github.com/xhad/sophie/internal/types"
	"github.com/xhad/sophie/pkg/batcher"
	"github.com/xhad/sophie/pkg/cursor"
)

type LogLevel string

const (
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARNING"
	LogLevelSevere  LogLevel = "SEVERE"
)

// Event is one element of a sync's output stream. Exactly one field is set.
type Event struct {
	Insert *InsertEvent `json:"insert,omitempty"`
	Log    *LogEvent    `json:"log,omitempty"`
}

// InsertEvent carries one adapter's batch for the documents table.
type InsertEvent struct {
	Table     string            `json:"table"`
	Source    string            `json:"source"`
	Documents []models.Document `json:"documents"`
}

// LogEvent reports a source failure without aborting the sync.
type LogEvent struct {
	Level   LogLevel `json:"level"`
	Message string   `json:"message"`
}

// Column and Table describe the destination shape to the runtime.
type Column struct {
	Name       string `json:"name"`
	DataType   string `json:"dataType"`
	PrimaryKey bool   `json:"primaryKey,omitempty"`
}

type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

type SchemaResponse struct {
	Tables []Table `json:"tables"`
}

type Connector struct {
	table   string
	batcher *batcher.Batcher
}

func New(table string, adapters ...types.SourceAdapter) *Connector {
	if table == "" {
		table = "documents"
	}
	return &Connector{
		table:   table,
		batcher: batcher.New(adapters...),
	}
}

// Schema describes the documents table the sync writes into.
func (c *Connector) Schema() SchemaResponse {
	return SchemaResponse{
		Tables: []Table{
			{
				Name: c.table,
				Columns: []Column{
					{Name: "id", DataType: "STRING", PrimaryKey: true},
					{Name: "source_url", DataType: "STRING"},
					{Name: "source_type", DataType: "STRING"},
					{Name: "retrieved_at", DataType: "UTC_DATETIME"},
					{Name: "content", DataType: "STRING"},
				},
			},
		},
	}
}

// Sync runs every configured adapter against the cursors decoded from the
// prior state string and returns the resulting events in order: one insert
// event per successful batch, one warning log per failed source. The
// returned state reflects only the cursors of sources that succeeded. An
// undecodable state is a configuration error and fails the whole run.
func (c *Connector) Sync(ctx context.Context, state string) ([]Event, string, error) {
	st, err := cursor.Decode(state)
	if err != nil {
		return nil, state, fmt.Errorf("decode sync state: %w", err)
	}

	res := c.batcher.Run(ctx, st)

	events := make([]Event, 0, len(res.Batches)+len(res.Failures))
	for _, b := range res.Batches {
		events = append(events, Event{
			Insert: &InsertEvent{Table: c.table, Source: b.Source, Documents: b.Documents},
		})
	}
	for _, f := range res.Failures {
		events = append(events, Event{
			Log: &LogEvent{Level: LogLevelWarning, Message: f.Error()},
		})
	}

	return events, st.Encode(), nil
}
