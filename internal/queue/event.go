// Package queue defines message payloads exchanged over the message broker.
package queue

// EntryEventQueue is the broker queue that entry events are published to
// and consumed from.
const EntryEventQueue = "followup.entries"

// Entry event kinds.
const (
	EntryRecorded = "recorded"
	EntryDeleted  = "deleted"
)

// EntryEvent is published whenever a statistics row is created or deleted.
// It carries enough information for downstream consumers to build an audit
// trail without querying the primary database. Metric values themselves are
// intentionally absent: the audit log records who changed what and when,
// not patient-level data.
type EntryEvent struct {
	Kind    string `json:"kind"`  // "recorded" or "deleted"
	Table   string `json:"table"` // schema name, e.g. "tableOne", or "record"
	RowID   uint64 `json:"row_id"`
	OwnerID uint64 `json:"owner_id"`
	Date    string `json:"date,omitempty"` // statistic day for recorded events
	At      string `json:"at"`             // event time, RFC3339 UTC
}
