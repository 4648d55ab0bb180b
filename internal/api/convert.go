package api

import (
	"trawler/internal/executions"
	"trawler/internal/logging"
)

// FromRecord maps a registry record onto its wire shape.
func FromRecord(rec executions.Record) Execution {
	return Execution{
		ID:       rec.ID,
		Task:     rec.Task,
		Status:   string(rec.Status),
		Created:  rec.Created,
		Started:  rec.Started,
		Finished: rec.Finished,
		Message:  rec.Message,
	}
}

// FromRecords maps a record slice, preserving order.
func FromRecords(records []executions.Record) []Execution {
	out := make([]Execution, 0, len(records))
	for _, rec := range records {
		out = append(out, FromRecord(rec))
	}
	return out
}

// FromLogEvent maps a hub event onto its wire shape.
func FromLogEvent(evt logging.LogEvent) LogLine {
	return LogLine{
		Sequence:    evt.Sequence,
		Timestamp:   evt.Timestamp,
		Level:       evt.Level,
		Message:     evt.Message,
		Component:   evt.Component,
		ExecutionID: evt.ExecutionID,
		Task:        evt.Task,
		Fields:      evt.Fields,
	}
}
