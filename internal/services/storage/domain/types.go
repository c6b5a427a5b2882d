// Package domain holds the storage service contract
package domain

// Engine names a persistence backend
type Engine string

// Supported engines
const (
	EnginePostgres   Engine = "postgres"
	EngineSQLite     Engine = "sqlite"
	EngineClickhouse Engine = "clickhouse"
)

// SaveReport summarizes one persistence pass
type SaveReport struct {
	EventsSeen     int   `json:"events_seen"`
	EventsInserted int64 `json:"events_inserted"`
	ScoresWritten  int   `json:"scores_written"`
}
