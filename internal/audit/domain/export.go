package domain

import "time"

type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatJSON ExportFormat = "json"
)

// ExportRequest defines parameters for audit trail export.
type ExportRequest struct {
	GroupID   *int64
	StartDate time.Time
	EndDate   time.Time
	Format    ExportFormat
	Kinds     []string // optional filter by entry kind
}

// ExportResult contains the exported data and metadata.
type ExportResult struct {
	Data     []byte
	Checksum string
	Format   ExportFormat
	Count    int
}
