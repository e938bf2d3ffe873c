// Package export writes the call history as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xiaot623/assistdesk/internal/domain"
)

// Header is the first CSV row.
var Header = []string{"id", "timestamp", "agent", "assistant_id", "status", "pid", "duration_seconds", "exit_code"}

// WriteCallRecordsCSV writes the header and one row per record.
func WriteCallRecordsCSV(w io.Writer, records []domain.CallRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, rec := range records {
		exitCode := ""
		if rec.ExitCode != nil {
			exitCode = strconv.Itoa(*rec.ExitCode)
		}
		row := []string{
			rec.ID,
			rec.CreatedAt.UTC().Format(time.RFC3339),
			rec.AgentName,
			rec.AssistantID,
			string(rec.Status),
			strconv.Itoa(rec.PID),
			strconv.FormatFloat(rec.Duration.Seconds(), 'f', 1, 64),
			exitCode,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
