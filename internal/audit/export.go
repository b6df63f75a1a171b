package audit

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Exporter renders audit entries as CSV for compliance handoff.
type Exporter struct {
	titler cases.Caser
}

// NewExporter constructs a CSV exporter.
func NewExporter() *Exporter {
	return &Exporter{titler: cases.Title(language.English)}
}

// WriteCSV renders the entries, newest first, with a header row.
func (e *Exporter) WriteCSV(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Occurred At", "Action", "Role", "Target Principal", "Actor", "Details"}); err != nil {
		return nil, err
	}
	for _, entry := range entries {
		actor := ""
		if entry.ActorID != nil {
			actor = strconv.FormatInt(*entry.ActorID, 10)
		}
		record := []string{
			entry.At.UTC().Format(time.RFC3339),
			e.actionLabel(entry.Action),
			entry.RoleName,
			strconv.FormatInt(entry.TargetPrincipalID, 10),
			actor,
			entry.Details,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// actionLabel turns GRANT into "Grant", CONTEXT_SWITCH into "Context Switch".
func (e *Exporter) actionLabel(a Action) string {
	label := strings.ReplaceAll(strings.ToLower(string(a)), "_", " ")
	return e.titler.String(label)
}
