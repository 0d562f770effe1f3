package export

import (
	"encoding/json"
	"time"

	"github.com/vovakirdan/grammarchat-server/internal/core"
)

// JSONExporter exports the log as indented JSON. Entries keep the persisted
// fields so an export can be copied back into a store.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

type jsonMessage struct {
	core.Message
	Author string `json:"author"`
	Time   string `json:"time,omitempty"`
}

// Export encodes the log.
func (e *JSONExporter) Export(msgs []core.Message) ([]byte, error) {
	out := make([]jsonMessage, 0, len(msgs))
	for _, m := range msgs {
		jm := jsonMessage{Message: m, Author: m.Author()}
		if e.options.IncludeTimestamps {
			loc := e.options.Location
			if loc == nil {
				loc = time.Local
			}
			jm.Time = m.Time().In(loc).Format(time.RFC3339)
		}
		out = append(out, jm)
	}
	return json.MarshalIndent(out, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
