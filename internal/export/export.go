// Package export renders the message log for people and other tools.
package export

import (
	"fmt"
	"time"

	"github.com/vovakirdan/grammarchat-server/internal/core"
)

// Exporter converts a message log to a file format.
type Exporter interface {
	Export(msgs []core.Message) ([]byte, error)
	FileExtension() string
	MimeType() string
}

// Supported format names.
const (
	FormatMarkdown = "md"
	FormatJSON     = "json"
)

// Options configures export behavior.
type Options struct {
	// IncludeTimestamps prints each message's creation time.
	IncludeTimestamps bool
	// Location is used to format timestamps. Nil means time.Local.
	Location *time.Location
	// Now stamps the export footer. Nil means time.Now.
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{IncludeTimestamps: true}
}

// ForFormat returns the exporter registered under name.
func ForFormat(name string, opts *Options) (Exporter, error) {
	switch name {
	case FormatMarkdown, "markdown":
		return NewMarkdownExporter(opts), nil
	case FormatJSON:
		return NewJSONExporter(opts), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", name)
	}
}

// FormatTimestamp renders a message time the way history views show it.
func FormatTimestamp(m core.Message, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return m.Time().In(loc).Format("Jan 2, 2006 3:04:05 PM")
}

func (o *Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}
