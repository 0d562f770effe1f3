package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/vovakirdan/grammarchat-server/internal/core"
)

// MarkdownExporter exports the log as a Markdown transcript.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export writes one section per message in log order.
func (e *MarkdownExporter) Export(msgs []core.Message) ([]byte, error) {
	var sb strings.Builder

	sb.WriteString("# Grammar corrections\n\n")
	if len(msgs) == 0 {
		sb.WriteString("_No messages._\n")
		return []byte(sb.String()), nil
	}

	for i, msg := range msgs {
		label := "Original"
		if !msg.IsUser {
			label = "Corrected"
		}
		if e.options.IncludeTimestamps {
			fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n", label, FormatTimestamp(msg, e.options.Location))
		} else {
			fmt.Fprintf(&sb, "### %s\n\n", label)
		}

		sb.WriteString(quote(msg.Text))
		sb.WriteString("\n\n")

		if i < len(msgs)-1 {
			sb.WriteString("---\n\n")
		}
	}

	fmt.Fprintf(&sb, "\n---\n\n*Exported %d messages on %s*\n",
		len(msgs), e.options.now().Format(time.RFC3339))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// quote renders text as a blockquote so user input cannot inject headings.
func quote(text string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, l := range lines {
		if l == "" {
			lines[i] = ">"
			continue
		}
		lines[i] = "> " + l
	}
	return strings.Join(lines, "\n")
}
