package export

import (
	"fmt"
	"strings"
	"time"
)

// Format is an export target.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatWord     Format = "word"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// formatSpec describes how one format is produced and delivered.
type formatSpec struct {
	label    string
	prefix   string
	ext      string
	mimeType string
	// remote formats are rendered by the governance service.
	remote bool
}

var formats = map[Format]formatSpec{
	FormatPDF:      {label: "PDF", prefix: "content_report", ext: ".pdf", mimeType: "application/pdf", remote: true},
	FormatWord:     {label: "Word document", prefix: "content_report", ext: ".docx", mimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document", remote: true},
	FormatJSON:     {label: "JSON", prefix: "content_analysis", ext: ".json", mimeType: "application/json"},
	FormatMarkdown: {label: "Markdown", prefix: "content_report", ext: ".md", mimeType: "text/markdown; charset=utf-8"},
	FormatHTML:     {label: "HTML", prefix: "content_report", ext: ".html", mimeType: "text/html; charset=utf-8"},
}

// Formats lists every supported format in a stable order.
func Formats() []Format {
	return []Format{FormatPDF, FormatWord, FormatJSON, FormatMarkdown, FormatHTML}
}

// Label is the human name used in notices.
func (f Format) Label() string {
	if spec, ok := formats[f]; ok {
		return spec.label
	}
	return string(f)
}

// MimeType is the content type the artifact is delivered with.
func (f Format) MimeType() string {
	return formats[f].mimeType
}

// Filename names the artifact produced at t, e.g. content_report_1700000000000.pdf.
func (f Format) Filename(t time.Time) string {
	spec := formats[f]
	return fmt.Sprintf("%s_%d%s", spec.prefix, t.UnixMilli(), spec.ext)
}

// ParseFormats parses a comma separated list such as "pdf,word,json".
// "docx" and "md" are accepted as aliases; duplicates are dropped.
func ParseFormats(list string) ([]Format, error) {
	var out []Format
	seen := make(map[Format]bool)
	for _, part := range strings.Split(list, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		f := Format(name)
		switch name {
		case "docx":
			f = FormatWord
		case "md":
			f = FormatMarkdown
		}
		if _, ok := formats[f]; !ok {
			return nil, fmt.Errorf("unknown export format %q", part)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}
