package export

import "strings"

// Format identifies a rendered export type.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat maps a query value to a Format, defaulting to CSV.
func ParseFormat(v string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", string(FormatCSV):
		return FormatCSV, true
	case string(FormatPDF):
		return FormatPDF, true
	}
	return "", false
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

// Dataset is tabular export content. Rows are keyed by header.
type Dataset struct {
	Title   string
	Headers []string
	Rows    []map[string]string
}

func (d Dataset) record(row map[string]string) []string {
	out := make([]string, len(d.Headers))
	for i, h := range d.Headers {
		out[i] = row[h]
	}
	return out
}
