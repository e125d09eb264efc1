package services

import (
	"strings"
)

// Record is one (id, value) row of a prediction or answer-key file.
type Record struct {
	ID    string
	Value string
}

// ParsedDataset holds the rows of one file in file order.
type ParsedDataset struct {
	Header  []string
	Records []Record
}

func (d ParsedDataset) Len() int {
	return len(d.Records)
}

// ValueByID maps each id to its value. A repeated id keeps the last value.
func (d ParsedDataset) ValueByID() map[string]string {
	values := make(map[string]string, len(d.Records))
	for _, rec := range d.Records {
		values[rec.ID] = rec.Value
	}
	return values
}

// ParseCSV splits raw text into records. The first line is the header, blank
// lines are skipped and only the first two comma-separated fields are kept.
// Quoting is not supported; a line with a single field yields an empty value.
func ParseCSV(raw []byte) ParsedDataset {
	text := strings.TrimPrefix(string(raw), "\ufeff")
	lines := strings.Split(text, "\n")

	var dataset ParsedDataset
	if len(lines) == 0 {
		return dataset
	}

	dataset.Header = splitFields(lines[0])

	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := splitFields(line)
		rec := Record{ID: fields[0]}
		if len(fields) > 1 {
			rec.Value = fields[1]
		}
		dataset.Records = append(dataset.Records, rec)
	}

	return dataset
}

func splitFields(line string) []string {
	fields := strings.Split(line, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}
