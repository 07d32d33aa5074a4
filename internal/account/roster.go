package account

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var rosterRequired = []string{"name", "email", "roll_no", "semester", "dob", "shift"}

// ParseRoster reads admission rows from CSV. The header row names the columns, in any order:
// name, email, roll_no, semester, dob, shift and optionally address, programme, contact.
func ParseRoster(r io.Reader) ([]AdmissionInput, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range rosterRequired {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	get := func(rec []string, name string) string {
		if i, ok := cols[name]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	var out []AdmissionInput
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		semester, err := strconv.Atoi(get(rec, "semester"))
		if err != nil {
			return nil, fmt.Errorf("line %d: semester: %w", line, err)
		}
		out = append(out, AdmissionInput{
			Name:      get(rec, "name"),
			Email:     get(rec, "email"),
			RollNo:    get(rec, "roll_no"),
			Semester:  semester,
			Dob:       get(rec, "dob"),
			Address:   get(rec, "address"),
			Shift:     get(rec, "shift"),
			Programme: get(rec, "programme"),
			Contact:   get(rec, "contact"),
		})
	}
	return out, nil
}
