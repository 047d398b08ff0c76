package data

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/matzehuels/camml/pkg/errors"
)

// ReadCSV parses a CSV table whose first row holds the variable names. Every
// distinct cell text in a column becomes one state of that variable, numbered
// in order of first appearance. Missing-value markers such as "?" are
// treated as ordinary states.
func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "empty CSV input")
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read header")
	}
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
		if names[i] == "" {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "column %d has no name", i+1)
		}
	}

	states := make([][]string, len(names))
	index := make([]map[string]int, len(names))
	for i := range index {
		index[i] = make(map[string]int)
	}
	columns := make([][]int, len(names))

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "line %d", line)
		}
		for v, cell := range rec {
			cell = strings.TrimSpace(cell)
			s, ok := index[v][cell]
			if !ok {
				s = len(states[v])
				index[v][cell] = s
				states[v] = append(states[v], cell)
			}
			columns[v] = append(columns[v], s)
		}
	}
	return New(names, states, columns)
}

// LoadCSV reads a CSV dataset from a file.
func LoadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotFound, err, "open dataset %s", path)
	}
	defer f.Close()
	return ReadCSV(f)
}
