// utils/csv_chunk_reader.go - Chunked CSV reading for uploads
package utils

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultChunkSize is used when a reader is created with a non-positive size.
const DefaultChunkSize = 500

// ErrMalformedCSV wraps every parse failure of the uploaded file.
var ErrMalformedCSV = errors.New("malformed csv")

// CSVChunkReader yields rows keyed by lower-cased header name, chunkSize rows at a time.
type CSVChunkReader struct {
	r         *csv.Reader
	chunkSize int
	headers   []string
	done      bool
}

func NewCSVChunkReader(r io.Reader, chunkSize int) *CSVChunkReader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = 0
	return &CSVChunkReader{r: cr, chunkSize: chunkSize}
}

// Headers returns the normalised header row, reading it if needed.
func (c *CSVChunkReader) Headers() ([]string, error) {
	if c.headers != nil {
		return c.headers, nil
	}
	record, err := c.r.Read()
	if errors.Is(err, io.EOF) {
		c.done = true
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformedCSV, err)
	}

	headers := make([]string, len(record))
	seen := make(map[string]bool, len(record))
	for i, h := range record {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if name == "" {
			return nil, fmt.Errorf("%w: header column %d is empty", ErrMalformedCSV, i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: header %q appears more than once", ErrMalformedCSV, name)
		}
		seen[name] = true
		headers[i] = name
	}
	c.headers = headers
	return headers, nil
}

// NextChunk returns io.EOF once no rows remain. Blank rows are skipped.
func (c *CSVChunkReader) NextChunk(ctx context.Context) ([]map[string]string, error) {
	if c.done {
		return nil, io.EOF
	}
	headers, err := c.Headers()
	if err != nil {
		return nil, err
	}

	chunk := make([]map[string]string, 0, c.chunkSize)
	for len(chunk) < c.chunkSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := c.r.Read()
		if errors.Is(err, io.EOF) {
			c.done = true
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
		}
		if isBlankRecord(record) {
			continue
		}

		row := make(map[string]string, len(headers))
		for i, h := range headers {
			row[h] = strings.TrimSpace(record[i])
		}
		chunk = append(chunk, row)
	}

	if len(chunk) == 0 {
		return nil, io.EOF
	}
	return chunk, nil
}

func isBlankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
