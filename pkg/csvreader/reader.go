// Package csvreader turns raw export bytes into header resolved rows.
package csvreader

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

var ErrNoHeader = errors.New("file has no header row")

type Options struct {
	// Encoding of the raw bytes, see Decoder. Empty means ISO-8859-1.
	Encoding string
	// Delimiter forces the field separator; zero detects it.
	Delimiter rune
}

// Reader streams the data rows of one export file.
type Reader struct {
	csv       *csv.Reader
	raw       *countingReader
	delimiter rune
	headers   []string
	lookup    map[string]int
	unmatched []string
}

// Row is one data line. Values are untrimmed as they appear in the file.
type Row struct {
	Line   int
	values []string
	lookup map[string]int
}

func NewReader(r io.Reader, expected []string, opts Options) (*Reader, error) {
	raw := &countingReader{r: r}
	decoded, err := Decoder(raw, opts.Encoding)
	if err != nil {
		return nil, err
	}

	buffered := bufio.NewReaderSize(decoded, SampleSize)
	delimiter := opts.Delimiter
	if delimiter == 0 {
		sample, err := buffered.Peek(SampleSize)
		if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
			return nil, err
		}
		delimiter = DetectDelimiter(sample)
	}

	cr := csv.NewReader(buffered)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	headers, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, err
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	lookup := ResolveHeaders(headers, expected)
	var unmatched []string
	for _, want := range expected {
		if _, ok := lookup[want]; !ok {
			unmatched = append(unmatched, want)
		}
	}

	return &Reader{
		csv:       cr,
		raw:       raw,
		delimiter: delimiter,
		headers:   headers,
		lookup:    lookup,
		unmatched: unmatched,
	}, nil
}

// Next returns the next non blank row, or io.EOF. A *csv.ParseError affects
// only that line; reading may continue.
func (r *Reader) Next() (Row, error) {
	for {
		record, err := r.csv.Read()
		if err != nil {
			return Row{}, err
		}
		if blank(record) {
			continue
		}
		line, _ := r.csv.FieldPos(0)
		return Row{Line: line, values: record, lookup: r.lookup}, nil
	}
}

func (r *Reader) Delimiter() rune {
	return r.delimiter
}

func (r *Reader) Headers() []string {
	return r.headers
}

// Unmatched lists the expected headers that have no column in this file.
func (r *Reader) Unmatched() []string {
	return r.unmatched
}

// BytesRead is the number of raw bytes consumed so far.
func (r *Reader) BytesRead() int64 {
	return r.raw.n
}

// Get returns the raw value for an expected header. ok is false when the
// file has no such column or the row is too short.
func (row Row) Get(header string) (string, bool) {
	i, ok := row.lookup[header]
	if !ok || i >= len(row.values) {
		return "", false
	}
	return row.values[i], true
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
