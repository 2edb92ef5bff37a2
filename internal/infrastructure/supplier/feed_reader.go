package supplier

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Feed parsing errors
var (
	ErrEmptyFeed       = errors.New("feed is empty")
	ErrFeedEncoding    = errors.New("feed is not valid UTF-8")
	ErrFeedMissingHead = errors.New("feed has no header row")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// FeedRow is one data row keyed by its original header
type FeedRow struct {
	Line   int
	Fields map[string]string
}

func (r FeedRow) empty() bool {
	for _, v := range r.Fields {
		if v != "" {
			return false
		}
	}
	return true
}

// FeedReader reads a delimited price list. A zero delimiter is sniffed
// from the header line.
type FeedReader struct {
	delimiter rune
	headers   []string
	line      int
	reader    *csv.Reader
}

// FeedReaderOption configures a FeedReader
type FeedReaderOption func(*FeedReader)

// WithFeedDelimiter fixes the field delimiter
func WithFeedDelimiter(d rune) FeedReaderOption {
	return func(r *FeedReader) {
		r.delimiter = d
	}
}

// NewFeedReader strips a UTF-8 BOM, checks the encoding and reads the header
func NewFeedReader(src io.Reader, opts ...FeedReaderOption) (*FeedReader, error) {
	fr := &FeedReader{}
	for _, opt := range opts {
		opt(fr)
	}

	buf := bufio.NewReaderSize(src, 64*1024)
	if head, _ := buf.Peek(len(utf8BOM)); bytes.Equal(head, utf8BOM) {
		_, _ = buf.Discard(len(utf8BOM))
	}

	sample, err := buf.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("read feed: %w", err)
	}
	if len(bytes.TrimSpace(sample)) == 0 {
		return nil, ErrEmptyFeed
	}
	if !validUTF8(sample, len(sample) == 4096) {
		return nil, ErrFeedEncoding
	}
	if fr.delimiter == 0 {
		fr.delimiter = sniffDelimiter(sample)
	}

	fr.reader = csv.NewReader(buf)
	fr.reader.Comma = fr.delimiter
	fr.reader.LazyQuotes = true
	fr.reader.TrimLeadingSpace = true
	fr.reader.FieldsPerRecord = -1

	record, err := fr.reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrFeedMissingHead
	}
	if err != nil {
		return nil, fmt.Errorf("read feed header: %w", err)
	}
	fr.line = 1
	for _, h := range record {
		fr.headers = append(fr.headers, strings.TrimSpace(h))
	}
	return fr, nil
}

// Headers returns the header row as read
func (fr *FeedReader) Headers() []string {
	return fr.headers
}

// Next returns the next non-empty row or io.EOF
func (fr *FeedReader) Next() (FeedRow, error) {
	for {
		record, err := fr.reader.Read()
		if errors.Is(err, io.EOF) {
			return FeedRow{}, io.EOF
		}
		fr.line++
		if err != nil {
			return FeedRow{}, fmt.Errorf("feed line %d: %w", fr.line, err)
		}
		row := FeedRow{Line: fr.line, Fields: make(map[string]string, len(fr.headers))}
		for i, h := range fr.headers {
			if i < len(record) {
				row.Fields[h] = strings.TrimSpace(record[i])
			}
		}
		if !row.empty() {
			return row, nil
		}
	}
}

// sniffDelimiter picks the most frequent candidate on the first line.
// Semicolons win ties since comma is the decimal separator in ru locales.
func sniffDelimiter(sample []byte) rune {
	first := sample
	if i := bytes.IndexByte(sample, '\n'); i >= 0 {
		first = sample[:i]
	}
	best, bestCount := ';', bytes.Count(first, []byte{';'})
	for _, c := range []rune{'\t', ','} {
		if n := bytes.Count(first, []byte(string(c))); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

// validUTF8 checks a peeked sample. A truncated sample may end inside a
// multi-byte rune; that tail is ignored.
func validUTF8(b []byte, truncated bool) bool {
	if truncated {
		for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
			if utf8.RuneStart(b[i]) {
				if !utf8.FullRune(b[i:]) {
					b = b[:i]
				}
				break
			}
		}
	}
	return utf8.Valid(b)
}
