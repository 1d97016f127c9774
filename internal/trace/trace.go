// Package trace records every oracle probe of an optimization run as a
// line of JSON, so a run can be inspected or replayed after the fact.
package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Entry is one probe: the candidate that was rendered, its score, the
// resulting byte size, and whether it satisfied the size limit.
type Entry struct {
	FPS       int       `json:"fps"`
	Size      int       `json:"size"`
	Lossy     int       `json:"lossy"`
	Score     float64   `json:"score"`
	Bytes     int64     `json:"bytes"`
	Passed    bool      `json:"passed"`
	Timestamp time.Time `json:"timestamp"`
}

// Writer appends entries to a JSONL file. Safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string
}

// NewWriter creates (or truncates) the trace file at path.
func NewWriter(path string) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create trace file: %w", err)
	}

	return &Writer{
		file:   file,
		writer: bufio.NewWriter(file),
		path:   path,
	}, nil
}

// Write appends one entry. The entry is buffered until Flush or Close.
func (w *Writer) Write(entry Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal trace entry: %w", err)
	}

	if _, err := w.writer.Write(data); err != nil {
		return fmt.Errorf("write trace entry: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write trace entry: %w", err)
	}
	return nil
}

// Flush writes buffered entries through to the file.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("flush trace: %w", err)
	}
	return nil
}

// Close flushes and closes the trace file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("flush trace on close: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close trace file: %w", err)
	}
	return nil
}

// Path returns the trace file's location.
func (w *Writer) Path() string {
	return w.path
}

// Reader reads entries back from a JSONL trace file.
type Reader struct {
	file    *os.File
	scanner *bufio.Scanner
}

// NewReader opens the trace file at path.
func NewReader(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	return &Reader{file: file, scanner: scanner}, nil
}

// Read returns the next entry, or io.EOF when the file is exhausted.
func (r *Reader) Read() (*Entry, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return nil, fmt.Errorf("scan trace line: %w", err)
		}
		return nil, io.EOF
	}

	var entry Entry
	if err := json.Unmarshal(r.scanner.Bytes(), &entry); err != nil {
		return nil, fmt.Errorf("unmarshal trace entry: %w", err)
	}
	return &entry, nil
}

// ReadAll drains the file.
func (r *Reader) ReadAll() ([]Entry, error) {
	var entries []Entry
	for {
		entry, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}
