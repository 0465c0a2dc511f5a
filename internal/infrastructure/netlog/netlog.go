package netlog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression selects the on-disk encoding of a log file
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// ParseCompression validates a configured compression name
func ParseCompression(s string) (Compression, error) {
	switch Compression(s) {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionGzip, CompressionZstd:
		return Compression(s), nil
	}
	return "", fmt.Errorf("unknown netlog compression %q", s)
}

// Extension returns the file suffix for c
func (c Compression) Extension() string {
	switch c {
	case CompressionGzip:
		return ".jsonl.gz"
	case CompressionZstd:
		return ".jsonl.zst"
	default:
		return ".jsonl"
	}
}

// Record is one network request event, written as a JSON line
type Record struct {
	Timestamp interface{} `json:"timestamp"`
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
}

// Sink receives network records for one peer session
type Sink interface {
	Append(rec Record) error
	Close() error
}

// ErrClosed is returned by Append after Close
var ErrClosed = errors.New("netlog: sink closed")

type flushWriter interface {
	io.WriteCloser
	Flush() error
}

type plainWriter struct{ *os.File }

func (plainWriter) Flush() error { return nil }

// FileSink appends records to a JSONL file, created on first Append.
type FileSink struct {
	mu          sync.Mutex
	path        string
	compression Compression
	file        *os.File
	w           flushWriter
	records     int
	closed      bool
}

// NewFileSink creates a sink writing to dir. The file is named after the
// session start time and id.
func NewFileSink(dir, sessionID string, compression Compression, started time.Time) *FileSink {
	name := fmt.Sprintf("network_log_%s_%s%s", started.Format("20060102_150405"), shortID(sessionID), compression.Extension())
	return &FileSink{
		path:        filepath.Join(dir, name),
		compression: compression,
	}
}

// Path returns the target file path
func (s *FileSink) Path() string {
	return s.path
}

// Records returns the number of records written
func (s *FileSink) Records() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records
}

// Append writes rec as one line and flushes it to the file
func (s *FileSink) Append(rec Record) error {
	line, err := sonic.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode network record: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.w == nil {
		if err := s.open(); err != nil {
			return err
		}
	}
	if _, err := s.w.Write(line); err != nil {
		return fmt.Errorf("failed to write network record: %w", err)
	}
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush network record: %w", err)
	}
	s.records++
	return nil
}

func (s *FileSink) open() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create netlog directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open netlog file: %w", err)
	}

	switch s.compression {
	case CompressionGzip:
		s.w = gzip.NewWriter(f)
	case CompressionZstd:
		enc, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return fmt.Errorf("failed to create zstd writer: %w", err)
		}
		s.w = enc
	default:
		s.w = plainWriter{f}
	}
	s.file = f
	return nil
}

// Close finalizes the compressed stream and closes the file
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.w == nil {
		return nil
	}

	var errs []error
	if _, plain := s.w.(plainWriter); !plain {
		errs = append(errs, s.w.Close())
	}
	errs = append(errs, s.file.Close())
	return errors.Join(errs...)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "session"
	}
	return id
}
