package export

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// Sink receives export output. The incremental FileSink keeps memory bounded
// regardless of payload size; BufferSink is the degradation path when the
// output directory is not writable up front, bounded only by available heap.
//
// No partial file is ever exposed as complete: FileSink writes to a hidden
// partial name and only renames on Commit; Discard removes the partial.
type Sink interface {
	Write(p []byte) (int, error)
	// Commit finalizes the artifact and returns its path.
	Commit() (string, error)
	// Discard drops everything written so far. Safe to call after Commit
	// (no-op) and more than once.
	Discard() error
}

// FileSink streams chunks to disk incrementally.
type FileSink struct {
	dir       string
	name      string
	partial   string
	f         *os.File
	w         *bufio.Writer
	committed bool
	discarded bool
}

// NewFileSink creates the output directory if needed and opens the partial
// file for writing.
func NewFileSink(dir, name string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	partial := filepath.Join(dir, ".partial-"+name)
	f, err := os.Create(partial)
	if err != nil {
		return nil, fmt.Errorf("creating partial file: %w", err)
	}
	return &FileSink{
		dir:     dir,
		name:    name,
		partial: partial,
		f:       f,
		w:       bufio.NewWriterSize(f, 64<<10),
	}, nil
}

func (s *FileSink) Write(p []byte) (int, error) {
	if s.committed || s.discarded {
		return 0, fmt.Errorf("write to finalized sink")
	}
	return s.w.Write(p)
}

func (s *FileSink) Commit() (string, error) {
	if s.discarded {
		return "", fmt.Errorf("commit of discarded sink")
	}
	if s.committed {
		return filepath.Join(s.dir, s.name), nil
	}
	if err := s.w.Flush(); err != nil {
		s.Discard()
		return "", fmt.Errorf("flushing output: %w", err)
	}
	if err := s.f.Close(); err != nil {
		s.Discard()
		return "", fmt.Errorf("closing output: %w", err)
	}
	final := filepath.Join(s.dir, s.name)
	if err := os.Rename(s.partial, final); err != nil {
		os.Remove(s.partial)
		return "", fmt.Errorf("finalizing output: %w", err)
	}
	s.committed = true
	return final, nil
}

func (s *FileSink) Discard() error {
	if s.committed || s.discarded {
		return nil
	}
	s.discarded = true
	s.f.Close()
	return os.Remove(s.partial)
}

// BufferSink accumulates chunks in memory and materializes the file only on
// Commit.
type BufferSink struct {
	dir       string
	name      string
	buf       bytes.Buffer
	committed bool
	discarded bool
}

// NewBufferSink creates an in-memory sink targeting dir/name on Commit.
func NewBufferSink(dir, name string) *BufferSink {
	return &BufferSink{dir: dir, name: name}
}

func (s *BufferSink) Write(p []byte) (int, error) {
	if s.committed || s.discarded {
		return 0, fmt.Errorf("write to finalized sink")
	}
	return s.buf.Write(p)
}

func (s *BufferSink) Commit() (string, error) {
	if s.discarded {
		return "", fmt.Errorf("commit of discarded sink")
	}
	final := filepath.Join(s.dir, s.name)
	if s.committed {
		return final, nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(final, s.buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("writing output: %w", err)
	}
	s.committed = true
	s.buf.Reset()
	return final, nil
}

func (s *BufferSink) Discard() error {
	if s.committed || s.discarded {
		return nil
	}
	s.discarded = true
	s.buf.Reset()
	return nil
}

// Bytes exposes the accumulated payload for tests and previews.
func (s *BufferSink) Bytes() []byte {
	return s.buf.Bytes()
}

// NewSink prefers the incremental disk-backed sink and falls back to the
// in-memory buffer when the directory cannot be written. The fallback is a
// known degradation path, not a silent failure: callers can detect it with a
// type assertion if they want to warn.
func NewSink(dir, name string) Sink {
	fs, err := NewFileSink(dir, name)
	if err != nil {
		return NewBufferSink(dir, name)
	}
	return fs
}
