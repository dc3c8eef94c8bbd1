package stream

import (
	"bufio"
	"context"
	"io"
	"os"

	"git.home.luguber.info/inful/besselect/internal/bes"
)

// maxEventSize bounds a single JSON event line. NamedSetOfFiles events from
// large builds can carry thousands of file entries.
const maxEventSize = 16 * 1024 * 1024

// FileSource reads newline-delimited JSON build events from a completed
// file, such as the output of `bazel --build_event_json_file`.
type FileSource struct {
	file    *os.File
	scanner *bufio.Scanner
}

// NewFileSource opens the given file for reading.
func NewFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	return &FileSource{file: f, scanner: scanner}, nil
}

// Next returns the next event, or io.EOF at end of file.
func (s *FileSource) Next(ctx context.Context) (*bes.BuildEvent, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		line := s.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		return bes.Decode(line)
	}
}

// Close closes the underlying file.
func (s *FileSource) Close() error {
	return s.file.Close()
}
