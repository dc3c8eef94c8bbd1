package stream

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/besselect/internal/bes"
)

// TailSource follows a build-event file that is still being written, such as
// the json file of a build in progress. It reads complete lines as they
// appear and stops once the event flagged lastMessage has been delivered.
type TailSource struct {
	file    *os.File
	reader  *bufio.Reader
	watcher *fsnotify.Watcher
	partial []byte
	done    bool
}

// NewTailSource opens the given file and starts watching it for appends.
func NewTailSource(path string) (*TailSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		_ = f.Close()
		return nil, err
	}
	return &TailSource{
		file:    f,
		reader:  bufio.NewReaderSize(f, 64*1024),
		watcher: watcher,
	}, nil
}

// Next returns the next event, blocking until one is appended. It returns
// io.EOF after the lastMessage event.
func (s *TailSource) Next(ctx context.Context) (*bes.BuildEvent, error) {
	if s.done {
		return nil, io.EOF
	}
	for {
		chunk, err := s.reader.ReadBytes('\n')
		s.partial = append(s.partial, chunk...)

		switch {
		case err == nil:
			line := bytes.TrimSpace(s.partial)
			s.partial = nil
			if len(line) == 0 {
				continue
			}
			event, err := bes.Decode(line)
			if err != nil {
				return nil, err
			}
			if event.LastMessage {
				s.done = true
			}
			return event, nil

		case err == io.EOF:
			// Writer has not finished the line yet; wait for an append.
			if err := s.wait(ctx); err != nil {
				return nil, err
			}

		default:
			return nil, err
		}
	}
}

func (s *TailSource) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case _, ok := <-s.watcher.Events:
		if !ok {
			return io.EOF
		}
		return nil
	case err, ok := <-s.watcher.Errors:
		if !ok {
			return io.EOF
		}
		return err
	}
}

// Close stops the watcher and closes the file.
func (s *TailSource) Close() error {
	werr := s.watcher.Close()
	ferr := s.file.Close()
	if werr != nil {
		return werr
	}
	return ferr
}
