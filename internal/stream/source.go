// Package stream delivers build events from a source to a selector, in
// original order, one logical stream per runner.
package stream

import (
	"context"

	"git.home.luguber.info/inful/besselect/internal/bes"
)

// Source yields the events of one logical build-event stream in their
// original order. Next returns io.EOF once the stream is exhausted.
type Source interface {
	Next(ctx context.Context) (*bes.BuildEvent, error)
	Close() error
}
