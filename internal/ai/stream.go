package ai

import "io"

// Stream is a finite, non-restartable sequence of completion fragments.
// Recv returns io.EOF when the upstream is exhausted and never yields an
// empty fragment. Close releases the underlying transport and aborts the
// upstream call if it is still running.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// sliceStream serves a fixed fragment list; used by providers that buffer
// and by tests.
type sliceStream struct {
	fragments []string
	pos       int
}

func NewSliceStream(fragments []string) Stream {
	return &sliceStream{fragments: fragments}
}

func (s *sliceStream) Recv() (string, error) {
	for s.pos < len(s.fragments) {
		fragment := s.fragments[s.pos]
		s.pos++
		if fragment != "" {
			return fragment, nil
		}
	}
	return "", io.EOF
}

func (s *sliceStream) Close() error {
	s.pos = len(s.fragments)
	return nil
}
