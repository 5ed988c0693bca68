package chrome

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peebo/peebo/internal/log"
)

func newTestSession(d *Driver, id string, releases *atomic.Int32, err error) *Session {
	return &Session{
		id:       target.ID(id),
		driver:   d,
		tabCtx:   context.Background(),
		detached: make(chan struct{}),
		release: func() error {
			releases.Add(1)
			return err
		},
	}
}

func TestSessionRelease(t *testing.T) {
	tests := map[string]struct {
		run         func(d *Driver, s *Session) error
		expReleases int32
		expTracked  bool
	}{
		"Detaching should release the tab context once.": {
			run: func(d *Driver, s *Session) error {
				if err := s.Detach(context.Background()); err != nil {
					return err
				}
				return s.Detach(context.Background())
			},
			expReleases: 1,
		},

		"A session ended by the browser should release the tab context.": {
			run: func(d *Driver, s *Session) error {
				d.end(s.id, "target destroyed")
				return nil
			},
			expReleases: 1,
		},

		"Detaching an ended session should not release it again.": {
			run: func(d *Driver, s *Session) error {
				d.end(s.id, "target destroyed")
				return s.Detach(context.Background())
			},
			expReleases: 1,
		},

		"Ending another tab should keep the session.": {
			run: func(d *Driver, s *Session) error {
				d.end("other", "target destroyed")
				return nil
			},
			expReleases: 0,
			expTracked:  true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var releases atomic.Int32
			d := &Driver{logger: log.Noop, sessions: map[target.ID]*Session{}}
			s := newTestSession(d, "t1", &releases, nil)
			d.sessions[s.id] = s

			require.NoError(t, test.run(d, s))

			assert.Eventually(t, func() bool { return releases.Load() == test.expReleases }, time.Second, time.Millisecond)
			_, tracked := d.sessions[s.id]
			assert.Equal(t, test.expTracked, tracked)
		})
	}
}

func TestSessionDetachReleaseError(t *testing.T) {
	var releases atomic.Int32
	d := &Driver{logger: log.Noop, sessions: map[target.ID]*Session{}}
	s := newTestSession(d, "t1", &releases, errors.New("websocket closed"))
	d.sessions[s.id] = s

	err := s.Detach(context.Background())

	assert.Error(t, err)
	assert.EqualValues(t, 1, releases.Load())
	assert.Empty(t, d.sessions)

	err = s.run(context.Background())
	assert.Error(t, err)
}
