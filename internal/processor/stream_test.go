package processor

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cancellingReader serves data once, then cancels and blocks until released.
type cancellingReader struct {
	data    string
	served  bool
	cancel  context.CancelFunc
	release chan struct{}
}

func (r *cancellingReader) Read(p []byte) (int, error) {
	if !r.served {
		r.served = true
		return copy(p, r.data), nil
	}
	r.cancel()
	<-r.release
	return 0, io.EOF
}

func newTestStreamer(t *testing.T) *Streamer {
	t.Helper()
	s, err := NewStreamer(testConfig())
	require.NoError(t, err)
	return s
}

func TestStreamerRunToEOF(t *testing.T) {
	s := newTestStreamer(t)

	result, err := s.Run(context.Background(), strings.NewReader(strings.Join(sshLines, "\n")+"\n"))
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, uint64(2), result[0].Count)
	assert.Equal(t, "connect from --- port 22", result[0].Pattern.String())
	assert.Equal(t, "disconnect", result[1].Pattern.String())
}

func TestStreamerTrimsCarriageReturns(t *testing.T) {
	s := newTestStreamer(t)

	result, err := s.Run(context.Background(), strings.NewReader("a b\r\na b\r\n"))
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "a b", result[0].Representative.String())
	assert.Equal(t, uint64(2), result[0].Count)
}

func TestStreamerCancelReturnsPartial(t *testing.T) {
	s := newTestStreamer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &cancellingReader{
		data:    "job 1 done ok now\njob 2 done ok now\n",
		cancel:  cancel,
		release: make(chan struct{}),
	}
	defer close(r.release)

	result, err := s.Run(ctx, r)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, uint64(2), result[0].Count)
	assert.Equal(t, "job --- done ok now", result[0].Pattern.String())
}

func TestStreamerMinMembers(t *testing.T) {
	cfg := testConfig()
	cfg.MinMembers = 2
	s, err := NewStreamer(cfg)
	require.NoError(t, err)

	s.Add("a b c")
	s.Add("a b c")
	s.Add("zzz")

	result := s.Result()
	require.Len(t, result, 1)
	assert.Equal(t, "a b c", result[0].Pattern.String())
}

func TestStreamerFollowCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(sshLines, "\n")+"\n"), 0600))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newTestStreamer(t)
	result, err := s.Follow(ctx, path)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, uint64(2), result[0].Count)
}

func TestStreamerFollowMissingFile(t *testing.T) {
	s := newTestStreamer(t)
	_, err := s.Follow(context.Background(), filepath.Join(t.TempDir(), "missing.log"))
	assert.Error(t, err)
}

func TestNewStreamerInvalidRule(t *testing.T) {
	cfg := testConfig()
	cfg.Variables = []string{"nope"}
	_, err := NewStreamer(cfg)
	assert.Error(t, err)
}
