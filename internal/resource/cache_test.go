package resource

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingSource struct {
	id    string
	delay time.Duration
	opens atomic.Int32
	files map[string][]byte
}

func (s *countingSource) ID() string { return s.id }

func (s *countingSource) Open(ref string) ([]byte, error) {
	s.opens.Add(1)
	time.Sleep(s.delay)
	data, ok := s.files[ref]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func TestPreload_CollapsesConcurrentLoads(t *testing.T) {
	src := &countingSource{id: "pack", delay: 50 * time.Millisecond, files: map[string][]byte{"wp.png": []byte("wp")}}
	c := NewCache()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Preload(context.Background(), src, "wp.png"))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), src.opens.Load())
	tex, ok := c.Get(src, "wp.png")
	require.True(t, ok)
	assert.Equal(t, []byte("wp"), tex.Data)

	// Cached now.
	require.NoError(t, c.Preload(context.Background(), src, "wp.png"))
	assert.Equal(t, int32(1), src.opens.Load())
}

func TestPreload_KeysBySource(t *testing.T) {
	a := &countingSource{id: "a", files: map[string][]byte{"i.png": []byte("a")}}
	b := &countingSource{id: "b", files: map[string][]byte{"i.png": []byte("b")}}
	c := NewCache()

	require.NoError(t, c.Preload(context.Background(), a, "i.png"))
	require.NoError(t, c.Preload(context.Background(), b, "i.png"))

	ta, _ := c.Get(a, "i.png")
	tb, _ := c.Get(b, "i.png")
	assert.Equal(t, []byte("a"), ta.Data)
	assert.Equal(t, []byte("b"), tb.Data)
	assert.Equal(t, 2, c.Len())
}

func TestPreload_Errors(t *testing.T) {
	c := NewCache()
	src := &countingSource{id: "x", files: map[string][]byte{}}

	assert.Error(t, c.Preload(context.Background(), src, "missing.png"))
	assert.Error(t, c.Preload(context.Background(), nil, "missing.png"))

	_, ok := c.Get(src, "missing.png")
	assert.False(t, ok)
	_, ok = c.Get(nil, "missing.png")
	assert.False(t, ok)
}

func TestPreload_ContextCancelled(t *testing.T) {
	src := &countingSource{id: "slow", delay: 200 * time.Millisecond, files: map[string][]byte{"s.png": nil}}
	c := NewCache()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Preload(ctx, src, "s.png"), context.Canceled)

	// Let the in-flight load finish so goleak stays quiet.
	assert.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, 10*time.Millisecond)
}

func TestUnload(t *testing.T) {
	src := &countingSource{id: "p", files: map[string][]byte{"a": {1}, "b": {2}}}
	c := NewCache()
	require.NoError(t, c.Preload(context.Background(), src, "a"))
	require.NoError(t, c.Preload(context.Background(), src, "b"))

	c.Unload()
	assert.Zero(t, c.Len())
}
