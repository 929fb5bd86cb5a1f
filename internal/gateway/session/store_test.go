package session

import (
	"bytes"
	"context"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archigen/internal/llm"
	"archigen/internal/pipeline"
	"archigen/internal/types"
)

func factory() *pipeline.Controller {
	return pipeline.New(llm.NewFakeClient(), pipeline.Options{Logger: log.New(&bytes.Buffer{}, "", 0)})
}

func TestResolveCreatesAndReuses(t *testing.T) {
	s := NewStore(4, time.Minute, factory)

	id, c1 := s.Resolve("")
	require.NotEmpty(t, id)
	require.NotNil(t, c1)

	same, c2 := s.Resolve("  " + id + " ")
	assert.Equal(t, id, same)
	assert.Same(t, c1, c2)

	_, other := s.Resolve("someone-else")
	assert.NotSame(t, c1, other)
	assert.Equal(t, 2, s.Len())
}

func TestGetDoesNotCreate(t *testing.T) {
	s := NewStore(4, time.Minute, factory)
	_, ok := s.Get("nope")
	assert.False(t, ok)
	_, ok = s.Get("")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestEvictionResetsController(t *testing.T) {
	s := NewStore(1, time.Minute, factory)
	_, c := s.Resolve("first")
	_, err := c.Generate(context.Background(), types.DefaultRequirements())
	require.NoError(t, err)
	require.Equal(t, pipeline.StateResult, c.State())

	s.Resolve("second")
	assert.Equal(t, pipeline.StateInput, c.State())
	_, ok := s.Get("first")
	assert.False(t, ok)
}

func TestExpiredSessionIsReplacedAndReset(t *testing.T) {
	s := NewStore(4, 30*time.Millisecond, factory)
	_, old := s.Resolve("slow")
	_, err := old.Generate(context.Background(), types.DefaultRequirements())
	require.NoError(t, err)
	require.Equal(t, pipeline.StateResult, old.State())

	time.Sleep(100 * time.Millisecond)

	_, fresh := s.Resolve("slow")
	assert.NotSame(t, old, fresh)
	assert.Equal(t, pipeline.StateInput, old.State())
	assert.Equal(t, pipeline.StateInput, fresh.State())
}

func TestResolveRefreshesTTL(t *testing.T) {
	s := NewStore(4, 80*time.Millisecond, factory)
	_, first := s.Resolve("busy")
	for i := 0; i < 5; i++ {
		time.Sleep(30 * time.Millisecond)
		_, c := s.Resolve("busy")
		require.Same(t, first, c)
	}
}

func TestRemove(t *testing.T) {
	s := NewStore(0, 0, factory)
	s.Resolve("a")
	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))
}
