package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archigen/internal/gateway/config"
	"archigen/internal/gateway/repository/archive"
	"archigen/internal/llm"
	"archigen/internal/pipeline"
	"archigen/internal/types"
)

func TestChooseArchiveOrigin(t *testing.T) {
	ctx := context.Background()

	s, closer, err := chooseArchiveOrigin(ctx, config.ArchiveConfig{Backend: config.BackendMemory})
	require.NoError(t, err)
	assert.Nil(t, closer)
	assert.IsType(t, &archive.MemoryStore{}, s)

	s, _, err = chooseArchiveOrigin(ctx, config.ArchiveConfig{Backend: config.BackendS3})
	require.NoError(t, err)
	assert.IsType(t, &archive.MemoryStore{}, s, "incomplete s3 config falls back to memory")

	_, _, err = chooseArchiveOrigin(ctx, config.ArchiveConfig{Backend: config.BackendPostgres})
	assert.Error(t, err)

	_, _, err = chooseArchiveOrigin(ctx, config.ArchiveConfig{Backend: "tape"})
	assert.Error(t, err)
}

func TestInitArchiveIsCached(t *testing.T) {
	s, _, err := initArchive(context.Background(), config.ArchiveConfig{Backend: config.BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &archive.CachedStore{}, s)
}

func TestWrapClientRetriesTransportErrors(t *testing.T) {
	fake := &llm.FakeClient{}
	failures := 0
	fake.StructuredFn = func(ctx context.Context, req llm.StructuredRequest) (string, error) {
		if failures < 2 {
			failures++
			return "", &llm.TransportError{Op: llm.OpStructured, Err: errors.New("503")}
		}
		return "{}", nil
	}
	cli := WrapClient(fake, config.LLMConfig{RetryAttempts: 3, RetryBase: time.Millisecond})
	out, err := cli.GenerateStructured(context.Background(), llm.StructuredRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "{}", out)
	assert.Len(t, fake.Calls(), 3)
}

func TestNewWithFakeClient(t *testing.T) {
	cfg := &config.Config{
		Port:         ":0",
		LLM:          config.LLMConfig{RetryAttempts: 1, RetryBase: time.Millisecond},
		Session:      config.SessionConfig{MaxSessions: 4, TTL: time.Minute},
		Archive:      config.ArchiveConfig{Backend: config.BackendMemory},
		StageTimeout: 5 * time.Second,
		Countries:    types.Countries,
	}
	a, err := NewWith(context.Background(), cfg, &llm.FakeClient{})
	require.NoError(t, err)

	id, ctrl := a.Sessions.Resolve("")
	require.NotEmpty(t, id)
	plan, err := ctrl.Generate(context.Background(), types.DefaultRequirements())
	require.NoError(t, err)
	assert.Equal(t, pipeline.StateResult, ctrl.State())
	assert.NotEmpty(t, plan.ImageURL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, a.Shutdown(ctx))
}
