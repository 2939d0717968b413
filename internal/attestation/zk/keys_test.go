package zk

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "zkattest/pkg/domain-errors"
)

func countingCompiler(calls *atomic.Int32, release <-chan struct{}, program *CompiledProgram, err error) CompileFunc {
	return func() (*CompiledProgram, error) {
		calls.Add(1)
		if release != nil {
			<-release
		}
		return program, err
	}
}

func TestKeyCacheCompilesOnceUnderConcurrency(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	want := &CompiledProgram{}
	cache := NewKeyCache(WithCompiler(countingCompiler(&calls, release, want, nil)))

	const callers = 16
	results := make([]*CompiledProgram, callers)
	var wg sync.WaitGroup
	var started sync.WaitGroup
	started.Add(callers)
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			p, err := cache.Compile(context.Background())
			assert.NoError(t, err)
			results[i] = p
		}(i)
	}
	started.Wait()
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, p := range results {
		assert.Same(t, want, p)
	}
	assert.True(t, cache.Compiled())

	again, err := cache.Compile(context.Background())
	require.NoError(t, err)
	assert.Same(t, want, again)
	assert.Equal(t, int32(1), calls.Load())
}

func TestKeyCacheRemembersFailure(t *testing.T) {
	var calls atomic.Int32
	cache := NewKeyCache(WithCompiler(countingCompiler(&calls, nil, nil, errors.New("setup exploded"))))

	_, err := cache.Compile(context.Background())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCompilation))

	_, err = cache.Compile(context.Background())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCompilation))
	assert.Equal(t, int32(1), calls.Load(), "a failed compilation is not retried")
	assert.False(t, cache.Compiled())
}

func TestKeyCacheNilProgramIsFailure(t *testing.T) {
	var calls atomic.Int32
	cache := NewKeyCache(WithCompiler(countingCompiler(&calls, nil, nil, nil)))

	_, err := cache.Compile(context.Background())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCompilation))
}

func TestKeyCacheCallerCanStopWaiting(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	want := &CompiledProgram{}
	cache := NewKeyCache(WithCompiler(countingCompiler(&calls, release, want, nil)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := cache.Compile(ctx)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))

	// The abandoned compilation keeps running and is published for later callers.
	close(release)
	p, err := cache.Compile(context.Background())
	require.NoError(t, err)
	assert.Same(t, want, p)
	assert.Equal(t, int32(1), calls.Load())
}
