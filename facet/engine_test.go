package facet

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineExecuteSubstitutesVariables(t *testing.T) {
	var seen string
	engine := NewEngine(func(_ context.Context, source string) (map[string]any, error) {
		seen = source
		return map[string]any{"output": source}, nil
	})

	result, err := engine.Execute(context.Background(), "greet {{name}}", map[string]any{"name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "greet Ada", seen)
	assert.Equal(t, "greet Ada", result["output"])
}

func TestEngineExecuteStampsMeta(t *testing.T) {
	engine := NewEngine(func(_ context.Context, _ string) (map[string]any, error) {
		return map[string]any{"ok": true}, nil
	})

	result, err := engine.Execute(context.Background(), "doc", nil)
	require.NoError(t, err)

	meta, ok := result["_meta"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, meta, "execution_time_ms")
	assert.Equal(t, serverSignature, meta["server"])
}

func TestEngineExecuteDoesNotMutateExecutorResult(t *testing.T) {
	shared := map[string]any{"ok": true}
	engine := NewEngine(func(_ context.Context, _ string) (map[string]any, error) {
		return shared, nil
	})

	_, err := engine.Execute(context.Background(), "doc", nil)
	require.NoError(t, err)
	_, leaked := shared["_meta"]
	assert.False(t, leaked)
}

func TestEngineExecuteWrapsErrors(t *testing.T) {
	engine := NewEngine(func(_ context.Context, _ string) (map[string]any, error) {
		return nil, errors.New("parse failure at line 3")
	})

	_, err := engine.Execute(context.Background(), "doc", nil)
	var docErr *DocumentError
	require.True(t, errors.As(err, &docErr))
	assert.Contains(t, docErr.Error(), "parse failure")
}

func TestEngineExecutePreservesDocumentError(t *testing.T) {
	original := &DocumentError{Message: "bad facet"}
	engine := NewEngine(func(_ context.Context, _ string) (map[string]any, error) {
		return nil, original
	})

	_, err := engine.Execute(context.Background(), "doc", nil)
	assert.Same(t, original, err)
}

func TestEngineExecuteWithoutExecutor(t *testing.T) {
	engine := NewEngine(nil)
	_, err := engine.Execute(context.Background(), "doc", nil)
	var docErr *DocumentError
	require.True(t, errors.As(err, &docErr))
	assert.Contains(t, docErr.Error(), "no document executor")
}

func TestEngineExecuteTooManyVariables(t *testing.T) {
	engine := NewEngine(func(_ context.Context, source string) (map[string]any, error) {
		return map[string]any{}, nil
	}, func(o *EngineOptions) {
		o.MaxTemplateVariables = 2
	})

	_, err := engine.Execute(context.Background(), "doc", map[string]any{"a": 1, "b": 2, "c": 3})
	var docErr *DocumentError
	require.True(t, errors.As(err, &docErr))
	assert.Contains(t, docErr.Error(), "too many template variables")
}
