package schema

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func personSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
			"age":  map[string]any{"type": "integer"},
		},
		"required": []any{"name"},
	}
}

func TestValidateConformingData(t *testing.T) {
	v := NewValidator()
	result, err := v.Validate(map[string]any{"name": "Alice", "age": 30}, personSchema())
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Nil(t, result.Errors)
}

func TestValidateMissingRequiredProperty(t *testing.T) {
	v := NewValidator()
	result, err := v.Validate(map[string]any{}, map[string]any{
		"type":     "object",
		"required": []any{"name"},
	})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "name")
}

func TestValidateTypeMismatch(t *testing.T) {
	v := NewValidator()
	result, err := v.Validate(map[string]any{"name": 42}, personSchema())
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Errors)
}

func TestGetOrCompileCachesByContent(t *testing.T) {
	v := NewValidator()

	first, err := v.GetOrCompile(personSchema())
	require.NoError(t, err)
	second, err := v.GetOrCompile(personSchema())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, v.Size())
}

func TestGetOrCompileKeyOrderIndependent(t *testing.T) {
	v := NewValidator()

	a := map[string]any{"type": "object", "required": []any{"x"}}
	b := map[string]any{"required": []any{"x"}, "type": "object"}

	first, err := v.GetOrCompile(a)
	require.NoError(t, err)
	second, err := v.GetOrCompile(b)
	require.NoError(t, err)

	// encoding/json sorts keys, so both maps canonicalize to one entry.
	assert.Same(t, first, second)
	assert.Equal(t, 1, v.Size())
}

func TestGetOrCompileDistinctSchemas(t *testing.T) {
	v := NewValidator()

	_, err := v.GetOrCompile(map[string]any{"type": "object"})
	require.NoError(t, err)
	_, err = v.GetOrCompile(map[string]any{"type": "array"})
	require.NoError(t, err)

	assert.Equal(t, 2, v.Size())
}

func TestBrokenSchemaYieldsSchemaError(t *testing.T) {
	v := NewValidator()

	_, err := v.GetOrCompile(map[string]any{"type": 123})
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))

	// A broken schema never poisons the cache.
	assert.Equal(t, 0, v.Size())

	_, err = v.Validate(map[string]any{}, map[string]any{"type": 123})
	assert.True(t, errors.As(err, &schemaErr))
}

func TestValidateNormalizesGoValues(t *testing.T) {
	v := NewValidator()

	// Hand-built Go ints must validate like JSON-decoded numbers.
	result, err := v.Validate(map[string]any{"name": "Bob", "age": 7}, personSchema())
	require.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestConcurrentGetOrCompile(t *testing.T) {
	v := NewValidator()

	var wg sync.WaitGroup
	results := make([]any, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			compiled, err := v.GetOrCompile(personSchema())
			if err == nil {
				results[i] = compiled
			}
		}(i)
	}
	wg.Wait()

	// All goroutines observe one compiled identity; duplicate compilation
	// may happen, losing an entry may not.
	assert.Equal(t, 1, v.Size())
	for i := 1; i < 16; i++ {
		assert.Same(t, results[0], results[i])
	}
}

func TestConcurrentDistinctSchemasNoLostEntries(t *testing.T) {
	v := NewValidator()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := map[string]any{
				"type": "object",
				"properties": map[string]any{
					fmt.Sprintf("field%d", i): map[string]any{"type": "string"},
				},
			}
			_, err := v.GetOrCompile(s)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 8, v.Size())
}
