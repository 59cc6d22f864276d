package install

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/sailor/internal/config"
	"github.com/wolfeidau/sailor/internal/fault"
)

func TestFold(t *testing.T) {
	initial := NewContext(config.Default())

	t.Run("runs steps in order", func(t *testing.T) {
		var order []string
		step := func(name string) StepFunc {
			return func(c Context) (Context, error) {
				order = append(order, name)
				return c.WithArtifact(name, "/"+name), nil
			}
		}

		result, err := Fold(initial, nil, step("one"), step("two"), step("three"))
		require.NoError(t, err)
		assert.Equal(t, []string{"one", "two", "three"}, order)
		assert.Len(t, result.Artifacts, 3)
		assert.Empty(t, initial.Artifacts)
	})

	t.Run("stops at the first failure", func(t *testing.T) {
		boom := fault.New(fault.FileIO, "disk full")
		thirdCalled := false

		_, err := Fold(initial, nil,
			func(c Context) (Context, error) { return c, nil },
			func(c Context) (Context, error) { return Context{}, boom },
			func(c Context) (Context, error) {
				thirdCalled = true
				return c, nil
			},
		)
		require.Error(t, err)
		assert.Same(t, boom, err)
		assert.False(t, thirdCalled)
	})

	t.Run("initial error skips every step", func(t *testing.T) {
		initErr := errors.New("bad config")
		called := false

		_, err := Fold(initial, initErr, func(c Context) (Context, error) {
			called = true
			return c, nil
		})
		assert.Equal(t, initErr, err)
		assert.False(t, called)
	})

	t.Run("no steps returns the initial context", func(t *testing.T) {
		result, err := Fold(initial, nil)
		require.NoError(t, err)
		assert.Equal(t, initial, result)
	})
}

func TestContextCopies(t *testing.T) {
	base := NewContext(config.Default()).WithArtifact("a", "/a")
	next := base.WithArtifact("b", "/b")

	_, ok := base.Artifact("b")
	assert.False(t, ok)

	path, ok := next.Artifact("a")
	require.True(t, ok)
	assert.Equal(t, "/a", path)

	assert.False(t, base.HasCA())
}
