package errx

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestE(t *testing.T) {
	t.Run("returns nil for nil error", func(t *testing.T) {
		assert.Nil(t, E("op", NotFound, nil))
	})

	t.Run("wraps error with op and kind", func(t *testing.T) {
		base := errors.New("boom")
		err := E("links.Create", Repository, base)
		require.Error(t, err)

		assert.Equal(t, "links.Create: boom", err.Error())
		assert.Equal(t, Repository, KindOf(err))
		assert.Equal(t, "links.Create", OpOf(err))
		assert.ErrorIs(t, err, base)
	})

	t.Run("empty op prints only the cause", func(t *testing.T) {
		err := E("", Validation, errors.New("bad url"))
		assert.Equal(t, "bad url", err.Error())
	})
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"plain error", errors.New("x"), Unknown},
		{"nil", nil, Unknown},
		{"direct", E("op", NotFound, errors.New("x")), NotFound},
		{"fmt wrapped", fmt.Errorf("ctx: %w", E("op", AlreadyExists, errors.New("x"))), AlreadyExists},
		{"outermost wins", E("outer", Service, E("inner", Repository, errors.New("x"))), Service},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "ValidationError", Validation.String())
	assert.Equal(t, "NotFoundError", NotFound.String())
	assert.Equal(t, "AlreadyExistsError", AlreadyExists.String())
	assert.Equal(t, "Kind(42)", Kind(42).String())
}

func TestMessage(t *testing.T) {
	err := E("service.AddLink", AlreadyExists, E("sqlite.Create", AlreadyExists, errors.New("link already exists")))
	assert.Equal(t, "link already exists", Message(err))
	assert.Equal(t, "plain", Message(errors.New("plain")))
	assert.Equal(t, "", Message(nil))
}

func TestErrorf(t *testing.T) {
	err := Errorf("op", Validation, "tag %q too long", "abc")
	assert.True(t, Is(err, Validation))
	assert.Equal(t, `op: tag "abc" too long`, err.Error())
}
