package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	err := New(ErrCodeNotFound, "task %s not found", "abc")
	assert.Equal(t, "NOT_FOUND: task abc not found", err.Error())
	assert.Equal(t, "task abc not found", UserMessage(err))

	wrapped := Wrap(ErrCodeStoreFailure, context.DeadlineExceeded, "move %s", "abc")
	assert.Equal(t, "STORE_FAILURE: move abc: context deadline exceeded", wrapped.Error())
	assert.ErrorIs(t, wrapped, context.DeadlineExceeded)
}

func TestIs_Chain(t *testing.T) {
	base := New(ErrCodeParentNotFound, "parent p1 not found")
	chained := fmt.Errorf("create: %w", base)

	assert.True(t, Is(chained, ErrCodeParentNotFound))
	assert.False(t, Is(chained, ErrCodeNotFound))
	assert.Equal(t, ErrCodeParentNotFound, GetCode(chained))

	// the outermost coded error wins
	outer := Wrap(ErrCodeStoreFailure, base, "tx")
	assert.Equal(t, ErrCodeStoreFailure, GetCode(outer))
}

func TestUncoded(t *testing.T) {
	err := fmt.Errorf("plain")
	assert.Equal(t, Code(""), GetCode(err))
	assert.Equal(t, "plain", UserMessage(err))
	assert.False(t, Is(nil, ErrCodeNotFound))
}

func TestFromStore(t *testing.T) {
	assert.NoError(t, FromStore(nil, "noop"))

	coded := TaskNotFound("t1")
	assert.Same(t, coded, FromStore(coded, "read"))

	raw := fmt.Errorf("connection reset")
	err := FromStore(raw, "move %s", "t1")
	assert.Equal(t, ErrCodeStoreFailure, GetCode(err))
	assert.Equal(t, "move t1", UserMessage(err))
	assert.ErrorIs(t, err, raw)
}

func TestDomainConstructors(t *testing.T) {
	assert.Equal(t, "NOT_FOUND: task t9 not found", TaskNotFound("t9").Error())
	assert.True(t, Is(ReservedID("trash"), ErrCodeInvalidReservedID))
	assert.Equal(t, "trash is not allowed", UserMessage(ReservedID("trash")))
}
