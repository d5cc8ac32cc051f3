package corerr

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsFatalDetectsWrappedFatal(t *testing.T) {
	err := NewFatal(errors.WithStack(ErrInvalidState))
	assert.True(t, IsFatal(err))
	assert.True(t, IsFatal(errors.Wrap(err, "context")))
}

func TestIsFatalFalseForPlainSentinel(t *testing.T) {
	assert.False(t, IsFatal(errors.WithStack(ErrInvalidState)))
}

func TestNewFatalNilIsNil(t *testing.T) {
	assert.Nil(t, NewFatal(nil))
}

func TestFatalUnwrapReachesCause(t *testing.T) {
	err := NewFatal(ErrClientStuck)
	assert.ErrorIs(t, err, ErrClientStuck)
}
