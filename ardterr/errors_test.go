package ardterr

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := InvalidArgumentf("bad fraction %v", 1.5)
	assert.Equal(t, "[invalid_argument] bad fraction 1.5", err.Error())

	wrapped := Wrapf(KindNotConfigured, fs.ErrNotExist, "missing source at %s", "/data")
	assert.Equal(t, "[not_configured] missing source at /data: file does not exist", wrapped.Error())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
		ok   bool
	}{
		{"direct", PreconditionViolatedf("window too long"), KindPreconditionViolated, true},
		{"wrapped once", fmt.Errorf("loading: %w", NotImplementedf("no media names")), KindNotImplemented, true},
		{"wrapped cause", Wrapf(KindInvalidArgument, errors.New("boom"), "ctx"), KindInvalidArgument, true},
		{"plain error", errors.New("boom"), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, ok := KindOf(tt.err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.kind, k)
		})
	}
}

func TestIsKind(t *testing.T) {
	err := fmt.Errorf("outer: %w", NotConfiguredf("no path"))
	assert.True(t, IsKind(err, KindNotConfigured))
	assert.False(t, IsKind(err, KindInvalidArgument))
	assert.False(t, IsKind(errors.New("boom"), KindNotConfigured))
}

func TestWrapfNil(t *testing.T) {
	require.NoError(t, Wrapf(KindInvalidArgument, nil, "ignored"))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrapf(KindPreconditionViolated, cause, "ctx")
	require.ErrorIs(t, err, cause)
}
