package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsByKind(t *testing.T) {
	err := New(KindPromptTimeout, "no prompt after %s", "5s")
	wrapped := fmt.Errorf("send command: %w", err)

	assert.True(t, errors.Is(wrapped, ErrPromptTimeout))
	assert.False(t, errors.Is(wrapped, ErrCommitFailed))
	assert.Equal(t, KindPromptTimeout, KindOf(wrapped))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(KindChannelUnavailable, cause, "write failed")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "write failed: boom", err.Error())
}

func TestClassify(t *testing.T) {
	cases := []struct {
		in   string
		want Kind
	}{
		{"ssh: handshake failed: ssh: unable to authenticate, attempted methods [none password]", KindAuthenticationFailed},
		{"dial tcp 10.0.0.1:22: i/o timeout", KindConnectionTimeout},
		{"dial tcp 127.0.0.1:1: connect: connection refused", KindHostUnreachable},
		{"ssh: rejected: administratively prohibited (open failed)", KindChannelUnavailable},
		{"something else", KindUnknown},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			assert.Equal(t, c.want, KindOf(Classify(errors.New(c.in))))
		})
	}

	already := New(KindCommitFailed, "commit")
	assert.Same(t, already, Classify(already))
	assert.Nil(t, Classify(nil))
}
