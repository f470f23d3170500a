package pkg

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

type faultyWriter struct {
	n int
}

func (fw faultyWriter) Write(p []byte) (int, error) {
	if fw.n > 0 {
		return fw.n, nil
	}
	return 0, errors.New("disk full")
}

func TestCombinedWriter_Write(t *testing.T) {
	sb1 := &strings.Builder{}
	sb1.WriteString("already-here|")
	sb2 := &strings.Builder{}

	cw := NewCombinedWriter(sb1, nil, sb2)
	require.Len(t, cw.Writers, 2)

	for _, msg := range []string{"planner started", "sync: local_only"} {
		n, err := cw.Write([]byte(msg))
		require.NoError(t, err)
		assert.Equal(t, len(msg), n)
	}

	assert.Equal(t, "already-here|planner startedsync: local_only", sb1.String())
	assert.Equal(t, "planner startedsync: local_only", sb2.String())
}

func TestCombinedWriter_WriteWithErrors(t *testing.T) {
	sb := &strings.Builder{}
	msg := []byte("a message")

	cw := NewCombinedWriter(faultyWriter{}, sb, faultyWriter{n: 2})
	n, err := cw.Write(msg)
	assert.Equal(t, len(msg), n)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.ErrorIs(t, err, io.ErrShortWrite)
	assert.Equal(t, "a message", sb.String())

	cw = NewCombinedWriter(faultyWriter{})
	n, err = cw.Write(msg)
	assert.Zero(t, n)
	assert.EqualError(t, err, "disk full")
}
