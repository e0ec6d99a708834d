package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/op/go-logging.v1"
)

func TestLevelFromString(t *testing.T) {
	for in, want := range map[string]logging.Level{
		"ERROR": logging.ERROR, "warning": logging.WARNING, "": logging.NOTICE, "DEBUG": logging.DEBUG,
	} {
		got, err := levelFromString(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := levelFromString("LOUD")
	assert.Error(t, err)
}

func TestBackend_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	b := NewWithWriter(&buf, logging.WARNING)
	l := b.GetLogger("test")

	l.Debugf("hidden %d", 1)
	l.Warningf("shown %d", 2)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "WARN test: shown 2")
}
