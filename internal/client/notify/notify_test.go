package notify

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriterNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewWriter(&buf)

	n.Notify(LevelError, "Session expired, please log in again.")
	n.Notify(LevelSuccess, "Login successful")
	n.Notify(LevelInfo, "hello")

	assert.Equal(t, "[error] Session expired, please log in again.\n[ok] Login successful\n[info] hello\n", buf.String())
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() { Discard{}.Notify(LevelError, "x") })
}
