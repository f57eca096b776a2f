package monitoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	assert.True(t, called, "custom logger was not called")

	called = false
	SetLogger(nil)
	Logf("test message")
	assert.False(t, called, "no-op logger should not reach the previous logger")
}

func TestLogf_Default(t *testing.T) {
	assert.NotNil(t, Logf)
	assert.NotPanics(t, func() { Logf("default logger %d", 1) })
}

func TestComponent(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got []string
	SetLogger(func(format string, v ...interface{}) {
		got = append(got, fmt.Sprintf(format, v...))
	})

	logf := Component("LOS")
	logf("frame %d done", 7)

	// Component resolves Logf lazily, so swapping after creation still applies.
	var swapped string
	SetLogger(func(format string, v ...interface{}) {
		swapped = fmt.Sprintf(format, v...)
	})
	logf("run aborted")

	assert.Equal(t, []string{"[LOS] frame 7 done"}, got)
	assert.Equal(t, "[LOS] run aborted", swapped)
}
