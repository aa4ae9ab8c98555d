package fmtutil_test

import (
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gsh-project/gsh/internal/fmtutil"
)

func TestExitStatusCode(t *testing.T) {
	assert.Equal(t, "000  ", fmtutil.ExitStatus(0, false, 0))
	assert.Equal(t, "001  ", fmtutil.ExitStatus(1, false, 0))
	assert.Equal(t, "127  ", fmtutil.ExitStatus(127, false, 0))
}

func TestExitStatusSignal(t *testing.T) {
	assert.Equal(t, "INT  ", fmtutil.ExitStatus(0, true, int(syscall.SIGINT)))
	assert.Equal(t, "TSTP ", fmtutil.ExitStatus(0, true, int(syscall.SIGTSTP)))
}

func TestDurationThresholds(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Nanosecond, "500ns"},
		{5 * time.Microsecond, "5us"},
		{5 * time.Millisecond, "5ms"},
		{5*time.Second + 500*time.Millisecond, "5.500s"},
		{12*time.Second + 340*time.Millisecond, "12.34s"},
		{90 * time.Second, "1m30s"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, fmtutil.Duration(c.d))
	}
}
