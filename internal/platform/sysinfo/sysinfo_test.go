package sysinfo

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollect(t *testing.T) {
	s := Collect(context.Background())
	assert.Equal(t, runtime.Version(), s.GoVersion)
	assert.Positive(t, s.Goroutines)
	assert.GreaterOrEqual(t, s.UptimeSeconds, int64(0))
}
