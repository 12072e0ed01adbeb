package lifecycle_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/horarium/pkg/lifecycle"
)

func TestStartupMarksReady(t *testing.T) {
	lc := lifecycle.New()

	var started atomic.Int32
	for range 3 {
		lc.OnStartup(func() { started.Add(1) })
	}
	assert.False(t, lc.Ready())

	lc.WaitForStartup()

	assert.True(t, lc.Ready())
	assert.EqualValues(t, 3, started.Load())
}

func TestShutdownRunsHooksAfterCancel(t *testing.T) {
	lc := lifecycle.New()

	var closed atomic.Bool
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		closed.Store(true)
	})
	lc.WaitForStartup()

	require.NoError(t, lc.Shutdown(time.Second))
	assert.True(t, closed.Load())
	assert.Error(t, lc.Context().Err())
}

func TestShutdownReportsSlowHooks(t *testing.T) {
	lc := lifecycle.New()
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		<-release
	})
	lc.WaitForStartup()

	assert.ErrorContains(t, lc.Shutdown(20*time.Millisecond), "shutdown timeout")
}
