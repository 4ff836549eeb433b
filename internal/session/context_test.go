package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_Idle(t *testing.T) {
	ctx := NewContext()

	_, ok := ctx.Current()
	assert.False(t, ok)
	assert.Equal(t, IdleName, ctx.Name())

	_, ok = ctx.End()
	assert.False(t, ok)
}

func TestContext_Lifecycle(t *testing.T) {
	ctx := NewContext()
	ctx.SetFrame(99)

	s := ctx.Start("Night Shift", 60, "v1.0.0")
	assert.NotEmpty(t, s.UUID)
	assert.Equal(t, "Night Shift", ctx.Name())
	assert.Zero(t, ctx.Frame(), "starting a session resets the frame counter")

	ctx.SetID(7)
	cur, ok := ctx.Current()
	require.True(t, ok)
	assert.Equal(t, uint(7), cur.ID)
	assert.Equal(t, s.UUID, cur.UUID)
	assert.Equal(t, 60, cur.FrameRate)

	ended, ok := ctx.End()
	require.True(t, ok)
	assert.Equal(t, s.UUID, ended.UUID)
	assert.Equal(t, IdleName, ctx.Name())
}

func TestContext_ThreadSafe(t *testing.T) {
	ctx := NewContext()
	ctx.Start("S", 60, "dev")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx.SetFrame(uint64(i))
			_ = ctx.Name()
			_, _ = ctx.Current()
		}(i)
	}
	wg.Wait()
	assert.Less(t, ctx.Frame(), uint64(8))
}
