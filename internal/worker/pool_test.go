package worker

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolRunsAndDrains(t *testing.T) {
	p := NewPool(3, 100)
	var n atomic.Int32
	for i := 0; i < 50; i++ {
		assert.True(t, p.Submit(func() { n.Add(1) }))
	}
	p.Stop()
	assert.Equal(t, int32(50), n.Load())
	assert.False(t, p.Submit(func() {}), "stopped pool rejects work")
	p.Stop()
}

func TestPoolBackpressure(t *testing.T) {
	block := make(chan struct{})
	p := NewPool(1, 1)
	defer p.Stop()
	defer close(block)

	started := make(chan struct{})
	assert.True(t, p.Submit(func() { close(started); <-block }))
	<-started
	assert.True(t, p.Submit(func() {}))
	assert.False(t, p.Submit(func() {}), "full queue rejects work")
}

func TestPoolSurvivesPanic(t *testing.T) {
	p := NewPool(1, 4)
	var ran atomic.Bool
	p.Submit(func() { panic("boom") })
	p.Submit(func() { ran.Store(true) })
	p.Stop()
	assert.True(t, ran.Load())
}
