package rpstats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBumpIncrements(t *testing.T) {
	before := Get(IllegalAction)
	Bump(IllegalAction)
	Bump(IllegalAction)
	assert.Equal(t, before+2, Get(IllegalAction))
}

func TestGetUnknownCounterIsZero(t *testing.T) {
	assert.Equal(t, int64(0), Get("never_bumped_counter"))
}

func TestBumpConcurrentSafe(t *testing.T) {
	const name = "concurrent_counter"
	before := Get(name)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Bump(name)
		}()
	}
	wg.Wait()
	assert.Equal(t, before+100, Get(name))
}

func TestSnapshotIncludesBumpedCounters(t *testing.T) {
	Bump(ClientStuck)
	snap := Snapshot()
	assert.GreaterOrEqual(t, snap[ClientStuck], int64(1))
}
