package tree

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEdgeUpdateStatsReversesVirtualLoss(t *testing.T) {
	e := newEdge(0.5)
	e.AddVirtualLoss(1)
	assert.Equal(t, float32(1), e.VirtualLoss())

	e.UpdateStats(0.7, 1)
	assert.Equal(t, float32(0), e.VirtualLoss(), "UpdateStats must reverse the virtual loss it is given")
	assert.Equal(t, uint32(1), e.NumVisits())
	assert.Equal(t, float32(0.7), e.Q())
}

func TestEdgeSetChildNodeIDFirstCallerWins(t *testing.T) {
	e := newEdge(0)
	assert.Equal(t, InvalidNodeID, e.ChildNodeID())

	var wg sync.WaitGroup
	winners := make(chan NodeID, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(id NodeID) {
			defer wg.Done()
			winners <- e.setChildNodeID(id)
		}(NodeID(i))
	}
	wg.Wait()
	close(winners)

	first := <-winners
	for w := range winners {
		assert.Equal(t, first, w, "every caller must see the same winning id")
	}
	assert.Equal(t, first, e.ChildNodeID())
}

func TestEdgeQZeroWhenUnvisited(t *testing.T) {
	e := newEdge(0.2)
	assert.Equal(t, float32(0), e.Q())
}
