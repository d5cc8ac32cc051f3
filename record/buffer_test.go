package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blackWinRecord() Record { return Record{Result: Result{Reward: 1}} }
func whiteWinRecord() Record { return Record{Result: Result{Reward: -1}} }
func drawRecord() Record     { return Record{Result: Result{Reward: 0}} }

func TestRequestSameIdentityIgnoresResignThres(t *testing.T) {
	r := Request{Vers: ModelPair{BlackVer: 3, WhiteVer: -1}, Async: true}
	same := Request{Vers: ModelPair{BlackVer: 3, WhiteVer: -1}, Async: true, ResignThres: 0.1}
	different := Request{Vers: ModelPair{BlackVer: 4, WhiteVer: -1}, Async: true}

	assert.True(t, r.SameIdentity(same), "ResignThres is not part of Identity")
	assert.False(t, r.SameIdentity(different))
}

// TestReplayBufferParityBalancing feeds one queue (numReaders=1, so every
// insert lands in the same queue) a handful of white wins followed by a
// long run of black wins, well past the queue's capacity. Plain FIFO
// eviction would have dropped every one of the early white-win records
// by the time the run ends; queue.evictLocked's majority-bucket bias
// should instead keep evicting black wins once black becomes the
// majority, letting the white-win minority survive.
func TestReplayBufferParityBalancing(t *testing.T) {
	buf := NewReplayBuffer(1, 4, 50, false, 1)

	for i := 0; i < 10; i++ {
		buf.Insert(whiteWinRecord())
	}
	for i := 0; i < 90; i++ {
		buf.Insert(blackWinRecord())
	}

	q := buf.queues[0]
	require.Equal(t, 50, q.len())
	// Plain FIFO (evict oldest, regardless of bucket) would leave the
	// queue holding only the 50 most recent inserts: all black wins.
	assert.Greater(t, q.whiteWins, 0, "minority bucket should survive majority-biased eviction")
}

// TestReplayBufferPickQueueBiasesTowardMinority checks pickQueue directly:
// given one queue already skewed toward black wins and one empty queue,
// a white-win insert should prefer the skewed queue, since that is where
// white is most underrepresented.
func TestReplayBufferPickQueueBiasesTowardMinority(t *testing.T) {
	buf := NewReplayBuffer(2, 4, 100, false, 2)
	for i := 0; i < 20; i++ {
		buf.queues[0].push(blackWinRecord())
	}

	counts := map[int]int{}
	for i := 0; i < 200; i++ {
		counts[buf.pickQueue(-1)]++
	}
	assert.Greater(t, counts[0], counts[1], "white-win inserts should favor the black-skewed queue to correct it")
}

func TestReplayBufferPromoteClearsCounts(t *testing.T) {
	buf := NewReplayBuffer(1, 1, 10, false, 3)
	buf.Insert(blackWinRecord())
	buf.Insert(whiteWinRecord())
	buf.Insert(drawRecord())
	require.Equal(t, 3, buf.Len())

	buf.Promote()
	assert.Equal(t, 0, buf.Len())
	assert.Equal(t, 0, buf.queues[0].blackWins)
	assert.Equal(t, 0, buf.queues[0].whiteWins)
}

func TestReplayBufferPromoteKeepsPrevSelfplay(t *testing.T) {
	buf := NewReplayBuffer(1, 1, 10, true, 4)
	buf.Insert(blackWinRecord())
	buf.Promote()
	assert.Equal(t, 1, buf.Len())
}
