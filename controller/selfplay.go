package controller

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/distmcts/core/corerr"
	"github.com/distmcts/core/record"
)

// WaitStatus is the result of NeedWaitForMoreSamples (spec section 4.5).
type WaitStatus int

const (
	WaitSufficient WaitStatus = iota
	WaitInsufficient
)

// SelfplayController holds the current model version and accumulates
// self-play game counts toward the next weight update (spec section 4.5).
type SelfplayController struct {
	mu sync.Mutex

	currentVer   int64
	prevVer      int64
	countsByVer  map[int64]int
	numUpdates   int

	initNum   int
	updateNum int

	resign *ResignCalculator

	saveFn func(ver int64, count int)
}

// NewSelfplayController builds a controller starting at initialVer, with
// the replay-buffer pacing thresholds of spec section 6's option table.
func NewSelfplayController(initialVer int64, initNum, updateNum int, resign *ResignCalculator, saveFn func(ver int64, count int)) *SelfplayController {
	return &SelfplayController{
		currentVer:  initialVer,
		prevVer:     initialVer,
		countsByVer: make(map[int64]int),
		initNum:     initNum,
		updateNum:   updateNum,
		resign:      resign,
		saveFn:      saveFn,
	}
}

// CurrentModel returns the controller's current model version.
func (s *SelfplayController) CurrentModel() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentVer
}

// SetCurrentModel installs v as the current model, remembering the
// previous version (spec section 4.5).
func (s *SelfplayController) SetCurrentModel(v int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prevVer = s.currentVer
	s.currentVer = v
	s.numUpdates = 0
}

// Feed ingests a completed self-play record. Records targeting a
// non-current model are rejected with ErrRecordVersionMismatch (still
// eligible for replay-buffer insertion by the caller, per spec section 7,
// but not counted toward the current model's quota).
func (s *SelfplayController) Feed(r record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.Request.Vers.BlackVer != s.currentVer {
		return errors.WithStack(corerr.ErrRecordVersionMismatch)
	}
	s.countsByVer[s.currentVer]++
	count := s.countsByVer[s.currentVer]

	if r.Result.NeverResign && s.resign != nil && len(r.Result.PredictedValues) > 0 {
		s.resign.Observe(minFloat32Slice(r.Result.PredictedValues))
	}

	if count == s.initNum || (count > s.initNum && s.updateNum > 0 && (count-s.initNum)%s.updateNum == 0) {
		s.numUpdates++
		if s.saveFn != nil {
			s.saveFn(s.currentVer, count)
		}
	}
	return nil
}

// NeedWaitForMoreSamples reports whether v has accumulated enough self-play
// games for the next weight update (spec section 4.5).
func (s *SelfplayController) NeedWaitForMoreSamples(v int64) WaitStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	need := s.initNum + s.updateNum*s.numUpdates
	if s.countsByVer[v] < need {
		return WaitInsufficient
	}
	return WaitSufficient
}

// FillInRequest builds the next self-play Request for a polling client
// (spec section 4.5): black plays the current model, white is self-play
// (-1), and the resign threshold comes from the resign calculator.
func (s *SelfplayController) FillInRequest(async bool, neverResignProb float32) record.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	var thres float32
	if s.resign != nil {
		thres = s.resign.Threshold()
	}
	return record.Request{
		Vers:            record.ModelPair{BlackVer: s.currentVer, WhiteVer: -1},
		ResignThres:     thres,
		NeverResignProb: neverResignProb,
		Async:           async,
	}
}

func minFloat32Slice(vals []float32) float32 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
