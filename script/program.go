package script

import "github.com/milk9111/danmaku/common"

const (
	MaxLoopDepth = 8
	MaxVars      = 8
)

// Program is an immutable compiled script. Many entities may run the same
// Program; everything that changes while running lives in State.
type Program struct {
	Name string
	Code []Instruction
	Vars []string
}

func (p *Program) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Code)
}

type Loop struct {
	Repeat int // pc of the repeat instruction
	End    int // pc of the matching end
	Left   int // iterations to run, Forever for unbounded
	Index  int // completed iterations
}

// State is the per-entity execution state of a Program. The zero value is
// ready to run from the first instruction.
type State struct {
	PC        int
	Countdown int
	Busy      bool
	Loops     [MaxLoopDepth]Loop
	Depth     int
	Vars      [MaxVars]float64
	Shots     int
	Step      common.Vec
	Target    common.Vec
	Finished  bool
}

func (s *State) Reset() {
	if s == nil {
		return
	}
	*s = State{}
}

func (s *State) loopIndex() int {
	if s.Depth == 0 {
		return 0
	}
	return s.Loops[s.Depth-1].Index
}
