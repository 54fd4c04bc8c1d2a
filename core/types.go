package core

import (
	"fmt"

	"github.com/axiomesh/upgrader/chain"
)

// Stage is a step of the upgrade workflow. Stages run in declaration order.
type Stage uint8

const (
	Start Stage = iota
	PreimageNoted
	CouncilProposed
	CouncilVoted
	CouncilClosed
	TechnicalProposed
	TechnicalVoted
	TechnicalClosed
	ReferendumStarted
	ReferendumVoted
	WaitEnactment
	Enacted
	PostUpgrade
)

var stageNames = [...]string{
	Start:             "Start",
	PreimageNoted:     "PreimageNoted",
	CouncilProposed:   "CouncilProposed",
	CouncilVoted:      "CouncilVoted",
	CouncilClosed:     "CouncilClosed",
	TechnicalProposed: "TechnicalProposed",
	TechnicalVoted:    "TechnicalVoted",
	TechnicalClosed:   "TechnicalClosed",
	ReferendumStarted: "ReferendumStarted",
	ReferendumVoted:   "ReferendumVoted",
	WaitEnactment:     "WaitEnactment",
	Enacted:           "Enacted",
	PostUpgrade:       "PostUpgrade",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", s)
}

// MotionRef identifies a collective motion by index and call hash.
type MotionRef struct {
	Index uint32
	Hash  chain.Hash
}

// Outcome is what a completed upgrade run hands back to the caller.
type Outcome struct {
	// Node is the live ledger, left running for post-upgrade checks
	Node Client

	ProposalHash    chain.Hash
	CouncilMotion   MotionRef
	TechnicalMotion MotionRef
	Referendum      uint32

	// ReferendumEnd is the block at which the referendum was baked and enacted
	ReferendumEnd chain.BlockNumber
	VotingPeriod  chain.BlockNumber
}
