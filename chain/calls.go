package chain

import "fmt"

const (
	systemPallet    uint8 = 0
	democracyPallet uint8 = 14
	councilPallet   uint8 = 15
	technicalPallet uint8 = 16
)

type CallIndex struct {
	Pallet uint8
	Call   uint8
}

// Call is a dispatchable runtime call. The set of calls is closed: only this
// package can define them.
type Call interface {
	Index() CallIndex
	Name() string
	Weight() Weight

	dispatch(x *execution, origin Origin) error
}

const (
	setCodeWeight        Weight = 200_000_000
	notePreimageWeight   Weight = 50_000_000
	externalWeight       Weight = 30_000_000
	fastTrackWeight      Weight = 40_000_000
	referendumVoteWeight Weight = 50_000_000
	proposeWeight        Weight = 150_000_000
	motionVoteWeight     Weight = 60_000_000
	closeWeight          Weight = 150_000_000
)

// SetCode replaces the runtime code. Root only.
type SetCode struct {
	_    struct{} `cbor:",toarray"`
	Code []byte
}

func (SetCode) Index() CallIndex { return CallIndex{Pallet: systemPallet, Call: 3} }
func (SetCode) Name() string     { return "System.set_code" }
func (SetCode) Weight() Weight   { return setCodeWeight }

// NotePreimage registers the encoding of a call under its hash.
type NotePreimage struct {
	_       struct{} `cbor:",toarray"`
	Encoded []byte
}

func (NotePreimage) Index() CallIndex { return CallIndex{Pallet: democracyPallet, Call: 15} }
func (NotePreimage) Name() string     { return "Democracy.note_preimage" }
func (NotePreimage) Weight() Weight   { return notePreimageWeight }

type ExternalPropose struct {
	_            struct{} `cbor:",toarray"`
	ProposalHash Hash
}

func (ExternalPropose) Index() CallIndex { return CallIndex{Pallet: democracyPallet, Call: 4} }
func (ExternalPropose) Name() string     { return "Democracy.external_propose" }
func (ExternalPropose) Weight() Weight   { return externalWeight }

// ExternalProposeMajority schedules a simple-majority external referendum.
type ExternalProposeMajority struct {
	_            struct{} `cbor:",toarray"`
	ProposalHash Hash
}

func (ExternalProposeMajority) Index() CallIndex {
	return CallIndex{Pallet: democracyPallet, Call: 5}
}
func (ExternalProposeMajority) Name() string   { return "Democracy.external_propose_majority" }
func (ExternalProposeMajority) Weight() Weight { return externalWeight }

type ExternalProposeDefault struct {
	_            struct{} `cbor:",toarray"`
	ProposalHash Hash
}

func (ExternalProposeDefault) Index() CallIndex {
	return CallIndex{Pallet: democracyPallet, Call: 6}
}
func (ExternalProposeDefault) Name() string   { return "Democracy.external_propose_default" }
func (ExternalProposeDefault) Weight() Weight { return externalWeight }

// FastTrack turns the next external proposal into a referendum immediately.
type FastTrack struct {
	_            struct{} `cbor:",toarray"`
	ProposalHash Hash
	VotingPeriod BlockNumber
	Delay        BlockNumber
}

func (FastTrack) Index() CallIndex { return CallIndex{Pallet: democracyPallet, Call: 7} }
func (FastTrack) Name() string     { return "Democracy.fast_track" }
func (FastTrack) Weight() Weight   { return fastTrackWeight }

// Vote casts or replaces a referendum vote.
type Vote struct {
	_        struct{} `cbor:",toarray"`
	RefIndex uint32
	Vote     AccountVote
}

func (Vote) Index() CallIndex { return CallIndex{Pallet: democracyPallet, Call: 2} }
func (Vote) Name() string     { return "Democracy.vote" }
func (Vote) Weight() Weight   { return referendumVoteWeight }

// Propose opens a motion in a collective.
type Propose struct {
	_           struct{} `cbor:",toarray"`
	Instance    Instance `cbor:"-"`
	Threshold   uint32
	Proposal    BoxedCall
	LengthBound uint32
}

func (p Propose) Index() CallIndex { return CallIndex{Pallet: p.Instance.pallet(), Call: 2} }
func (p Propose) Name() string     { return fmt.Sprintf("%s.propose", p.Instance) }
func (Propose) Weight() Weight     { return proposeWeight }
func (p Propose) withInstance(i Instance) Call {
	p.Instance = i
	return p
}

type CollectiveVote struct {
	_           struct{} `cbor:",toarray"`
	Instance    Instance `cbor:"-"`
	Proposal    Hash
	MotionIndex uint32
	Approve     bool
}

func (v CollectiveVote) Index() CallIndex { return CallIndex{Pallet: v.Instance.pallet(), Call: 3} }
func (v CollectiveVote) Name() string     { return fmt.Sprintf("%s.vote", v.Instance) }
func (CollectiveVote) Weight() Weight     { return motionVoteWeight }
func (v CollectiveVote) withInstance(i Instance) Call {
	v.Instance = i
	return v
}

// Close ends a motion, dispatching it when approved.
type Close struct {
	_           struct{} `cbor:",toarray"`
	Instance    Instance `cbor:"-"`
	Proposal    Hash
	MotionIndex uint32
	WeightBound Weight
	LengthBound uint32
}

func (c Close) Index() CallIndex { return CallIndex{Pallet: c.Instance.pallet(), Call: 4} }
func (c Close) Name() string     { return fmt.Sprintf("%s.close", c.Instance) }

// Weight covers the close itself plus the declared bound of the proposal it may dispatch.
func (c Close) Weight() Weight {
	if c.WeightBound > MaxWeight-closeWeight {
		return MaxWeight
	}
	return closeWeight + c.WeightBound
}

func (c Close) withInstance(i Instance) Call {
	c.Instance = i
	return c
}
