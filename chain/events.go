package chain

import "fmt"

// Event is a typed entry of the per-block event log.
type Event interface {
	// Module names the runtime module that emitted the event. Collective
	// events report their instance.
	Module() string
	Variant() string
}

type PhaseKind uint8

const (
	Initialization PhaseKind = iota
	ApplyExtrinsic
	Finalization
)

type Phase struct {
	Kind      PhaseKind
	Extrinsic uint32
}

func (p Phase) String() string {
	switch p.Kind {
	case Initialization:
		return "Initialization"
	case ApplyExtrinsic:
		return fmt.Sprintf("ApplyExtrinsic(%d)", p.Extrinsic)
	default:
		return "Finalization"
	}
}

type EventRecord struct {
	Phase Phase
	Event Event
}

func (r EventRecord) String() string {
	return fmt.Sprintf("%s.%s@%s", r.Event.Module(), r.Event.Variant(), r.Phase)
}

const (
	systemModule    = "System"
	democracyModule = "Democracy"
)

type ExtrinsicSuccess struct{}

func (ExtrinsicSuccess) Module() string  { return systemModule }
func (ExtrinsicSuccess) Variant() string { return "ExtrinsicSuccess" }

type ExtrinsicFailed struct {
	Err string
}

func (ExtrinsicFailed) Module() string  { return systemModule }
func (ExtrinsicFailed) Variant() string { return "ExtrinsicFailed" }

// CodeUpdated marks the replacement of the runtime code.
type CodeUpdated struct{}

func (CodeUpdated) Module() string  { return systemModule }
func (CodeUpdated) Variant() string { return "CodeUpdated" }

type PreimageNoted struct {
	Hash    Hash
	Who     AccountID
	Deposit Balance
}

func (PreimageNoted) Module() string  { return democracyModule }
func (PreimageNoted) Variant() string { return "PreimageNoted" }

type PreimageUsed struct {
	Hash     Hash
	Provider AccountID
	Deposit  Balance
}

func (PreimageUsed) Module() string  { return democracyModule }
func (PreimageUsed) Variant() string { return "PreimageUsed" }

type ReferendumStarted struct {
	Index     uint32
	Threshold VoteThreshold
}

func (ReferendumStarted) Module() string  { return democracyModule }
func (ReferendumStarted) Variant() string { return "Started" }

type ReferendumPassed struct {
	Index uint32
}

func (ReferendumPassed) Module() string  { return democracyModule }
func (ReferendumPassed) Variant() string { return "Passed" }

type ReferendumNotPassed struct {
	Index uint32
}

func (ReferendumNotPassed) Module() string  { return democracyModule }
func (ReferendumNotPassed) Variant() string { return "NotPassed" }

// ReferendumExecuted reports the dispatch result of an enacted referendum.
type ReferendumExecuted struct {
	Index uint32
	Ok    bool
}

func (ReferendumExecuted) Module() string  { return democracyModule }
func (ReferendumExecuted) Variant() string { return "Executed" }

type MotionProposed struct {
	Instance  Instance
	Account   AccountID
	Index     uint32
	Hash      Hash
	Threshold uint32
}

func (e MotionProposed) Module() string { return e.Instance.String() }
func (MotionProposed) Variant() string  { return "Proposed" }

type MotionVoted struct {
	Instance Instance
	Account  AccountID
	Hash     Hash
	Aye      bool
	Yes      uint32
	No       uint32
}

func (e MotionVoted) Module() string { return e.Instance.String() }
func (MotionVoted) Variant() string  { return "Voted" }

type MotionApproved struct {
	Instance Instance
	Hash     Hash
}

func (e MotionApproved) Module() string { return e.Instance.String() }
func (MotionApproved) Variant() string  { return "Approved" }

type MotionDisapproved struct {
	Instance Instance
	Hash     Hash
}

func (e MotionDisapproved) Module() string { return e.Instance.String() }
func (MotionDisapproved) Variant() string  { return "Disapproved" }

// MotionExecuted carries the dispatch result of an approved motion; an empty
// Err means the call succeeded.
type MotionExecuted struct {
	Instance Instance
	Hash     Hash
	Err      string
}

func (e MotionExecuted) Module() string { return e.Instance.String() }
func (MotionExecuted) Variant() string  { return "Executed" }

func (e MotionExecuted) Ok() bool { return e.Err == "" }

type MotionClosed struct {
	Instance Instance
	Hash     Hash
	Yes      uint32
	No       uint32
}

func (e MotionClosed) Module() string { return e.Instance.String() }
func (MotionClosed) Variant() string  { return "Closed" }
