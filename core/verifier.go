package core

import (
	"fmt"
	"strings"

	"github.com/axiomesh/upgrader/chain"
	"github.com/samber/lo"
)

// Pattern accepts the event variants a milestone is made of.
type Pattern func(chain.Event) bool

// Is matches events of type E accepted by pred; a nil pred accepts every E.
func Is[E chain.Event](pred func(E) bool) Pattern {
	return func(e chain.Event) bool {
		x, ok := e.(E)
		return ok && (pred == nil || pred(x))
	}
}

type CountMismatchError struct {
	Want int
	Got  int
	Seen []string
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("expected exactly %d milestone events, found %d: [%s]", e.Want, e.Got, strings.Join(e.Seen, ", "))
}

// ExpectExactly requires the snapshot to hold exactly want events matching any
// of patterns. Too few and too many both fail.
func ExpectExactly(records []chain.EventRecord, want int, patterns ...Pattern) error {
	seen := lo.Filter(records, func(r chain.EventRecord, _ int) bool {
		return lo.ContainsBy(patterns, func(p Pattern) bool {
			return p(r.Event)
		})
	})
	if len(seen) != want {
		return &CountMismatchError{
			Want: want,
			Got:  len(seen),
			Seen: lo.Map(seen, func(r chain.EventRecord, _ int) string { return r.String() }),
		}
	}
	return nil
}

// motionPassed are the events of a motion that closed, was approved and executed without error.
func motionPassed(inst chain.Instance, hash chain.Hash) []Pattern {
	return []Pattern{
		Is(func(e chain.MotionClosed) bool { return e.Instance == inst && e.Hash == hash }),
		Is(func(e chain.MotionApproved) bool { return e.Instance == inst && e.Hash == hash }),
		Is(func(e chain.MotionExecuted) bool { return e.Instance == inst && e.Hash == hash && e.Ok() }),
	}
}

// referendumEnacted are the events of a referendum that passed and replaced the runtime code.
func referendumEnacted(index uint32, proposal chain.Hash) []Pattern {
	return []Pattern{
		Is[chain.CodeUpdated](nil),
		Is(func(e chain.ReferendumPassed) bool { return e.Index == index }),
		Is(func(e chain.PreimageUsed) bool { return e.Hash == proposal }),
		Is(func(e chain.ReferendumExecuted) bool { return e.Index == index && e.Ok }),
	}
}
