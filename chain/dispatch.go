package chain

import (
	"github.com/pkg/errors"
)

var (
	ErrBadOrigin         = errors.New("bad origin")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnknownAccount    = errors.New("unknown account")
)

// Origin is the authority a call is dispatched with.
type Origin interface {
	origin()
}

type SignedOrigin struct {
	Who AccountID
}

type RootOrigin struct{}

// CollectiveOrigin is the origin of a call dispatched by an approved motion.
type CollectiveOrigin struct {
	Instance Instance
	Yes      uint32
	Seats    uint32
}

func (SignedOrigin) origin()     {}
func (RootOrigin) origin()       {}
func (CollectiveOrigin) origin() {}

func ensureSigned(o Origin) (AccountID, error) {
	s, ok := o.(SignedOrigin)
	if !ok {
		return AccountID{}, ErrBadOrigin
	}
	return s.Who, nil
}

func ensureRoot(o Origin) error {
	if _, ok := o.(RootOrigin); !ok {
		return ErrBadOrigin
	}
	return nil
}

// ensureProportionAtLeast accepts a collective origin of inst whose ayes make up
// at least n/d of the seats.
func ensureProportionAtLeast(o Origin, inst Instance, n, d uint32) error {
	c, ok := o.(CollectiveOrigin)
	if !ok || c.Instance != inst {
		return ErrBadOrigin
	}
	if uint64(c.Yes)*uint64(d) < uint64(n)*uint64(c.Seats) {
		return errors.Wrapf(ErrBadOrigin, "%s approval %d/%d below %d/%d", inst, c.Yes, c.Seats, n, d)
	}
	return nil
}

// execution is the context of one block: hooks and extrinsics deposit events through it.
type execution struct {
	state *State
	phase Phase
}

func (x *execution) now() BlockNumber {
	return x.state.Number
}

func (x *execution) params() Params {
	return x.state.params
}

func (x *execution) deposit(e Event) {
	x.state.Events = append(x.state.Events, EventRecord{Phase: x.phase, Event: e})
}

func (x *execution) reserve(who AccountID, amount Balance) error {
	a, ok := x.state.account(who)
	if !ok {
		return ErrUnknownAccount
	}
	if a.Free < amount {
		return errors.Wrapf(ErrInsufficientFunds, "reserve %d of free %d", amount, a.Free)
	}
	a.Free -= amount
	a.Reserved += amount
	return nil
}

func (x *execution) unreserve(who AccountID, amount Balance) {
	a, ok := x.state.account(who)
	if !ok {
		return
	}
	if amount > a.Reserved {
		amount = a.Reserved
	}
	a.Reserved -= amount
	a.Free += amount
}

func (x *execution) dispatch(c Call, o Origin) error {
	if c == nil {
		return ErrEmptyCall
	}
	return c.dispatch(x, o)
}
