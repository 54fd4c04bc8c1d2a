package core

import (
	"github.com/axiomesh/upgrader/chain"
)

// Client is the ledger node the upgrader drives. Submit queues a signed call,
// Seal blocks until n blocks are produced, Query reads the latest state.
type Client interface {
	Submit(call chain.Call, signer chain.AccountID) error

	Seal(n int) error

	Query(fn func(chain.View) error) error
}

var _ Client = (*chain.Node)(nil)

func query[T any](c Client, fn func(chain.View) T) (T, error) {
	var out T
	err := c.Query(func(v chain.View) error {
		out = fn(v)
		return nil
	})
	return out, err
}

func events(c Client) ([]chain.EventRecord, error) {
	return query(c, chain.View.Events)
}

var _ Client = (*MockClient)(nil)

// MockClient replays a fixed event log per block and records submissions.
type MockClient struct {
	// Blocks[i] is the event log of block i+1
	Blocks [][]chain.EventRecord

	// Members answers membership reads
	Members map[chain.Instance][]chain.AccountID

	SubmitErr error

	Submitted []MockSubmission
	sealed    int
}

type MockSubmission struct {
	Call   chain.Call
	Signer chain.AccountID
}

func (mc *MockClient) Submit(call chain.Call, signer chain.AccountID) error {
	if mc.SubmitErr != nil {
		return mc.SubmitErr
	}
	mc.Submitted = append(mc.Submitted, MockSubmission{Call: call, Signer: signer})
	return nil
}

func (mc *MockClient) Seal(n int) error {
	if n < 1 {
		return chain.ErrNothingToSeal
	}
	mc.sealed += n
	return nil
}

func (mc *MockClient) Query(fn func(chain.View) error) error {
	return fn(&mockView{mc: mc})
}

// mockView answers the reads the upgrader makes; everything else is zero.
type mockView struct {
	chain.View
	mc *MockClient
}

func (v *mockView) Events() []chain.EventRecord {
	i := v.mc.sealed - 1
	if i < 0 || i >= len(v.mc.Blocks) {
		return nil
	}
	return append([]chain.EventRecord{}, v.mc.Blocks[i]...)
}

func (v *mockView) Members(inst chain.Instance) []chain.AccountID {
	return append([]chain.AccountID{}, v.mc.Members[inst]...)
}

func (v *mockView) BlockNumber() chain.BlockNumber {
	return chain.BlockNumber(v.mc.sealed)
}

func (v *mockView) Params() chain.Params {
	return chain.DefaultParams()
}

func (v *mockView) SpecVersion() uint32 {
	return 0
}
