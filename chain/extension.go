package chain

import (
	"github.com/pkg/errors"
)

var (
	ErrBadSpecVersion    = errors.New("invalid transaction: spec version mismatch")
	ErrBadTxVersion      = errors.New("invalid transaction: transaction version mismatch")
	ErrBadGenesis        = errors.New("invalid transaction: genesis hash mismatch")
	ErrMortalEra         = errors.New("invalid transaction: only immortal transactions are accepted")
	ErrStaleNonce        = errors.New("invalid transaction: stale nonce")
	ErrFutureNonce       = errors.New("invalid transaction: future nonce")
	ErrExhaustsResources = errors.New("invalid transaction: exhausts block resources")
	ErrPayment           = errors.New("invalid transaction: cannot pay fees")
	errBlockFull         = errors.New("block weight limit reached")
)

// Extrinsic is a signed transaction envelope. Signatures are not verified:
// the claimed signer is trusted.
type Extrinsic struct {
	_           struct{} `cbor:",toarray"`
	Signer      AccountID
	Call        BoxedCall
	SpecVersion uint32
	TxVersion   uint32
	Genesis     Hash
	Era         uint64
	Nonce       uint64
	Tip         Balance
}

func (xt *Extrinsic) Encode() ([]byte, error) {
	return encMode.Marshal(xt)
}

func DecodeExtrinsic(data []byte) (*Extrinsic, error) {
	xt := &Extrinsic{}
	if err := decMode.Unmarshal(data, xt); err != nil {
		return nil, errors.Wrap(err, "decode extrinsic")
	}
	return xt, nil
}

// extensionContext carries what extensions need to annotate or check an envelope.
type extensionContext struct {
	state  *State
	length int

	// pending counts envelopes of an account already queued; nil at inclusion
	pending func(AccountID) uint64
}

func (c *extensionContext) atInclusion() bool {
	return c.pending == nil
}

// SignedExtension is one step of the envelope pipeline. Extensions run in
// order: Annotate when the envelope is built, Validate at submission and again
// at inclusion, PreDispatch once the envelope is included in a block.
type SignedExtension interface {
	Identifier() string
	Annotate(ctx *extensionContext, xt *Extrinsic) error
	Validate(ctx *extensionContext, xt *Extrinsic) error
	PreDispatch(ctx *extensionContext, xt *Extrinsic) error
}

// DefaultExtensions is the pipeline every envelope passes through.
func DefaultExtensions() []SignedExtension {
	return []SignedExtension{
		CheckSpecVersion{},
		CheckTxVersion{},
		CheckGenesis{},
		CheckMortality{},
		CheckNonce{},
		CheckWeight{},
		ChargeTransactionPayment{},
	}
}

type CheckSpecVersion struct{}

func (CheckSpecVersion) Identifier() string { return "CheckSpecVersion" }

func (CheckSpecVersion) Annotate(ctx *extensionContext, xt *Extrinsic) error {
	xt.SpecVersion = ctx.state.system.SpecVersion
	return nil
}

func (CheckSpecVersion) Validate(ctx *extensionContext, xt *Extrinsic) error {
	if xt.SpecVersion != ctx.state.system.SpecVersion {
		return errors.Wrapf(ErrBadSpecVersion, "%d != %d", xt.SpecVersion, ctx.state.system.SpecVersion)
	}
	return nil
}

func (CheckSpecVersion) PreDispatch(*extensionContext, *Extrinsic) error { return nil }

type CheckTxVersion struct{}

func (CheckTxVersion) Identifier() string { return "CheckTxVersion" }

func (CheckTxVersion) Annotate(ctx *extensionContext, xt *Extrinsic) error {
	xt.TxVersion = ctx.state.system.TxVersion
	return nil
}

func (CheckTxVersion) Validate(ctx *extensionContext, xt *Extrinsic) error {
	if xt.TxVersion != ctx.state.system.TxVersion {
		return ErrBadTxVersion
	}
	return nil
}

func (CheckTxVersion) PreDispatch(*extensionContext, *Extrinsic) error { return nil }

type CheckGenesis struct{}

func (CheckGenesis) Identifier() string { return "CheckGenesis" }

func (CheckGenesis) Annotate(ctx *extensionContext, xt *Extrinsic) error {
	xt.Genesis = ctx.state.GenesisHash
	return nil
}

func (CheckGenesis) Validate(ctx *extensionContext, xt *Extrinsic) error {
	if xt.Genesis != ctx.state.GenesisHash {
		return ErrBadGenesis
	}
	return nil
}

func (CheckGenesis) PreDispatch(*extensionContext, *Extrinsic) error { return nil }

// CheckMortality only admits immortal envelopes (era 0).
type CheckMortality struct{}

func (CheckMortality) Identifier() string { return "CheckMortality" }

func (CheckMortality) Annotate(_ *extensionContext, xt *Extrinsic) error {
	xt.Era = 0
	return nil
}

func (CheckMortality) Validate(_ *extensionContext, xt *Extrinsic) error {
	if xt.Era != 0 {
		return ErrMortalEra
	}
	return nil
}

func (CheckMortality) PreDispatch(*extensionContext, *Extrinsic) error { return nil }

type CheckNonce struct{}

func (CheckNonce) Identifier() string { return "CheckNonce" }

func (CheckNonce) Annotate(ctx *extensionContext, xt *Extrinsic) error {
	a, ok := ctx.state.account(xt.Signer)
	if !ok {
		return ErrUnknownAccount
	}
	xt.Nonce = a.Nonce
	if ctx.pending != nil {
		xt.Nonce += ctx.pending(xt.Signer)
	}
	return nil
}

func (CheckNonce) Validate(ctx *extensionContext, xt *Extrinsic) error {
	a, ok := ctx.state.account(xt.Signer)
	if !ok {
		return ErrUnknownAccount
	}
	if xt.Nonce < a.Nonce {
		return errors.Wrapf(ErrStaleNonce, "%d < %d", xt.Nonce, a.Nonce)
	}
	if ctx.atInclusion() && xt.Nonce > a.Nonce {
		return errors.Wrapf(ErrFutureNonce, "%d > %d", xt.Nonce, a.Nonce)
	}
	return nil
}

func (CheckNonce) PreDispatch(ctx *extensionContext, xt *Extrinsic) error {
	a, _ := ctx.state.account(xt.Signer)
	a.Nonce++
	return nil
}

type CheckWeight struct{}

func (CheckWeight) Identifier() string { return "CheckWeight" }

func (CheckWeight) Annotate(*extensionContext, *Extrinsic) error { return nil }

func (CheckWeight) Validate(ctx *extensionContext, xt *Extrinsic) error {
	w := xt.Call.Call.Weight()
	limit := ctx.state.params.MaxBlockWeight
	if w > limit {
		return errors.Wrapf(ErrExhaustsResources, "weight %d over block limit %d", w, limit)
	}
	if ctx.atInclusion() && ctx.state.BlockWeight+w > limit {
		return errBlockFull
	}
	return nil
}

func (CheckWeight) PreDispatch(ctx *extensionContext, xt *Extrinsic) error {
	ctx.state.BlockWeight += xt.Call.Call.Weight()
	return nil
}

// ChargeTransactionPayment withdraws base fee, length fee and tip from the signer.
type ChargeTransactionPayment struct{}

func (ChargeTransactionPayment) Identifier() string { return "ChargeTransactionPayment" }

func (ChargeTransactionPayment) Annotate(*extensionContext, *Extrinsic) error { return nil }

func (ChargeTransactionPayment) fee(ctx *extensionContext, xt *Extrinsic) Balance {
	p := ctx.state.params
	return p.BaseFee + p.ByteFee*Balance(ctx.length) + xt.Tip
}

func (c ChargeTransactionPayment) Validate(ctx *extensionContext, xt *Extrinsic) error {
	a, ok := ctx.state.account(xt.Signer)
	if !ok {
		return ErrUnknownAccount
	}
	if fee := c.fee(ctx, xt); a.Free < fee {
		return errors.Wrapf(ErrPayment, "fee %d, free %d", fee, a.Free)
	}
	return nil
}

func (c ChargeTransactionPayment) PreDispatch(ctx *extensionContext, xt *Extrinsic) error {
	a, _ := ctx.state.account(xt.Signer)
	a.Free -= c.fee(ctx, xt)
	return nil
}
