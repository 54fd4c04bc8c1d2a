package chain

import (
	"math/big"

	"github.com/pkg/errors"
)

var (
	ErrDuplicatePreimage = errors.New("democracy: preimage already noted")
	ErrExternalExists    = errors.New("democracy: next external proposal already set")
	ErrNoExternal        = errors.New("democracy: no external proposal")
	ErrInvalidHash       = errors.New("democracy: proposal hash does not match next external")
	ErrVotingPeriodLow   = errors.New("democracy: voting period too low")
	ErrInstantNotAllowed = errors.New("democracy: instant referenda not allowed")
	ErrReferendumInvalid = errors.New("democracy: referendum is not ongoing")
	ErrInvalidConviction = errors.New("democracy: invalid conviction")
)

func (n NotePreimage) dispatch(x *execution, o Origin) error {
	who, err := ensureSigned(o)
	if err != nil {
		return err
	}

	d := &x.state.democracy
	hash := HashOf(n.Encoded)
	if _, ok := d.Preimages[hash]; ok {
		return ErrDuplicatePreimage
	}

	deposit := Balance(len(n.Encoded)) * x.params().PreimageByteDeposit
	if err := x.reserve(who, deposit); err != nil {
		return err
	}

	d.Preimages[hash] = &preimage{
		Data:     append([]byte{}, n.Encoded...),
		Provider: who,
		Deposit:  deposit,
		Since:    x.now(),
	}
	x.deposit(PreimageNoted{Hash: hash, Who: who, Deposit: deposit})
	return nil
}

func (e ExternalPropose) dispatch(x *execution, o Origin) error {
	return x.externalPropose(o, 1, 2, e.ProposalHash, SuperMajorityApprove)
}

func (e ExternalProposeMajority) dispatch(x *execution, o Origin) error {
	return x.externalPropose(o, 3, 4, e.ProposalHash, SimpleMajority)
}

func (e ExternalProposeDefault) dispatch(x *execution, o Origin) error {
	return x.externalPropose(o, 1, 1, e.ProposalHash, SuperMajorityAgainst)
}

// externalPropose schedules hash as the next external referendum when the
// council approved it with at least n/d of its seats.
func (x *execution) externalPropose(o Origin, n, d uint32, hash Hash, threshold VoteThreshold) error {
	if err := ensureProportionAtLeast(o, Council, n, d); err != nil {
		return err
	}

	dem := &x.state.democracy
	if dem.NextExternal != nil {
		return ErrExternalExists
	}
	dem.NextExternal = &external{Hash: hash, Threshold: threshold}
	return nil
}

func (f FastTrack) dispatch(x *execution, o Origin) error {
	if err := ensureProportionAtLeast(o, TechnicalCommittee, 2, 3); err != nil {
		return err
	}

	params := x.params()
	if f.VotingPeriod < params.FastTrackVotingPeriod {
		if !params.InstantAllowed {
			return ErrInstantNotAllowed
		}
		if err := ensureProportionAtLeast(o, TechnicalCommittee, 1, 1); err != nil {
			return err
		}
	}
	if f.VotingPeriod == 0 {
		return ErrVotingPeriodLow
	}

	dem := &x.state.democracy
	if dem.NextExternal == nil {
		return ErrNoExternal
	}
	if dem.NextExternal.Hash != f.ProposalHash {
		return ErrInvalidHash
	}

	ext := dem.NextExternal
	dem.NextExternal = nil
	x.startReferendum(x.now()+f.VotingPeriod, ext.Hash, ext.Threshold, f.Delay)
	return nil
}

func (x *execution) startReferendum(end BlockNumber, hash Hash, threshold VoteThreshold, delay BlockNumber) uint32 {
	dem := &x.state.democracy
	index := dem.ReferendumCount
	dem.ReferendumCount++

	dem.Referenda[index] = &ReferendumInfo{
		Index:        index,
		End:          end,
		ProposalHash: hash,
		Threshold:    threshold,
		Delay:        delay,
	}
	dem.Votes[index] = make(map[AccountID]AccountVote)

	x.deposit(ReferendumStarted{Index: index, Threshold: threshold})
	return index
}

func (v Vote) dispatch(x *execution, o Origin) error {
	who, err := ensureSigned(o)
	if err != nil {
		return err
	}

	dem := &x.state.democracy
	r, ok := dem.Referenda[v.RefIndex]
	if !ok || r.Finished {
		return errors.Wrapf(ErrReferendumInvalid, "referendum %d", v.RefIndex)
	}
	if !v.Vote.Conviction.Valid() {
		return ErrInvalidConviction
	}

	a, ok := x.state.account(who)
	if !ok {
		return ErrUnknownAccount
	}
	if a.Free < v.Vote.Balance {
		return errors.Wrapf(ErrInsufficientFunds, "vote %d of free %d", v.Vote.Balance, a.Free)
	}

	votes := dem.Votes[v.RefIndex]
	if prev, ok := votes[who]; ok {
		r.Tally.remove(prev)
	}
	r.Tally.add(v.Vote)
	votes[who] = v.Vote
	return nil
}

// democracyOnInitialize runs due enactments, then bakes referenda whose voting period ends now.
func (x *execution) democracyOnInitialize() {
	now := x.now()
	dem := &x.state.democracy

	if due, ok := dem.Enactments[now]; ok {
		delete(dem.Enactments, now)
		for _, index := range due {
			x.enact(index)
		}
	}

	for index := uint32(0); index < dem.ReferendumCount; index++ {
		r, ok := dem.Referenda[index]
		if !ok || r.Finished || r.End != now {
			continue
		}
		x.bake(r)
	}
}

func (x *execution) bake(r *ReferendumInfo) {
	dem := &x.state.democracy
	r.Finished = true
	r.Approved = approved(r.Threshold, r.Tally, x.state.totalIssuance())
	delete(dem.Votes, r.Index)

	if !r.Approved {
		x.deposit(ReferendumNotPassed{Index: r.Index})
		return
	}

	x.deposit(ReferendumPassed{Index: r.Index})
	if r.Delay == 0 {
		x.enact(r.Index)
		return
	}
	at := x.now() + r.Delay
	dem.Enactments[at] = append(dem.Enactments[at], r.Index)
}

// enact redeems the referendum's preimage and dispatches it with root origin.
func (x *execution) enact(index uint32) {
	dem := &x.state.democracy
	r := dem.Referenda[index]

	p, ok := dem.Preimages[r.ProposalHash]
	if !ok {
		x.deposit(ReferendumExecuted{Index: index, Ok: false})
		return
	}
	delete(dem.Preimages, r.ProposalHash)
	x.unreserve(p.Provider, p.Deposit)
	x.deposit(PreimageUsed{Hash: r.ProposalHash, Provider: p.Provider, Deposit: p.Deposit})

	call, err := DecodeCall(p.Data)
	if err == nil {
		err = x.dispatch(call, RootOrigin{})
	}
	x.deposit(ReferendumExecuted{Index: index, Ok: err == nil})
}

// approved applies the adaptive quorum biasing of threshold to a tally.
func approved(threshold VoteThreshold, tally Tally, electorate Balance) bool {
	ayes := new(big.Int).SetUint64(tally.Ayes)
	nays := new(big.Int).SetUint64(tally.Nays)
	sqrtTurnout := new(big.Int).Sqrt(new(big.Int).SetUint64(tally.Turnout))
	sqrtElectorate := new(big.Int).Sqrt(new(big.Int).SetUint64(electorate))

	switch threshold {
	case SuperMajorityApprove:
		if tally.Turnout == 0 {
			return false
		}
		// nays/sqrt(turnout) < ayes/sqrt(electorate)
		return new(big.Int).Mul(nays, sqrtElectorate).Cmp(new(big.Int).Mul(ayes, sqrtTurnout)) < 0
	case SuperMajorityAgainst:
		// nays/sqrt(electorate) < ayes/sqrt(turnout)
		return new(big.Int).Mul(nays, sqrtTurnout).Cmp(new(big.Int).Mul(ayes, sqrtElectorate)) < 0
	default:
		return tally.Ayes > tally.Nays
	}
}
