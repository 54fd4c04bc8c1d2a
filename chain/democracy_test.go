package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func councilOrigin(yes uint32) Origin {
	return CollectiveOrigin{Instance: Council, Yes: yes, Seats: 3}
}

func technicalOrigin(yes uint32) Origin {
	return CollectiveOrigin{Instance: TechnicalCommittee, Yes: yes, Seats: 2}
}

// startUpgradeReferendum notes a set_code preimage and fast tracks it.
func startUpgradeReferendum(t *testing.T, x *execution, code []byte, votingPeriod, delay BlockNumber) Hash {
	encoded, err := EncodeCall(SetCode{Code: code})
	require.Nil(t, err)
	require.Nil(t, x.dispatch(NotePreimage{Encoded: encoded}, signed(whaleA)))
	hash := HashOf(encoded)

	require.Nil(t, x.dispatch(ExternalProposeMajority{ProposalHash: hash}, councilOrigin(3)))
	require.Nil(t, x.dispatch(FastTrack{ProposalHash: hash, VotingPeriod: votingPeriod, Delay: delay}, technicalOrigin(2)))
	return hash
}

func TestNotePreimage(t *testing.T) {
	x := newTestExecution()
	data := []byte("some preimage")

	require.Nil(t, x.dispatch(NotePreimage{Encoded: data}, signed(whaleA)))
	deposit := Balance(len(data)) * DefaultParams().PreimageByteDeposit
	assert.Equal(t, []Event{PreimageNoted{Hash: HashOf(data), Who: whaleA, Deposit: deposit}}, events(x))

	v := view{s: x.state}
	assert.Equal(t, deposit, v.ReservedBalance(whaleA))
	assert.Equal(t, 1_000*unit-deposit, v.FreeBalance(whaleA))
	stored, ok := v.Preimage(HashOf(data))
	require.True(t, ok)
	assert.Equal(t, data, stored)

	err := x.dispatch(NotePreimage{Encoded: data}, signed(whaleB))
	assert.ErrorIs(t, err, ErrDuplicatePreimage)

	err = x.dispatch(NotePreimage{Encoded: data}, RootOrigin{})
	assert.ErrorIs(t, err, ErrBadOrigin)
}

func TestExternalProposeOrigins(t *testing.T) {
	hash := HashOf([]byte("proposal"))

	x := newTestExecution()
	assert.ErrorIs(t, x.dispatch(ExternalProposeMajority{ProposalHash: hash}, signed(councilA)), ErrBadOrigin)
	assert.ErrorIs(t, x.dispatch(ExternalProposeMajority{ProposalHash: hash}, councilOrigin(2)), ErrBadOrigin)
	assert.ErrorIs(t, x.dispatch(ExternalProposeMajority{ProposalHash: hash}, technicalOrigin(2)), ErrBadOrigin)
	require.Nil(t, x.dispatch(ExternalProposeMajority{ProposalHash: hash}, councilOrigin(3)))
	assert.ErrorIs(t, x.dispatch(ExternalProposeMajority{ProposalHash: hash}, councilOrigin(3)), ErrExternalExists)

	x = newTestExecution()
	require.Nil(t, x.dispatch(ExternalPropose{ProposalHash: hash}, councilOrigin(2)))
	assert.Equal(t, SuperMajorityApprove, x.state.democracy.NextExternal.Threshold)

	x = newTestExecution()
	assert.ErrorIs(t, x.dispatch(ExternalProposeDefault{ProposalHash: hash}, councilOrigin(2)), ErrBadOrigin)
	require.Nil(t, x.dispatch(ExternalProposeDefault{ProposalHash: hash}, councilOrigin(3)))
	assert.Equal(t, SuperMajorityAgainst, x.state.democracy.NextExternal.Threshold)
}

func TestFastTrack(t *testing.T) {
	hash := HashOf([]byte("proposal"))
	period := DefaultParams().FastTrackVotingPeriod

	x := newTestExecution()
	assert.ErrorIs(t, x.dispatch(FastTrack{ProposalHash: hash, VotingPeriod: period}, technicalOrigin(2)), ErrNoExternal)

	require.Nil(t, x.dispatch(ExternalProposeMajority{ProposalHash: hash}, councilOrigin(3)))
	assert.ErrorIs(t, x.dispatch(FastTrack{ProposalHash: HashOf([]byte("other")), VotingPeriod: period}, technicalOrigin(2)), ErrInvalidHash)
	assert.ErrorIs(t, x.dispatch(FastTrack{ProposalHash: hash, VotingPeriod: period}, councilOrigin(3)), ErrBadOrigin)

	// shorter periods need the whole committee
	assert.ErrorIs(t, x.dispatch(FastTrack{ProposalHash: hash, VotingPeriod: 1}, CollectiveOrigin{Instance: TechnicalCommittee, Yes: 2, Seats: 3}), ErrBadOrigin)
	assert.ErrorIs(t, x.dispatch(FastTrack{ProposalHash: hash, VotingPeriod: 0}, technicalOrigin(2)), ErrVotingPeriodLow)

	require.Nil(t, x.dispatch(FastTrack{ProposalHash: hash, VotingPeriod: 1}, technicalOrigin(2)))
	assert.Nil(t, x.state.democracy.NextExternal)
	r, ok := view{s: x.state}.Referendum(0)
	require.True(t, ok)
	assert.Equal(t, x.now()+1, r.End)
	assert.Equal(t, hash, r.ProposalHash)
	assert.Equal(t, SimpleMajority, r.Threshold)

	g := testGenesis()
	g.Params.InstantAllowed = false
	s := newState(g)
	s.Number = 1
	x = &execution{state: s}
	require.Nil(t, x.dispatch(ExternalProposeMajority{ProposalHash: hash}, councilOrigin(3)))
	assert.ErrorIs(t, x.dispatch(FastTrack{ProposalHash: hash, VotingPeriod: 1}, technicalOrigin(2)), ErrInstantNotAllowed)
}

func TestReferendumVote(t *testing.T) {
	x := newTestExecution()
	startUpgradeReferendum(t, x, []byte("new runtime"), 5, 0)

	vote := AccountVote{Aye: true, Conviction: Locked1x, Balance: 10 * unit}
	assert.ErrorIs(t, x.dispatch(Vote{RefIndex: 9, Vote: vote}, signed(whaleA)), ErrReferendumInvalid)
	assert.ErrorIs(t, x.dispatch(Vote{RefIndex: 0, Vote: AccountVote{Aye: true, Conviction: 9, Balance: 1}}, signed(whaleA)), ErrInvalidConviction)
	assert.ErrorIs(t, x.dispatch(Vote{RefIndex: 0, Vote: AccountVote{Aye: true, Balance: 10_000 * unit}}, signed(whaleA)), ErrInsufficientFunds)

	require.Nil(t, x.dispatch(Vote{RefIndex: 0, Vote: vote}, signed(whaleA)))
	require.Nil(t, x.dispatch(Vote{RefIndex: 0, Vote: AccountVote{Aye: false, Conviction: None, Balance: 10 * unit}}, signed(whaleB)))

	r, _ := view{s: x.state}.Referendum(0)
	assert.Equal(t, Tally{Ayes: 10 * unit, Nays: unit, Turnout: 20 * unit}, r.Tally)

	// a second vote replaces the first
	require.Nil(t, x.dispatch(Vote{RefIndex: 0, Vote: AccountVote{Aye: true, Conviction: Locked2x, Balance: 10 * unit}}, signed(whaleB)))
	r, _ = view{s: x.state}.Referendum(0)
	assert.Equal(t, Tally{Ayes: 30 * unit, Nays: 0, Turnout: 20 * unit}, r.Tally)
}

func TestReferendumEnactsRuntimeUpgrade(t *testing.T) {
	x := newTestExecution()
	code := []byte("new runtime")
	hash := startUpgradeReferendum(t, x, code, 3, 0)
	vote := AccountVote{Aye: true, Conviction: Locked1x, Balance: 10 * unit}
	require.Nil(t, x.dispatch(Vote{RefIndex: 0, Vote: vote}, signed(whaleA)))
	require.Nil(t, x.dispatch(Vote{RefIndex: 0, Vote: vote}, signed(whaleB)))
	deposit := x.state.accounts[whaleA].Reserved

	x.state.Number += 2
	x.state.Events = nil
	x.democracyOnInitialize()
	assert.Empty(t, x.state.Events)

	x.state.Number++
	x.phase = Phase{Kind: Initialization}
	x.democracyOnInitialize()
	assert.Equal(t, []Event{
		ReferendumPassed{Index: 0},
		PreimageUsed{Hash: hash, Provider: whaleA, Deposit: deposit},
		CodeUpdated{},
		ReferendumExecuted{Index: 0, Ok: true},
	}, events(x))
	for _, r := range x.state.Events {
		assert.Equal(t, Initialization, r.Phase.Kind)
	}

	v := view{s: x.state}
	assert.Equal(t, code, v.Code())
	assert.EqualValues(t, 0, v.ReservedBalance(whaleA))
	_, ok := v.Preimage(hash)
	assert.False(t, ok)
	assert.EqualValues(t, 1, v.SpecVersion())

	// the upgrade hook runs at the start of the next block
	x.state.Number++
	require.True(t, x.onRuntimeUpgrade())
	assert.Equal(t, RuntimeUpgrade{SpecVersion: 2, Block: x.now()}, v.LastRuntimeUpgrade())
	assert.False(t, x.onRuntimeUpgrade())
}

func TestReferendumNotPassed(t *testing.T) {
	x := newTestExecution()
	startUpgradeReferendum(t, x, []byte("new runtime"), 1, 0)
	require.Nil(t, x.dispatch(Vote{RefIndex: 0, Vote: AccountVote{Aye: false, Conviction: Locked1x, Balance: 10 * unit}}, signed(whaleA)))

	x.state.Number++
	x.state.Events = nil
	x.democracyOnInitialize()
	assert.Equal(t, []Event{ReferendumNotPassed{Index: 0}}, events(x))

	r, _ := view{s: x.state}.Referendum(0)
	assert.True(t, r.Finished)
	assert.False(t, r.Approved)
	assert.Equal(t, []byte("genesis-runtime"), view{s: x.state}.Code())
}

func TestReferendumDelayedEnactment(t *testing.T) {
	x := newTestExecution()
	startUpgradeReferendum(t, x, []byte("new runtime"), 1, 2)
	require.Nil(t, x.dispatch(Vote{RefIndex: 0, Vote: AccountVote{Aye: true, Conviction: Locked1x, Balance: 10 * unit}}, signed(whaleA)))

	x.state.Number++
	x.state.Events = nil
	x.democracyOnInitialize()
	assert.Equal(t, []Event{ReferendumPassed{Index: 0}}, events(x))

	x.state.Number++
	x.state.Events = nil
	x.democracyOnInitialize()
	assert.Empty(t, x.state.Events)

	x.state.Number++
	x.democracyOnInitialize()
	require.Len(t, x.state.Events, 3)
	assert.Equal(t, ReferendumExecuted{Index: 0, Ok: true}, x.state.Events[2].Event)
}

func TestSetCodeRequiresRoot(t *testing.T) {
	x := newTestExecution()
	assert.ErrorIs(t, x.dispatch(SetCode{Code: []byte("x")}, signed(whaleA)), ErrBadOrigin)
	assert.ErrorIs(t, x.dispatch(SetCode{}, RootOrigin{}), ErrInvalidCode)
	require.Nil(t, x.dispatch(SetCode{Code: []byte("x")}, RootOrigin{}))
	assert.Equal(t, []Event{CodeUpdated{}}, events(x))
}

func TestApproved(t *testing.T) {
	electorate := 8_000 * unit

	assert.True(t, approved(SimpleMajority, Tally{Ayes: 2, Nays: 1, Turnout: 3}, electorate))
	assert.False(t, approved(SimpleMajority, Tally{Ayes: 1, Nays: 1, Turnout: 2}, electorate))

	assert.False(t, approved(SuperMajorityApprove, Tally{}, electorate))
	assert.True(t, approved(SuperMajorityApprove, Tally{Ayes: 20 * unit, Turnout: 20 * unit}, electorate))
	// low turnout needs more than a bare majority
	assert.False(t, approved(SuperMajorityApprove, Tally{Ayes: 6 * unit, Nays: 4 * unit, Turnout: 10 * unit}, electorate))

	assert.True(t, approved(SuperMajorityAgainst, Tally{Ayes: 4 * unit, Nays: 6 * unit, Turnout: 10 * unit}, electorate))
	assert.False(t, approved(SuperMajorityAgainst, Tally{Nays: 1, Turnout: 1}, electorate))
}
