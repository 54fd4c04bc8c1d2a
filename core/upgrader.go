package core

import (
	"context"
	"fmt"

	"github.com/axiomesh/axiom-kit/log"
	"github.com/axiomesh/upgrader/chain"
	"github.com/axiomesh/upgrader/repo"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// motionWeightBound is the dispatch weight granted to an approved motion.
const motionWeightBound = chain.MaxWeight / 100_000_000

// StageError reports the workflow stage a run failed in. Every failure is terminal.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %s", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Ballot decides how a collective member votes on a motion it did not propose.
type Ballot func(inst chain.Instance, member chain.AccountID) bool

func unanimous(chain.Instance, chain.AccountID) bool { return true }

type Option func(*Upgrader)

// WithBallot overrides the collective vote of non-proposing members; the default is aye.
func WithBallot(ballot Ballot) Option {
	return func(u *Upgrader) {
		u.ballot = ballot
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(u *Upgrader) {
		u.Logger = logger
	}
}

// Upgrader walks a runtime upgrade through the council, the technical
// committee and a fast-tracked public referendum.
type Upgrader struct {
	Ctx    context.Context
	Client Client
	Logger logrus.FieldLogger
	Config *repo.Config

	whales       []chain.AccountID
	vote         chain.AccountVote
	votingPeriod chain.BlockNumber
	strict       bool
	ballot       Ballot
}

func NewUpgrader(ctx context.Context, config *repo.Config, client Client, opts ...Option) (*Upgrader, error) {
	if client == nil {
		return nil, errors.New("missing chain client")
	}

	logger := log.New()
	logger.SetLevel(log.ParseLevel(config.Log.Level))

	whales, vote, err := parseVoters(&config.Upgrade)
	if err != nil {
		return nil, err
	}

	u := &Upgrader{
		Ctx:          ctx,
		Client:       client,
		Logger:       logger,
		Config:       config,
		whales:       whales,
		vote:         vote,
		votingPeriod: config.Upgrade.VotingPeriod,
		strict:       config.Upgrade.StrictCorrelation,
		ballot:       unanimous,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u, nil
}

// parseVoters resolves the whale accounts and the referendum vote they cast.
func parseVoters(cfg *repo.Upgrade) ([]chain.AccountID, chain.AccountVote, error) {
	var whales []chain.AccountID
	for _, addr := range cfg.Whales {
		id, err := chain.ParseAddress(addr)
		if err != nil {
			return nil, chain.AccountVote{}, errors.Wrapf(err, "whale %s", addr)
		}
		whales = append(whales, id)
	}
	if len(whales) == 0 {
		return nil, chain.AccountVote{}, errors.New("no whale accounts configured")
	}

	conviction, ok := chain.ParseConviction(cfg.Conviction)
	if !ok {
		return nil, chain.AccountVote{}, errors.Wrapf(chain.ErrInvalidConviction, "%q", cfg.Conviction)
	}
	if cfg.VoteBalance == 0 {
		return nil, chain.AccountVote{}, errors.New("vote balance must be positive")
	}

	return whales, chain.AccountVote{Aye: true, Conviction: conviction, Balance: cfg.VoteBalance}, nil
}

// CheckConfig validates the genesis and upgrade sections against each other:
// every whale must be a funded genesis account able to cast the configured vote.
func CheckConfig(config *repo.Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	genesis, err := GenesisFromConfig(&config.Genesis)
	if err != nil {
		return err
	}
	whales, vote, err := parseVoters(&config.Upgrade)
	if err != nil {
		return err
	}

	balances := make(map[chain.AccountID]chain.Balance)
	for _, a := range genesis.Accounts {
		balances[a.ID] = a.Balance
	}
	for _, whale := range whales {
		balance, ok := balances[whale]
		if !ok {
			return errors.Wrapf(chain.ErrUnknownAccount, "whale %s", whale)
		}
		if balance < vote.Balance {
			return errors.Wrapf(chain.ErrInsufficientFunds, "whale %s holds %d, votes %d", whale, balance, vote.Balance)
		}
	}
	if len(genesis.Council) == 0 || len(genesis.TechnicalCommittee) == 0 {
		return errors.New("both collectives need members")
	}
	return nil
}

// session owns everything recovered during one run.
type session struct {
	*Upgrader

	stage     Stage
	council   []chain.AccountID
	technical []chain.AccountID
	proposals map[chain.Instance]chain.Call
	outcome   Outcome
}

// PerformRuntimeUpgrade submits code as a runtime upgrade and drives it until
// the referendum has been enacted. The returned outcome holds the live client
// for post-upgrade checks.
func (u *Upgrader) PerformRuntimeUpgrade(code []byte) (*Outcome, error) {
	if len(code) == 0 {
		return nil, &StageError{Stage: Start, Err: errors.New("empty runtime code")}
	}

	s := &session{
		Upgrader:  u,
		proposals: make(map[chain.Instance]chain.Call),
		outcome:   Outcome{Node: u.Client},
	}
	steps := []struct {
		stage Stage
		run   func() error
	}{
		{Start, s.prepare},
		{PreimageNoted, func() error { return s.notePreimage(code) }},
		{CouncilProposed, s.councilPropose},
		{CouncilVoted, func() error { return s.voteMotion(chain.Council, s.council, s.outcome.CouncilMotion) }},
		{CouncilClosed, func() error { return s.closeMotion(chain.Council, s.council, s.outcome.CouncilMotion) }},
		{TechnicalProposed, s.technicalPropose},
		{TechnicalVoted, func() error { return s.voteMotion(chain.TechnicalCommittee, s.technical, s.outcome.TechnicalMotion) }},
		{TechnicalClosed, func() error { return s.closeMotion(chain.TechnicalCommittee, s.technical, s.outcome.TechnicalMotion) }},
		{ReferendumStarted, s.referendumStarted},
		{ReferendumVoted, s.voteReferendum},
		{WaitEnactment, s.waitEnactment},
		{Enacted, s.enacted},
		{PostUpgrade, s.postUpgrade},
	}

	for _, step := range steps {
		if err := u.Ctx.Err(); err != nil {
			return nil, &StageError{Stage: step.stage, Err: err}
		}
		s.stage = step.stage
		if err := step.run(); err != nil {
			u.Logger.WithField("stage", step.stage).Errorf("runtime upgrade aborted: %s", err)
			return nil, &StageError{Stage: step.stage, Err: err}
		}
	}

	out := s.outcome
	return &out, nil
}

// prepare reads the committees and resolves the referendum voting period
// before anything is submitted.
func (s *session) prepare() error {
	var err error
	if s.council, err = query(s.Client, func(v chain.View) []chain.AccountID { return v.Members(chain.Council) }); err != nil {
		return err
	}
	if s.technical, err = query(s.Client, func(v chain.View) []chain.AccountID { return v.Members(chain.TechnicalCommittee) }); err != nil {
		return err
	}
	if len(s.council) == 0 {
		return errors.Wrap(chain.ErrNotMember, "council has no members")
	}
	if len(s.technical) == 0 {
		return errors.Wrap(chain.ErrNotMember, "technical committee has no members")
	}


	votingPeriod := s.votingPeriod
	if votingPeriod == 0 {
		params, err := query(s.Client, chain.View.Params)
		if err != nil {
			return err
		}
		votingPeriod = params.FastTrackVotingPeriod
	}
	if votingPeriod < repo.MinVotingPeriod {
		return errors.Wrapf(repo.ErrVotingPeriodTooShort, "resolved voting period %d", votingPeriod)
	}
	s.outcome.VotingPeriod = votingPeriod

	s.Logger.Infof("council %d members, technical committee %d members, %d whales, voting period %d",
		len(s.council), len(s.technical), len(s.whales), votingPeriod)
	return nil
}

func (s *session) submit(call chain.Call, signer chain.AccountID) error {
	if err := s.Client.Submit(call, signer); err != nil {
		return errors.Wrapf(err, "submit %s from %s", call.Name(), signer)
	}
	return nil
}

func (s *session) seal(n int) error {
	return errors.Wrapf(s.Client.Seal(n), "seal %d blocks", n)
}

func (s *session) notePreimage(code []byte) error {
	encoded, err := chain.EncodeCall(chain.SetCode{Code: code})
	if err != nil {
		return err
	}
	if err := s.submit(chain.NotePreimage{Encoded: encoded}, s.whales[0]); err != nil {
		return err
	}
	if err := s.seal(1); err != nil {
		return err
	}

	records, err := events(s.Client)
	if err != nil {
		return err
	}
	hash, err := expect(s.strict, records, nil, func(e chain.PreimageNoted) chain.Hash { return e.Hash })
	if err != nil {
		return err
	}
	s.outcome.ProposalHash = hash

	s.Logger.WithFields(logrus.Fields{
		"hash":   hash.Hex(),
		"length": len(encoded),
	}).Info("preimage noted")
	return nil
}

// propose opens a motion for call in inst, proposed by its first member and
// requiring every member's approval.
func (s *session) propose(inst chain.Instance, members []chain.AccountID, call chain.Call) (MotionRef, error) {
	length, err := chain.EncodedLen(call)
	if err != nil {
		return MotionRef{}, err
	}

	if err := s.submit(chain.Propose{
		Instance:    inst,
		Threshold:   uint32(len(members)),
		Proposal:    chain.BoxedCall{Call: call},
		LengthBound: length + 1,
	}, members[0]); err != nil {
		return MotionRef{}, err
	}
	if err := s.seal(1); err != nil {
		return MotionRef{}, err
	}

	records, err := events(s.Client)
	if err != nil {
		return MotionRef{}, err
	}
	ref, err := expect(s.strict, records, ofInstance[chain.MotionProposed](inst), func(e chain.MotionProposed) MotionRef {
		return MotionRef{Index: e.Index, Hash: e.Hash}
	})
	if err != nil {
		return MotionRef{}, err
	}
	s.proposals[inst] = call

	s.Logger.WithFields(logrus.Fields{
		"collective": inst,
		"index":      ref.Index,
		"hash":       ref.Hash.Hex(),
	}).Infof("motion proposed: %s", call.Name())
	return ref, nil
}

func (s *session) councilPropose() error {
	ref, err := s.propose(chain.Council, s.council, chain.ExternalProposeMajority{ProposalHash: s.outcome.ProposalHash})
	if err != nil {
		return err
	}
	s.outcome.CouncilMotion = ref
	return nil
}

func (s *session) technicalPropose() error {
	ref, err := s.propose(chain.TechnicalCommittee, s.technical, chain.FastTrack{
		ProposalHash: s.outcome.ProposalHash,
		VotingPeriod: s.outcome.VotingPeriod,
		Delay:        0,
	})
	if err != nil {
		return err
	}
	s.outcome.TechnicalMotion = ref
	return nil
}

func (s *session) voteMotion(inst chain.Instance, members []chain.AccountID, ref MotionRef) error {
	for _, member := range members[1:] {
		approve := s.ballot(inst, member)
		if err := s.submit(chain.CollectiveVote{
			Instance:    inst,
			Proposal:    ref.Hash,
			MotionIndex: ref.Index,
			Approve:     approve,
		}, member); err != nil {
			return err
		}
		if !approve {
			s.Logger.Warnf("%s member %s votes nay on motion %d", inst, member, ref.Index)
		}
	}
	return s.seal(1)
}

func (s *session) closeMotion(inst chain.Instance, members []chain.AccountID, ref MotionRef) error {
	proposal, ok := s.proposals[inst]
	if !ok {
		return errors.Wrapf(chain.ErrProposalMissing, "%s motion %d", inst, ref.Index)
	}
	length, err := chain.EncodedLen(proposal)
	if err != nil {
		return err
	}

	if err := s.submit(chain.Close{
		Instance:    inst,
		Proposal:    ref.Hash,
		MotionIndex: ref.Index,
		WeightBound: motionWeightBound,
		LengthBound: length + 1,
	}, members[0]); err != nil {
		return err
	}
	if err := s.seal(1); err != nil {
		return err
	}

	records, err := events(s.Client)
	if err != nil {
		return err
	}
	if err := ExpectExactly(records, 3, motionPassed(inst, ref.Hash)...); err != nil {
		return err
	}

	s.Logger.WithField("collective", inst).Infof("motion %d approved and executed", ref.Index)
	return nil
}

func (s *session) referendumStarted() error {
	records, err := events(s.Client)
	if err != nil {
		return err
	}
	index, err := expect(s.strict, records, nil, func(e chain.ReferendumStarted) uint32 { return e.Index })
	if err != nil {
		return err
	}
	s.outcome.Referendum = index

	head, err := query(s.Client, chain.View.BlockNumber)
	if err != nil {
		return err
	}
	s.outcome.ReferendumEnd = head + s.outcome.VotingPeriod

	s.Logger.Infof("referendum %d started, ends at block %d", index, s.outcome.ReferendumEnd)
	return nil
}

func (s *session) voteReferendum() error {
	for _, whale := range s.whales {
		if err := s.submit(chain.Vote{RefIndex: s.outcome.Referendum, Vote: s.vote}, whale); err != nil {
			return err
		}
	}
	return nil
}

// waitEnactment seals the voting period. The first block carries the votes,
// the last one bakes and enacts the referendum.
func (s *session) waitEnactment() error {
	s.Logger.Infof("waiting %d blocks for referendum %d", s.outcome.VotingPeriod, s.outcome.Referendum)
	return s.seal(int(s.outcome.VotingPeriod))
}

func (s *session) enacted() error {
	records, err := events(s.Client)
	if err != nil {
		return err
	}
	if err := ExpectExactly(records, 4, referendumEnacted(s.outcome.Referendum, s.outcome.ProposalHash)...); err != nil {
		return err
	}

	s.Logger.Infof("referendum %d enacted, runtime code updated", s.outcome.Referendum)
	return nil
}

// postUpgrade seals one more block so the runtime upgrade hook runs.
func (s *session) postUpgrade() error {
	if err := s.seal(1); err != nil {
		return err
	}

	version, err := query(s.Client, chain.View.SpecVersion)
	if err != nil {
		return err
	}
	s.Logger.Infof("runtime upgrade complete, spec version %d", version)
	return nil
}
