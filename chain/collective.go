package chain

import (
	"github.com/pkg/errors"
)

var (
	ErrNotMember           = errors.New("collective: account is not a member")
	ErrDuplicateProposal   = errors.New("collective: duplicate proposal")
	ErrProposalMissing     = errors.New("collective: proposal must exist")
	ErrWrongIndex          = errors.New("collective: mismatched index")
	ErrDuplicateVote       = errors.New("collective: duplicate vote ignored")
	ErrTooEarly            = errors.New("collective: members are still voting")
	ErrWrongProposalLength = errors.New("collective: length bound below proposal length")
	ErrWrongProposalWeight = errors.New("collective: weight bound below proposal weight")
	ErrUnknownCollective   = errors.New("collective: unknown instance")
)

func (x *execution) collective(inst Instance) (*collectiveState, error) {
	c, ok := x.state.collectives[inst]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownCollective, "%d", inst)
	}
	return c, nil
}

func (c *collectiveState) isMember(who AccountID) bool {
	return indexOf(c.Members, who) >= 0
}

func (c *collectiveState) removeProposal(hash Hash) {
	delete(c.ProposalOf, hash)
	delete(c.Voting, hash)
	if i := indexOfHash(c.Proposals, hash); i >= 0 {
		c.Proposals = append(c.Proposals[:i], c.Proposals[i+1:]...)
	}
}

func (p Propose) dispatch(x *execution, o Origin) error {
	who, err := ensureSigned(o)
	if err != nil {
		return err
	}
	col, err := x.collective(p.Instance)
	if err != nil {
		return err
	}
	if !col.isMember(who) {
		return ErrNotMember
	}

	data, err := EncodeCall(p.Proposal.Call)
	if err != nil {
		return err
	}
	if uint32(len(data)) > p.LengthBound {
		return errors.Wrapf(ErrWrongProposalLength, "%d > %d", len(data), p.LengthBound)
	}
	hash := HashOf(data)
	seats := uint32(len(col.Members))

	if p.Threshold < 2 {
		res := x.dispatch(p.Proposal.Call, CollectiveOrigin{Instance: p.Instance, Yes: 1, Seats: seats})
		x.deposit(MotionExecuted{Instance: p.Instance, Hash: hash, Err: errString(res)})
		return nil
	}

	if _, ok := col.ProposalOf[hash]; ok {
		return ErrDuplicateProposal
	}

	index := col.ProposalCount
	col.ProposalCount++
	col.Proposals = append(col.Proposals, hash)
	col.ProposalOf[hash] = p.Proposal.Call
	col.Voting[hash] = &Motion{
		Index:     index,
		Hash:      hash,
		Threshold: p.Threshold,
		Ayes:      []AccountID{who},
		End:       x.now() + x.params().MotionDuration,
	}

	x.deposit(MotionProposed{Instance: p.Instance, Account: who, Index: index, Hash: hash, Threshold: p.Threshold})
	return nil
}

func (v CollectiveVote) dispatch(x *execution, o Origin) error {
	who, err := ensureSigned(o)
	if err != nil {
		return err
	}
	col, err := x.collective(v.Instance)
	if err != nil {
		return err
	}
	if !col.isMember(who) {
		return ErrNotMember
	}

	motion, ok := col.Voting[v.Proposal]
	if !ok {
		return ErrProposalMissing
	}
	if motion.Index != v.MotionIndex {
		return errors.Wrapf(ErrWrongIndex, "motion %d, vote for %d", motion.Index, v.MotionIndex)
	}

	ayePos := indexOf(motion.Ayes, who)
	nayPos := indexOf(motion.Nays, who)
	if v.Approve {
		if ayePos >= 0 {
			return ErrDuplicateVote
		}
		motion.Ayes = append(motion.Ayes, who)
		if nayPos >= 0 {
			motion.Nays = append(motion.Nays[:nayPos], motion.Nays[nayPos+1:]...)
		}
	} else {
		if nayPos >= 0 {
			return ErrDuplicateVote
		}
		motion.Nays = append(motion.Nays, who)
		if ayePos >= 0 {
			motion.Ayes = append(motion.Ayes[:ayePos], motion.Ayes[ayePos+1:]...)
		}
	}

	x.deposit(MotionVoted{
		Instance: v.Instance,
		Account:  who,
		Hash:     v.Proposal,
		Aye:      v.Approve,
		Yes:      uint32(len(motion.Ayes)),
		No:       uint32(len(motion.Nays)),
	})
	return nil
}

func (c Close) dispatch(x *execution, o Origin) error {
	if _, err := ensureSigned(o); err != nil {
		return err
	}
	col, err := x.collective(c.Instance)
	if err != nil {
		return err
	}

	motion, ok := col.Voting[c.Proposal]
	if !ok {
		return ErrProposalMissing
	}
	if motion.Index != c.MotionIndex {
		return errors.Wrapf(ErrWrongIndex, "motion %d, close for %d", motion.Index, c.MotionIndex)
	}

	proposal := col.ProposalOf[c.Proposal]
	length, err := EncodedLen(proposal)
	if err != nil {
		return err
	}
	if length > c.LengthBound {
		return errors.Wrapf(ErrWrongProposalLength, "%d > %d", length, c.LengthBound)
	}
	if proposal.Weight() > c.WeightBound {
		return errors.Wrapf(ErrWrongProposalWeight, "%d > %d", proposal.Weight(), c.WeightBound)
	}

	seats := uint32(len(col.Members))
	yes := uint32(len(motion.Ayes))
	no := uint32(len(motion.Nays))

	switch {
	case yes >= motion.Threshold:
		x.deposit(MotionClosed{Instance: c.Instance, Hash: c.Proposal, Yes: yes, No: no})
		col.removeProposal(c.Proposal)
		x.deposit(MotionApproved{Instance: c.Instance, Hash: c.Proposal})
		res := x.dispatch(proposal, CollectiveOrigin{Instance: c.Instance, Yes: yes, Seats: seats})
		x.deposit(MotionExecuted{Instance: c.Instance, Hash: c.Proposal, Err: errString(res)})
	case int(seats)-int(no) < int(motion.Threshold):
		x.deposit(MotionClosed{Instance: c.Instance, Hash: c.Proposal, Yes: yes, No: no})
		col.removeProposal(c.Proposal)
		x.deposit(MotionDisapproved{Instance: c.Instance, Hash: c.Proposal})
	case x.now() < motion.End:
		return ErrTooEarly
	default:
		// members that never voted are counted against the motion
		x.deposit(MotionClosed{Instance: c.Instance, Hash: c.Proposal, Yes: yes, No: seats - yes})
		col.removeProposal(c.Proposal)
		x.deposit(MotionDisapproved{Instance: c.Instance, Hash: c.Proposal})
	}
	return nil
}

func indexOf(ids []AccountID, who AccountID) int {
	for i, id := range ids {
		if id == who {
			return i
		}
	}
	return -1
}

func indexOfHash(hashes []Hash, h Hash) int {
	for i, x := range hashes {
		if x == h {
			return i
		}
	}
	return -1
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
