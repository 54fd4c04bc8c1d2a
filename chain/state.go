package chain

// Params are the runtime constants fixed at genesis.
type Params struct {
	// MotionDuration is how long a collective motion stays open before it can be closed undecided
	MotionDuration BlockNumber

	// FastTrackVotingPeriod is the shortest voting period fast-track accepts without instant origin
	FastTrackVotingPeriod BlockNumber
	InstantAllowed        bool

	PreimageByteDeposit Balance
	BaseFee             Balance
	ByteFee             Balance
	MaxBlockWeight      Weight
}

func DefaultParams() Params {
	return Params{
		MotionDuration:        100,
		FastTrackVotingPeriod: 30,
		InstantAllowed:        true,
		PreimageByteDeposit:   1_000_000,
		BaseFee:               1_000_000_000,
		ByteFee:               10_000_000,
		MaxBlockWeight:        2_000_000_000_000,
	}
}

type GenesisAccount struct {
	ID      AccountID
	Balance Balance
}

type Genesis struct {
	SpecVersion        uint32
	TxVersion          uint32
	Code               []byte
	Accounts           []GenesisAccount
	Council            []AccountID
	TechnicalCommittee []AccountID
	Params             Params
}

type account struct {
	Free     Balance
	Reserved Balance
	Nonce    uint64
}

type preimage struct {
	Data     []byte
	Provider AccountID
	Deposit  Balance
	Since    BlockNumber
}

type external struct {
	Hash      Hash
	Threshold VoteThreshold
}

type collectiveState struct {
	Members       []AccountID
	Proposals     []Hash
	ProposalOf    map[Hash]Call
	Voting        map[Hash]*Motion
	ProposalCount uint32
}

type democracyState struct {
	Preimages       map[Hash]*preimage
	NextExternal    *external
	ReferendumCount uint32
	Referenda       map[uint32]*ReferendumInfo
	Votes           map[uint32]map[AccountID]AccountVote

	// Enactments holds passed referenda waiting for their delay, keyed by enactment block
	Enactments map[BlockNumber][]uint32
}

type systemState struct {
	Code               []byte
	SpecVersion        uint32
	TxVersion          uint32
	PendingUpgrade     bool
	LastRuntimeUpgrade RuntimeUpgrade
}

// State is the full runtime state at the head of the chain.
type State struct {
	Number      BlockNumber
	ParentHash  Hash
	GenesisHash Hash
	Events      []EventRecord
	BlockWeight Weight

	params      Params
	system      systemState
	accounts    map[AccountID]*account
	democracy   democracyState
	collectives map[Instance]*collectiveState
}

func newState(g *Genesis) *State {
	s := &State{
		params: g.Params,
		system: systemState{
			Code:        append([]byte{}, g.Code...),
			SpecVersion: g.SpecVersion,
			TxVersion:   g.TxVersion,
		},
		accounts: make(map[AccountID]*account),
		democracy: democracyState{
			Preimages:  make(map[Hash]*preimage),
			Referenda:  make(map[uint32]*ReferendumInfo),
			Votes:      make(map[uint32]map[AccountID]AccountVote),
			Enactments: make(map[BlockNumber][]uint32),
		},
		collectives: map[Instance]*collectiveState{
			Council:            newCollectiveState(g.Council),
			TechnicalCommittee: newCollectiveState(g.TechnicalCommittee),
		},
	}
	for _, a := range g.Accounts {
		s.accounts[a.ID] = &account{Free: a.Balance}
	}
	return s
}

func newCollectiveState(members []AccountID) *collectiveState {
	return &collectiveState{
		Members:    append([]AccountID{}, members...),
		ProposalOf: make(map[Hash]Call),
		Voting:     make(map[Hash]*Motion),
	}
}

func (s *State) account(who AccountID) (*account, bool) {
	a, ok := s.accounts[who]
	return a, ok
}

func (s *State) totalIssuance() Balance {
	var total Balance
	for _, a := range s.accounts {
		total += a.Free + a.Reserved
	}
	return total
}

// View is a read-only projection of the latest state. Slices it returns are copies.
type View interface {
	BlockNumber() BlockNumber
	GenesisHash() Hash
	Events() []EventRecord
	Members(inst Instance) []AccountID
	Motion(inst Instance, hash Hash) (Motion, bool)
	ProposalCount(inst Instance) uint32
	Nonce(who AccountID) uint64
	FreeBalance(who AccountID) Balance
	ReservedBalance(who AccountID) Balance
	Code() []byte
	SpecVersion() uint32
	LastRuntimeUpgrade() RuntimeUpgrade
	Preimage(hash Hash) ([]byte, bool)
	Referendum(index uint32) (ReferendumInfo, bool)
	ReferendumCount() uint32
	Params() Params
}

type view struct {
	s *State
}

func (v view) BlockNumber() BlockNumber { return v.s.Number }
func (v view) GenesisHash() Hash        { return v.s.GenesisHash }

func (v view) Events() []EventRecord {
	return append([]EventRecord{}, v.s.Events...)
}

func (v view) Members(inst Instance) []AccountID {
	c, ok := v.s.collectives[inst]
	if !ok {
		return nil
	}
	return append([]AccountID{}, c.Members...)
}

func (v view) Motion(inst Instance, hash Hash) (Motion, bool) {
	c, ok := v.s.collectives[inst]
	if !ok {
		return Motion{}, false
	}
	m, ok := c.Voting[hash]
	if !ok {
		return Motion{}, false
	}
	out := *m
	out.Ayes = append([]AccountID{}, m.Ayes...)
	out.Nays = append([]AccountID{}, m.Nays...)
	return out, true
}

func (v view) ProposalCount(inst Instance) uint32 {
	if c, ok := v.s.collectives[inst]; ok {
		return c.ProposalCount
	}
	return 0
}

func (v view) Nonce(who AccountID) uint64 {
	if a, ok := v.s.account(who); ok {
		return a.Nonce
	}
	return 0
}

func (v view) FreeBalance(who AccountID) Balance {
	if a, ok := v.s.account(who); ok {
		return a.Free
	}
	return 0
}

func (v view) ReservedBalance(who AccountID) Balance {
	if a, ok := v.s.account(who); ok {
		return a.Reserved
	}
	return 0
}

func (v view) Code() []byte {
	return append([]byte{}, v.s.system.Code...)
}

func (v view) SpecVersion() uint32                { return v.s.system.SpecVersion }
func (v view) LastRuntimeUpgrade() RuntimeUpgrade { return v.s.system.LastRuntimeUpgrade }
func (v view) ReferendumCount() uint32            { return v.s.democracy.ReferendumCount }
func (v view) Params() Params                     { return v.s.params }

func (v view) Preimage(hash Hash) ([]byte, bool) {
	p, ok := v.s.democracy.Preimages[hash]
	if !ok {
		return nil, false
	}
	return append([]byte{}, p.Data...), true
}

func (v view) Referendum(index uint32) (ReferendumInfo, bool) {
	r, ok := v.s.democracy.Referenda[index]
	if !ok {
		return ReferendumInfo{}, false
	}
	return *r, true
}
