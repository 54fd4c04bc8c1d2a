package chain

import (
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

type Hash = common.Hash

type Balance = uint64

type BlockNumber = uint32

type Weight = uint64

// MaxWeight is the largest representable dispatch weight.
const MaxWeight Weight = math.MaxUint64

// HashOf returns the content hash used as the on-chain identity of a preimage.
func HashOf(data []byte) Hash {
	return crypto.Keccak256Hash(data)
}

// Instance selects one of the collective module instances.
type Instance uint8

const (
	// Council is the primary committee
	Council Instance = iota

	// TechnicalCommittee fast-tracks externally proposed referenda
	TechnicalCommittee
)

func (i Instance) String() string {
	switch i {
	case Council:
		return "Council"
	case TechnicalCommittee:
		return "TechnicalCommittee"
	default:
		return "UnknownCollective"
	}
}

func (i Instance) pallet() uint8 {
	if i == TechnicalCommittee {
		return technicalPallet
	}
	return councilPallet
}

type Conviction uint8

const (
	// None weighs a vote at a tenth of its balance
	None Conviction = iota
	Locked1x
	Locked2x
	Locked3x
	Locked4x
	Locked5x
	Locked6x
)

// Votes returns the weighted vote count of balance at this conviction.
func (c Conviction) Votes(balance Balance) uint64 {
	if c == None {
		return balance / 10
	}
	return balance * uint64(c)
}

func (c Conviction) Valid() bool {
	return c <= Locked6x
}

var convictionNames = map[string]Conviction{
	"none":     None,
	"locked1x": Locked1x,
	"locked2x": Locked2x,
	"locked3x": Locked3x,
	"locked4x": Locked4x,
	"locked5x": Locked5x,
	"locked6x": Locked6x,
}

// ParseConviction maps a lower-case conviction name such as "locked1x".
func ParseConviction(name string) (Conviction, bool) {
	c, ok := convictionNames[name]
	return c, ok
}

type VoteThreshold uint8

const (
	// SuperMajorityApprove needs a heavier super-majority of ayes on low turnout
	SuperMajorityApprove VoteThreshold = iota

	// SuperMajorityAgainst needs a heavier super-majority of nays to reject on low turnout
	SuperMajorityAgainst

	// SimpleMajority passes with more ayes than nays
	SimpleMajority
)

func (t VoteThreshold) String() string {
	switch t {
	case SuperMajorityApprove:
		return "SuperMajorityApprove"
	case SuperMajorityAgainst:
		return "SuperMajorityAgainst"
	case SimpleMajority:
		return "SimpleMajority"
	default:
		return "UnknownThreshold"
	}
}

type AccountVote struct {
	_          struct{} `cbor:",toarray"`
	Aye        bool
	Conviction Conviction
	Balance    Balance
}

type Tally struct {
	Ayes    uint64
	Nays    uint64
	Turnout Balance
}

func (t *Tally) add(v AccountVote) {
	if v.Aye {
		t.Ayes += v.Conviction.Votes(v.Balance)
	} else {
		t.Nays += v.Conviction.Votes(v.Balance)
	}
	t.Turnout += v.Balance
}

func (t *Tally) remove(v AccountVote) {
	if v.Aye {
		t.Ayes -= v.Conviction.Votes(v.Balance)
	} else {
		t.Nays -= v.Conviction.Votes(v.Balance)
	}
	t.Turnout -= v.Balance
}

type ReferendumInfo struct {
	Index        uint32
	End          BlockNumber
	ProposalHash Hash
	Threshold    VoteThreshold
	Delay        BlockNumber
	Tally        Tally

	Finished bool
	Approved bool
}

// Motion is a collective vote in progress.
type Motion struct {
	Index     uint32
	Hash      Hash
	Threshold uint32
	Ayes      []AccountID
	Nays      []AccountID
	End       BlockNumber
}

type RuntimeUpgrade struct {
	SpecVersion uint32
	Block       BlockNumber
}
