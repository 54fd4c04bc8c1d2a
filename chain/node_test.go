package chain

import (
	"testing"

	"github.com/axiomesh/axiom-kit/storage/leveldb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const unit Balance = 1_000_000_000_000

func testAccount(i byte) AccountID {
	var id AccountID
	id[0] = i
	id[31] = 0xaa
	return id
}

var (
	councilA   = testAccount(1)
	councilB   = testAccount(2)
	councilC   = testAccount(3)
	technicalA = testAccount(4)
	technicalB = testAccount(5)
	whaleA     = testAccount(10)
	whaleB     = testAccount(11)
	outsider   = testAccount(20)
)

func testGenesis() *Genesis {
	g := &Genesis{
		SpecVersion:        1,
		TxVersion:          1,
		Code:               []byte("genesis-runtime"),
		Council:            []AccountID{councilA, councilB, councilC},
		TechnicalCommittee: []AccountID{technicalA, technicalB},
		Params:             DefaultParams(),
	}
	for _, id := range []AccountID{councilA, councilB, councilC, technicalA, technicalB, whaleA, whaleB, outsider} {
		g.Accounts = append(g.Accounts, GenesisAccount{ID: id, Balance: 1_000 * unit})
	}
	return g
}

func newTestNode(t *testing.T, genesis *Genesis, opts ...Option) *Node {
	db, err := leveldb.New(t.TempDir())
	require.Nil(t, err)

	n, err := NewNode(genesis, db, opts...)
	require.Nil(t, err)
	t.Cleanup(func() {
		_ = n.Close()
	})
	return n
}

func lastEvents(t *testing.T, n *Node) []EventRecord {
	var records []EventRecord
	require.Nil(t, n.Query(func(v View) error {
		records = v.Events()
		return nil
	}))
	return records
}

func TestNewNodePersistsGenesis(t *testing.T) {
	g := testGenesis()
	n := newTestNode(t, g)

	head, ok := n.PersistedHead()
	require.True(t, ok)
	assert.EqualValues(t, 0, head)
	assert.Equal(t, g.Code, n.PersistedCode())

	b, err := n.Block(0)
	require.Nil(t, err)
	assert.EqualValues(t, 1, b.Header.SpecVersion)

	var genesisHash Hash
	require.Nil(t, n.Query(func(v View) error {
		genesisHash = v.GenesisHash()
		return nil
	}))
	assert.Equal(t, b.Header.Hash(), genesisHash)

	_, err = n.Block(1)
	assert.ErrorIs(t, err, ErrBlockNotFound)
}

func TestNewNodeRejectsMissingInputs(t *testing.T) {
	_, err := NewNode(nil, nil)
	assert.NotNil(t, err)

	db, err := leveldb.New(t.TempDir())
	require.Nil(t, err)
	defer db.Close()
	_, err = NewNode(nil, db)
	assert.NotNil(t, err)
}

func TestSubmit(t *testing.T) {
	n := newTestNode(t, testGenesis())

	err := n.Submit(NotePreimage{Encoded: []byte("x")}, testAccount(99))
	assert.ErrorIs(t, err, ErrUnknownAccount)

	err = n.Submit(nil, whaleA)
	assert.ErrorIs(t, err, ErrEmptyCall)

	require.Nil(t, n.Submit(NotePreimage{Encoded: []byte("a")}, whaleA))
	require.Nil(t, n.Submit(NotePreimage{Encoded: []byte("b")}, whaleA))
	assert.Equal(t, 2, n.PendingExtrinsics())

	// nothing executes before the next block
	assert.Empty(t, lastEvents(t, n))
	assert.EqualValues(t, 0, n.Head())
}

func TestSeal(t *testing.T) {
	n := newTestNode(t, testGenesis())

	assert.ErrorIs(t, n.Seal(0), ErrNothingToSeal)

	require.Nil(t, n.Submit(NotePreimage{Encoded: []byte("a")}, whaleA))
	require.Nil(t, n.Submit(NotePreimage{Encoded: []byte("b")}, whaleA))
	require.Nil(t, n.Seal(1))

	assert.EqualValues(t, 1, n.Head())
	assert.Equal(t, 0, n.PendingExtrinsics())

	records := lastEvents(t, n)
	require.Len(t, records, 4)
	assert.Equal(t, PreimageNoted{Hash: HashOf([]byte("a")), Who: whaleA, Deposit: 1_000_000}, records[0].Event)
	assert.Equal(t, Phase{Kind: ApplyExtrinsic, Extrinsic: 0}, records[0].Phase)
	assert.Equal(t, ExtrinsicSuccess{}, records[1].Event)
	assert.Equal(t, Phase{Kind: ApplyExtrinsic, Extrinsic: 1}, records[2].Phase)

	require.Nil(t, n.Query(func(v View) error {
		assert.EqualValues(t, 2, v.Nonce(whaleA))
		assert.EqualValues(t, 2_000_000, v.ReservedBalance(whaleA))
		assert.Less(t, v.FreeBalance(whaleA), 1_000*unit-2_000_000)
		return nil
	}))

	// the event log only covers the latest block
	require.Nil(t, n.Seal(1))
	assert.Empty(t, lastEvents(t, n))
}

func TestQueryIsIdempotent(t *testing.T) {
	n := newTestNode(t, testGenesis())

	require.Nil(t, n.Submit(NotePreimage{Encoded: []byte("a")}, whaleA))
	require.Nil(t, n.Seal(1))

	first := lastEvents(t, n)
	second := lastEvents(t, n)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, n.Head())

	// snapshots are copies
	first[0] = EventRecord{Event: CodeUpdated{}}
	assert.Equal(t, second, lastEvents(t, n))
}

func TestFailedDispatchIsIncluded(t *testing.T) {
	registry := prometheus.NewRegistry()
	n := newTestNode(t, testGenesis(), WithRegistry(registry))

	require.Nil(t, n.Submit(CollectiveVote{Instance: Council, Proposal: HashOf([]byte("none"))}, outsider))
	require.Nil(t, n.Seal(1))

	records := lastEvents(t, n)
	require.Len(t, records, 1)
	assert.Equal(t, ExtrinsicFailed{Err: ErrNotMember.Error()}, records[0].Event)

	// fees and nonce are still taken
	require.Nil(t, n.Query(func(v View) error {
		assert.EqualValues(t, 1, v.Nonce(outsider))
		assert.Less(t, v.FreeBalance(outsider), 1_000*unit)
		return nil
	}))

	assert.EqualValues(t, 1, testutil.ToFloat64(n.metrics.failed))
	assert.EqualValues(t, 1, testutil.ToFloat64(n.metrics.applied))
	assert.EqualValues(t, 1, testutil.ToFloat64(n.metrics.blocks))
	assert.EqualValues(t, 1, testutil.ToFloat64(n.metrics.height))
}

func TestBlockWeightDefersExtrinsics(t *testing.T) {
	g := testGenesis()
	g.Params.MaxBlockWeight = 2 * notePreimageWeight
	n := newTestNode(t, g, WithRegistry(prometheus.NewRegistry()))

	err := n.Submit(SetCode{Code: []byte("too heavy")}, whaleA)
	assert.ErrorIs(t, err, ErrExhaustsResources)

	for i, who := range []AccountID{whaleA, whaleB, outsider} {
		require.Nil(t, n.Submit(NotePreimage{Encoded: []byte{byte(i)}}, who))
	}

	require.Nil(t, n.Seal(1))
	assert.Equal(t, 1, n.PendingExtrinsics())
	assert.Len(t, lastEvents(t, n), 4)
	assert.EqualValues(t, 1, testutil.ToFloat64(n.metrics.poolLength))

	require.Nil(t, n.Seal(1))
	assert.Equal(t, 0, n.PendingExtrinsics())
	records := lastEvents(t, n)
	require.Len(t, records, 2)
	assert.Equal(t, outsider, records[0].Event.(PreimageNoted).Who)
}

func TestUnpayableExtrinsicIsRejected(t *testing.T) {
	g := testGenesis()
	g.Accounts = append(g.Accounts, GenesisAccount{ID: testAccount(30), Balance: 1})
	n := newTestNode(t, g)

	err := n.Submit(NotePreimage{Encoded: []byte("a")}, testAccount(30))
	assert.ErrorIs(t, err, ErrPayment)
}

func TestPersistedBlocks(t *testing.T) {
	n := newTestNode(t, testGenesis())

	require.Nil(t, n.Submit(NotePreimage{Encoded: []byte("a")}, whaleA))
	require.Nil(t, n.Seal(2))

	head, ok := n.PersistedHead()
	require.True(t, ok)
	assert.EqualValues(t, 2, head)

	genesis, err := n.Block(0)
	require.Nil(t, err)
	b1, err := n.Block(1)
	require.Nil(t, err)
	b2, err := n.Block(2)
	require.Nil(t, err)

	assert.Equal(t, genesis.Header.Hash(), b1.Header.ParentHash)
	assert.Equal(t, b1.Header.Hash(), b2.Header.ParentHash)
	require.Len(t, b1.Extrinsics, 1)
	assert.Empty(t, b2.Extrinsics)
	assert.Equal(t, []string{
		"Democracy.PreimageNoted@ApplyExtrinsic(0)",
		"System.ExtrinsicSuccess@ApplyExtrinsic(0)",
	}, b1.Events)

	xt, err := DecodeExtrinsic(b1.Extrinsics[0])
	require.Nil(t, err)
	assert.Equal(t, whaleA, xt.Signer)
	assert.Equal(t, NotePreimage{Encoded: []byte("a")}, xt.Call.Call)
	assert.EqualValues(t, 0, xt.Nonce)
	assert.Equal(t, b1.Header.ExtrinsicsRoot, extrinsicsRoot(b1.Extrinsics))
}

func TestSubscribeNewBlock(t *testing.T) {
	// leveldb's memory pool drainer outlives Close by up to a second
	defer goleak.VerifyNone(t,
		goleak.IgnoreCurrent(),
		goleak.IgnoreTopFunction("github.com/syndtr/goleveldb/leveldb.(*DB).mpoolDrain"),
	)

	db, err := leveldb.New(t.TempDir())
	require.Nil(t, err)
	n, err := NewNode(testGenesis(), db)
	require.Nil(t, err)

	ch := make(chan NewBlock, 4)
	sub := n.SubscribeNewBlock(ch)

	require.Nil(t, n.Submit(NotePreimage{Encoded: []byte("a")}, whaleA))
	require.Nil(t, n.Seal(2))

	b1 := <-ch
	b2 := <-ch
	assert.EqualValues(t, 1, b1.Number)
	assert.Equal(t, 1, b1.Extrinsics)
	assert.Len(t, b1.Events, 2)
	assert.EqualValues(t, 2, b2.Number)
	assert.Equal(t, 0, b2.Extrinsics)

	persisted, err := n.Block(2)
	require.Nil(t, err)
	assert.Equal(t, persisted.Header.Hash(), b2.Hash)

	sub.Unsubscribe()
	require.Nil(t, n.Close())
}

func TestCustomExtensions(t *testing.T) {
	n := newTestNode(t, testGenesis(), WithExtensions(CheckNonce{}))

	require.Nil(t, n.Submit(NotePreimage{Encoded: []byte("a")}, whaleA))
	require.Nil(t, n.Seal(1))

	// without payment no fee is charged
	require.Nil(t, n.Query(func(v View) error {
		assert.EqualValues(t, 1_000*unit-1_000_000, v.FreeBalance(whaleA))
		return nil
	}))
}
