package chain

import (
	"sync"

	"github.com/axiomesh/axiom-kit/log"
	"github.com/axiomesh/axiom-kit/storage"
	"github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var ErrNothingToSeal = errors.New("block count must be positive")

// NewBlock is published on the block feed after each sealed block.
type NewBlock struct {
	Number     BlockNumber
	Hash       Hash
	Extrinsics int
	Events     []EventRecord
}

type pooled struct {
	xt   *Extrinsic
	data []byte
}

// Node is a single-authority ledger that produces blocks on demand. It never
// verifies signatures: the claimed signer of a submitted call is trusted.
type Node struct {
	mu sync.RWMutex

	state      *State
	pool       []*pooled
	extensions []SignedExtension

	store     *store
	logger    logrus.FieldLogger
	metrics   *metrics
	registry  prometheus.Registerer
	blockFeed event.Feed
}

type Option func(*Node)

func WithLogger(logger logrus.FieldLogger) Option {
	return func(n *Node) {
		n.logger = logger
	}
}

func WithRegistry(registry prometheus.Registerer) Option {
	return func(n *Node) {
		n.registry = registry
	}
}

// WithExtensions replaces the envelope pipeline; extensions run in the given order.
func WithExtensions(extensions ...SignedExtension) Option {
	return func(n *Node) {
		n.extensions = extensions
	}
}

func NewNode(genesis *Genesis, db storage.Storage, opts ...Option) (*Node, error) {
	if genesis == nil {
		return nil, errors.New("missing genesis")
	}
	if db == nil {
		return nil, errors.New("missing storage")
	}

	n := &Node{
		state:      newState(genesis),
		extensions: DefaultExtensions(),
		store:      &store{db: db},
		logger:     log.New(),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.metrics = newMetrics(n.registry)

	header := Header{
		ExtrinsicsRoot: extrinsicsRoot(nil),
		SpecVersion:    genesis.SpecVersion,
	}
	n.state.GenesisHash = header.Hash()
	n.state.ParentHash = n.state.GenesisHash

	if err := n.store.putBlock(&Block{Header: header}); err != nil {
		return nil, errors.Wrap(err, "persist genesis block")
	}
	n.store.putCode(n.state.system.Code)

	n.logger.Infof("genesis %s, council %d members, technical committee %d members",
		n.state.GenesisHash.Hex(), len(genesis.Council), len(genesis.TechnicalCommittee))
	return n, nil
}

// Submit validates a call signed by signer and queues it for the next block.
func (n *Node) Submit(call Call, signer AccountID) error {
	if call == nil {
		return ErrEmptyCall
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.state.account(signer); !ok {
		return errors.Wrapf(ErrUnknownAccount, "signer %s", signer)
	}

	xt := &Extrinsic{Signer: signer, Call: BoxedCall{Call: call}}
	ctx := &extensionContext{state: n.state, pending: n.pendingFrom}
	for _, ext := range n.extensions {
		if err := ext.Annotate(ctx, xt); err != nil {
			return errors.Wrapf(err, "%s annotate %s", ext.Identifier(), call.Name())
		}
	}

	data, err := xt.Encode()
	if err != nil {
		return errors.Wrapf(err, "encode %s", call.Name())
	}
	ctx.length = len(data)

	for _, ext := range n.extensions {
		if err := ext.Validate(ctx, xt); err != nil {
			return errors.Wrapf(err, "%s rejected %s", ext.Identifier(), call.Name())
		}
	}

	n.pool = append(n.pool, &pooled{xt: xt, data: data})
	n.metrics.submitted.Inc()
	n.metrics.poolLength.Set(float64(len(n.pool)))
	n.logger.Debugf("submit %s from %s with nonce %d", call.Name(), signer, xt.Nonce)
	return nil
}

func (n *Node) pendingFrom(who AccountID) uint64 {
	var count uint64
	for _, p := range n.pool {
		if p.xt.Signer == who {
			count++
		}
	}
	return count
}

// Seal produces count blocks, including queued extrinsics in submission order
// as far as each block's weight limit allows.
func (n *Node) Seal(count int) error {
	if count < 1 {
		return ErrNothingToSeal
	}

	n.mu.Lock()
	sealed := make([]NewBlock, 0, count)
	for i := 0; i < count; i++ {
		b, err := n.sealBlock()
		if err != nil {
			n.mu.Unlock()
			return err
		}
		sealed = append(sealed, b)
	}
	n.mu.Unlock()

	// subscribers may query the node, so publish outside the lock
	for _, b := range sealed {
		n.blockFeed.Send(b)
	}
	return nil
}

func (n *Node) sealBlock() (NewBlock, error) {
	s := n.state
	s.Number++
	s.Events = nil
	s.BlockWeight = 0

	x := &execution{state: s, phase: Phase{Kind: Initialization}}
	if x.onRuntimeUpgrade() {
		n.logger.Infof("runtime upgraded to spec version %d at block %d", s.system.SpecVersion, s.Number)
	}
	x.democracyOnInitialize()

	var included [][]byte
	var remaining []*pooled
	codeChanged := false

	for i, p := range n.pool {
		ctx := &extensionContext{state: s, length: len(p.data)}
		err := n.check(ctx, p.xt)
		if errors.Is(err, errBlockFull) {
			remaining = append(remaining, n.pool[i:]...)
			break
		}
		if err != nil {
			n.logger.Warnf("drop %s from %s: %s", p.xt.Call.Call.Name(), p.xt.Signer, err)
			n.metrics.dropped.Inc()
			continue
		}

		x.phase = Phase{Kind: ApplyExtrinsic, Extrinsic: uint32(len(included))}
		if err := x.dispatch(p.xt.Call.Call, SignedOrigin{Who: p.xt.Signer}); err != nil {
			n.logger.Debugf("%s from %s failed: %s", p.xt.Call.Call.Name(), p.xt.Signer, err)
			x.deposit(ExtrinsicFailed{Err: err.Error()})
			n.metrics.failed.Inc()
		} else {
			x.deposit(ExtrinsicSuccess{})
		}
		included = append(included, p.data)
	}
	n.pool = remaining

	descriptions := make([]string, 0, len(s.Events))
	for _, r := range s.Events {
		if _, ok := r.Event.(CodeUpdated); ok {
			codeChanged = true
		}
		descriptions = append(descriptions, r.String())
	}

	header := Header{
		Number:         s.Number,
		ParentHash:     s.ParentHash,
		ExtrinsicsRoot: extrinsicsRoot(included),
		SpecVersion:    s.system.SpecVersion,
	}
	hash := header.Hash()
	if err := n.store.putBlock(&Block{Header: header, Extrinsics: included, Events: descriptions}); err != nil {
		return NewBlock{}, err
	}
	if codeChanged {
		n.store.putCode(s.system.Code)
	}
	s.ParentHash = hash

	n.metrics.blocks.Inc()
	n.metrics.applied.Add(float64(len(included)))
	n.metrics.events.Add(float64(len(s.Events)))
	n.metrics.height.Set(float64(s.Number))
	n.metrics.poolLength.Set(float64(len(n.pool)))
	n.logger.Debugf("sealed block %d %s with %d extrinsics, %d events", s.Number, hash.Hex(), len(included), len(s.Events))

	return NewBlock{
		Number:     s.Number,
		Hash:       hash,
		Extrinsics: len(included),
		Events:     append([]EventRecord{}, s.Events...),
	}, nil
}

// check runs the pipeline against the block state and applies its effects when valid.
func (n *Node) check(ctx *extensionContext, xt *Extrinsic) error {
	for _, ext := range n.extensions {
		if err := ext.Validate(ctx, xt); err != nil {
			return err
		}
	}
	for _, ext := range n.extensions {
		if err := ext.PreDispatch(ctx, xt); err != nil {
			return errors.Wrapf(err, "%s", ext.Identifier())
		}
	}
	return nil
}

// Query runs fn against a read-only view of the latest state.
func (n *Node) Query(fn func(View) error) error {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return fn(view{s: n.state})
}

func (n *Node) Head() BlockNumber {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return n.state.Number
}

func (n *Node) PendingExtrinsics() int {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return len(n.pool)
}

// Block reads a sealed block back from storage.
func (n *Node) Block(number BlockNumber) (*Block, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return n.store.block(number)
}

// PersistedHead is the latest block number written to storage.
func (n *Node) PersistedHead() (BlockNumber, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return n.store.head()
}

// PersistedCode is the runtime code as written to storage.
func (n *Node) PersistedCode() []byte {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return n.store.code()
}

func (n *Node) SubscribeNewBlock(ch chan<- NewBlock) event.Subscription {
	return n.blockFeed.Subscribe(ch)
}

func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.pool = nil
	return n.store.db.Close()
}
