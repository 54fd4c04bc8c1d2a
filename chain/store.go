package chain

import (
	"encoding/binary"

	"github.com/axiomesh/axiom-kit/storage"
	"github.com/pkg/errors"
)

const (
	headKey        = "head"
	codeKey        = ":code"
	blockKeyPrefix = "block-"
)

var ErrBlockNotFound = errors.New("block not found")

type Header struct {
	_              struct{} `cbor:",toarray"`
	Number         BlockNumber
	ParentHash     Hash
	ExtrinsicsRoot Hash
	SpecVersion    uint32
}

func (h *Header) Hash() Hash {
	data, err := encMode.Marshal(h)
	if err != nil {
		// a header only holds fixed-size fields
		panic(err)
	}
	return HashOf(data)
}

// Block is the persisted form of a sealed block. Events are kept as their
// textual description.
type Block struct {
	_          struct{} `cbor:",toarray"`
	Header     Header
	Extrinsics [][]byte
	Events     []string
}

func extrinsicsRoot(extrinsics [][]byte) Hash {
	var buf []byte
	for _, xt := range extrinsics {
		buf = append(buf, HashOf(xt).Bytes()...)
	}
	return HashOf(buf)
}

// store journals sealed blocks and the current runtime code.
type store struct {
	db storage.Storage
}

func blockKey(n BlockNumber) []byte {
	key := make([]byte, len(blockKeyPrefix)+4)
	copy(key, blockKeyPrefix)
	binary.BigEndian.PutUint32(key[len(blockKeyPrefix):], n)
	return key
}

func (s *store) putBlock(b *Block) error {
	data, err := encMode.Marshal(b)
	if err != nil {
		return errors.Wrapf(err, "encode block %d", b.Header.Number)
	}
	s.db.Put(blockKey(b.Header.Number), data)

	head := make([]byte, 4)
	binary.BigEndian.PutUint32(head, b.Header.Number)
	s.db.Put([]byte(headKey), head)
	return nil
}

func (s *store) block(n BlockNumber) (*Block, error) {
	data := s.db.Get(blockKey(n))
	if data == nil {
		return nil, errors.Wrapf(ErrBlockNotFound, "number %d", n)
	}
	b := &Block{}
	if err := decMode.Unmarshal(data, b); err != nil {
		return nil, errors.Wrapf(err, "decode block %d", n)
	}
	return b, nil
}

func (s *store) head() (BlockNumber, bool) {
	data := s.db.Get([]byte(headKey))
	if len(data) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(data), true
}

func (s *store) putCode(code []byte) {
	s.db.Put([]byte(codeKey), code)
}

func (s *store) code() []byte {
	return s.db.Get([]byte(codeKey))
}
