package chain

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

var (
	ErrUnknownCall = errors.New("unknown call index")
	ErrEmptyCall   = errors.New("empty call")
)

var (
	encMode = mustEncMode()
	decMode = mustDecMode()
)

func mustEncMode() cbor.EncMode {
	// core deterministic encoding keeps preimage hashes stable across runs
	em, err := cbor.EncOptions{Sort: cbor.SortCoreDeterministic}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

func mustDecMode() cbor.DecMode {
	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}

type encodedCall struct {
	_      struct{} `cbor:",toarray"`
	Pallet uint8
	Call   uint8
	Args   cbor.RawMessage
}

// EncodeCall serializes a call as [pallet, call, args].
func EncodeCall(c Call) ([]byte, error) {
	if c == nil {
		return nil, ErrEmptyCall
	}

	args, err := encMode.Marshal(c)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s arguments", c.Name())
	}

	idx := c.Index()
	data, err := encMode.Marshal(encodedCall{Pallet: idx.Pallet, Call: idx.Call, Args: args})
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s", c.Name())
	}
	return data, nil
}

// EncodedLen is the byte length of the call encoding.
func EncodedLen(c Call) (uint32, error) {
	data, err := EncodeCall(c)
	if err != nil {
		return 0, err
	}
	return uint32(len(data)), nil
}

// CallHash is the hash a collective or the preimage store identifies a call by.
func CallHash(c Call) (Hash, error) {
	data, err := EncodeCall(c)
	if err != nil {
		return Hash{}, err
	}
	return HashOf(data), nil
}

func DecodeCall(data []byte) (Call, error) {
	var env encodedCall
	if err := decMode.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrap(err, "decode call envelope")
	}

	idx := CallIndex{Pallet: env.Pallet, Call: env.Call}
	decode, ok := callDecoders[idx]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownCall, "%d/%d", idx.Pallet, idx.Call)
	}

	c, err := decode(env.Args)
	if err != nil {
		return nil, errors.Wrapf(err, "decode call %d/%d", idx.Pallet, idx.Call)
	}
	return c, nil
}

// BoxedCall nests a call inside another call's arguments using the call encoding.
type BoxedCall struct {
	Call Call
}

func (b BoxedCall) MarshalCBOR() ([]byte, error) {
	return EncodeCall(b.Call)
}

func (b *BoxedCall) UnmarshalCBOR(data []byte) error {
	c, err := DecodeCall(data)
	if err != nil {
		return err
	}
	b.Call = c
	return nil
}

type callDecoder func(raw []byte) (Call, error)

var callDecoders map[CallIndex]callDecoder

// instanced calls take their collective instance from the pallet index.
type instanced interface {
	withInstance(Instance) Call
}

func register[T Call](inst Instance) {
	var zero T
	idx := zero.Index()
	if ic, ok := any(zero).(instanced); ok {
		idx = ic.withInstance(inst).Index()
	}

	callDecoders[idx] = func(raw []byte) (Call, error) {
		var c T
		if err := decMode.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		if ic, ok := any(c).(instanced); ok {
			return ic.withInstance(inst), nil
		}
		return c, nil
	}
}

func init() {
	callDecoders = make(map[CallIndex]callDecoder)

	register[SetCode](Council)

	register[NotePreimage](Council)
	register[ExternalPropose](Council)
	register[ExternalProposeMajority](Council)
	register[ExternalProposeDefault](Council)
	register[FastTrack](Council)
	register[Vote](Council)

	for _, inst := range []Instance{Council, TechnicalCommittee} {
		register[Propose](inst)
		register[CollectiveVote](inst)
		register[Close](inst)
	}
}
