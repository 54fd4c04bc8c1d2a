package chain

import (
	"bytes"
	"encoding/hex"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

const (
	// NetworkPrefix is the SS58 address prefix of the simulated network
	NetworkPrefix byte = 0

	accountIDLen = 32
	checksumLen  = 2
)

var ss58Prefix = []byte("SS58PRE")

var ErrInvalidAddress = errors.New("invalid address")

// AccountID is the 32-byte public identity of an account.
type AccountID [accountIDLen]byte

// ParseAddress decodes an SS58 address with a single-byte network prefix.
func ParseAddress(s string) (AccountID, error) {
	var id AccountID

	raw, err := base58.Decode(s)
	if err != nil {
		return id, errors.Wrapf(ErrInvalidAddress, "%s: %s", s, err)
	}
	if len(raw) != 1+accountIDLen+checksumLen {
		return id, errors.Wrapf(ErrInvalidAddress, "%s: unexpected length %d", s, len(raw))
	}
	if raw[0] != NetworkPrefix {
		return id, errors.Wrapf(ErrInvalidAddress, "%s: unexpected network prefix %d", s, raw[0])
	}

	payload := raw[:1+accountIDLen]
	if !bytes.Equal(ss58Checksum(payload), raw[1+accountIDLen:]) {
		return id, errors.Wrapf(ErrInvalidAddress, "%s: checksum mismatch", s)
	}

	copy(id[:], raw[1:1+accountIDLen])
	return id, nil
}

// MustParseAddress is ParseAddress for literals known to be valid.
func MustParseAddress(s string) AccountID {
	id, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (a AccountID) String() string {
	payload := make([]byte, 0, 1+accountIDLen+checksumLen)
	payload = append(payload, NetworkPrefix)
	payload = append(payload, a[:]...)
	payload = append(payload, ss58Checksum(payload)...)
	return base58.Encode(payload)
}

func (a AccountID) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

func ss58Checksum(payload []byte) []byte {
	h := blake2b.Sum512(append(append([]byte{}, ss58Prefix...), payload...))
	return h[:checksumLen]
}
