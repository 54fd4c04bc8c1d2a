package chain

import (
	"github.com/pkg/errors"
)

var ErrInvalidCode = errors.New("invalid runtime code")

func (c SetCode) dispatch(x *execution, o Origin) error {
	if err := ensureRoot(o); err != nil {
		return err
	}
	if len(c.Code) == 0 {
		return ErrInvalidCode
	}

	x.state.system.Code = append([]byte{}, c.Code...)
	x.state.system.PendingUpgrade = true
	x.deposit(CodeUpdated{})
	return nil
}

// onRuntimeUpgrade runs at the start of the block after the code changed.
func (x *execution) onRuntimeUpgrade() bool {
	sys := &x.state.system
	if !sys.PendingUpgrade {
		return false
	}

	sys.PendingUpgrade = false
	sys.SpecVersion++
	sys.LastRuntimeUpgrade = RuntimeUpgrade{SpecVersion: sys.SpecVersion, Block: x.now()}
	return true
}
