package repo

import (
	"github.com/axiomesh/upgrader/chain"
	"github.com/pkg/errors"
)

// MinVotingPeriod is the shortest referendum that can carry the whale votes:
// they land one block after the start and must be counted before the end block.
const MinVotingPeriod uint32 = 2

var ErrVotingPeriodTooShort = errors.Errorf("referendum voting period must be at least %d blocks", MinVotingPeriod)

// EffectiveVotingPeriod is the voting period of the fast-tracked referendum,
// the upgrade override or else the chain's fast-track period.
func (c *Config) EffectiveVotingPeriod() uint32 {
	if c.Upgrade.VotingPeriod != 0 {
		return c.Upgrade.VotingPeriod
	}
	return c.Genesis.FastTrackVotingPeriod
}

// Validate checks the config on its own: addresses, committees, the vote cast
// by the whales and the resolved voting period.
func (c *Config) Validate() error {
	if len(c.Genesis.Code) == 0 {
		return errors.New("genesis.code is empty")
	}
	for _, a := range c.Genesis.Accounts {
		if _, err := chain.ParseAddress(a.Address); err != nil {
			return errors.Wrap(err, "genesis.accounts")
		}
	}
	if err := checkAddresses("genesis.council", c.Genesis.Council); err != nil {
		return err
	}
	if err := checkAddresses("genesis.technical_committee", c.Genesis.TechnicalCommittee); err != nil {
		return err
	}
	if err := checkAddresses("upgrade.whales", c.Upgrade.Whales); err != nil {
		return err
	}

	if _, ok := chain.ParseConviction(c.Upgrade.Conviction); !ok {
		return errors.Wrapf(chain.ErrInvalidConviction, "upgrade.conviction %q", c.Upgrade.Conviction)
	}
	if c.Upgrade.VoteBalance == 0 {
		return errors.New("upgrade.vote_balance must be positive")
	}

	if period := c.EffectiveVotingPeriod(); period < MinVotingPeriod {
		if c.Upgrade.VotingPeriod == 0 {
			return errors.Wrapf(ErrVotingPeriodTooShort, "genesis.fast_track_voting_period is %d", period)
		}
		return errors.Wrapf(ErrVotingPeriodTooShort, "upgrade.voting_period is %d", period)
	}
	return nil
}

func checkAddresses(key string, addrs []string) error {
	if len(addrs) == 0 {
		return errors.Errorf("%s is empty", key)
	}
	for _, addr := range addrs {
		if _, err := chain.ParseAddress(addr); err != nil {
			return errors.Wrap(err, key)
		}
	}
	return nil
}
