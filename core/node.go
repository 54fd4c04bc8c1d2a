package core

import (
	"github.com/axiomesh/axiom-kit/storage"
	"github.com/axiomesh/upgrader/chain"
	"github.com/axiomesh/upgrader/repo"
	"github.com/pkg/errors"
)

// GenesisFromConfig resolves the configured genesis addresses into chain accounts.
func GenesisFromConfig(cfg *repo.Genesis) (*chain.Genesis, error) {
	parse := func(role string, addrs []string) ([]chain.AccountID, error) {
		ids := make([]chain.AccountID, 0, len(addrs))
		for _, addr := range addrs {
			id, err := chain.ParseAddress(addr)
			if err != nil {
				return nil, errors.Wrapf(err, "%s %s", role, addr)
			}
			ids = append(ids, id)
		}
		return ids, nil
	}

	council, err := parse("council member", cfg.Council)
	if err != nil {
		return nil, err
	}
	technical, err := parse("technical committee member", cfg.TechnicalCommittee)
	if err != nil {
		return nil, err
	}

	accounts := make([]chain.GenesisAccount, 0, len(cfg.Accounts))
	seen := make(map[chain.AccountID]bool)
	for _, a := range cfg.Accounts {
		id, err := chain.ParseAddress(a.Address)
		if err != nil {
			return nil, errors.Wrapf(err, "account %s", a.Address)
		}
		if seen[id] {
			return nil, errors.Errorf("duplicate genesis account %s", a.Address)
		}
		seen[id] = true
		accounts = append(accounts, chain.GenesisAccount{ID: id, Balance: a.Balance})
	}

	if len(cfg.Code) == 0 {
		return nil, errors.New("genesis runtime code is empty")
	}

	return &chain.Genesis{
		SpecVersion:        cfg.SpecVersion,
		TxVersion:          cfg.TxVersion,
		Code:               []byte(cfg.Code),
		Accounts:           accounts,
		Council:            council,
		TechnicalCommittee: technical,
		Params: chain.Params{
			MotionDuration:        cfg.MotionDuration,
			FastTrackVotingPeriod: cfg.FastTrackVotingPeriod,
			InstantAllowed:        cfg.InstantAllowed,
			PreimageByteDeposit:   cfg.PreimageByteDeposit,
			BaseFee:               cfg.BaseFee,
			ByteFee:               cfg.ByteFee,
			MaxBlockWeight:        cfg.MaxBlockWeight,
		},
	}, nil
}

// NewNode starts a ledger node from the configured genesis on top of db.
func NewNode(config *repo.Config, db storage.Storage, opts ...chain.Option) (*chain.Node, error) {
	genesis, err := GenesisFromConfig(&config.Genesis)
	if err != nil {
		return nil, errors.Wrap(err, "build genesis")
	}
	return chain.NewNode(genesis, db, opts...)
}
