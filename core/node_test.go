package core

import (
	"testing"

	"github.com/axiomesh/upgrader/chain"
	"github.com/axiomesh/upgrader/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenesisFromConfig(t *testing.T) {
	cfg := repo.DefaultConfig(t.TempDir())

	g, err := GenesisFromConfig(&cfg.Genesis)
	require.Nil(t, err)
	assert.Equal(t, []byte(cfg.Genesis.Code), g.Code)
	assert.Len(t, g.Accounts, len(cfg.Genesis.Accounts))
	assert.Len(t, g.Council, 3)
	assert.Len(t, g.TechnicalCommittee, 2)
	assert.Equal(t, cfg.Genesis.Council[0], g.Council[0].String())
	assert.Equal(t, chain.DefaultParams(), g.Params)

	cfg.Genesis.Council = append(cfg.Genesis.Council, "bogus")
	_, err = GenesisFromConfig(&cfg.Genesis)
	assert.ErrorIs(t, err, chain.ErrInvalidAddress)

	cfg = repo.DefaultConfig(t.TempDir())
	cfg.Genesis.Accounts = append(cfg.Genesis.Accounts, cfg.Genesis.Accounts[0])
	_, err = GenesisFromConfig(&cfg.Genesis)
	assert.NotNil(t, err)

	cfg = repo.DefaultConfig(t.TempDir())
	cfg.Genesis.Code = ""
	_, err = GenesisFromConfig(&cfg.Genesis)
	assert.NotNil(t, err)
}

func TestNewNodeFromConfig(t *testing.T) {
	cfg := repo.DefaultConfig(t.TempDir())
	node := newTestNode(t, cfg)

	whale := chain.MustParseAddress(cfg.Upgrade.Whales[0])
	require.Nil(t, node.Query(func(v chain.View) error {
		assert.Equal(t, 1_000*repo.Unit, v.FreeBalance(whale))
		assert.Equal(t, cfg.Genesis.SpecVersion, v.SpecVersion())
		assert.Len(t, v.Members(chain.Council), 3)
		return nil
	}))
}
