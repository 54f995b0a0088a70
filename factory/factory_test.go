package factory

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackbird014/pooliverse-swapper/engine"
	"github.com/blackbird014/pooliverse-swapper/token"
)

type env struct {
	journal *engine.Journal
	tokens  map[common.Address]*token.Ledger
	factory *Factory
	events  []engine.Event
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{tokens: make(map[common.Address]*token.Ledger)}
	e.journal = engine.NewJournal(func(ev engine.Event) { e.events = append(e.events, ev) })

	f, err := New(Config{
		Journal: e.journal,
		Resolve: func(addr common.Address) (token.Token, error) {
			if tok, ok := e.tokens[addr]; ok {
				return tok, nil
			}
			return nil, fmt.Errorf("no token at %s", addr)
		},
		Now: func() uint64 { return 0 },
	})
	require.NoError(t, err)
	e.factory = f
	return e
}

func (e *env) addToken(addr common.Address, symbol string) common.Address {
	e.tokens[addr] = token.NewLedger(e.journal, addr, symbol, symbol, 18)
	return addr
}

var (
	tokenA = common.HexToAddress("0x0a")
	tokenB = common.HexToAddress("0x0b")
	tokenC = common.HexToAddress("0x0c")
)

func TestConfigValidation(t *testing.T) {
	resolve := func(common.Address) (token.Token, error) { return nil, errors.New("unused") }
	now := func() uint64 { return 0 }
	j := engine.NewJournal(nil)

	testCases := []struct {
		name string
		cfg  Config
	}{
		{name: "Nil Journal", cfg: Config{Resolve: resolve, Now: now}},
		{name: "Nil Resolver", cfg: Config{Journal: j, Now: now}},
		{name: "Nil Clock", cfg: Config{Journal: j, Resolve: resolve}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.cfg)
			require.Error(t, err)
		})
	}
}

func TestCreatePairCanonicalOrder(t *testing.T) {
	e := newEnv(t)
	e.addToken(tokenA, "TKA")
	e.addToken(tokenB, "TKB")

	// created with arguments reversed on purpose
	p, err := e.factory.CreatePair(tokenB, tokenA)
	require.NoError(t, err)

	assert.True(t, bytes.Compare(p.Token0().Bytes(), p.Token1().Bytes()) < 0)
	assert.Equal(t, tokenA, p.Token0())
	assert.Equal(t, tokenB, p.Token1())
}

func TestCreatePairRejections(t *testing.T) {
	testCases := []struct {
		name        string
		tokenA      common.Address
		tokenB      common.Address
		expectedErr error
	}{
		{name: "Identical", tokenA: tokenA, tokenB: tokenA, expectedErr: ErrIdenticalAddresses},
		{name: "Zero First", tokenA: common.Address{}, tokenB: tokenB, expectedErr: ErrZeroAddress},
		{name: "Zero Second", tokenA: tokenA, tokenB: common.Address{}, expectedErr: ErrZeroAddress},
		{name: "Unresolvable", tokenA: tokenA, tokenB: tokenC, expectedErr: ErrUnknownToken},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t)
			e.addToken(tokenA, "TKA")
			e.addToken(tokenB, "TKB")

			_, err := e.factory.CreatePair(tc.tokenA, tc.tokenB)
			require.ErrorIs(t, err, tc.expectedErr)
		})
	}
}

func TestCreatePairTwiceFails(t *testing.T) {
	e := newEnv(t)
	e.addToken(tokenA, "TKA")
	e.addToken(tokenB, "TKB")

	_, err := e.factory.CreatePair(tokenA, tokenB)
	require.NoError(t, err)

	_, err = e.factory.CreatePair(tokenB, tokenA)
	require.ErrorIs(t, err, ErrPairExists)
	assert.Equal(t, 1, e.factory.PairCount())
}

func TestGetPairBothOrders(t *testing.T) {
	e := newEnv(t)
	e.addToken(tokenA, "TKA")
	e.addToken(tokenB, "TKB")

	p, err := e.factory.CreatePair(tokenA, tokenB)
	require.NoError(t, err)

	assert.Same(t, p, e.factory.GetPair(tokenA, tokenB))
	assert.Same(t, p, e.factory.GetPair(tokenB, tokenA))
	assert.Nil(t, e.factory.GetPair(tokenA, tokenC))
}

func TestPairAddressIsDeterministic(t *testing.T) {
	e := newEnv(t)
	e.addToken(tokenA, "TKA")
	e.addToken(tokenB, "TKB")

	predicted := PairAddressFor(tokenB, tokenA)
	p, err := e.factory.CreatePair(tokenA, tokenB)
	require.NoError(t, err)

	assert.Equal(t, predicted, p.Address())
	assert.Equal(t, predicted, PairAddressFor(tokenA, tokenB), "derivation must be order independent")
}

func TestEnumerationFollowsCreationOrder(t *testing.T) {
	e := newEnv(t)
	e.addToken(tokenA, "TKA")
	e.addToken(tokenB, "TKB")
	e.addToken(tokenC, "TKC")

	first, err := e.factory.CreatePair(tokenA, tokenB)
	require.NoError(t, err)
	second, err := e.factory.CreatePair(tokenB, tokenC)
	require.NoError(t, err)

	require.Equal(t, 2, e.factory.PairCount())
	assert.Same(t, first, e.factory.PairAt(0))
	assert.Same(t, second, e.factory.PairAt(1))
	assert.Nil(t, e.factory.PairAt(2))

	all := e.factory.AllPairs()
	require.Len(t, all, 2)
	assert.Same(t, first, all[0])
	assert.Same(t, second, all[1])
}

func TestAbortedCreationIsUnwound(t *testing.T) {
	e := newEnv(t)
	e.addToken(tokenA, "TKA")
	e.addToken(tokenB, "TKB")

	errBoom := errors.New("boom")
	err := e.journal.Transact(func() error {
		_, err := e.factory.CreatePair(tokenA, tokenB)
		require.NoError(t, err)
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	assert.Equal(t, 0, e.factory.PairCount())
	assert.Nil(t, e.factory.GetPair(tokenA, tokenB))
	assert.Nil(t, e.factory.GetPair(tokenB, tokenA))
	assert.Empty(t, e.events, "aborted creation must not publish events")
}

func TestPairCreatedEventPublished(t *testing.T) {
	e := newEnv(t)
	e.addToken(tokenA, "TKA")
	e.addToken(tokenB, "TKB")

	var p common.Address
	require.NoError(t, e.journal.Transact(func() error {
		created, err := e.factory.CreatePair(tokenA, tokenB)
		if err != nil {
			return err
		}
		p = created.Address()
		return nil
	}))

	require.Len(t, e.events, 1)
	ev, ok := e.events[0].(engine.PairCreated)
	require.True(t, ok)
	assert.Equal(t, tokenA, ev.Token0)
	assert.Equal(t, tokenB, ev.Token1)
	assert.Equal(t, p, ev.Pair)
	assert.Equal(t, 1, ev.Count)
}
