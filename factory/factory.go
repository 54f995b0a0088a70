// Package factory maintains the canonical registry of pairs. Every pair is
// created through the factory exactly once, addressed deterministically from
// its sorted token addresses, and discoverable under both token orderings.
package factory

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/blackbird014/pooliverse-swapper/engine"
	"github.com/blackbird014/pooliverse-swapper/pair"
	"github.com/blackbird014/pooliverse-swapper/token"
)

var (
	// ErrIdenticalAddresses is returned when both tokens of a pair are the same.
	ErrIdenticalAddresses = errors.New("identical token addresses")
	// ErrZeroAddress is returned when a token is the zero address.
	ErrZeroAddress = errors.New("zero token address")
	// ErrPairExists is returned when the pair has already been created.
	ErrPairExists = errors.New("pair already exists")
	// ErrUnknownToken is returned when a token address cannot be resolved.
	ErrUnknownToken = errors.New("unknown token")
)

// TokenResolver looks up a live token by address.
type TokenResolver func(common.Address) (token.Token, error)

// Config carries the factory dependencies.
type Config struct {
	Journal *engine.Journal
	Resolve TokenResolver

	// FeeBps is applied to every pair this factory creates. Zero selects
	// pair.DefaultFeeBps.
	FeeBps uint16

	// Now supplies timestamps for the pairs' price accumulators.
	Now func() uint64
}

func (c Config) validate() error {
	if c.Journal == nil {
		return errors.New("factory: nil journal")
	}
	if c.Resolve == nil {
		return errors.New("factory: nil token resolver")
	}
	if c.Now == nil {
		return errors.New("factory: nil clock")
	}
	return nil
}

// Factory registers pairs by their canonical token ordering. Lookups work
// under either argument order; enumeration follows creation order.
//
// A Factory is NOT safe for concurrent use; the owning exchange serializes
// access.
type Factory struct {
	cfg Config

	pairs    map[common.Address]map[common.Address]*pair.Pair
	allPairs []*pair.Pair
}

// New creates an empty factory.
func New(cfg Config) (*Factory, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Factory{
		cfg:   cfg,
		pairs: make(map[common.Address]map[common.Address]*pair.Pair),
	}, nil
}

// SortTokens returns the two addresses in canonical byte order.
func SortTokens(tokenA, tokenB common.Address) (token0, token1 common.Address) {
	if bytes.Compare(tokenA.Bytes(), tokenB.Bytes()) < 0 {
		return tokenA, tokenB
	}
	return tokenB, tokenA
}

// PairAddressFor derives the deterministic address a pair for the two tokens
// will live at, without creating it. The derivation depends only on the
// sorted token addresses, so it is computable offline.
func PairAddressFor(tokenA, tokenB common.Address) common.Address {
	token0, token1 := SortTokens(tokenA, tokenB)
	return common.BytesToAddress(crypto.Keccak256(token0.Bytes(), token1.Bytes())[12:])
}

// CreatePair registers the pair for the two tokens and returns it. Argument
// order does not matter. The creation is journaled: if the surrounding
// operation aborts, the registration is unwound.
func (f *Factory) CreatePair(tokenA, tokenB common.Address) (*pair.Pair, error) {
	if tokenA == tokenB {
		return nil, fmt.Errorf("%w: %s", ErrIdenticalAddresses, tokenA)
	}
	if (tokenA == common.Address{}) || (tokenB == common.Address{}) {
		return nil, ErrZeroAddress
	}
	token0, token1 := SortTokens(tokenA, tokenB)
	if f.GetPair(token0, token1) != nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrPairExists, token0, token1)
	}

	tok0, err := f.cfg.Resolve(token0)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, token0)
	}
	tok1, err := f.cfg.Resolve(token1)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, token1)
	}

	p := pair.New(f.cfg.Journal, PairAddressFor(token0, token1), f.cfg.FeeBps, f.cfg.Now)
	if err := p.Initialize(tok0, tok1); err != nil {
		return nil, err
	}
	f.register(token0, token1, p)

	f.cfg.Journal.Emit(engine.PairCreated{
		Token0: token0,
		Token1: token1,
		Pair:   p.Address(),
		Count:  len(f.allPairs),
	})
	return p, nil
}

// register records the pair under both token orderings and in the creation
// list, journaling the inserts so an aborted operation removes them.
func (f *Factory) register(token0, token1 common.Address, p *pair.Pair) {
	f.insert(token0, token1, p)
	f.insert(token1, token0, p)

	f.allPairs = append(f.allPairs, p)
	f.cfg.Journal.Append(func() {
		f.allPairs = f.allPairs[:len(f.allPairs)-1]
	})
}

func (f *Factory) insert(a, b common.Address, p *pair.Pair) {
	m, ok := f.pairs[a]
	if !ok {
		m = make(map[common.Address]*pair.Pair)
		f.pairs[a] = m
		f.cfg.Journal.Append(func() { delete(f.pairs, a) })
	}
	f.cfg.Journal.Append(func() { delete(m, b) })
	m[b] = p
}

// GetPair returns the pair for the two tokens in either order, nil if absent.
func (f *Factory) GetPair(tokenA, tokenB common.Address) *pair.Pair {
	if m, ok := f.pairs[tokenA]; ok {
		return m[tokenB]
	}
	return nil
}

// PairCount returns the number of registered pairs.
func (f *Factory) PairCount() int {
	return len(f.allPairs)
}

// PairAt returns the i-th pair in creation order, nil if out of range.
func (f *Factory) PairAt(i int) *pair.Pair {
	if i < 0 || i >= len(f.allPairs) {
		return nil
	}
	return f.allPairs[i]
}

// AllPairs returns the registered pairs in creation order. The returned
// slice is a copy; the pairs themselves are shared.
func (f *Factory) AllPairs() []*pair.Pair {
	out := make([]*pair.Pair, len(f.allPairs))
	copy(out, f.allPairs)
	return out
}
