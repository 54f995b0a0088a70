package engine

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Event is an observation emitted by the core for off-chain indexing.
type Event interface {
	// Name identifies the event kind, e.g. "PairCreated".
	Name() string
}

// PairCreated is emitted by the factory when a new pair is registered.
type PairCreated struct {
	Token0 common.Address `json:"token0"`
	Token1 common.Address `json:"token1"`
	Pair   common.Address `json:"pair"`
	Count  int            `json:"count"` // total pairs after this creation
}

func (PairCreated) Name() string { return "PairCreated" }

// Mint is emitted by a pair when liquidity is deposited.
type Mint struct {
	Pair    common.Address `json:"pair"`
	Sender  common.Address `json:"sender"`
	Amount0 *big.Int       `json:"amount0"`
	Amount1 *big.Int       `json:"amount1"`
}

func (Mint) Name() string { return "Mint" }

// Burn is emitted by a pair when liquidity is withdrawn.
type Burn struct {
	Pair    common.Address `json:"pair"`
	Sender  common.Address `json:"sender"`
	Amount0 *big.Int       `json:"amount0"`
	Amount1 *big.Int       `json:"amount1"`
	To      common.Address `json:"to"`
}

func (Burn) Name() string { return "Burn" }

// Swap is emitted by a pair after a successful swap. The input amounts are
// the ones implied by the balance deltas, not caller arguments.
type Swap struct {
	Pair       common.Address `json:"pair"`
	Sender     common.Address `json:"sender"`
	Amount0In  *big.Int       `json:"amount0In"`
	Amount1In  *big.Int       `json:"amount1In"`
	Amount0Out *big.Int       `json:"amount0Out"`
	Amount1Out *big.Int       `json:"amount1Out"`
	To         common.Address `json:"to"`
}

func (Swap) Name() string { return "Swap" }

// Sync is emitted whenever a pair's cached reserves are resynced to its
// actual token balances.
type Sync struct {
	Pair     common.Address `json:"pair"`
	Reserve0 *big.Int       `json:"reserve0"`
	Reserve1 *big.Int       `json:"reserve1"`
}

func (Sync) Name() string { return "Sync" }
