package router

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNoRoute is returned when no path connects the two tokens within the
// hop limit.
var ErrNoRoute = errors.New("no route between tokens")

// DefaultMaxHops bounds route search. Three hops covers every pair of
// tokens sharing a common intermediary or bridge token.
const DefaultMaxHops = 3

// Pathfinder enumerates swap routes over the factory's pair graph. The
// token adjacency map is cached and rebuilt only when the set of
// registered pairs changes, so a long-lived pathfinder answers repeated
// queries without re-deriving the graph.
type Pathfinder struct {
	router  *Router
	maxHops int

	adjacency map[common.Address][]common.Address
	pairCount int
}

// NewPathfinder creates a pathfinder over the router's factory. A
// non-positive maxHops selects DefaultMaxHops.
func NewPathfinder(r *Router, maxHops int) *Pathfinder {
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	return &Pathfinder{router: r, maxHops: maxHops}
}

// Paths returns every loop-free token path from tokenIn to tokenOut with at
// most maxHops pair traversals, in discovery order.
func (pf *Pathfinder) Paths(tokenIn, tokenOut common.Address) [][]common.Address {
	adjacency := pf.graph()

	var out [][]common.Address
	visited := map[common.Address]bool{tokenIn: true}
	path := []common.Address{tokenIn}

	var walk func(from common.Address)
	walk = func(from common.Address) {
		if len(path) > pf.maxHops+1 {
			return
		}
		if from == tokenOut {
			route := make([]common.Address, len(path))
			copy(route, path)
			out = append(out, route)
			return
		}
		for _, next := range adjacency[from] {
			if visited[next] {
				continue
			}
			visited[next] = true
			path = append(path, next)
			walk(next)
			path = path[:len(path)-1]
			visited[next] = false
		}
	}
	walk(tokenIn)
	return out
}

// BestPathExactIn quotes every candidate path for amountIn and returns the
// one yielding the largest final output together with its hop amounts.
// Paths whose pools cannot absorb the trade are skipped.
func (pf *Pathfinder) BestPathExactIn(amountIn *big.Int, tokenIn, tokenOut common.Address) ([]common.Address, []*big.Int, error) {
	var (
		bestPath    []common.Address
		bestAmounts []*big.Int
	)
	for _, path := range pf.Paths(tokenIn, tokenOut) {
		amounts, err := pf.router.GetAmountsOut(amountIn, path)
		if err != nil {
			continue
		}
		final := amounts[len(amounts)-1]
		if final.Sign() <= 0 {
			continue
		}
		if bestAmounts == nil || final.Cmp(bestAmounts[len(bestAmounts)-1]) > 0 {
			bestPath, bestAmounts = path, amounts
		}
	}
	if bestPath == nil {
		return nil, nil, fmt.Errorf("%w: %s -> %s within %d hops", ErrNoRoute, tokenIn, tokenOut, pf.maxHops)
	}
	return bestPath, bestAmounts, nil
}

// graph returns the token adjacency map. Pair creation is the only way the
// pair set changes, so a matching pair count means the cached map is
// current.
func (pf *Pathfinder) graph() map[common.Address][]common.Address {
	count := pf.router.cfg.Factory.PairCount()
	if pf.adjacency != nil && count == pf.pairCount {
		return pf.adjacency
	}

	adjacency := make(map[common.Address][]common.Address)
	for _, p := range pf.router.cfg.Factory.AllPairs() {
		adjacency[p.Token0()] = append(adjacency[p.Token0()], p.Token1())
		adjacency[p.Token1()] = append(adjacency[p.Token1()], p.Token0())
	}
	pf.adjacency = adjacency
	pf.pairCount = count
	return adjacency
}
