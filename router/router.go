// Package router is the user-facing periphery. It sizes deposits, quotes
// multi-hop swaps and moves tokens so that the pairs' balance-based
// accounting observes exactly the intended amounts. The router owns no
// funds of its own: callers approve it as a spender and it pulls inputs
// straight into the first pair of a route.
package router

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/blackbird014/pooliverse-swapper/engine"
	"github.com/blackbird014/pooliverse-swapper/factory"
	"github.com/blackbird014/pooliverse-swapper/pair"
	"github.com/blackbird014/pooliverse-swapper/router/calculator"
)

var (
	// ErrExpired is returned when an operation's deadline has passed before
	// execution.
	ErrExpired = errors.New("transaction deadline expired")
	// ErrInvalidPath is returned for routes with fewer than two hops or a
	// repeated consecutive token.
	ErrInvalidPath = errors.New("invalid swap path")
	// ErrPairNotFound is returned when a route references a pair that was
	// never created.
	ErrPairNotFound = errors.New("pair not found")
	// ErrInsufficientAAmount is returned when the executable deposit of the
	// first token falls below the caller's minimum.
	ErrInsufficientAAmount = errors.New("insufficient A amount")
	// ErrInsufficientBAmount is returned when the executable deposit of the
	// second token falls below the caller's minimum.
	ErrInsufficientBAmount = errors.New("insufficient B amount")
	// ErrInsufficientOutputAmount is returned when a swap's final output
	// falls below the caller's minimum.
	ErrInsufficientOutputAmount = errors.New("insufficient output amount")
	// ErrExcessiveInputAmount is returned when the input required for an
	// exact output exceeds the caller's maximum.
	ErrExcessiveInputAmount = errors.New("excessive input amount")
)

// Config carries the router dependencies.
type Config struct {
	// Address identifies the router as a token spender and event sender.
	Address common.Address

	Journal *engine.Journal
	Factory *factory.Factory
	Resolve factory.TokenResolver

	// Now supplies unix timestamps for deadline checks.
	Now func() uint64
}

func (c Config) validate() error {
	if (c.Address == common.Address{}) {
		return errors.New("router: zero address")
	}
	if c.Journal == nil {
		return errors.New("router: nil journal")
	}
	if c.Factory == nil {
		return errors.New("router: nil factory")
	}
	if c.Resolve == nil {
		return errors.New("router: nil token resolver")
	}
	if c.Now == nil {
		return errors.New("router: nil clock")
	}
	return nil
}

// Router executes liquidity and swap operations against factory pairs.
//
// A Router is NOT safe for concurrent use; the owning exchange serializes
// access.
type Router struct {
	cfg Config
}

// New creates a router bound to a factory.
func New(cfg Config) (*Router, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Router{cfg: cfg}, nil
}

// Address returns the router's own address.
func (r *Router) Address() common.Address { return r.cfg.Address }

// checkDeadline rejects operations past their deadline. A zero deadline
// means no deadline.
func (r *Router) checkDeadline(deadline uint64) error {
	if deadline != 0 && r.cfg.Now() > deadline {
		return fmt.Errorf("%w: deadline %d, now %d", ErrExpired, deadline, r.cfg.Now())
	}
	return nil
}

// GetReserves returns the reserves of the pair for the two tokens, ordered
// to match the caller's argument order rather than the canonical one.
func (r *Router) GetReserves(tokenA, tokenB common.Address) (reserveA, reserveB *big.Int, err error) {
	p := r.cfg.Factory.GetPair(tokenA, tokenB)
	if p == nil {
		return nil, nil, fmt.Errorf("%w: %s/%s", ErrPairNotFound, tokenA, tokenB)
	}
	reserve0, reserve1, _ := p.GetReserves()
	if tokenA == p.Token0() {
		return reserve0, reserve1, nil
	}
	return reserve1, reserve0, nil
}

// AddLiquidity deposits a ratio-preserving pair of amounts and mints
// liquidity to `to`. The pair is created on first use. Starting from the
// desired amounts, the pair's current ratio selects the executable pair of
// amounts; the per-token minimums bound the slippage the caller accepts.
func (r *Router) AddLiquidity(
	sender common.Address,
	tokenA, tokenB common.Address,
	amountADesired, amountBDesired *big.Int,
	amountAMin, amountBMin *big.Int,
	to common.Address,
	deadline uint64,
) (amountA, amountB, liquidity *big.Int, err error) {
	if err := r.checkDeadline(deadline); err != nil {
		return nil, nil, nil, err
	}

	err = r.cfg.Journal.Transact(func() error {
		p := r.cfg.Factory.GetPair(tokenA, tokenB)
		if p == nil {
			var err error
			p, err = r.cfg.Factory.CreatePair(tokenA, tokenB)
			if err != nil {
				return err
			}
		}

		amountA, amountB, err = r.optimalAmounts(p, tokenA, amountADesired, amountBDesired, amountAMin, amountBMin)
		if err != nil {
			return err
		}

		tokA, err := r.cfg.Resolve(tokenA)
		if err != nil {
			return err
		}
		tokB, err := r.cfg.Resolve(tokenB)
		if err != nil {
			return err
		}
		if err := tokA.TransferFrom(r.cfg.Address, sender, p.Address(), amountA); err != nil {
			return err
		}
		if err := tokB.TransferFrom(r.cfg.Address, sender, p.Address(), amountB); err != nil {
			return err
		}

		liquidity, err = p.Mint(r.cfg.Address, to)
		return err
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return amountA, amountB, liquidity, nil
}

// optimalAmounts selects the executable deposit amounts at the pair's
// current ratio. An empty pair accepts the desired amounts as given.
func (r *Router) optimalAmounts(
	p *pair.Pair,
	tokenA common.Address,
	amountADesired, amountBDesired *big.Int,
	amountAMin, amountBMin *big.Int,
) (*big.Int, *big.Int, error) {
	reserve0, reserve1, _ := p.GetReserves()
	reserveA, reserveB := reserve0, reserve1
	if tokenA != p.Token0() {
		reserveA, reserveB = reserve1, reserve0
	}
	if reserveA.Sign() == 0 && reserveB.Sign() == 0 {
		return amountADesired, amountBDesired, nil
	}

	amountBOptimal, err := calculator.Quote(amountADesired, reserveA, reserveB)
	if err != nil {
		return nil, nil, err
	}
	if amountBOptimal.Cmp(amountBDesired) <= 0 {
		if amountBMin != nil && amountBOptimal.Cmp(amountBMin) < 0 {
			return nil, nil, fmt.Errorf("%w: optimal %s below minimum %s", ErrInsufficientBAmount, amountBOptimal, amountBMin)
		}
		return amountADesired, amountBOptimal, nil
	}

	amountAOptimal, err := calculator.Quote(amountBDesired, reserveB, reserveA)
	if err != nil {
		return nil, nil, err
	}
	if amountAOptimal.Cmp(amountADesired) > 0 {
		return nil, nil, fmt.Errorf("%w: optimal %s above desired %s", ErrInsufficientAAmount, amountAOptimal, amountADesired)
	}
	if amountAMin != nil && amountAOptimal.Cmp(amountAMin) < 0 {
		return nil, nil, fmt.Errorf("%w: optimal %s below minimum %s", ErrInsufficientAAmount, amountAOptimal, amountAMin)
	}
	return amountAOptimal, amountBDesired, nil
}

// RemoveLiquidity redeems liquidity for the underlying tokens, paid to `to`.
// The caller approves the router to move its LP units; the units are sent to
// the pair and burned there.
func (r *Router) RemoveLiquidity(
	sender common.Address,
	tokenA, tokenB common.Address,
	liquidity *big.Int,
	amountAMin, amountBMin *big.Int,
	to common.Address,
	deadline uint64,
) (amountA, amountB *big.Int, err error) {
	if err := r.checkDeadline(deadline); err != nil {
		return nil, nil, err
	}
	p := r.cfg.Factory.GetPair(tokenA, tokenB)
	if p == nil {
		return nil, nil, fmt.Errorf("%w: %s/%s", ErrPairNotFound, tokenA, tokenB)
	}

	err = r.cfg.Journal.Transact(func() error {
		if err := p.TransferFrom(r.cfg.Address, sender, p.Address(), liquidity); err != nil {
			return err
		}
		amount0, amount1, err := p.Burn(r.cfg.Address, to)
		if err != nil {
			return err
		}
		amountA, amountB = amount0, amount1
		if tokenA != p.Token0() {
			amountA, amountB = amount1, amount0
		}
		if amountAMin != nil && amountA.Cmp(amountAMin) < 0 {
			return fmt.Errorf("%w: received %s, minimum %s", ErrInsufficientAAmount, amountA, amountAMin)
		}
		if amountBMin != nil && amountB.Cmp(amountBMin) < 0 {
			return fmt.Errorf("%w: received %s, minimum %s", ErrInsufficientBAmount, amountB, amountBMin)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return amountA, amountB, nil
}

// GetAmountsOut walks the path forward, quoting each hop against live
// reserves. amounts[0] is the input, the last element the final output.
func (r *Router) GetAmountsOut(amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	if err := validPath(path); err != nil {
		return nil, err
	}
	amounts := make([]*big.Int, len(path))
	amounts[0] = new(big.Int).Set(amountIn)
	for i := 0; i < len(path)-1; i++ {
		p := r.cfg.Factory.GetPair(path[i], path[i+1])
		if p == nil {
			return nil, fmt.Errorf("%w: %s/%s", ErrPairNotFound, path[i], path[i+1])
		}
		reserveIn, reserveOut, err := r.GetReserves(path[i], path[i+1])
		if err != nil {
			return nil, err
		}
		amounts[i+1], err = calculator.GetAmountOut(amounts[i], reserveIn, reserveOut, p.FeeBps())
		if err != nil {
			return nil, err
		}
	}
	return amounts, nil
}

// GetAmountsIn walks the path backward, quoting the input each hop requires
// for the desired final output.
func (r *Router) GetAmountsIn(amountOut *big.Int, path []common.Address) ([]*big.Int, error) {
	if err := validPath(path); err != nil {
		return nil, err
	}
	amounts := make([]*big.Int, len(path))
	amounts[len(path)-1] = new(big.Int).Set(amountOut)
	for i := len(path) - 1; i > 0; i-- {
		p := r.cfg.Factory.GetPair(path[i-1], path[i])
		if p == nil {
			return nil, fmt.Errorf("%w: %s/%s", ErrPairNotFound, path[i-1], path[i])
		}
		reserveIn, reserveOut, err := r.GetReserves(path[i-1], path[i])
		if err != nil {
			return nil, err
		}
		amounts[i-1], err = calculator.GetAmountIn(amounts[i], reserveIn, reserveOut, p.FeeBps())
		if err != nil {
			return nil, err
		}
	}
	return amounts, nil
}

// SwapExactTokensForTokens swaps a fixed input along the path for as much
// output as the route yields, rejecting results below amountOutMin.
func (r *Router) SwapExactTokensForTokens(
	sender common.Address,
	amountIn, amountOutMin *big.Int,
	path []common.Address,
	to common.Address,
	deadline uint64,
) ([]*big.Int, error) {
	if err := r.checkDeadline(deadline); err != nil {
		return nil, err
	}
	amounts, err := r.GetAmountsOut(amountIn, path)
	if err != nil {
		return nil, err
	}
	final := amounts[len(amounts)-1]
	if amountOutMin != nil && final.Cmp(amountOutMin) < 0 {
		return nil, fmt.Errorf("%w: output %s below minimum %s", ErrInsufficientOutputAmount, final, amountOutMin)
	}
	if err := r.executeSwap(sender, amounts, path, to); err != nil {
		return nil, err
	}
	return amounts, nil
}

// SwapTokensForExactTokens swaps as little input as the route requires for
// a fixed output, rejecting inputs above amountInMax.
func (r *Router) SwapTokensForExactTokens(
	sender common.Address,
	amountOut, amountInMax *big.Int,
	path []common.Address,
	to common.Address,
	deadline uint64,
) ([]*big.Int, error) {
	if err := r.checkDeadline(deadline); err != nil {
		return nil, err
	}
	amounts, err := r.GetAmountsIn(amountOut, path)
	if err != nil {
		return nil, err
	}
	if amountInMax != nil && amounts[0].Cmp(amountInMax) > 0 {
		return nil, fmt.Errorf("%w: required %s above maximum %s", ErrExcessiveInputAmount, amounts[0], amountInMax)
	}
	if err := r.executeSwap(sender, amounts, path, to); err != nil {
		return nil, err
	}
	return amounts, nil
}

// executeSwap moves the input into the first pair and performs each hop,
// sending every intermediate output directly to the next pair so no hop
// needs a second transfer.
func (r *Router) executeSwap(sender common.Address, amounts []*big.Int, path []common.Address, to common.Address) error {
	return r.cfg.Journal.Transact(func() error {
		first := r.cfg.Factory.GetPair(path[0], path[1])
		tokIn, err := r.cfg.Resolve(path[0])
		if err != nil {
			return err
		}
		if err := tokIn.TransferFrom(r.cfg.Address, sender, first.Address(), amounts[0]); err != nil {
			return err
		}

		for i := 0; i < len(path)-1; i++ {
			p := r.cfg.Factory.GetPair(path[i], path[i+1])
			recipient := to
			if i < len(path)-2 {
				recipient = r.cfg.Factory.GetPair(path[i+1], path[i+2]).Address()
			}

			amount0Out, amount1Out := new(big.Int), amounts[i+1]
			if path[i+1] == p.Token0() {
				amount0Out, amount1Out = amounts[i+1], new(big.Int)
			}
			if err := p.Swap(r.cfg.Address, amount0Out, amount1Out, recipient, nil, nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func validPath(path []common.Address) error {
	if len(path) < 2 {
		return fmt.Errorf("%w: need at least two tokens, got %d", ErrInvalidPath, len(path))
	}
	for i := 0; i < len(path)-1; i++ {
		if path[i] == path[i+1] {
			return fmt.Errorf("%w: repeated token %s", ErrInvalidPath, path[i])
		}
	}
	return nil
}
