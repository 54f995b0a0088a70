// Package pair implements the constant-product reserve engine for one
// token pair. A pair owns two cached reserves mirroring its actual token
// balances and enforces the fee-adjusted invariant
// reserve0*reserve1 = k across every swap.
//
// Deposits use balance-based accounting: the pair never trusts amounts
// passed as arguments, it compares its observed token balances against the
// cached reserves to infer what was deposited since the last sync. Callers
// therefore push tokens to the pair first and call Mint/Swap afterwards.
package pair

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/blackbird014/pooliverse-swapper/engine"
	"github.com/blackbird014/pooliverse-swapper/token"
)

// MinimumLiquidity is the amount of LP units permanently locked at the
// zero address on the first deposit. It keeps a single LP unit from ever
// representing a disproportionate share of the pool and blocks the known
// first-depositor manipulation vector.
const MinimumLiquidity = 1000

// DefaultFeeBps is the swap fee taken on input, in basis points.
const DefaultFeeBps = 30

var (
	// ErrAlreadyInitialized is returned when Initialize is called twice.
	ErrAlreadyInitialized = errors.New("pair already initialized")
	// ErrNotInitialized is returned when a pair is used before Initialize.
	ErrNotInitialized = errors.New("pair not initialized")
	// ErrReentrancy is returned when a mutating method is entered while
	// another one is still executing on the same pair.
	ErrReentrancy = errors.New("reentrant call into pair")
	// ErrInsufficientLiquidityMinted is returned when a deposit would mint
	// zero or negative liquidity.
	ErrInsufficientLiquidityMinted = errors.New("insufficient liquidity minted")
	// ErrInsufficientLiquidityBurned is returned when a withdrawal would
	// pay out zero of either token.
	ErrInsufficientLiquidityBurned = errors.New("insufficient liquidity burned")
	// ErrInsufficientOutputAmount is returned when a swap requests no output.
	ErrInsufficientOutputAmount = errors.New("insufficient output amount")
	// ErrInsufficientInputAmount is returned when a swap paid nothing in.
	ErrInsufficientInputAmount = errors.New("insufficient input amount")
	// ErrInsufficientLiquidity is returned when a swap requests more output
	// than the corresponding reserve holds.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	// ErrInvalidTo is returned when a swap's recipient is one of the pair's
	// own tokens.
	ErrInvalidTo = errors.New("invalid swap recipient")
	// ErrK is the integrity backstop: the fee-adjusted constant product
	// shrank across a swap. It must never be bypassable by argument choice.
	ErrK = errors.New("constant product invariant violated")
)

// Callee receives the optimistic output of a flash swap. It must leave the
// pair able to pass the invariant check by the time it returns.
type Callee interface {
	OnSwap(sender common.Address, amount0, amount1 *big.Int, data []byte) error
}

const bpsDivisor = 10000

var (
	bigBpsDivisor = big.NewInt(bpsDivisor)
	bigMinimumLiq = big.NewInt(MinimumLiquidity)
)

// Pair is the reserve engine for one canonical (token0, token1) market.
// The pair is itself a fungible ledger: its LP balances live on the
// embedded Ledger, so LP positions transfer and approve like any token.
//
// A Pair is NOT safe for concurrent use; the owning exchange serializes
// all state transitions.
type Pair struct {
	*token.Ledger // LP token ledger, addressed at the pair's own address

	token0 common.Address
	token1 common.Address
	tok0   token.Token
	tok1   token.Token
	feeBps uint16

	reserve0           *big.Int
	reserve1           *big.Int
	blockTimestampLast uint64

	// Cumulative UQ112x112 price accumulators, overflow wraps mod 2^256.
	price0CumulativeLast *uint256.Int
	price1CumulativeLast *uint256.Int

	journal     *engine.Journal
	now         func() uint64
	entered     bool
	initialized bool
}

// New creates an uninitialized pair addressed at addr. A zero feeBps
// falls back to DefaultFeeBps.
func New(journal *engine.Journal, addr common.Address, feeBps uint16, now func() uint64) *Pair {
	if feeBps == 0 {
		feeBps = DefaultFeeBps
	}
	return &Pair{
		Ledger:               token.NewLedger(journal, addr, "Pooliverse LP", "PLP", 18),
		feeBps:               feeBps,
		reserve0:             new(big.Int),
		reserve1:             new(big.Int),
		price0CumulativeLast: new(uint256.Int),
		price1CumulativeLast: new(uint256.Int),
		journal:              journal,
		now:                  now,
	}
}

// Initialize binds the pair to its canonical tokens. Called exactly once
// by the factory; a second call is rejected.
func (p *Pair) Initialize(tok0, tok1 token.Token) error {
	if p.initialized {
		return ErrAlreadyInitialized
	}
	p.token0 = tok0.Address()
	p.token1 = tok1.Address()
	p.tok0 = tok0
	p.tok1 = tok1
	p.initialized = true
	return nil
}

func (p *Pair) Token0() common.Address { return p.token0 }
func (p *Pair) Token1() common.Address { return p.token1 }
func (p *Pair) FeeBps() uint16         { return p.feeBps }

// GetReserves returns copies of the cached reserves and the timestamp of
// the last sync.
func (p *Pair) GetReserves() (reserve0, reserve1 *big.Int, blockTimestampLast uint64) {
	return new(big.Int).Set(p.reserve0), new(big.Int).Set(p.reserve1), p.blockTimestampLast
}

// PriceCumulativeLast returns copies of the cumulative price accumulators.
func (p *Pair) PriceCumulativeLast() (price0, price1 *uint256.Int) {
	return new(uint256.Int).Set(p.price0CumulativeLast), new(uint256.Int).Set(p.price1CumulativeLast)
}

// Mint credits `to` with liquidity for the tokens deposited since the last
// sync. The first deposit prices the pool and locks MinimumLiquidity at
// the zero address; later deposits are credited for the smaller of the two
// reserve ratios, so an imbalanced deposit forfeits its excess.
func (p *Pair) Mint(sender, to common.Address) (*big.Int, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.exit()

	var liquidity *big.Int
	err := p.journal.Transact(func() error {
		var err error
		liquidity, err = p.mint(sender, to)
		return err
	})
	if err != nil {
		return nil, err
	}
	return liquidity, nil
}

func (p *Pair) mint(sender, to common.Address) (*big.Int, error) {
	balance0 := p.tok0.BalanceOf(p.Address())
	balance1 := p.tok1.BalanceOf(p.Address())
	amount0 := new(big.Int).Sub(balance0, p.reserve0)
	amount1 := new(big.Int).Sub(balance1, p.reserve1)

	totalSupply := p.TotalSupply()
	var liquidity *big.Int
	if totalSupply.Sign() == 0 {
		liquidity = new(big.Int).Sqrt(new(big.Int).Mul(amount0, amount1))
		liquidity.Sub(liquidity, bigMinimumLiq)
		if liquidity.Sign() <= 0 {
			return nil, fmt.Errorf("%w: first deposit below minimum liquidity", ErrInsufficientLiquidityMinted)
		}
		if err := p.Ledger.Mint(common.Address{}, bigMinimumLiq); err != nil {
			return nil, err
		}
	} else {
		liquidity0 := new(big.Int).Mul(amount0, totalSupply)
		liquidity0.Div(liquidity0, p.reserve0)
		liquidity1 := new(big.Int).Mul(amount1, totalSupply)
		liquidity1.Div(liquidity1, p.reserve1)
		liquidity = minBig(liquidity0, liquidity1)
		if liquidity.Sign() <= 0 {
			return nil, ErrInsufficientLiquidityMinted
		}
	}

	if err := p.Ledger.Mint(to, liquidity); err != nil {
		return nil, err
	}
	p.update(balance0, balance1)
	p.journal.Emit(engine.Mint{
		Pair:    p.Address(),
		Sender:  sender,
		Amount0: amount0,
		Amount1: amount1,
	})
	return liquidity, nil
}

// Burn redeems the LP units held by the pair itself (the caller transfers
// LP in first, mirroring the deposit pattern) for a pro-rata share of the
// current balances.
func (p *Pair) Burn(sender, to common.Address) (*big.Int, *big.Int, error) {
	if err := p.enter(); err != nil {
		return nil, nil, err
	}
	defer p.exit()

	var amount0, amount1 *big.Int
	err := p.journal.Transact(func() error {
		var err error
		amount0, amount1, err = p.burn(sender, to)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return amount0, amount1, nil
}

func (p *Pair) burn(sender, to common.Address) (*big.Int, *big.Int, error) {
	balance0 := p.tok0.BalanceOf(p.Address())
	balance1 := p.tok1.BalanceOf(p.Address())
	liquidity := p.BalanceOf(p.Address())

	totalSupply := p.TotalSupply()
	if totalSupply.Sign() == 0 {
		return nil, nil, ErrInsufficientLiquidityBurned
	}

	// Pro-rata against current balances, not cached reserves, so any
	// externally added balance is distributed too.
	amount0 := new(big.Int).Mul(liquidity, balance0)
	amount0.Div(amount0, totalSupply)
	amount1 := new(big.Int).Mul(liquidity, balance1)
	amount1.Div(amount1, totalSupply)
	if amount0.Sign() <= 0 || amount1.Sign() <= 0 {
		return nil, nil, ErrInsufficientLiquidityBurned
	}

	if err := p.Ledger.Burn(p.Address(), liquidity); err != nil {
		return nil, nil, err
	}
	if err := p.tok0.Transfer(p.Address(), to, amount0); err != nil {
		return nil, nil, err
	}
	if err := p.tok1.Transfer(p.Address(), to, amount1); err != nil {
		return nil, nil, err
	}

	balance0 = p.tok0.BalanceOf(p.Address())
	balance1 = p.tok1.BalanceOf(p.Address())
	p.update(balance0, balance1)
	p.journal.Emit(engine.Burn{
		Pair:    p.Address(),
		Sender:  sender,
		Amount0: amount0,
		Amount1: amount1,
		To:      to,
	})
	return amount0, amount1, nil
}

// Swap transfers the requested outputs to `to` optimistically, invokes the
// flash-swap callee if one is given, then derives the implied inputs from
// the balance deltas and enforces the fee-adjusted invariant as the sole
// correctness gate. On any failure the journal unwinds the optimistic
// transfers, so a failed swap leaves no trace.
func (p *Pair) Swap(sender common.Address, amount0Out, amount1Out *big.Int, to common.Address, callee Callee, data []byte) error {
	if err := p.enter(); err != nil {
		return err
	}
	defer p.exit()

	return p.journal.Transact(func() error {
		return p.swap(sender, amount0Out, amount1Out, to, callee, data)
	})
}

func (p *Pair) swap(sender common.Address, amount0Out, amount1Out *big.Int, to common.Address, callee Callee, data []byte) error {
	amount0Out = orZero(amount0Out)
	amount1Out = orZero(amount1Out)
	if amount0Out.Sign() <= 0 && amount1Out.Sign() <= 0 {
		return ErrInsufficientOutputAmount
	}
	if amount0Out.Cmp(p.reserve0) >= 0 || amount1Out.Cmp(p.reserve1) >= 0 {
		return fmt.Errorf("%w: output exceeds reserves", ErrInsufficientLiquidity)
	}
	if to == p.token0 || to == p.token1 {
		return ErrInvalidTo
	}

	// Optimistic transfer out before any payment is required. This is what
	// enables flash swaps: the recipient may use the output within the same
	// call as long as the invariant holds at the end.
	if amount0Out.Sign() > 0 {
		if err := p.tok0.Transfer(p.Address(), to, amount0Out); err != nil {
			return err
		}
	}
	if amount1Out.Sign() > 0 {
		if err := p.tok1.Transfer(p.Address(), to, amount1Out); err != nil {
			return err
		}
	}
	if callee != nil {
		if err := callee.OnSwap(sender, amount0Out, amount1Out, data); err != nil {
			return err
		}
	}

	balance0 := p.tok0.BalanceOf(p.Address())
	balance1 := p.tok1.BalanceOf(p.Address())

	// Implied inputs from balance deltas; arguments are never trusted.
	amount0In := impliedIn(balance0, p.reserve0, amount0Out)
	amount1In := impliedIn(balance1, p.reserve1, amount1Out)
	if amount0In.Sign() <= 0 && amount1In.Sign() <= 0 {
		return ErrInsufficientInputAmount
	}

	// Fee-adjusted invariant, scaled by the basis-point divisor:
	// (b0*10000 - in0*fee) * (b1*10000 - in1*fee) >= r0*r1*10000^2
	fee := big.NewInt(int64(p.feeBps))
	adjusted0 := new(big.Int).Mul(balance0, bigBpsDivisor)
	adjusted0.Sub(adjusted0, new(big.Int).Mul(amount0In, fee))
	adjusted1 := new(big.Int).Mul(balance1, bigBpsDivisor)
	adjusted1.Sub(adjusted1, new(big.Int).Mul(amount1In, fee))

	kBefore := new(big.Int).Mul(p.reserve0, p.reserve1)
	kBefore.Mul(kBefore, new(big.Int).Mul(bigBpsDivisor, bigBpsDivisor))
	if new(big.Int).Mul(adjusted0, adjusted1).Cmp(kBefore) < 0 {
		return ErrK
	}

	p.update(balance0, balance1)
	p.journal.Emit(engine.Swap{
		Pair:       p.Address(),
		Sender:     sender,
		Amount0In:  amount0In,
		Amount1In:  amount1In,
		Amount0Out: amount0Out,
		Amount1Out: amount1Out,
		To:         to,
	})
	return nil
}

// Skim forces the pair's balances back down to the cached reserves,
// paying any excess to `to`.
func (p *Pair) Skim(to common.Address) error {
	if err := p.enter(); err != nil {
		return err
	}
	defer p.exit()

	return p.journal.Transact(func() error {
		excess0 := new(big.Int).Sub(p.tok0.BalanceOf(p.Address()), p.reserve0)
		excess1 := new(big.Int).Sub(p.tok1.BalanceOf(p.Address()), p.reserve1)
		if excess0.Sign() > 0 {
			if err := p.tok0.Transfer(p.Address(), to, excess0); err != nil {
				return err
			}
		}
		if excess1.Sign() > 0 {
			if err := p.tok1.Transfer(p.Address(), to, excess1); err != nil {
				return err
			}
		}
		return nil
	})
}

// Sync forces the cached reserves up to the actual balances.
func (p *Pair) Sync() error {
	if err := p.enter(); err != nil {
		return err
	}
	defer p.exit()

	return p.journal.Transact(func() error {
		p.update(p.tok0.BalanceOf(p.Address()), p.tok1.BalanceOf(p.Address()))
		return nil
	})
}

// update resyncs reserves to observed balances, accumulating the
// time-weighted prices for the elapsed interval first.
func (p *Pair) update(balance0, balance1 *big.Int) {
	timestamp := p.now()
	// a clock running backward must not underflow the elapsed interval
	var elapsed uint64
	if timestamp > p.blockTimestampLast {
		elapsed = timestamp - p.blockTimestampLast
	}

	prevReserve0, prevReserve1 := p.reserve0, p.reserve1
	prevTimestamp := p.blockTimestampLast
	prevPrice0, prevPrice1 := p.price0CumulativeLast, p.price1CumulativeLast
	p.journal.Append(func() {
		p.reserve0, p.reserve1 = prevReserve0, prevReserve1
		p.blockTimestampLast = prevTimestamp
		p.price0CumulativeLast, p.price1CumulativeLast = prevPrice0, prevPrice1
	})

	if elapsed > 0 && p.reserve0.Sign() > 0 && p.reserve1.Sign() > 0 {
		r0, _ := uint256.FromBig(p.reserve0)
		r1, _ := uint256.FromBig(p.reserve1)
		e := uint256.NewInt(elapsed)

		// price0 = (reserve1 << 112) / reserve0, UQ112x112
		price0 := new(uint256.Int).Lsh(r1, 112)
		price0.Div(price0, r0)
		price1 := new(uint256.Int).Lsh(r0, 112)
		price1.Div(price1, r1)

		p.price0CumulativeLast = new(uint256.Int).Add(prevPrice0, price0.Mul(price0, e))
		p.price1CumulativeLast = new(uint256.Int).Add(prevPrice1, price1.Mul(price1, e))
	}

	p.reserve0 = new(big.Int).Set(balance0)
	p.reserve1 = new(big.Int).Set(balance1)
	p.blockTimestampLast = timestamp
	p.journal.Emit(engine.Sync{
		Pair:     p.Address(),
		Reserve0: new(big.Int).Set(balance0),
		Reserve1: new(big.Int).Set(balance1),
	})
}

func (p *Pair) enter() error {
	if !p.initialized {
		return ErrNotInitialized
	}
	if p.entered {
		return ErrReentrancy
	}
	p.entered = true
	return nil
}

func (p *Pair) exit() {
	p.entered = false
}

func impliedIn(balance, reserve, amountOut *big.Int) *big.Int {
	// in = balance - (reserve - out), clamped at zero
	in := new(big.Int).Sub(reserve, amountOut)
	in.Sub(balance, in)
	if in.Sign() < 0 {
		return new(big.Int)
	}
	return in
}
