// Package exchange is the top-level facade over the core. It owns the
// journal, the token ledgers, the factory and the router, serializes all
// access behind one mutex, and observes every operation with metrics and
// structured logs. Callers, including the HTTP API, only ever talk to an
// Exchange.
package exchange

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/blackbird014/pooliverse-swapper/engine"
	"github.com/blackbird014/pooliverse-swapper/factory"
	"github.com/blackbird014/pooliverse-swapper/router"
	"github.com/blackbird014/pooliverse-swapper/token"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var (
	// ErrTokenExists is returned when a token address is already taken.
	ErrTokenExists = errors.New("token already exists")
	// ErrTokenNotFound is returned when a token address is unknown.
	ErrTokenNotFound = errors.New("token not found")
)

// Config carries the exchange dependencies.
type Config struct {
	Logger   Logger
	Registry prometheus.Registerer

	// Sink receives committed events. Optional; nil drops them.
	Sink engine.SinkFunc

	// RouterAddress identifies the router as a spender. Zero selects a
	// derived default.
	RouterAddress common.Address

	// FeeBps is applied to every pair. Zero selects pair.DefaultFeeBps.
	FeeBps uint16

	// Now supplies unix timestamps. Nil selects the wall clock.
	Now func() uint64
}

func (c Config) validate() error {
	if c.Logger == nil {
		return errors.New("exchange: Logger cannot be nil")
	}
	if c.Registry == nil {
		return errors.New("exchange: Registry cannot be nil")
	}
	return nil
}

// Exchange serializes every state transition of the core behind one mutex,
// giving the journal the single-writer discipline it requires.
type Exchange struct {
	mu sync.Mutex

	journal    *engine.Journal
	tokens     map[common.Address]*token.Ledger
	factory    *factory.Factory
	router     *router.Router
	pathfinder *router.Pathfinder

	logger  Logger
	metrics *Metrics
}

// New wires an empty exchange.
func New(cfg Config) (*Exchange, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Now == nil {
		cfg.Now = func() uint64 { return uint64(time.Now().Unix()) }
	}
	if (cfg.RouterAddress == common.Address{}) {
		cfg.RouterAddress = common.BytesToAddress(crypto.Keccak256([]byte("pooliverse/router"))[12:])
	}

	e := &Exchange{
		tokens:  make(map[common.Address]*token.Ledger),
		logger:  cfg.Logger,
		metrics: NewMetrics(cfg.Registry),
	}
	e.journal = engine.NewJournal(func(ev engine.Event) {
		e.metrics.eventsTotal.WithLabelValues(ev.Name()).Inc()
		if cfg.Sink != nil {
			cfg.Sink(ev)
		}
	})

	resolve := func(addr common.Address) (token.Token, error) {
		if tok, ok := e.tokens[addr]; ok {
			return tok, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, addr)
	}

	f, err := factory.New(factory.Config{
		Journal: e.journal,
		Resolve: resolve,
		FeeBps:  cfg.FeeBps,
		Now:     cfg.Now,
	})
	if err != nil {
		return nil, err
	}
	e.factory = f

	r, err := router.New(router.Config{
		Address: cfg.RouterAddress,
		Journal: e.journal,
		Factory: f,
		Resolve: resolve,
		Now:     cfg.Now,
	})
	if err != nil {
		return nil, err
	}
	e.router = r
	e.pathfinder = router.NewPathfinder(r, 0)
	return e, nil
}

// RouterAddress returns the address users approve as a spender.
func (e *Exchange) RouterAddress() common.Address { return e.router.Address() }

// observe wraps one serialized operation with timing, error accounting and
// logging.
func (e *Exchange) observe(op string, fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	timer := prometheus.NewTimer(e.metrics.opDuration.WithLabelValues(op))
	defer timer.ObserveDuration()

	err := fn()
	if err != nil {
		e.metrics.errors.WithLabelValues(op).Inc()
		e.logger.Warn("operation failed", "op", op, "err", err)
		return err
	}
	e.metrics.operations.WithLabelValues(op).Inc()
	return nil
}

// CreateToken registers a new ledger at addr.
func (e *Exchange) CreateToken(addr common.Address, name, symbol string, decimals uint8) error {
	return e.observe("create_token", func() error {
		if (addr == common.Address{}) {
			return factory.ErrZeroAddress
		}
		if _, ok := e.tokens[addr]; ok {
			return fmt.Errorf("%w: %s", ErrTokenExists, addr)
		}
		e.tokens[addr] = token.NewLedger(e.journal, addr, name, symbol, decimals)
		e.logger.Info("token created", "address", addr, "symbol", symbol)
		return nil
	})
}

// MintToken credits freshly issued units to an account. Administrative
// seeding for tests and demos.
func (e *Exchange) MintToken(addr, to common.Address, amount *big.Int) error {
	return e.observe("mint_token", func() error {
		tok, ok := e.tokens[addr]
		if !ok {
			return fmt.Errorf("%w: %s", ErrTokenNotFound, addr)
		}
		return e.journal.Transact(func() error {
			return tok.Mint(to, amount)
		})
	})
}

// Approve sets the router's allowance over the owner's funds for a token or
// an LP position.
func (e *Exchange) Approve(tokenAddr, owner common.Address, amount *big.Int) error {
	return e.observe("approve", func() error {
		tok, err := e.spendable(tokenAddr)
		if err != nil {
			return err
		}
		return e.journal.Transact(func() error {
			return tok.Approve(owner, e.router.Address(), amount)
		})
	})
}

// BalanceOf reads an account's balance of a token or LP position.
func (e *Exchange) BalanceOf(tokenAddr, account common.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	tok, err := e.spendable(tokenAddr)
	if err != nil {
		return nil, err
	}
	return tok.BalanceOf(account), nil
}

// spendable resolves a plain token or a pair's LP ledger by address.
func (e *Exchange) spendable(addr common.Address) (token.Token, error) {
	if tok, ok := e.tokens[addr]; ok {
		return tok, nil
	}
	for _, p := range e.factory.AllPairs() {
		if p.Address() == addr {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, addr)
}

// CreatePair registers the pair for two tokens.
func (e *Exchange) CreatePair(tokenA, tokenB common.Address) (common.Address, error) {
	var addr common.Address
	err := e.observe("create_pair", func() error {
		return e.journal.Transact(func() error {
			p, err := e.factory.CreatePair(tokenA, tokenB)
			if err != nil {
				return err
			}
			addr = p.Address()
			e.metrics.pairs.Set(float64(e.factory.PairCount()))
			e.logger.Info("pair created", "pair", addr, "token0", p.Token0(), "token1", p.Token1())
			return nil
		})
	})
	if err != nil {
		return common.Address{}, err
	}
	return addr, nil
}

// AddLiquidity deposits into a pair, creating it on first use.
func (e *Exchange) AddLiquidity(
	sender common.Address,
	tokenA, tokenB common.Address,
	amountADesired, amountBDesired *big.Int,
	amountAMin, amountBMin *big.Int,
	to common.Address,
	deadline uint64,
) (amountA, amountB, liquidity *big.Int, err error) {
	err = e.observe("add_liquidity", func() error {
		amountA, amountB, liquidity, err = e.router.AddLiquidity(
			sender, tokenA, tokenB,
			amountADesired, amountBDesired,
			amountAMin, amountBMin,
			to, deadline,
		)
		if err == nil {
			e.metrics.pairs.Set(float64(e.factory.PairCount()))
		}
		return err
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return amountA, amountB, liquidity, nil
}

// RemoveLiquidity withdraws from a pair.
func (e *Exchange) RemoveLiquidity(
	sender common.Address,
	tokenA, tokenB common.Address,
	liquidity *big.Int,
	amountAMin, amountBMin *big.Int,
	to common.Address,
	deadline uint64,
) (amountA, amountB *big.Int, err error) {
	err = e.observe("remove_liquidity", func() error {
		amountA, amountB, err = e.router.RemoveLiquidity(
			sender, tokenA, tokenB, liquidity,
			amountAMin, amountBMin,
			to, deadline,
		)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return amountA, amountB, nil
}

// SwapExactTokensForTokens swaps a fixed input along a path.
func (e *Exchange) SwapExactTokensForTokens(
	sender common.Address,
	amountIn, amountOutMin *big.Int,
	path []common.Address,
	to common.Address,
	deadline uint64,
) (amounts []*big.Int, err error) {
	err = e.observe("swap_exact_in", func() error {
		amounts, err = e.router.SwapExactTokensForTokens(sender, amountIn, amountOutMin, path, to, deadline)
		return err
	})
	if err != nil {
		return nil, err
	}
	return amounts, nil
}

// SwapTokensForExactTokens swaps for a fixed output along a path.
func (e *Exchange) SwapTokensForExactTokens(
	sender common.Address,
	amountOut, amountInMax *big.Int,
	path []common.Address,
	to common.Address,
	deadline uint64,
) (amounts []*big.Int, err error) {
	err = e.observe("swap_exact_out", func() error {
		amounts, err = e.router.SwapTokensForExactTokens(sender, amountOut, amountInMax, path, to, deadline)
		return err
	})
	if err != nil {
		return nil, err
	}
	return amounts, nil
}

// GetAmountsOut quotes a path forward. Read-only.
func (e *Exchange) GetAmountsOut(amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.router.GetAmountsOut(amountIn, path)
}

// GetAmountsIn quotes a path backward. Read-only.
func (e *Exchange) GetAmountsIn(amountOut *big.Int, path []common.Address) ([]*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.router.GetAmountsIn(amountOut, path)
}

// GetPairAddress returns the address of the pair for two tokens.
func (e *Exchange) GetPairAddress(tokenA, tokenB common.Address) (common.Address, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.factory.GetPair(tokenA, tokenB)
	if p == nil {
		return common.Address{}, fmt.Errorf("%w: %s/%s", router.ErrPairNotFound, tokenA, tokenB)
	}
	return p.Address(), nil
}

// GetReserves returns the reserves of a pair in the caller's token order.
func (e *Exchange) GetReserves(tokenA, tokenB common.Address) (reserveA, reserveB *big.Int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.router.GetReserves(tokenA, tokenB)
}

// BestPath quotes every route between two tokens and returns the best one.
func (e *Exchange) BestPath(amountIn *big.Int, tokenIn, tokenOut common.Address) ([]common.Address, []*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pathfinder.BestPathExactIn(amountIn, tokenIn, tokenOut)
}

// Snapshot returns deep-copied views of every pair in creation order.
func (e *Exchange) Snapshot() []PairView {
	e.mu.Lock()
	defer e.mu.Unlock()

	pairs := e.factory.AllPairs()
	views := make([]PairView, 0, len(pairs))
	for _, p := range pairs {
		views = append(views, viewOf(p))
	}
	return views
}
