// Package api exposes the exchange over HTTP. Amounts cross the wire as
// base-10 strings so arbitrary-precision values survive JSON.
package api

import (
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v3"

	"github.com/blackbird014/pooliverse-swapper/exchange"
)

// Server wires the HTTP routes to an exchange.
type Server struct {
	logger *slog.Logger
	ex     *exchange.Exchange
}

// NewServer creates the route set for the given exchange.
func NewServer(logger *slog.Logger, ex *exchange.Exchange) *Server {
	return &Server{logger: logger, ex: ex}
}

// Register mounts every route on the app.
func (s *Server) Register(app *fiber.App) {
	app.Get("/healthz", s.handleHealth)

	v1 := app.Group("/v1")
	v1.Get("/router", s.handleRouterAddress)

	v1.Post("/tokens", s.handleCreateToken)
	v1.Post("/tokens/:address/mint", s.handleMintToken)
	v1.Post("/approve", s.handleApprove)
	v1.Get("/balance", s.handleBalance)

	v1.Post("/pairs", s.handleCreatePair)
	v1.Get("/pairs", s.handlePairs)
	v1.Get("/pairs/:tokenA/:tokenB/reserves", s.handleReserves)

	v1.Post("/liquidity/add", s.handleAddLiquidity)
	v1.Post("/liquidity/remove", s.handleRemoveLiquidity)

	v1.Post("/swap", s.handleSwap)
	v1.Get("/quote/out", s.handleQuoteOut)
	v1.Get("/quote/in", s.handleQuoteIn)
	v1.Get("/route/best", s.handleBestRoute)
}

func (s *Server) handleHealth(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleRouterAddress(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"router": s.ex.RouterAddress().Hex()})
}

// parseAddress validates and decodes one named address field.
func parseAddress(field, value string) (common.Address, error) {
	if value == "" {
		return common.Address{}, NewAddressRequired(field)
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, NewInvalidAddress(field)
	}
	return common.HexToAddress(value), nil
}

// parseAmount decodes a required positive base-10 amount.
func parseAmount(value string) (*big.Int, error) {
	if value == "" {
		return nil, ErrAmountRequired
	}
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, ErrInvalidAmountFormat
	}
	if amount.Sign() <= 0 {
		return nil, ErrAmountNonPositive
	}
	return amount, nil
}

// parseOptionalAmount decodes an optional non-negative bound; empty means
// no bound.
func parseOptionalAmount(value string) (*big.Int, error) {
	if value == "" {
		return nil, nil
	}
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, ErrInvalidAmountFormat
	}
	if amount.Sign() < 0 {
		return nil, ErrAmountNonPositive
	}
	return amount, nil
}

// parsePath validates and decodes an ordered token path.
func parsePath(raw []string) ([]common.Address, error) {
	if len(raw) < 2 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "path needs at least two tokens")
	}
	path := make([]common.Address, len(raw))
	for i, s := range raw {
		addr, err := parseAddress("path", s)
		if err != nil {
			return nil, err
		}
		path[i] = addr
	}
	return path, nil
}

func amountsToStrings(amounts []*big.Int) []string {
	out := make([]string, len(amounts))
	for i, a := range amounts {
		out[i] = a.String()
	}
	return out
}

func pathToStrings(path []common.Address) []string {
	out := make([]string, len(path))
	for i, a := range path {
		out[i] = a.Hex()
	}
	return out
}
