package api

import (
	"strings"

	"github.com/gofiber/fiber/v3"
)

type createTokenRequest struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

func (s *Server) handleCreateToken(c fiber.Ctx) error {
	var req createTokenRequest
	if err := c.Bind().Body(&req); err != nil {
		s.logger.Debug("failed to bind body", "err", err)
		return ErrInvalidBody
	}
	addr, err := parseAddress("token", req.Address)
	if err != nil {
		return err
	}
	if req.Symbol == "" {
		return fiber.NewError(fiber.StatusBadRequest, "symbol is required")
	}
	if err := s.ex.CreateToken(addr, req.Name, req.Symbol, req.Decimals); err != nil {
		return mapCoreError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"address": addr.Hex()})
}

type mintTokenRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (s *Server) handleMintToken(c fiber.Ctx) error {
	addr, err := parseAddress("token", c.Params("address"))
	if err != nil {
		return err
	}
	var req mintTokenRequest
	if err := c.Bind().Body(&req); err != nil {
		return ErrInvalidBody
	}
	to, err := parseAddress("to", req.To)
	if err != nil {
		return err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return err
	}
	if err := s.ex.MintToken(addr, to, amount); err != nil {
		return mapCoreError(err)
	}
	return c.JSON(fiber.Map{"minted": amount.String()})
}

type approveRequest struct {
	Token  string `json:"token"`
	Owner  string `json:"owner"`
	Amount string `json:"amount"`
}

func (s *Server) handleApprove(c fiber.Ctx) error {
	var req approveRequest
	if err := c.Bind().Body(&req); err != nil {
		return ErrInvalidBody
	}
	tok, err := parseAddress("token", req.Token)
	if err != nil {
		return err
	}
	owner, err := parseAddress("owner", req.Owner)
	if err != nil {
		return err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return err
	}
	if err := s.ex.Approve(tok, owner, amount); err != nil {
		return mapCoreError(err)
	}
	return c.JSON(fiber.Map{"approved": amount.String(), "spender": s.ex.RouterAddress().Hex()})
}

type balanceQuery struct {
	Token   string `query:"token"`
	Account string `query:"account"`
}

func (s *Server) handleBalance(c fiber.Ctx) error {
	var q balanceQuery
	if err := c.Bind().Query(&q); err != nil {
		return ErrInvalidQueryParameters
	}
	tok, err := parseAddress("token", q.Token)
	if err != nil {
		return err
	}
	account, err := parseAddress("account", q.Account)
	if err != nil {
		return err
	}
	balance, err := s.ex.BalanceOf(tok, account)
	if err != nil {
		return mapCoreError(err)
	}
	return c.JSON(fiber.Map{"balance": balance.String()})
}

type createPairRequest struct {
	TokenA string `json:"tokenA"`
	TokenB string `json:"tokenB"`
}

func (s *Server) handleCreatePair(c fiber.Ctx) error {
	var req createPairRequest
	if err := c.Bind().Body(&req); err != nil {
		return ErrInvalidBody
	}
	tokenA, err := parseAddress("tokenA", req.TokenA)
	if err != nil {
		return err
	}
	tokenB, err := parseAddress("tokenB", req.TokenB)
	if err != nil {
		return err
	}
	addr, err := s.ex.CreatePair(tokenA, tokenB)
	if err != nil {
		return mapCoreError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"pair": addr.Hex()})
}

func (s *Server) handlePairs(c fiber.Ctx) error {
	return c.JSON(s.ex.Snapshot())
}

func (s *Server) handleReserves(c fiber.Ctx) error {
	tokenA, err := parseAddress("tokenA", c.Params("tokenA"))
	if err != nil {
		return err
	}
	tokenB, err := parseAddress("tokenB", c.Params("tokenB"))
	if err != nil {
		return err
	}
	reserveA, reserveB, err := s.ex.GetReserves(tokenA, tokenB)
	if err != nil {
		return mapCoreError(err)
	}
	return c.JSON(fiber.Map{
		"reserveA": reserveA.String(),
		"reserveB": reserveB.String(),
	})
}

type addLiquidityRequest struct {
	Sender         string `json:"sender"`
	TokenA         string `json:"tokenA"`
	TokenB         string `json:"tokenB"`
	AmountADesired string `json:"amountADesired"`
	AmountBDesired string `json:"amountBDesired"`
	AmountAMin     string `json:"amountAMin"`
	AmountBMin     string `json:"amountBMin"`
	To             string `json:"to"`
	Deadline       uint64 `json:"deadline"`
}

func (s *Server) handleAddLiquidity(c fiber.Ctx) error {
	var req addLiquidityRequest
	if err := c.Bind().Body(&req); err != nil {
		return ErrInvalidBody
	}
	sender, err := parseAddress("sender", req.Sender)
	if err != nil {
		return err
	}
	tokenA, err := parseAddress("tokenA", req.TokenA)
	if err != nil {
		return err
	}
	tokenB, err := parseAddress("tokenB", req.TokenB)
	if err != nil {
		return err
	}
	to, err := parseAddress("to", req.To)
	if err != nil {
		return err
	}
	amountADesired, err := parseAmount(req.AmountADesired)
	if err != nil {
		return err
	}
	amountBDesired, err := parseAmount(req.AmountBDesired)
	if err != nil {
		return err
	}
	amountAMin, err := parseOptionalAmount(req.AmountAMin)
	if err != nil {
		return err
	}
	amountBMin, err := parseOptionalAmount(req.AmountBMin)
	if err != nil {
		return err
	}

	amountA, amountB, liquidity, err := s.ex.AddLiquidity(
		sender, tokenA, tokenB,
		amountADesired, amountBDesired,
		amountAMin, amountBMin,
		to, req.Deadline,
	)
	if err != nil {
		return mapCoreError(err)
	}
	return c.JSON(fiber.Map{
		"amountA":   amountA.String(),
		"amountB":   amountB.String(),
		"liquidity": liquidity.String(),
	})
}

type removeLiquidityRequest struct {
	Sender     string `json:"sender"`
	TokenA     string `json:"tokenA"`
	TokenB     string `json:"tokenB"`
	Liquidity  string `json:"liquidity"`
	AmountAMin string `json:"amountAMin"`
	AmountBMin string `json:"amountBMin"`
	To         string `json:"to"`
	Deadline   uint64 `json:"deadline"`
}

func (s *Server) handleRemoveLiquidity(c fiber.Ctx) error {
	var req removeLiquidityRequest
	if err := c.Bind().Body(&req); err != nil {
		return ErrInvalidBody
	}
	sender, err := parseAddress("sender", req.Sender)
	if err != nil {
		return err
	}
	tokenA, err := parseAddress("tokenA", req.TokenA)
	if err != nil {
		return err
	}
	tokenB, err := parseAddress("tokenB", req.TokenB)
	if err != nil {
		return err
	}
	to, err := parseAddress("to", req.To)
	if err != nil {
		return err
	}
	liquidity, err := parseAmount(req.Liquidity)
	if err != nil {
		return err
	}
	amountAMin, err := parseOptionalAmount(req.AmountAMin)
	if err != nil {
		return err
	}
	amountBMin, err := parseOptionalAmount(req.AmountBMin)
	if err != nil {
		return err
	}

	amountA, amountB, err := s.ex.RemoveLiquidity(
		sender, tokenA, tokenB, liquidity,
		amountAMin, amountBMin,
		to, req.Deadline,
	)
	if err != nil {
		return mapCoreError(err)
	}
	return c.JSON(fiber.Map{
		"amountA": amountA.String(),
		"amountB": amountB.String(),
	})
}

type swapRequest struct {
	Sender string   `json:"sender"`
	Path   []string `json:"path"`
	To     string   `json:"to"`

	// Exactly one of AmountIn/AmountOut is set; the other side carries the
	// caller's bound.
	AmountIn     string `json:"amountIn"`
	AmountOutMin string `json:"amountOutMin"`
	AmountOut    string `json:"amountOut"`
	AmountInMax  string `json:"amountInMax"`

	Deadline uint64 `json:"deadline"`
}

func (s *Server) handleSwap(c fiber.Ctx) error {
	var req swapRequest
	if err := c.Bind().Body(&req); err != nil {
		return ErrInvalidBody
	}
	sender, err := parseAddress("sender", req.Sender)
	if err != nil {
		return err
	}
	to, err := parseAddress("to", req.To)
	if err != nil {
		return err
	}
	path, err := parsePath(req.Path)
	if err != nil {
		return err
	}

	exactIn := req.AmountIn != ""
	exactOut := req.AmountOut != ""
	if exactIn == exactOut {
		return fiber.NewError(fiber.StatusBadRequest, "exactly one of amountIn or amountOut is required")
	}

	if exactIn {
		amountIn, err := parseAmount(req.AmountIn)
		if err != nil {
			return err
		}
		amountOutMin, err := parseOptionalAmount(req.AmountOutMin)
		if err != nil {
			return err
		}
		amounts, err := s.ex.SwapExactTokensForTokens(sender, amountIn, amountOutMin, path, to, req.Deadline)
		if err != nil {
			return mapCoreError(err)
		}
		return c.JSON(fiber.Map{"amounts": amountsToStrings(amounts)})
	}

	amountOut, err := parseAmount(req.AmountOut)
	if err != nil {
		return err
	}
	amountInMax, err := parseOptionalAmount(req.AmountInMax)
	if err != nil {
		return err
	}
	amounts, err := s.ex.SwapTokensForExactTokens(sender, amountOut, amountInMax, path, to, req.Deadline)
	if err != nil {
		return mapCoreError(err)
	}
	return c.JSON(fiber.Map{"amounts": amountsToStrings(amounts)})
}

type quoteQuery struct {
	Amount string `query:"amount"`
	Path   string `query:"path"` // comma-separated token addresses
}

func (s *Server) handleQuoteOut(c fiber.Ctx) error {
	var q quoteQuery
	if err := c.Bind().Query(&q); err != nil {
		return ErrInvalidQueryParameters
	}
	amount, err := parseAmount(q.Amount)
	if err != nil {
		return err
	}
	path, err := parsePath(strings.Split(q.Path, ","))
	if err != nil {
		return err
	}
	amounts, err := s.ex.GetAmountsOut(amount, path)
	if err != nil {
		return mapCoreError(err)
	}
	return c.JSON(fiber.Map{"amounts": amountsToStrings(amounts)})
}

func (s *Server) handleQuoteIn(c fiber.Ctx) error {
	var q quoteQuery
	if err := c.Bind().Query(&q); err != nil {
		return ErrInvalidQueryParameters
	}
	amount, err := parseAmount(q.Amount)
	if err != nil {
		return err
	}
	path, err := parsePath(strings.Split(q.Path, ","))
	if err != nil {
		return err
	}
	amounts, err := s.ex.GetAmountsIn(amount, path)
	if err != nil {
		return mapCoreError(err)
	}
	return c.JSON(fiber.Map{"amounts": amountsToStrings(amounts)})
}

type bestRouteQuery struct {
	Amount   string `query:"amount"`
	TokenIn  string `query:"in"`
	TokenOut string `query:"out"`
}

func (s *Server) handleBestRoute(c fiber.Ctx) error {
	var q bestRouteQuery
	if err := c.Bind().Query(&q); err != nil {
		return ErrInvalidQueryParameters
	}
	amount, err := parseAmount(q.Amount)
	if err != nil {
		return err
	}
	tokenIn, err := parseAddress("in", q.TokenIn)
	if err != nil {
		return err
	}
	tokenOut, err := parseAddress("out", q.TokenOut)
	if err != nil {
		return err
	}
	path, amounts, err := s.ex.BestPath(amount, tokenIn, tokenOut)
	if err != nil {
		return mapCoreError(err)
	}
	return c.JSON(fiber.Map{
		"path":    pathToStrings(path),
		"amounts": amountsToStrings(amounts),
	})
}
