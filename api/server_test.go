package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackbird014/pooliverse-swapper/exchange"
)

var (
	alice  = common.HexToAddress("0xa11ce")
	tokenA = common.HexToAddress("0x0a")
	tokenB = common.HexToAddress("0x0b")
)

func newTestApp(t *testing.T) (*fiber.App, *exchange.Exchange) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ex, err := exchange.New(exchange.Config{
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
		Now:      func() uint64 { return 0 },
	})
	require.NoError(t, err)

	app := fiber.New()
	NewServer(logger, ex).Register(app)
	return app, ex
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func get(t *testing.T, app *fiber.App, path string) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// seed creates both tokens, funds alice and opens a 1M:1M pool.
func seed(t *testing.T, app *fiber.App, ex *exchange.Exchange) {
	t.Helper()
	for _, spec := range []struct {
		addr   common.Address
		symbol string
	}{
		{tokenA, "TKA"}, {tokenB, "TKB"},
	} {
		resp := postJSON(t, app, "/v1/tokens", map[string]any{
			"address": spec.addr.Hex(), "name": spec.symbol, "symbol": spec.symbol, "decimals": 18,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		require.NoError(t, ex.MintToken(spec.addr, alice, big.NewInt(2_000_000)))
		require.NoError(t, ex.Approve(spec.addr, alice, big.NewInt(2_000_000)))
	}

	resp := postJSON(t, app, "/v1/liquidity/add", map[string]any{
		"sender":         alice.Hex(),
		"tokenA":         tokenA.Hex(),
		"tokenB":         tokenB.Hex(),
		"amountADesired": "1000000",
		"amountBDesired": "1000000",
		"to":             alice.Hex(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	app, _ := newTestApp(t)
	resp := get(t, app, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateTokenValidation(t *testing.T) {
	app, _ := newTestApp(t)

	testCases := []struct {
		name       string
		body       map[string]any
		wantStatus int
	}{
		{name: "Missing Address", body: map[string]any{"symbol": "TKA"}, wantStatus: http.StatusBadRequest},
		{name: "Bad Address", body: map[string]any{"address": "xyz", "symbol": "TKA"}, wantStatus: http.StatusBadRequest},
		{name: "Missing Symbol", body: map[string]any{"address": tokenA.Hex()}, wantStatus: http.StatusBadRequest},
		{name: "Valid", body: map[string]any{"address": tokenA.Hex(), "symbol": "TKA"}, wantStatus: http.StatusCreated},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, app, "/v1/tokens", tc.body)
			assert.Equal(t, tc.wantStatus, resp.StatusCode)
		})
	}
}

func TestDuplicateTokenConflicts(t *testing.T) {
	app, _ := newTestApp(t)
	body := map[string]any{"address": tokenA.Hex(), "symbol": "TKA"}

	resp := postJSON(t, app, "/v1/tokens", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = postJSON(t, app, "/v1/tokens", body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestReserves(t *testing.T) {
	app, ex := newTestApp(t)
	seed(t, app, ex)

	resp := get(t, app, "/v1/pairs/"+tokenA.Hex()+"/"+tokenB.Hex()+"/reserves")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "1000000", body["reserveA"])
	assert.Equal(t, "1000000", body["reserveB"])
}

func TestReservesUnknownPair(t *testing.T) {
	app, _ := newTestApp(t)
	resp := get(t, app, "/v1/pairs/"+tokenA.Hex()+"/"+tokenB.Hex()+"/reserves")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestQuoteAgainstUnfundedPairIsBadRequest(t *testing.T) {
	app, _ := newTestApp(t)

	for _, spec := range []struct {
		addr   common.Address
		symbol string
	}{
		{tokenA, "TKA"}, {tokenB, "TKB"},
	} {
		resp := postJSON(t, app, "/v1/tokens", map[string]any{
			"address": spec.addr.Hex(), "symbol": spec.symbol,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}
	resp := postJSON(t, app, "/v1/pairs", map[string]any{
		"tokenA": tokenA.Hex(), "tokenB": tokenB.Hex(),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// empty reserves make the quote fail; that is the caller's problem,
	// not a server fault
	resp = get(t, app, "/v1/quote/out?amount=10000&path="+tokenA.Hex()+","+tokenB.Hex())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQuoteAndSwap(t *testing.T) {
	app, ex := newTestApp(t)
	seed(t, app, ex)

	resp := get(t, app, "/v1/quote/out?amount=10000&path="+tokenA.Hex()+","+tokenB.Hex())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	quote := decode(t, resp)
	amounts := quote["amounts"].([]any)
	require.Len(t, amounts, 2)
	assert.Equal(t, "10000", amounts[0])
	assert.Equal(t, "9871", amounts[1])

	resp = postJSON(t, app, "/v1/swap", map[string]any{
		"sender":   alice.Hex(),
		"path":     []string{tokenA.Hex(), tokenB.Hex()},
		"to":       alice.Hex(),
		"amountIn": "10000",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	swap := decode(t, resp)
	assert.Equal(t, "9871", swap["amounts"].([]any)[1])
}

func TestSwapRequiresExactlyOneMode(t *testing.T) {
	app, ex := newTestApp(t)
	seed(t, app, ex)

	resp := postJSON(t, app, "/v1/swap", map[string]any{
		"sender":    alice.Hex(),
		"path":      []string{tokenA.Hex(), tokenB.Hex()},
		"to":        alice.Hex(),
		"amountIn":  "10000",
		"amountOut": "9871",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSlippageViolationIsBadRequest(t *testing.T) {
	app, ex := newTestApp(t)
	seed(t, app, ex)

	resp := postJSON(t, app, "/v1/swap", map[string]any{
		"sender":       alice.Hex(),
		"path":         []string{tokenA.Hex(), tokenB.Hex()},
		"to":           alice.Hex(),
		"amountIn":     "10000",
		"amountOutMin": "10000",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBestRoute(t *testing.T) {
	app, ex := newTestApp(t)
	seed(t, app, ex)

	resp := get(t, app, "/v1/route/best?amount=10000&in="+tokenA.Hex()+"&out="+tokenB.Hex())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	path := body["path"].([]any)
	require.Len(t, path, 2)
	assert.Equal(t, tokenA.Hex(), path[0])
}

func TestPairsSnapshot(t *testing.T) {
	app, ex := newTestApp(t)
	seed(t, app, ex)

	resp := get(t, app, "/v1/pairs")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var views []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&views))
	require.Len(t, views, 1)
	assert.EqualValues(t, 30, views[0]["feeBps"])
}
