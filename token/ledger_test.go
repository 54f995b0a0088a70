package token

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackbird014/pooliverse-swapper/engine"
)

var (
	alice = common.HexToAddress("0xa11ce")
	bob   = common.HexToAddress("0xb0b")
	carol = common.HexToAddress("0xca201")
)

func newTestLedger(t *testing.T) (*engine.Journal, *Ledger) {
	t.Helper()
	j := engine.NewJournal(nil)
	l := NewLedger(j, common.HexToAddress("0x1000"), "Test Token", "TST", 18)
	return j, l
}

func TestTransfer(t *testing.T) {
	testCases := []struct {
		name        string
		seed        int64
		amount      *big.Int
		expectErr   error
		wantFrom    int64
		wantTo      int64
	}{
		{name: "Full Balance", seed: 100, amount: big.NewInt(100), wantFrom: 0, wantTo: 100},
		{name: "Partial Balance", seed: 100, amount: big.NewInt(40), wantFrom: 60, wantTo: 40},
		{name: "Zero Amount", seed: 100, amount: big.NewInt(0), wantFrom: 100, wantTo: 0},
		{name: "Exceeds Balance", seed: 100, amount: big.NewInt(101), expectErr: ErrInsufficientBalance},
		{name: "Nil Amount", seed: 100, amount: nil, expectErr: ErrNilAmount},
		{name: "Negative Amount", seed: 100, amount: big.NewInt(-1), expectErr: ErrNegativeAmount},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, l := newTestLedger(t)
			require.NoError(t, l.Mint(alice, big.NewInt(tc.seed)))

			err := l.Transfer(alice, bob, tc.amount)
			if tc.expectErr != nil {
				require.ErrorIs(t, err, tc.expectErr)
				assert.Equal(t, big.NewInt(tc.seed), l.BalanceOf(alice))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, big.NewInt(tc.wantFrom), l.BalanceOf(alice))
			assert.Equal(t, big.NewInt(tc.wantTo), l.BalanceOf(bob))
		})
	}
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	_, l := newTestLedger(t)
	require.NoError(t, l.Mint(alice, big.NewInt(1000)))
	require.NoError(t, l.Approve(alice, carol, big.NewInt(300)))

	require.NoError(t, l.TransferFrom(carol, alice, bob, big.NewInt(200)))
	assert.Equal(t, big.NewInt(100), l.Allowance(alice, carol))
	assert.Equal(t, big.NewInt(800), l.BalanceOf(alice))
	assert.Equal(t, big.NewInt(200), l.BalanceOf(bob))

	err := l.TransferFrom(carol, alice, bob, big.NewInt(101))
	require.ErrorIs(t, err, ErrInsufficientAllowance)
}

func TestTransferFromWithoutApproval(t *testing.T) {
	_, l := newTestLedger(t)
	require.NoError(t, l.Mint(alice, big.NewInt(1000)))

	err := l.TransferFrom(carol, alice, bob, big.NewInt(1))
	require.ErrorIs(t, err, ErrInsufficientAllowance)
}

func TestMintBurnSupply(t *testing.T) {
	_, l := newTestLedger(t)

	require.NoError(t, l.Mint(alice, big.NewInt(500)))
	require.NoError(t, l.Mint(bob, big.NewInt(250)))
	assert.Equal(t, big.NewInt(750), l.TotalSupply())

	require.NoError(t, l.Burn(alice, big.NewInt(100)))
	assert.Equal(t, big.NewInt(650), l.TotalSupply())
	assert.Equal(t, big.NewInt(400), l.BalanceOf(alice))

	err := l.Burn(bob, big.NewInt(251))
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestBalanceCopiesAreDetached(t *testing.T) {
	_, l := newTestLedger(t)
	require.NoError(t, l.Mint(alice, big.NewInt(100)))

	b := l.BalanceOf(alice)
	b.SetInt64(0)
	assert.Equal(t, big.NewInt(100), l.BalanceOf(alice), "mutating a returned balance must not affect the ledger")
}

func TestAbortedTransactionUnwindsTransfers(t *testing.T) {
	j, l := newTestLedger(t)
	require.NoError(t, l.Mint(alice, big.NewInt(100)))

	errBoom := errors.New("boom")
	err := j.Transact(func() error {
		require.NoError(t, l.Transfer(alice, bob, big.NewInt(60)))
		require.NoError(t, l.Approve(alice, carol, big.NewInt(5)))
		return errBoom
	})

	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, big.NewInt(100), l.BalanceOf(alice))
	assert.Equal(t, big.NewInt(0), l.BalanceOf(bob))
	assert.Equal(t, big.NewInt(0), l.Allowance(alice, carol))
}
