package payment_test

import (
	"testing"

	"ms-invites/internal/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFees() map[string]payment.Fee {
	return map[string]payment.Fee{
		"pix":         {Fixed: 0.40, Percentage: 0},
		"credit_card": {Fixed: 0.39, Percentage: 3.99},
		"debit_card":  {Fixed: 0.39, Percentage: 2.99},
		"cash":        {Fixed: 0, Percentage: 0},
	}
}

func TestComputeTotalPix(t *testing.T) {
	calc, err := payment.NewCalculator(testFees())
	require.NoError(t, err)

	b, err := calc.ComputeTotal(100.00, 1, "pix")
	require.NoError(t, err)
	assert.Equal(t, 100.00, b.Subtotal)
	assert.Equal(t, 0.40, b.Fee)
	assert.Equal(t, 100.40, b.Total)
}

func TestComputeTotalPixFixedFeeDoesNotScale(t *testing.T) {
	calc, err := payment.NewCalculator(testFees())
	require.NoError(t, err)

	// The fixed PIX fee is charged once per checkout, not per code.
	b, err := calc.ComputeTotal(100.00, 2, "pix")
	require.NoError(t, err)
	assert.Equal(t, 200.00, b.Subtotal)
	assert.Equal(t, 0.40, b.Fee)
	assert.Equal(t, 200.40, b.Total)
}

func TestComputeTotalCreditCard(t *testing.T) {
	calc, err := payment.NewCalculator(testFees())
	require.NoError(t, err)

	// 0.39 + 70 * 0.0399 = 3.183, rounded half-up at the final total.
	b, err := calc.ComputeTotal(70.00, 1, "credit_card")
	require.NoError(t, err)
	assert.Equal(t, 70.00, b.Subtotal)
	assert.Equal(t, 3.18, b.Fee)
	assert.Equal(t, 73.18, b.Total)
}

func TestComputeTotalDebitCard(t *testing.T) {
	calc, err := payment.NewCalculator(testFees())
	require.NoError(t, err)

	b, err := calc.ComputeTotal(100.00, 1, "debit_card")
	require.NoError(t, err)
	assert.Equal(t, 100.00, b.Subtotal)
	assert.Equal(t, 3.38, b.Fee)
	assert.Equal(t, 103.38, b.Total)
}

func TestComputeTotalCash(t *testing.T) {
	calc, err := payment.NewCalculator(testFees())
	require.NoError(t, err)

	b, err := calc.ComputeTotal(50.00, 3, "cash")
	require.NoError(t, err)
	assert.Equal(t, 150.00, b.Subtotal)
	assert.Equal(t, 0.00, b.Fee)
	assert.Equal(t, 150.00, b.Total)
}

func TestComputeTotalBreakdownAddsUp(t *testing.T) {
	calc, err := payment.NewCalculator(testFees())
	require.NoError(t, err)

	// Half tier at quantity 3 compounds fractions; the breakdown must still
	// satisfy subtotal + fee == total exactly at 2 decimals.
	b, err := calc.ComputeTotal(33.33, 3, "credit_card")
	require.NoError(t, err)
	assert.InDelta(t, b.Total, b.Subtotal+b.Fee, 0.0001)
}

func TestComputeTotalUnknownMethod(t *testing.T) {
	calc, err := payment.NewCalculator(testFees())
	require.NoError(t, err)

	_, err = calc.ComputeTotal(100.00, 1, "boleto")
	assert.Error(t, err)
}

func TestComputeTotalInvalidQuantity(t *testing.T) {
	calc, err := payment.NewCalculator(testFees())
	require.NoError(t, err)

	_, err = calc.ComputeTotal(100.00, 0, "pix")
	assert.Error(t, err)
}

func TestComputeSubtotalTotal(t *testing.T) {
	calc, err := payment.NewCalculator(testFees())
	require.NoError(t, err)

	// One full (100.00) plus one half (50.00) settled in a single checkout.
	b, err := calc.ComputeSubtotalTotal(150.00, "pix")
	require.NoError(t, err)
	assert.Equal(t, 150.00, b.Subtotal)
	assert.Equal(t, 0.40, b.Fee)
	assert.Equal(t, 150.40, b.Total)
}

func TestNewCalculatorValidatesSchedule(t *testing.T) {
	_, err := payment.NewCalculator(nil)
	assert.Error(t, err)

	_, err = payment.NewCalculator(map[string]payment.Fee{
		"pix": {Fixed: -1},
	})
	assert.Error(t, err)

	_, err = payment.NewCalculator(map[string]payment.Fee{
		"pix": {Percentage: 100},
	})
	assert.Error(t, err)
}
