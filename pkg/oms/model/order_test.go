package model

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	req := &NewOrderRequest{
		ClOrdID:   "ABC123",
		Side:      OrderSideBuy,
		Quantity:  100,
		Symbol:    "AAPL",
		Price:     decimal.RequireFromString("10.5000"),
		OrderType: OrderTypeLimit,
		Capacity:  CapacityCustomer,
	}
	return NewOrder(1000001, req, "trader1")
}

func TestNewOrderStartsPendingNew(t *testing.T) {
	o := newTestOrder(t)

	assert.Equal(t, OrderStatusPendingNew, o.Status)
	assert.Equal(t, int64(100), o.Quantity)
	assert.Equal(t, int64(100), o.LeavesQty)
	assert.Equal(t, int64(0), o.CumQty)
	assert.Equal(t, "trader1", o.Owner)
	assert.False(t, o.IsTerminal())
	assert.False(t, o.CanCancel())
}

func TestAcknowledge(t *testing.T) {
	o := newTestOrder(t)

	require.NoError(t, o.Acknowledge())
	assert.Equal(t, OrderStatusLive, o.Status)
	assert.True(t, o.CanCancel())

	// second acknowledge is illegal
	err := o.Acknowledge()
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestFillLifecycle(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.Acknowledge())

	px := decimal.RequireFromString("10.5000")

	require.NoError(t, o.Fill(40, px))
	assert.Equal(t, OrderStatusPartiallyFilled, o.Status)
	assert.Equal(t, int64(60), o.LeavesQty)
	assert.Equal(t, int64(40), o.CumQty)
	assert.Equal(t, int64(40), o.LastQty)
	assert.True(t, o.CanCancel())

	require.NoError(t, o.Fill(60, px))
	assert.Equal(t, OrderStatusFilled, o.Status)
	assert.Equal(t, int64(0), o.LeavesQty)
	assert.Equal(t, int64(100), o.CumQty)
	assert.True(t, o.IsTerminal())

	// fully filled order accepts nothing further
	assert.ErrorIs(t, o.Fill(1, px), ErrIllegalTransition)
	assert.ErrorIs(t, o.Cancel(), ErrIllegalTransition)
}

func TestFillQuantityBounds(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.Acknowledge())

	px := decimal.RequireFromString("10.5000")

	assert.ErrorIs(t, o.Fill(0, px), ErrInvalidFillQty)
	assert.ErrorIs(t, o.Fill(-5, px), ErrInvalidFillQty)
	assert.ErrorIs(t, o.Fill(101, px), ErrInvalidFillQty)

	// a rejected fill leaves state untouched
	assert.Equal(t, OrderStatusLive, o.Status)
	assert.Equal(t, int64(100), o.LeavesQty)
}

func TestFillBeforeAcknowledge(t *testing.T) {
	o := newTestOrder(t)

	err := o.Fill(10, decimal.RequireFromString("10.5000"))
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestCancel(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.Acknowledge())

	require.NoError(t, o.Cancel())
	assert.Equal(t, OrderStatusCancelled, o.Status)
	assert.True(t, o.IsTerminal())

	assert.ErrorIs(t, o.Cancel(), ErrIllegalTransition)
}

func TestCancelPartiallyFilled(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.Acknowledge())
	require.NoError(t, o.Fill(30, decimal.RequireFromString("10.5000")))

	require.NoError(t, o.Cancel())
	assert.Equal(t, OrderStatusCancelled, o.Status)
	// cum survives the cancel, leaves is whatever was still open
	assert.Equal(t, int64(30), o.CumQty)
	assert.Equal(t, int64(70), o.LeavesQty)
}

func TestReject(t *testing.T) {
	o := newTestOrder(t)

	require.NoError(t, o.Reject("INVALID_PRICE"))
	assert.Equal(t, OrderStatusRejected, o.Status)
	assert.Equal(t, "INVALID_PRICE", o.RejectReason)
	assert.True(t, o.IsTerminal())

	assert.ErrorIs(t, o.Reject("again"), ErrIllegalTransition)
}

func TestExpire(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.Acknowledge())

	require.NoError(t, o.Expire())
	assert.Equal(t, OrderStatusExpired, o.Status)
	assert.True(t, o.IsTerminal())
}

func TestExpireWithoutOpenQty(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.Acknowledge())
	require.NoError(t, o.Fill(100, decimal.RequireFromString("10.5000")))

	err := o.Expire()
	assert.True(t, errors.Is(err, ErrIllegalTransition))
}

func TestQuantityInvariant(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.Acknowledge())

	px := decimal.RequireFromString("10.5000")
	for _, qty := range []int64{10, 25, 5, 60} {
		require.NoError(t, o.Fill(qty, px))
		assert.Equal(t, o.Quantity, o.LeavesQty+o.CumQty)
	}
	assert.Equal(t, OrderStatusFilled, o.Status)
}
