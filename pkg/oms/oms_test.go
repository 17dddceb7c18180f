package oms

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	eventstore "github.com/optexch/exchange-core/pkg/oms/event_store"
	"github.com/optexch/exchange-core/pkg/oms/model"
	"github.com/optexch/exchange-core/pkg/oms/repo"
	"github.com/optexch/exchange-core/pkg/orderbook"
)

// captureGateway records every outbound report for assertions.
type captureGateway struct {
	mu          sync.Mutex
	acks        []*model.Acknowledgement
	rejects     []*model.Rejection
	cancels     []*model.Cancellation
	massCancels []*model.MassCancellation
	execs       []*model.Execution
}

func (g *captureGateway) Start(ctx context.Context) error { return nil }

func (g *captureGateway) OnAcknowledge(_ context.Context, ack *model.Acknowledgement) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.acks = append(g.acks, ack)
}

func (g *captureGateway) OnReject(_ context.Context, rej *model.Rejection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rejects = append(g.rejects, rej)
}

func (g *captureGateway) OnCancel(_ context.Context, cxl *model.Cancellation) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancels = append(g.cancels, cxl)
}

func (g *captureGateway) OnMassCancel(_ context.Context, mc *model.MassCancellation) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.massCancels = append(g.massCancels, mc)
}

func (g *captureGateway) OnExecution(_ context.Context, exec *model.Execution) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.execs = append(g.execs, exec)
}

func newTestManager() (*OrderManager, *captureGateway, *repo.InMemoryOrderStore) {
	gw := &captureGateway{}
	store := repo.NewInMemoryOrderStore()
	manager := NewOrderManager(
		orderbook.NewMatchingEngine(),
		gw,
		store,
		eventstore.NewInMemoryEventStore(),
		nil,
	)
	return manager, gw, store
}

func limitRequest(clOrdID string, side model.OrderSide, price string, qty int64) *model.NewOrderRequest {
	return &model.NewOrderRequest{
		ClOrdID:   clOrdID,
		Side:      side,
		Quantity:  qty,
		Symbol:    "AAPL",
		Price:     decimal.RequireFromString(price),
		OrderType: model.OrderTypeLimit,
		Capacity:  model.CapacityCustomer,
	}
}

func ident(user string) *model.Identity {
	return &model.Identity{Username: user, SessionID: "s1"}
}

func TestSubmitNewOrderAccept(t *testing.T) {
	manager, gw, store := newTestManager()
	ctx := context.Background()

	manager.SubmitNewOrder(ctx, limitRequest("B1", model.OrderSideBuy, "10.00", 100), ident("trader1"))

	require.Len(t, gw.acks, 1)
	assert.Empty(t, gw.rejects)

	ack := gw.acks[0]
	assert.Equal(t, "B1", ack.ClOrdID)
	assert.Positive(t, ack.OrderID)
	assert.Equal(t, int64(100), ack.LeavesQty)

	saved, err := store.GetByClOrdID(context.Background(), "B1")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, model.OrderStatusLive, saved.Status)

	snap := manager.BookSnapshot("AAPL", 0)
	require.Len(t, snap.Bids, 1)
	assert.Equal(t, int64(100), snap.Bids[0].Qty)

	stats := manager.Stats()
	assert.Equal(t, int64(1), stats.Received)
	assert.Equal(t, int64(1), stats.Accepted)
}

func TestSubmitNewOrderReject(t *testing.T) {
	manager, gw, _ := newTestManager()

	req := limitRequest("B1", model.OrderSideBuy, "10.00", 100)
	req.Symbol = ""
	manager.SubmitNewOrder(context.Background(), req, ident("trader1"))

	require.Len(t, gw.rejects, 1)
	assert.Empty(t, gw.acks)
	assert.Equal(t, model.RejectInvalidSymbol, gw.rejects[0].Reason)
	assert.Equal(t, int64(1), manager.Stats().Rejected)
}

func TestDuplicateClOrdID(t *testing.T) {
	manager, gw, _ := newTestManager()
	ctx := context.Background()

	manager.SubmitNewOrder(ctx, limitRequest("DUP", model.OrderSideBuy, "10.00", 100), ident("trader1"))
	// duplicate detection is global, a different user cannot reuse it either
	manager.SubmitNewOrder(ctx, limitRequest("DUP", model.OrderSideBuy, "11.00", 50), ident("trader2"))

	require.Len(t, gw.acks, 1)
	require.Len(t, gw.rejects, 1)
	assert.Equal(t, model.RejectDuplicateID, gw.rejects[0].Reason)
}

func TestClOrdIDReusableAfterTerminal(t *testing.T) {
	manager, gw, _ := newTestManager()
	ctx := context.Background()

	manager.SubmitNewOrder(ctx, limitRequest("R1", model.OrderSideBuy, "10.00", 100), ident("trader1"))
	manager.Cancel(ctx, &model.CancelOrderRequest{OrigClOrdID: "R1"}, ident("trader1"))
	require.Len(t, gw.cancels, 1)

	// the id left the active set with the cancel, so it may be reused
	manager.SubmitNewOrder(ctx, limitRequest("R1", model.OrderSideBuy, "10.00", 100), ident("trader1"))
	assert.Len(t, gw.acks, 2)
	assert.Empty(t, gw.rejects)
}

func TestMatchEmitsExecutionsForBothSides(t *testing.T) {
	manager, gw, store := newTestManager()
	ctx := context.Background()

	manager.SubmitNewOrder(ctx, limitRequest("S1", model.OrderSideSell, "9.50", 100), ident("maker"))
	manager.SubmitNewOrder(ctx, limitRequest("B1", model.OrderSideBuy, "10.00", 100), ident("taker"))

	require.Len(t, gw.execs, 2)

	taker, maker := gw.execs[0], gw.execs[1]
	assert.Equal(t, "B1", taker.ClOrdID)
	assert.Equal(t, model.LiquidityRemoved, taker.Liquidity)
	assert.Equal(t, "S1", maker.ClOrdID)
	assert.Equal(t, model.LiquidityAdded, maker.Liquidity)

	// both execute at the resting price
	want := decimal.RequireFromString("9.5")
	assert.True(t, taker.LastPrice.Equal(want), "taker price %s", taker.LastPrice)
	assert.True(t, maker.LastPrice.Equal(want), "maker price %s", maker.LastPrice)

	for _, clOrdID := range []string{"S1", "B1"} {
		o, err := store.GetByClOrdID(ctx, clOrdID)
		require.NoError(t, err)
		require.NotNil(t, o)
		assert.Equal(t, model.OrderStatusFilled, o.Status)
		assert.Equal(t, o.Quantity, o.CumQty)
		assert.Zero(t, o.LeavesQty)
	}
}

func TestPartialFillLeavesRemainderLive(t *testing.T) {
	manager, gw, store := newTestManager()
	ctx := context.Background()

	manager.SubmitNewOrder(ctx, limitRequest("S1", model.OrderSideSell, "10.00", 40), ident("maker"))
	manager.SubmitNewOrder(ctx, limitRequest("B1", model.OrderSideBuy, "10.00", 100), ident("taker"))

	require.Len(t, gw.execs, 2)

	buy, err := store.GetByClOrdID(ctx, "B1")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPartiallyFilled, buy.Status)
	assert.Equal(t, int64(60), buy.LeavesQty)
	assert.Equal(t, int64(40), buy.CumQty)

	snap := manager.BookSnapshot("AAPL", 0)
	require.Len(t, snap.Bids, 1)
	assert.Equal(t, int64(60), snap.Bids[0].Qty)
}

func TestMarketOrderRemainderCancelled(t *testing.T) {
	manager, gw, store := newTestManager()
	ctx := context.Background()

	manager.SubmitNewOrder(ctx, limitRequest("S1", model.OrderSideSell, "10.00", 30), ident("maker"))

	req := &model.NewOrderRequest{
		ClOrdID:   "M1",
		Side:      model.OrderSideBuy,
		Quantity:  100,
		Symbol:    "AAPL",
		OrderType: model.OrderTypeMarket,
		Capacity:  model.CapacityCustomer,
	}
	manager.SubmitNewOrder(ctx, req, ident("taker"))

	require.Len(t, gw.execs, 2)
	require.Len(t, gw.cancels, 1)
	assert.Equal(t, "M1", gw.cancels[0].ClOrdID)
	assert.Equal(t, model.CancelTimeout, gw.cancels[0].Reason)
	assert.Equal(t, int64(70), gw.cancels[0].LeavesQty)

	o, err := store.GetByClOrdID(ctx, "M1")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, o.Status)
	assert.Equal(t, int64(30), o.CumQty)

	// nothing rested
	snap := manager.BookSnapshot("AAPL", 0)
	assert.Empty(t, snap.Bids)
	assert.Empty(t, snap.Asks)
}

func TestCancelSingle(t *testing.T) {
	manager, gw, store := newTestManager()
	ctx := context.Background()

	manager.SubmitNewOrder(ctx, limitRequest("B1", model.OrderSideBuy, "10.00", 100), ident("trader1"))
	manager.Cancel(ctx, &model.CancelOrderRequest{OrigClOrdID: "B1"}, ident("trader1"))

	require.Len(t, gw.cancels, 1)
	assert.Equal(t, model.CancelUserRequested, gw.cancels[0].Reason)
	assert.Equal(t, int64(100), gw.cancels[0].LeavesQty)

	o, err := store.GetByClOrdID(ctx, "B1")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, o.Status)

	snap := manager.BookSnapshot("AAPL", 0)
	assert.Empty(t, snap.Bids)
	assert.Equal(t, int64(1), manager.Stats().Cancelled)
}

func TestCancelUnknownOrder(t *testing.T) {
	manager, gw, _ := newTestManager()

	manager.Cancel(context.Background(), &model.CancelOrderRequest{OrigClOrdID: "NOPE"}, ident("trader1"))

	require.Len(t, gw.rejects, 1)
	assert.Equal(t, model.RejectUnknownError, gw.rejects[0].Reason)
}

func TestCancelWrongOwner(t *testing.T) {
	manager, gw, store := newTestManager()
	ctx := context.Background()

	manager.SubmitNewOrder(ctx, limitRequest("B1", model.OrderSideBuy, "10.00", 100), ident("trader1"))
	manager.Cancel(ctx, &model.CancelOrderRequest{OrigClOrdID: "B1"}, ident("intruder"))

	require.Len(t, gw.rejects, 1)
	assert.Equal(t, model.RejectUnauthorized, gw.rejects[0].Reason)

	// order untouched
	o, err := store.GetByClOrdID(ctx, "B1")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusLive, o.Status)
}

func TestCancelFilledOrder(t *testing.T) {
	manager, gw, _ := newTestManager()
	ctx := context.Background()

	manager.SubmitNewOrder(ctx, limitRequest("S1", model.OrderSideSell, "10.00", 100), ident("maker"))
	manager.SubmitNewOrder(ctx, limitRequest("B1", model.OrderSideBuy, "10.00", 100), ident("taker"))

	// the fill already retired the order from the active set
	manager.Cancel(ctx, &model.CancelOrderRequest{OrigClOrdID: "S1"}, ident("maker"))

	require.Len(t, gw.rejects, 1)
	assert.Equal(t, model.RejectUnknownError, gw.rejects[0].Reason)
	assert.Empty(t, gw.cancels)
}

func TestMassCancelBySymbol(t *testing.T) {
	manager, gw, _ := newTestManager()
	ctx := context.Background()

	manager.SubmitNewOrder(ctx, limitRequest("A1", model.OrderSideBuy, "10.00", 10), ident("trader1"))
	manager.SubmitNewOrder(ctx, limitRequest("A2", model.OrderSideBuy, "10.10", 10), ident("trader1"))

	other := limitRequest("X1", model.OrderSideBuy, "10.00", 10)
	other.Symbol = "MSFT"
	manager.SubmitNewOrder(ctx, other, ident("trader1"))

	manager.Cancel(ctx, &model.CancelOrderRequest{
		MassCancelType: model.MassCancelSymbol,
		RiskRoot:       "AAPL",
		MassCancelID:   "MC-1",
	}, ident("trader1"))

	require.Len(t, gw.massCancels, 1)
	assert.Equal(t, 2, gw.massCancels[0].Count)
	assert.Equal(t, "MC-1", gw.massCancels[0].CorrelationID)
	assert.Len(t, gw.cancels, 2)

	// the other symbol still rests
	snap := manager.BookSnapshot("MSFT", 0)
	require.Len(t, snap.Bids, 1)
}

func TestMassCancelScopedToOwner(t *testing.T) {
	manager, gw, _ := newTestManager()
	ctx := context.Background()

	manager.SubmitNewOrder(ctx, limitRequest("T1", model.OrderSideBuy, "10.00", 10), ident("trader1"))
	manager.SubmitNewOrder(ctx, limitRequest("T2", model.OrderSideBuy, "10.00", 10), ident("trader2"))

	manager.Cancel(ctx, &model.CancelOrderRequest{
		MassCancelType: model.MassCancelAll,
	}, ident("trader1"))

	require.Len(t, gw.massCancels, 1)
	assert.Equal(t, 1, gw.massCancels[0].Count)

	// trader2's order survives
	snap := manager.BookSnapshot("AAPL", 0)
	require.Len(t, snap.Bids, 1)
	assert.Equal(t, int64(10), snap.Bids[0].Qty)
}

func TestMassCancelByFirm(t *testing.T) {
	manager, gw, _ := newTestManager()
	ctx := context.Background()

	r1 := limitRequest("F1", model.OrderSideBuy, "10.00", 10)
	r1.ClearingFirm = "FIRMA"
	r2 := limitRequest("F2", model.OrderSideBuy, "10.00", 10)
	r2.ClearingFirm = "FIRMB"
	manager.SubmitNewOrder(ctx, r1, ident("trader1"))
	manager.SubmitNewOrder(ctx, r2, ident("trader1"))

	manager.Cancel(ctx, &model.CancelOrderRequest{
		MassCancelType: model.MassCancelFirm,
		ClearingFirm:   "FIRMA",
	}, ident("trader1"))

	require.Len(t, gw.massCancels, 1)
	assert.Equal(t, 1, gw.massCancels[0].Count)
	require.Len(t, gw.cancels, 1)
	assert.Equal(t, "F1", gw.cancels[0].ClOrdID)
}

func TestMassCancelGeneratesCorrelationID(t *testing.T) {
	manager, gw, _ := newTestManager()

	manager.Cancel(context.Background(), &model.CancelOrderRequest{
		MassCancelType: model.MassCancelAll,
	}, ident("trader1"))

	require.Len(t, gw.massCancels, 1)
	assert.Zero(t, gw.massCancels[0].Count)
	assert.NotEmpty(t, gw.massCancels[0].CorrelationID)
}

func TestReloadRestoresRestingOrders(t *testing.T) {
	manager, _, store := newTestManager()
	ctx := context.Background()

	manager.SubmitNewOrder(ctx, limitRequest("B1", model.OrderSideBuy, "10.00", 100), ident("trader1"))
	manager.SubmitNewOrder(ctx, limitRequest("B2", model.OrderSideBuy, "10.00", 50), ident("trader1"))

	// a fresh process over the same store
	gw2 := &captureGateway{}
	manager2 := NewOrderManager(
		orderbook.NewMatchingEngine(),
		gw2,
		store,
		eventstore.NewInMemoryEventStore(),
		nil,
	)
	require.NoError(t, manager2.Reload(ctx))

	snap := manager2.BookSnapshot("AAPL", 0)
	require.Len(t, snap.Bids, 1)
	assert.Equal(t, int64(150), snap.Bids[0].Qty)
	assert.Equal(t, 2, snap.Bids[0].Count)

	// restored orders stay cancellable and duplicate detection still holds
	manager2.SubmitNewOrder(ctx, limitRequest("B1", model.OrderSideBuy, "10.00", 10), ident("trader1"))
	require.Len(t, gw2.rejects, 1)
	assert.Equal(t, model.RejectDuplicateID, gw2.rejects[0].Reason)

	manager2.Cancel(ctx, &model.CancelOrderRequest{OrigClOrdID: "B2"}, ident("trader1"))
	require.Len(t, gw2.cancels, 1)

	// the id sequence resumes past everything reloaded
	manager2.SubmitNewOrder(ctx, limitRequest("B3", model.OrderSideBuy, "10.00", 10), ident("trader1"))
	require.Len(t, gw2.acks, 1)
	assert.Greater(t, gw2.acks[0].OrderID, gw2.cancels[0].OrderID)
}

func TestFIFORestoredAfterReload(t *testing.T) {
	manager, _, store := newTestManager()
	ctx := context.Background()

	manager.SubmitNewOrder(ctx, limitRequest("S1", model.OrderSideSell, "10.00", 10), ident("maker1"))
	manager.SubmitNewOrder(ctx, limitRequest("S2", model.OrderSideSell, "10.00", 10), ident("maker2"))

	gw2 := &captureGateway{}
	manager2 := NewOrderManager(
		orderbook.NewMatchingEngine(),
		gw2,
		store,
		eventstore.NewInMemoryEventStore(),
		nil,
	)
	require.NoError(t, manager2.Reload(ctx))

	manager2.SubmitNewOrder(ctx, limitRequest("B1", model.OrderSideBuy, "10.00", 10), ident("taker"))

	// earlier server id fills first
	var makerExecs []*model.Execution
	for _, e := range gw2.execs {
		if e.Liquidity == model.LiquidityAdded {
			makerExecs = append(makerExecs, e)
		}
	}
	require.Len(t, makerExecs, 1)
	assert.Equal(t, "S1", makerExecs[0].ClOrdID)
}

// A cancel that arrives the instant a trade becomes visible must observe the
// partial fill already applied: the maker ends Cancelled with the post-trade
// remainder, the cancel ack carries the reduced leaves and the maker's
// execution report is still delivered.
func TestCancelOnTradeSeesPartialFill(t *testing.T) {
	gw := &captureGateway{}
	store := repo.NewInMemoryOrderStore()
	engine := orderbook.NewMatchingEngine()
	manager := NewOrderManager(engine, gw, store, eventstore.NewInMemoryEventStore(), nil)
	ctx := context.Background()

	manager.SubmitNewOrder(ctx, limitRequest("M1", model.OrderSideSell, "10.00", 100), ident("maker"))

	// fire the cancel from inside the trade notification, the earliest
	// point a collaborator can react to the match
	engine.RegisterTradeListener(func([]*orderbook.Trade) {
		manager.Cancel(ctx, &model.CancelOrderRequest{OrigClOrdID: "M1"}, ident("maker"))
	})
	manager.SubmitNewOrder(ctx, limitRequest("B1", model.OrderSideBuy, "10.00", 50), ident("taker"))

	assert.Empty(t, gw.rejects)

	var makerExec *model.Execution
	for _, e := range gw.execs {
		if e.ClOrdID == "M1" {
			makerExec = e
		}
	}
	require.NotNil(t, makerExec, "maker execution report missing")
	assert.Equal(t, int64(50), makerExec.LastQty)
	assert.Equal(t, int64(50), makerExec.LeavesQty)

	require.Len(t, gw.cancels, 1)
	assert.Equal(t, "M1", gw.cancels[0].ClOrdID)
	assert.Equal(t, int64(50), gw.cancels[0].LeavesQty)

	o, err := store.GetByClOrdID(ctx, "M1")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, o.Status)
	assert.Equal(t, int64(50), o.CumQty)
	assert.Equal(t, int64(50), o.LeavesQty)
}

func TestOrderHistory(t *testing.T) {
	manager, _, _ := newTestManager()
	ctx := context.Background()

	manager.SubmitNewOrder(ctx, limitRequest("S1", model.OrderSideSell, "10.00", 100), ident("maker"))
	manager.SubmitNewOrder(ctx, limitRequest("B1", model.OrderSideBuy, "10.00", 40), ident("taker"))

	events := manager.OrderHistory("S1")
	require.Len(t, events, 2)
	assert.Equal(t, model.ExecTypeNew, events[0].ExecType)
	assert.Equal(t, model.ExecTypeTrade, events[1].ExecType)
	assert.Equal(t, int64(40), events[1].CumQty)
	assert.Equal(t, int64(60), events[1].LeavesQty)

	assert.Nil(t, manager.OrderHistory("NOPE"))

	// retirement drops the journal
	manager.Cancel(ctx, &model.CancelOrderRequest{OrigClOrdID: "S1"}, ident("maker"))
	assert.Empty(t, manager.OrderHistory("S1"))
}

func TestConcurrentDuplicateSubmissions(t *testing.T) {
	manager, gw, _ := newTestManager()
	ctx := context.Background()

	const attempts = 16
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			manager.SubmitNewOrder(ctx,
				limitRequest("RACE", model.OrderSideBuy, "10.00", 10),
				ident(fmt.Sprintf("trader%d", i)))
		}(i)
	}
	wg.Wait()

	gw.mu.Lock()
	defer gw.mu.Unlock()
	assert.Len(t, gw.acks, 1)
	assert.Len(t, gw.rejects, attempts-1)
	for _, r := range gw.rejects {
		assert.Equal(t, model.RejectDuplicateID, r.Reason)
	}
}
