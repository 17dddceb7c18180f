package oms

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/optexch/exchange-core/pkg/logging"
	eventstore "github.com/optexch/exchange-core/pkg/oms/event_store"
	"github.com/optexch/exchange-core/pkg/oms/model"
	"github.com/optexch/exchange-core/pkg/oms/repo"
	"github.com/optexch/exchange-core/pkg/orderbook"
)

// Server order ids start well above any externally meaningful small value;
// the counter is process-wide, monotonic and gap-tolerant.
const orderIDSeed = 1_000_000

const orderLockShards = 64

// OrderManager drives the full order lifecycle: validation, duplicate
// detection, id allocation, acknowledgement, persistence hand-off,
// submission to the matching engine and single/mass cancellation.
type OrderManager struct {
	engine    *orderbook.MatchingEngine
	gateway   OrderGateway
	store     repo.IOrder
	events    eventstore.EventStore
	publisher *Publisher // optional
	validator *Validator

	index    activeIndex
	orderSeq atomic.Int64

	// lifecycle mutations are serialized per order; fills and cancels of the
	// same order can arrive from different symbol goroutines
	orderLocks [orderLockShards]sync.Mutex

	received  atomic.Int64
	accepted  atomic.Int64
	rejected  atomic.Int64
	cancelled atomic.Int64

	log *logging.Logger
}

type Stats struct {
	Received  int64
	Accepted  int64
	Rejected  int64
	Cancelled int64
}

func NewOrderManager(
	engine *orderbook.MatchingEngine,
	gateway OrderGateway,
	store repo.IOrder,
	events eventstore.EventStore,
	publisher *Publisher,
) *OrderManager {
	om := &OrderManager{
		engine:    engine,
		gateway:   gateway,
		store:     store,
		events:    events,
		publisher: publisher,
		validator: NewValidator(),
		log:       logging.NewLogger(logging.INFO),
	}
	om.orderSeq.Store(orderIDSeed)
	return om
}

func (s *OrderManager) Start(ctx context.Context) error {
	return s.gateway.Start(ctx)
}

func (s *OrderManager) Stats() Stats {
	return Stats{
		Received:  s.received.Load(),
		Accepted:  s.accepted.Load(),
		Rejected:  s.rejected.Load(),
		Cancelled: s.cancelled.Load(),
	}
}

// BookSnapshot is the read-only market-data query.
func (s *OrderManager) BookSnapshot(symbol string, depth int) *orderbook.BookSnapshot {
	return s.engine.Snapshot(symbol, depth)
}

// OrderHistory returns the journalled lifecycle events of an active order,
// oldest first. Terminal orders are dropped from the journal on retirement,
// so the result is empty once the order leaves the active set.
func (s *OrderManager) OrderHistory(clOrdID string) []*model.OrderEvent {
	orderID := s.events.GetOrderID(clOrdID)
	if orderID == 0 {
		return nil
	}
	return s.events.Events(orderID)
}

// SubmitNewOrder validates, acknowledges and matches one inbound order.
// Every outcome is reported through the gateway; an unexpected failure past
// validation becomes an UNKNOWN_ERROR rejection and the order is discarded
// from the active indices.
func (s *OrderManager) SubmitNewOrder(ctx context.Context, req *model.NewOrderRequest, identity *model.Identity) {
	s.received.Add(1)

	if reason, violations := s.validator.Validate(req); violations != nil {
		s.reject(ctx, req.ClOrdID, identity, reason, strings.Join(violations, "; "))
		return
	}

	order := model.NewOrder(s.orderSeq.Add(1), req, identity.Username)
	if err := s.index.reserve(order); err != nil {
		s.reject(ctx, req.ClOrdID, identity, model.RejectDuplicateID,
			fmt.Sprintf("clOrdID %s already active", req.ClOrdID))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.index.drop(order)
			s.reject(ctx, req.ClOrdID, identity, model.RejectUnknownError, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if err := s.process(ctx, order, identity); err != nil {
		s.index.drop(order)
		s.reject(ctx, req.ClOrdID, identity, model.RejectUnknownError, err.Error())
		return
	}
	s.accepted.Add(1)
}

func (s *OrderManager) process(ctx context.Context, order *model.Order, identity *model.Identity) error {
	if err := order.Acknowledge(); err != nil {
		return err
	}
	if err := s.store.Save(ctx, order); err != nil {
		return err
	}
	s.index.commit(order)
	s.journal(order)

	s.gateway.OnAcknowledge(ctx, &model.Acknowledgement{
		ClOrdID:   order.ClOrdID,
		OrderID:   order.OrderID,
		Side:      order.Side,
		Quantity:  order.Quantity,
		LeavesQty: order.LeavesQty,
		OrderType: order.Type,
		Symbol:    order.Symbol,
		Price:     order.Price,
	})
	s.log.Info(ctx, "order accepted",
		zap.String("user", identity.Username),
		zap.String("cl_ord_id", order.ClOrdID),
		zap.Int64("order_id", order.OrderID),
		zap.String("symbol", order.Symbol))

	// Fills reach the lifecycle entities inside the match hook, while the
	// symbol's book is still locked. A concurrent cancel that wins at the
	// book therefore always observes the fills already applied.
	result, err := s.engine.SubmitWith(bookOrder(order), func(trades []*orderbook.Trade) {
		s.applyTrades(ctx, order, trades)
	})
	if err != nil {
		return err
	}

	if result.Status == orderbook.StatusCancelled {
		// market-order remainder never rests
		s.cancelRemainder(ctx, order)
	}

	if order.IsTerminal() {
		s.retire(order)
	}
	return nil
}

// cancelRemainder cancels the unfilled remainder of a market order. The
// remainder never rested, so there is nothing to remove from the book. A
// market order executes immediately or not at all, so the remainder is
// reported as TIMEOUT rather than user-requested.
func (s *OrderManager) cancelRemainder(ctx context.Context, order *model.Order) {
	mu := s.lockOrder(order.OrderID)
	mu.Lock()
	defer mu.Unlock()

	if err := order.Cancel(); err != nil {
		s.log.Error(ctx, "cancel market remainder", zap.Int64("order_id", order.OrderID), zap.Error(err))
		return
	}
	if err := s.store.Save(ctx, order); err != nil {
		s.log.Error(ctx, "persist market remainder cancel", zap.Int64("order_id", order.OrderID), zap.Error(err))
	}
	s.journal(order)
	s.gateway.OnCancel(ctx, &model.Cancellation{
		ClOrdID:   order.ClOrdID,
		OrderID:   order.OrderID,
		Reason:    model.CancelTimeout,
		LeavesQty: order.LeavesQty,
	})
}

// applyTrades propagates fills from the matching engine to both lifecycle
// entities. It runs inside the book's match hook, so the book lock is held
// for the duration. The taker is always the order just submitted; makers
// are looked up in the active index.
func (s *OrderManager) applyTrades(ctx context.Context, taker *model.Order, trades []*orderbook.Trade) {
	for _, t := range trades {
		price := priceFromTicks(t.Price)

		s.applyFill(ctx, taker, t, price, model.LiquidityRemoved)

		maker, ok := s.index.getByOrderID(t.MakerOrderID)
		if !ok {
			s.log.Error(ctx, "maker missing from active index",
				zap.Int64("maker_order_id", t.MakerOrderID), zap.Int64("trade_id", t.ID))
			continue
		}
		s.applyFill(ctx, maker, t, price, model.LiquidityAdded)
		if maker.IsTerminal() {
			s.retire(maker)
		}
	}
}

func (s *OrderManager) applyFill(ctx context.Context, order *model.Order, t *orderbook.Trade, price decimal.Decimal, liquidity model.LiquidityFlag) {
	mu := s.lockOrder(order.OrderID)
	mu.Lock()
	defer mu.Unlock()

	if err := order.Fill(t.Qty, price); err != nil {
		s.log.Error(ctx, "apply fill", zap.Int64("order_id", order.OrderID), zap.Int64("trade_id", t.ID), zap.Error(err))
		return
	}
	if err := s.store.Save(ctx, order); err != nil {
		s.log.Error(ctx, "persist fill", zap.Int64("order_id", order.OrderID), zap.Error(err))
	}
	s.journal(order)

	exec := &model.Execution{
		ExecID:    uuid.New().String(),
		ClOrdID:   order.ClOrdID,
		OrderID:   order.OrderID,
		Symbol:    t.Symbol,
		Side:      order.Side,
		LastQty:   t.Qty,
		LastPrice: price,
		LeavesQty: order.LeavesQty,
		CumQty:    order.CumQty,
		Liquidity: liquidity,
	}
	s.gateway.OnExecution(ctx, exec)
	if s.publisher != nil {
		s.publisher.PublishExecution(ctx, exec)
	}
}

// Cancel handles both single (OrigClOrdID set) and mass cancellation.
func (s *OrderManager) Cancel(ctx context.Context, req *model.CancelOrderRequest, identity *model.Identity) {
	if req.OrigClOrdID == "" {
		s.massCancel(ctx, req, identity)
		return
	}
	s.cancelSingle(ctx, req, identity)
}

func (s *OrderManager) cancelSingle(ctx context.Context, req *model.CancelOrderRequest, identity *model.Identity) {
	order, ok := s.index.getByClOrdID(req.OrigClOrdID)
	if !ok {
		s.rejectCancel(ctx, req.OrigClOrdID, identity, model.RejectUnknownError, errOrderNotFound.Error())
		return
	}
	if order.Owner != identity.Username {
		s.rejectCancel(ctx, req.OrigClOrdID, identity, model.RejectUnauthorized, errNotOwner.Error())
		return
	}

	if err := s.cancelOrder(ctx, order, model.CancelUserRequested); err != nil {
		s.rejectCancel(ctx, req.OrigClOrdID, identity, model.RejectUnknownError, err.Error())
		return
	}
	s.log.Info(ctx, "order cancelled",
		zap.String("user", identity.Username),
		zap.String("cl_ord_id", order.ClOrdID),
		zap.Int64("order_id", order.OrderID))
}

// cancelOrder removes one order from the book and its lifecycle state. The
// book is authoritative and removal happens first: fills are applied under
// the book lock, so a successful removal means every fill the order took
// part in has already reached the lifecycle entity. Losing the race against
// a concurrent match is reported as not-cancellable, never as a crash, and
// leaves no side effects.
func (s *OrderManager) cancelOrder(ctx context.Context, order *model.Order, reason model.CancelReason) error {
	if removed := s.engine.Cancel(order.Symbol, order.OrderID); !removed {
		return fmt.Errorf("%w: no open quantity in book", errNotCancellable)
	}

	mu := s.lockOrder(order.OrderID)
	mu.Lock()
	defer mu.Unlock()

	if err := order.Cancel(); err != nil {
		return err
	}
	if err := s.store.Save(ctx, order); err != nil {
		s.log.Error(ctx, "persist cancel", zap.Int64("order_id", order.OrderID), zap.Error(err))
	}
	s.journal(order)
	s.retire(order)
	s.cancelled.Add(1)

	s.gateway.OnCancel(ctx, &model.Cancellation{
		ClOrdID:   order.ClOrdID,
		OrderID:   order.OrderID,
		Reason:    reason,
		LeavesQty: order.LeavesQty,
	})
	return nil
}

func (s *OrderManager) massCancel(ctx context.Context, req *model.CancelOrderRequest, identity *model.Identity) {
	correlationID := req.MassCancelID
	if correlationID == "" {
		correlationID = uuid.New().String()
	}

	match := massCancelFilter(req)
	count := 0
	s.index.rangeActive(func(order *model.Order) bool {
		if order.Owner != identity.Username || !match(order) || !order.CanCancel() {
			return true
		}
		if err := s.cancelOrder(ctx, order, model.CancelMassCancel); err != nil {
			// best effort: one failure never aborts the batch
			s.log.Warn(ctx, "mass cancel skipped order",
				zap.String("user", identity.Username),
				zap.String("cl_ord_id", order.ClOrdID),
				zap.Error(err))
			return true
		}
		count++
		return true
	})

	s.gateway.OnMassCancel(ctx, &model.MassCancellation{Count: count, CorrelationID: correlationID})
	s.log.Info(ctx, "mass cancel done",
		zap.String("user", identity.Username),
		zap.String("type", string(req.MassCancelType)),
		zap.String("correlation_id", correlationID),
		zap.Int("count", count))
}

func massCancelFilter(req *model.CancelOrderRequest) func(*model.Order) bool {
	switch req.MassCancelType {
	case model.MassCancelFirm:
		return func(o *model.Order) bool { return o.ClearingFirm == req.ClearingFirm }
	case model.MassCancelSymbol:
		return func(o *model.Order) bool { return o.Symbol == req.RiskRoot }
	case model.MassCancelAll:
		return func(o *model.Order) bool { return true }
	default:
		// unsupported instruction codes select nothing
		return func(o *model.Order) bool { return false }
	}
}

// Reload rebuilds the active indices from the store after a restart and
// rests surviving limit orders back in their books. ListNonTerminal returns
// arrival order, so FIFO priority within a level is preserved.
func (s *OrderManager) Reload(ctx context.Context) error {
	orders, err := s.store.ListNonTerminal(ctx)
	if err != nil {
		return err
	}

	for _, order := range orders {
		if order.OrderID > s.orderSeq.Load() {
			s.orderSeq.Store(order.OrderID)
		}
		if err := s.index.reserve(order); err != nil {
			s.log.Warn(ctx, "duplicate clOrdID in reload, skipping",
				zap.String("cl_ord_id", order.ClOrdID), zap.Int64("order_id", order.OrderID))
			continue
		}
		s.index.commit(order)

		if order.Type == model.OrderTypeLimit && order.LeavesQty > 0 && order.CanCancel() {
			if err := s.engine.Restore(bookOrder(order)); err != nil {
				s.log.Error(ctx, "restore resting order",
					zap.Int64("order_id", order.OrderID), zap.Error(err))
			}
		}
	}

	s.log.Info(ctx, "reloaded active orders", zap.Int("count", len(orders)))
	return nil
}

func (s *OrderManager) reject(ctx context.Context, clOrdID string, identity *model.Identity, reason model.RejectReason, text string) {
	s.rejected.Add(1)
	s.gateway.OnReject(ctx, &model.Rejection{ClOrdID: clOrdID, Reason: reason, Text: text})
	s.log.Warn(ctx, "order rejected",
		zap.String("user", identity.Username),
		zap.String("cl_ord_id", clOrdID),
		zap.String("reason", string(reason)),
		zap.String("text", text))
}

func (s *OrderManager) rejectCancel(ctx context.Context, clOrdID string, identity *model.Identity, reason model.RejectReason, text string) {
	s.gateway.OnReject(ctx, &model.Rejection{ClOrdID: clOrdID, Reason: reason, Text: text})
	s.log.Warn(ctx, "cancel rejected",
		zap.String("user", identity.Username),
		zap.String("cl_ord_id", clOrdID),
		zap.String("reason", string(reason)),
		zap.String("text", text))
}

// retire moves a terminal order out of the active indices; its durable copy
// already lives in the store and downstream of the event journal.
func (s *OrderManager) retire(order *model.Order) {
	s.index.drop(order)
	s.events.DeleteByOrderID(order.OrderID)
}

func (s *OrderManager) journal(order *model.Order) {
	s.events.AddEvent(model.NewOrderEvent(*order, time.Now()))
}

func (s *OrderManager) lockOrder(orderID int64) *sync.Mutex {
	return &s.orderLocks[orderID%orderLockShards]
}

func bookOrder(order *model.Order) *orderbook.Order {
	return &orderbook.Order{
		ID:       order.OrderID,
		ClientID: order.ClOrdID,
		Symbol:   order.Symbol,
		Side:     orderbook.Side(order.Side),
		Type:     orderbook.OrderType(order.Type),
		Price:    priceToTicks(order.Price),
		Qty:      order.Quantity,
		Leaves:   order.LeavesQty,
		Cum:      order.CumQty,
	}
}

func priceToTicks(price decimal.Decimal) int64 {
	return price.Shift(orderbook.TickScale).IntPart()
}

func priceFromTicks(ticks int64) decimal.Decimal {
	return decimal.New(ticks, -orderbook.TickScale)
}
