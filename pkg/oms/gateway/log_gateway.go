package gateway

import (
	"context"

	"go.uber.org/zap"

	"github.com/optexch/exchange-core/pkg/oms/model"
)

// LogGateway reports lifecycle outcomes to the process log. It stands in for
// a protocol session while the order entry transport runs in another process.
type LogGateway struct {
	log *zap.SugaredLogger
}

func NewLogGateway() *LogGateway {
	return &LogGateway{log: zap.S().Named("gateway")}
}

func (g *LogGateway) Start(ctx context.Context) error {
	g.log.Info("gateway started")
	return nil
}

func (g *LogGateway) OnAcknowledge(ctx context.Context, ack *model.Acknowledgement) {
	g.log.Infow("acknowledged",
		"cl_ord_id", ack.ClOrdID,
		"order_id", ack.OrderID,
		"symbol", ack.Symbol,
		"side", ack.Side,
		"qty", ack.Quantity)
}

func (g *LogGateway) OnReject(ctx context.Context, rej *model.Rejection) {
	g.log.Warnw("rejected",
		"cl_ord_id", rej.ClOrdID,
		"reason", rej.Reason,
		"text", rej.Text)
}

func (g *LogGateway) OnCancel(ctx context.Context, cxl *model.Cancellation) {
	g.log.Infow("cancelled",
		"cl_ord_id", cxl.ClOrdID,
		"order_id", cxl.OrderID,
		"reason", cxl.Reason,
		"leaves_qty", cxl.LeavesQty)
}

func (g *LogGateway) OnMassCancel(ctx context.Context, mc *model.MassCancellation) {
	g.log.Infow("mass cancelled",
		"count", mc.Count,
		"correlation_id", mc.CorrelationID)
}

func (g *LogGateway) OnExecution(ctx context.Context, exec *model.Execution) {
	g.log.Infow("executed",
		"exec_id", exec.ExecID,
		"cl_ord_id", exec.ClOrdID,
		"order_id", exec.OrderID,
		"symbol", exec.Symbol,
		"last_qty", exec.LastQty,
		"last_price", exec.LastPrice,
		"leaves_qty", exec.LeavesQty)
}
