package oms

import (
	"context"

	"github.com/optexch/exchange-core/pkg/oms/model"
)

// OrderGateway is the outbound seam to the protocol collaborator. Every
// lifecycle outcome is reported through it; implementations must not block
// the caller for long, the manager invokes them synchronously.
type OrderGateway interface {
	Start(ctx context.Context) error

	OnAcknowledge(ctx context.Context, ack *model.Acknowledgement)
	OnReject(ctx context.Context, rej *model.Rejection)
	OnCancel(ctx context.Context, cxl *model.Cancellation)
	OnMassCancel(ctx context.Context, mc *model.MassCancellation)
	OnExecution(ctx context.Context, exec *model.Execution)
}
