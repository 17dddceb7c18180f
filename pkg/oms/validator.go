package oms

import (
	"fmt"
	"strings"

	"github.com/optexch/exchange-core/pkg/oms/model"
	"github.com/shopspring/decimal"
)

const (
	maxClOrdIDLen = 20
	maxSymbolLen  = 8
	minQty        = 1
	maxQty        = 999999
)

// forbidden inside a clOrdID on top of the printable-ASCII requirement
const clOrdIDForbiddenChars = `,;|@"`

var maxPrice = decimal.RequireFromString("999999.9999")

var validCapacities = map[model.Capacity]bool{
	model.CapacityCustomer:             true,
	model.CapacityMarketMaker:          true,
	model.CapacityFirm:                 true,
	model.CapacityProfessionalCustomer: true,
	model.CapacityAwayMarketMaker:      true,
	model.CapacityBrokerDealer:         true,
	model.CapacityJointBackOffice:      true,
}

// Validator is the stateless structural checker for inbound new-order
// requests. All violations are accumulated; the caller gets one rejection
// carrying every problem, not just the first.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate returns the primary reject reason plus every violation found.
// A nil slice means the request passed.
func (v *Validator) Validate(req *model.NewOrderRequest) (model.RejectReason, []string) {
	var violations []string
	reason := model.RejectMissingRequiredField
	setReason := func(r model.RejectReason) {
		if len(violations) == 1 { // first violation decides the code
			reason = r
		}
	}

	switch {
	case req.ClOrdID == "":
		violations = append(violations, "clOrdID is required")
		setReason(model.RejectMissingRequiredField)
	case len(req.ClOrdID) > maxClOrdIDLen:
		violations = append(violations, fmt.Sprintf("clOrdID exceeds %d chars", maxClOrdIDLen))
		setReason(model.RejectMissingRequiredField)
	case !validClOrdID(req.ClOrdID):
		violations = append(violations, "clOrdID contains invalid characters")
		setReason(model.RejectMissingRequiredField)
	}

	if req.Side != model.OrderSideBuy && req.Side != model.OrderSideSell {
		violations = append(violations, fmt.Sprintf("invalid side %q", req.Side))
		setReason(model.RejectMissingRequiredField)
	}

	if req.Quantity < minQty || req.Quantity > maxQty {
		violations = append(violations, fmt.Sprintf("quantity %d outside [%d, %d]", req.Quantity, minQty, maxQty))
		setReason(model.RejectInvalidQuantity)
	}

	switch {
	case req.Symbol == "":
		violations = append(violations, "symbol is required")
		setReason(model.RejectInvalidSymbol)
	case len(req.Symbol) > maxSymbolLen || !validSymbol(req.Symbol):
		violations = append(violations, fmt.Sprintf("invalid symbol %q", req.Symbol))
		setReason(model.RejectInvalidSymbol)
	}

	if req.OrderType == model.OrderTypeLimit {
		switch {
		case req.Price.IsZero():
			violations = append(violations, "price is required for limit orders")
			setReason(model.RejectInvalidPrice)
		case req.Price.Sign() <= 0 || req.Price.GreaterThan(maxPrice):
			violations = append(violations, fmt.Sprintf("price %s outside (0, %s]", req.Price, maxPrice))
			setReason(model.RejectInvalidPrice)
		}
	} else if req.OrderType != model.OrderTypeMarket {
		violations = append(violations, fmt.Sprintf("invalid order type %q", req.OrderType))
		setReason(model.RejectMissingRequiredField)
	}

	if !validCapacities[req.Capacity] {
		violations = append(violations, fmt.Sprintf("invalid capacity %q", req.Capacity))
		setReason(model.RejectInvalidCapacity)
	}

	if req.OpenClose != "" &&
		req.OpenClose != model.OpenCloseOpen &&
		req.OpenClose != model.OpenCloseClose &&
		req.OpenClose != model.OpenCloseNone {
		violations = append(violations, fmt.Sprintf("invalid open/close code %q", req.OpenClose))
		setReason(model.RejectMissingRequiredField)
	}

	// option symbology is all-or-nothing
	hasMaturity := req.MaturityDate != ""
	hasStrike := !req.StrikePrice.IsZero()
	hasPutCall := req.PutOrCall != ""
	if hasMaturity != hasStrike || hasStrike != hasPutCall {
		violations = append(violations, "maturityDate, strikePrice and putOrCall must be set together")
		setReason(model.RejectMissingRequiredField)
	}
	if hasPutCall && req.PutOrCall != model.PutOrCallPut && req.PutOrCall != model.PutOrCallCall {
		violations = append(violations, fmt.Sprintf("invalid putOrCall %q", req.PutOrCall))
		setReason(model.RejectMissingRequiredField)
	}

	if len(violations) == 0 {
		return "", nil
	}
	return reason, violations
}

func validClOrdID(id string) bool {
	for _, r := range id {
		if r < 0x21 || r > 0x7e { // printable ASCII, no spaces
			return false
		}
		if strings.ContainsRune(clOrdIDForbiddenChars, r) {
			return false
		}
	}
	return true
}

func validSymbol(symbol string) bool {
	for _, r := range symbol {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
