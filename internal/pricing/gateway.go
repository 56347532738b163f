package pricing

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/rmjobsites-storefront/internal/cart"
	pkgerrors "github.com/angelmondragon/rmjobsites-storefront/pkg/errors"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/logger"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/metrics"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/storefront"
)

// FailureMessage is shown in the totals area when pricing fails.
const FailureMessage = "Failed to calculate order totals"

// OrderSummary holds server-computed totals in minor units.
type OrderSummary struct {
	Subtotal int64 `json:"subtotal"`
	Tax      int64 `json:"tax"`
	Shipping int64 `json:"shipping"`
	Total    int64 `json:"total"`
}

// Calculator is the remote pricing endpoint.
type Calculator interface {
	CalculateOrder(ctx context.Context, lines []storefront.OrderLineItem) (*storefront.CalculateResponse, error)
}

// Gateway prices cart contents through the storefront API.
type Gateway struct {
	api     Calculator
	logger  *logger.Logger
	metrics *metrics.Storefront
}

// NewGateway wires the pricing adapter. metrics may be nil.
func NewGateway(api Calculator, logg *logger.Logger, m *metrics.Storefront) (*Gateway, error) {
	if api == nil {
		return nil, errors.New("pricing api required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Gateway{api: api, logger: logg, metrics: m}, nil
}

// Calculate requests totals for lines. Every failure carries PRICING_UNAVAILABLE.
func (g *Gateway) Calculate(ctx context.Context, lines []cart.LineItem) (OrderSummary, error) {
	if len(lines) == 0 {
		return OrderSummary{}, nil
	}

	start := time.Now()
	resp, err := g.api.CalculateOrder(ctx, OrderLines(lines))
	if err == nil && resp == nil {
		err = errors.New("empty pricing response")
	}
	g.metrics.ObserveStep(metrics.StepPricing, time.Since(start), err)
	if err != nil {
		if ctx.Err() == nil {
			logCtx := g.logger.WithFields(ctx, map[string]any{
				"line_count":  len(lines),
				"pricing_key": Key(lines),
			})
			g.logger.Error(logCtx, "pricing.calculate_failed", err)
		}
		return OrderSummary{}, pkgerrors.Wrap(pkgerrors.CodePricingUnavailable, err, FailureMessage)
	}

	return OrderSummary{
		Subtotal: resp.Subtotal,
		Tax:      resp.Taxes,
		Shipping: resp.Shipping,
		Total:    resp.Total,
	}, nil
}

// OrderLines converts cart lines to the wire shape; quantity travels as a decimal string.
func OrderLines(lines []cart.LineItem) []storefront.OrderLineItem {
	out := make([]storefront.OrderLineItem, 0, len(lines))
	for _, line := range lines {
		out = append(out, storefront.OrderLineItem{
			CatalogObjectID: line.CatalogObjectID,
			Quantity:        strconv.Itoa(line.Quantity),
		})
	}
	return out
}

// Key identifies the priced content: the ordered (variation, quantity) pairs.
// Two carts with the same key price identically.
func Key(lines []cart.LineItem) string {
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(line.CatalogObjectID)
		b.WriteByte('=')
		b.WriteString(strconv.Itoa(line.Quantity))
	}
	return b.String()
}
