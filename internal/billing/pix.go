package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ariefcatur/storefront-orders/internal/gateway/pix"
	"github.com/ariefcatur/storefront-orders/internal/orders"
	"github.com/google/uuid"
)

type OrderStore interface {
	Create(ctx context.Context, o *orders.Order) error
	SetPaymentReference(ctx context.Context, id, ref string) error
	Delete(ctx context.Context, id string) error
}

type PixGateway interface {
	CreateCharge(ctx context.Context, req pix.ChargeRequest) (pix.Charge, error)
}

// PixAdapter creates the pending order before the charge, so the webhook
// always has an order to find.
type PixAdapter struct {
	Orders        OrderStore
	Catalog       Catalog
	Gateway       PixGateway
	ReturnURL     string
	CompletionURL string
	Log           *slog.Logger
}

func (a *PixAdapter) CreateBilling(ctx context.Context, in Intent) (Billing, error) {
	priced, err := priceIntent(ctx, a.Catalog, in, a.Log)
	if err != nil {
		return Billing{}, err
	}

	o := &orders.Order{
		ID:               uuid.NewString(),
		UserID:           in.UserID,
		Status:           orders.StatusPending,
		PaymentMethod:    orders.PaymentPix,
		PaymentReference: orders.NewPlaceholderReference(),
		TotalAmount:      priced.totals.Total,
		DiscountPercent:  in.DiscountPercent,
		Shipping:         in.Shipping,
		Address:          in.Address,
		Items:            priced.items,
	}
	if err := a.Orders.Create(ctx, o); err != nil {
		return Billing{}, fmt.Errorf("create pending order: %w", err)
	}

	md, err := priced.metadata(in, o.ID).Encode()
	if err != nil {
		a.compensate(ctx, o.ID)
		return Billing{}, err
	}

	charge, err := a.Gateway.CreateCharge(ctx, pix.ChargeRequest{
		Products: []pix.Product{{
			ExternalID: o.ID,
			Name:       "Pedido " + o.ID[:8],
			Quantity:   1,
			Price:      orders.Cents(o.TotalAmount),
		}},
		ReturnURL:     a.ReturnURL,
		CompletionURL: a.CompletionURL,
		Customer: pix.Customer{
			Name:      in.Customer.Name,
			Cellphone: in.Customer.Phone,
			Email:     in.Customer.Email,
			TaxID:     in.Customer.TaxID,
		},
		ExternalID: o.ID,
		Metadata:   md,
	})
	if err != nil {
		a.compensate(ctx, o.ID)
		return Billing{}, fmt.Errorf("%w: %w", ErrGateway, err)
	}

	if err := a.Orders.SetPaymentReference(ctx, o.ID, charge.ID); err != nil {
		// Webhook masih bisa menemukan order lewat metadata order_id,
		// tapi sweeper tidak akan melihatnya.
		a.Log.Error("record pix charge id failed", "order_id", o.ID, "charge_id", charge.ID, "err", err)
	}

	a.Log.Info("pix billing created", "order_id", o.ID, "charge_id", charge.ID, "total", o.TotalAmount.String())
	return Billing{RedirectURL: charge.URL, ExternalReference: charge.ID, OrderID: o.ID}, nil
}

// compensate removes the pending order and its items. It runs even when the
// caller's context is already done.
func (a *PixAdapter) compensate(ctx context.Context, orderID string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := a.Orders.Delete(cctx, orderID); err != nil {
		a.Log.Error("compensating delete failed, orphan pending order", "order_id", orderID, "err", err)
		return
	}
	a.Log.Warn("pending order removed after gateway failure", "order_id", orderID)
}
