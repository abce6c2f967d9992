package bitex

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"
)

// orderType is satisfied by Bid and Ask; the kind is taken from the type
// itself so a resource cannot mix paths and discriminators.
type orderType interface {
	Bid | Ask
	Kind() Kind
}

// OrderResource exposes the private endpoints of one order kind.
type OrderResource[T orderType] struct {
	api Api
}

type (
	Bids = OrderResource[Bid]
	Asks = OrderResource[Ask]
)

// Kind returns the kind served by this resource.
func (r OrderResource[T]) Kind() Kind {
	var zero T
	return zero.Kind()
}

func (r OrderResource[T]) path(parts ...string) string {
	p := "private/" + r.Kind().Name
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

// Show fetches one order by id.
func (r OrderResource[T]) Show(ctx context.Context, id int64) (T, error) {
	var out T
	if err := r.api.PrivateGet(ctx, r.path(strconv.FormatInt(id, 10)), nil, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Create places a new order. Amount is in USD for bids and BTC for asks.
func (r OrderResource[T]) Create(ctx context.Context, amount, price decimal.Decimal) (T, error) {
	params := Params{
		{Key: "amount", Value: amount.String()},
		{Key: "price", Value: price.String()},
	}
	var out T
	if err := r.api.PrivatePost(ctx, r.path(), params, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Cancel requests cancelation of an order and returns its updated state.
func (r OrderResource[T]) Cancel(ctx context.Context, id int64) (T, error) {
	var out T
	if err := r.api.PrivatePost(ctx, r.path(strconv.FormatInt(id, 10), "cancel"), nil, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// OrderService is the kind-erased view of an OrderResource, for callers that
// pick the side at runtime.
type OrderService interface {
	Kind() Kind
	ShowOrder(ctx context.Context, id int64) (Order, error)
	CreateOrder(ctx context.Context, amount, price decimal.Decimal) (Order, error)
	CancelOrder(ctx context.Context, id int64) (Order, error)
}

// OrdersOf returns the resource for kind. ok is false for unknown kinds.
func (a Api) OrdersOf(kind Kind) (svc OrderService, ok bool) {
	switch kind {
	case BidKind:
		return a.Bids(), true
	case AskKind:
		return a.Asks(), true
	}
	return nil, false
}

func (r OrderResource[T]) ShowOrder(ctx context.Context, id int64) (Order, error) {
	v, err := r.Show(ctx, id)
	return asOrder(v, err)
}

func (r OrderResource[T]) CreateOrder(ctx context.Context, amount, price decimal.Decimal) (Order, error) {
	v, err := r.Create(ctx, amount, price)
	return asOrder(v, err)
}

func (r OrderResource[T]) CancelOrder(ctx context.Context, id int64) (Order, error) {
	v, err := r.Cancel(ctx, id)
	return asOrder(v, err)
}

func asOrder[T orderType](v T, err error) (Order, error) {
	if err != nil {
		return nil, err
	}
	return any(v).(Order), nil
}
