package bitex

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind describes one side of the book: the REST path segment used by its
// endpoints and the discriminator that tags it on the wire.
type Kind struct {
	Name          string
	Discriminator int64
}

var (
	BidKind = Kind{Name: "bids", Discriminator: 1}
	AskKind = Kind{Name: "asks", Discriminator: 2}
)

func (k Kind) String() string { return k.Name }

// kindOf resolves a wire discriminator. Unknown values are rejected.
func kindOf(discriminator int64) (Kind, bool) {
	switch discriminator {
	case BidKind.Discriminator:
		return BidKind, true
	case AskKind.Discriminator:
		return AskKind, true
	}
	return Kind{}, false
}

// OrderDetails is the field layout shared by bids and asks.
//
// Wire format (12 elements):
//
//	[discriminator, id, creation, orderbook, amount_to_spend, remaining_amount,
//	 price, status, cancelation_reason, produced_amount, issuer|null, fees_paid]
type OrderDetails struct {
	ID                int64           `json:"id"`
	Creation          int64           `json:"creation"`
	Orderbook         int64           `json:"orderbook"`
	AmountToSpend     decimal.Decimal `json:"amount_to_spend"`
	RemainingAmount   decimal.Decimal `json:"remaining_amount"`
	Price             decimal.Decimal `json:"price"`
	Status            int64           `json:"status"`
	CancelationReason int64           `json:"cancelation_reason"`
	ProducedAmount    decimal.Decimal `json:"produced_amount"`
	Issuer            *string         `json:"issuer"` // nil for system-issued orders
	FeesPaid          decimal.Decimal `json:"fees_paid"`
}

// Equal compares two orders field by field using decimal equality.
func (d OrderDetails) Equal(o OrderDetails) bool {
	issuerEq := (d.Issuer == nil && o.Issuer == nil) ||
		(d.Issuer != nil && o.Issuer != nil && *d.Issuer == *o.Issuer)
	return issuerEq &&
		d.ID == o.ID &&
		d.Creation == o.Creation &&
		d.Orderbook == o.Orderbook &&
		d.AmountToSpend.Equal(o.AmountToSpend) &&
		d.RemainingAmount.Equal(o.RemainingAmount) &&
		d.Price.Equal(o.Price) &&
		d.Status == o.Status &&
		d.CancelationReason == o.CancelationReason &&
		d.ProducedAmount.Equal(o.ProducedAmount) &&
		d.FeesPaid.Equal(o.FeesPaid)
}

// decodeOrderTuple reads the full 12-tuple and maps positions 1..11.
func decodeOrderTuple(target string, data []byte) (int64, OrderDetails, error) {
	var (
		disc int64
		d    OrderDetails
	)
	err := decodeTuple(target, data,
		&disc,
		&d.ID,
		&d.Creation,
		&d.Orderbook,
		&d.AmountToSpend,
		&d.RemainingAmount,
		&d.Price,
		&d.Status,
		&d.CancelationReason,
		&d.ProducedAmount,
		&d.Issuer,
		&d.FeesPaid,
	)
	return disc, d, err
}

// decodeOrderDetails decodes an order that must be of the given kind.
func decodeOrderDetails(kind Kind, data []byte) (OrderDetails, error) {
	target := kindTarget(kind)
	disc, d, err := decodeOrderTuple(target, data)
	if err != nil {
		return OrderDetails{}, err
	}
	if disc != kind.Discriminator {
		return OrderDetails{}, decodeErr(target,
			fmt.Sprintf("discriminator %d does not match %s (%d)", disc, kind.Name, kind.Discriminator), nil)
	}
	return d, nil
}

func kindTarget(kind Kind) string {
	switch kind {
	case BidKind:
		return "bid"
	case AskKind:
		return "ask"
	}
	return "order"
}

// Order is either a Bid or an Ask.
type Order interface {
	Kind() Kind
	Details() OrderDetails
	isOrder()
}

// Bid is a buy order for BTC priced in USD.
type Bid OrderDetails

// Ask is a sell order for BTC priced in USD.
type Ask OrderDetails

func (Bid) Kind() Kind { return BidKind }

func (b Bid) Details() OrderDetails { return OrderDetails(b) }

func (b Bid) Equal(o Bid) bool { return OrderDetails(b).Equal(OrderDetails(o)) }

func (Bid) isOrder() {}

func (Ask) Kind() Kind { return AskKind }

func (a Ask) Details() OrderDetails { return OrderDetails(a) }

func (a Ask) Equal(o Ask) bool { return OrderDetails(a).Equal(OrderDetails(o)) }

func (Ask) isOrder() {}

func (b *Bid) UnmarshalJSON(data []byte) error {
	d, err := decodeOrderDetails(BidKind, data)
	if err != nil {
		return err
	}
	*b = Bid(d)
	return nil
}

func (a *Ask) UnmarshalJSON(data []byte) error {
	d, err := decodeOrderDetails(AskKind, data)
	if err != nil {
		return err
	}
	*a = Ask(d)
	return nil
}

// DecodeOrder decodes a single order of either kind. The leading
// discriminator is read first and selects the variant; unrecognized
// discriminators are decode errors.
func DecodeOrder(data []byte) (Order, error) {
	elems, err := splitArray("order", data)
	if err != nil {
		return nil, err
	}
	if len(elems) == 0 {
		return nil, decodeErr("order", "missing discriminator", nil)
	}
	var disc int64
	if err := decodeElement(elems[0], &disc); err != nil {
		return nil, decodeErr("order", "element 0", err)
	}
	kind, ok := kindOf(disc)
	if !ok {
		return nil, decodeErr("order", fmt.Sprintf("unknown discriminator %d", disc), nil)
	}

	d, err := decodeOrderDetails(kind, data)
	if err != nil {
		return nil, err
	}
	if kind == BidKind {
		return Bid(d), nil
	}
	return Ask(d), nil
}

// OrderList decodes a mixed array of bids and asks, preserving wire order.
type OrderList []Order

func (l *OrderList) UnmarshalJSON(data []byte) error {
	elems, err := splitArray("orders", data)
	if err != nil {
		return err
	}
	out := make(OrderList, 0, len(elems))
	for _, raw := range elems {
		o, err := DecodeOrder(raw)
		if err != nil {
			return err
		}
		out = append(out, o)
	}
	*l = out
	return nil
}

// Bids returns the bids in the list, in order.
func (l OrderList) Bids() []Bid {
	var out []Bid
	for _, o := range l {
		if b, ok := o.(Bid); ok {
			out = append(out, b)
		}
	}
	return out
}

// Asks returns the asks in the list, in order.
func (l OrderList) Asks() []Ask {
	var out []Ask
	for _, o := range l {
		if a, ok := o.(Ask); ok {
			out = append(out, a)
		}
	}
	return out
}
