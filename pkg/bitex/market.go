package bitex

import (
	"bytes"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

// PriceLevel is one [price, volume] entry of the order book.
type PriceLevel struct {
	Price  decimal.Decimal `json:"price"`
	Volume decimal.Decimal `json:"volume"`
}

func (p *PriceLevel) UnmarshalJSON(data []byte) error {
	return decodeTuple("price level", data, &p.Price, &p.Volume)
}

// Equal compares price and volume by value.
func (p PriceLevel) Equal(o PriceLevel) bool {
	return p.Price.Equal(o.Price) && p.Volume.Equal(o.Volume)
}

// OrderBook keeps both sides exactly in the order the server sent them.
type OrderBook struct {
	Bids []PriceLevel `json:"bids"`
	Asks []PriceLevel `json:"asks"`
}

// UnmarshalJSON requires both sides to be present as arrays; an empty side
// is fine, a missing or null one is not.
func (b *OrderBook) UnmarshalJSON(data []byte) error {
	var w struct {
		Bids jsoniter.RawMessage `json:"bids"`
		Asks jsoniter.RawMessage `json:"asks"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return decodeErr("order book", "malformed object", err)
	}
	bids, err := decodeLevels("bids", w.Bids)
	if err != nil {
		return err
	}
	asks, err := decodeLevels("asks", w.Asks)
	if err != nil {
		return err
	}
	b.Bids, b.Asks = bids, asks
	return nil
}

func decodeLevels(side string, raw jsoniter.RawMessage) ([]PriceLevel, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return nil, decodeErr("order book", "missing "+side, nil)
	}
	elems, err := splitArray("order book "+side, raw)
	if err != nil {
		return nil, err
	}
	levels := make([]PriceLevel, len(elems))
	for i, e := range elems {
		if err := levels[i].UnmarshalJSON(e); err != nil {
			return nil, err
		}
	}
	return levels, nil
}

// BestBid returns the first bid level, if any.
func (b OrderBook) BestBid() (PriceLevel, bool) {
	if len(b.Bids) == 0 {
		return PriceLevel{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the first ask level, if any.
func (b OrderBook) BestAsk() (PriceLevel, bool) {
	if len(b.Asks) == 0 {
		return PriceLevel{}, false
	}
	return b.Asks[0], true
}

// Transaction is a public trade.
//
// Wire format: [timestamp, id, price, amount]
type Transaction struct {
	Timestamp int64           `json:"timestamp"` // Unix seconds
	ID        int64           `json:"id"`
	Price     decimal.Decimal `json:"price"`
	Amount    decimal.Decimal `json:"amount"`
}

func (t *Transaction) UnmarshalJSON(data []byte) error {
	return decodeTuple("transaction", data, &t.Timestamp, &t.ID, &t.Price, &t.Amount)
}

// Time returns the trade time in UTC.
func (t Transaction) Time() time.Time {
	return time.Unix(t.Timestamp, 0).UTC()
}
