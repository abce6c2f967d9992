package bitex

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Profile holds account balances. Available amounts are computed by the
// server; the client does not enforce available = balance - reserved.
type Profile struct {
	USDBalance        decimal.Decimal `json:"usd_balance"`
	USDReserved       decimal.Decimal `json:"usd_reserved"`
	USDAvailable      decimal.Decimal `json:"usd_available"`
	BTCBalance        decimal.Decimal `json:"btc_balance"`
	BTCReserved       decimal.Decimal `json:"btc_reserved"`
	BTCAvailable      decimal.Decimal `json:"btc_available"`
	Fee               decimal.Decimal `json:"fee"`
	BTCDepositAddress string          `json:"btc_deposit_address"`
	MoreMTDepositCode string          `json:"more_mt_deposit_code"`
}

// profileWire mirrors Profile with pointers so missing and null fields can
// be told apart from zero.
type profileWire struct {
	USDBalance        *decimal.Decimal `json:"usd_balance"`
	USDReserved       *decimal.Decimal `json:"usd_reserved"`
	USDAvailable      *decimal.Decimal `json:"usd_available"`
	BTCBalance        *decimal.Decimal `json:"btc_balance"`
	BTCReserved       *decimal.Decimal `json:"btc_reserved"`
	BTCAvailable      *decimal.Decimal `json:"btc_available"`
	Fee               *decimal.Decimal `json:"fee"`
	BTCDepositAddress *string          `json:"btc_deposit_address"`
	MoreMTDepositCode *string          `json:"more_mt_deposit_code"`
}

// UnmarshalJSON requires every field to be present and non-null.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var w profileWire
	if err := json.Unmarshal(data, &w); err != nil {
		return decodeErr("profile", "malformed object", err)
	}

	decimals := []struct {
		name string
		src  *decimal.Decimal
		dst  *decimal.Decimal
	}{
		{"usd_balance", w.USDBalance, &p.USDBalance},
		{"usd_reserved", w.USDReserved, &p.USDReserved},
		{"usd_available", w.USDAvailable, &p.USDAvailable},
		{"btc_balance", w.BTCBalance, &p.BTCBalance},
		{"btc_reserved", w.BTCReserved, &p.BTCReserved},
		{"btc_available", w.BTCAvailable, &p.BTCAvailable},
		{"fee", w.Fee, &p.Fee},
	}
	for _, f := range decimals {
		if f.src == nil {
			return decodeErr("profile", fmt.Sprintf("missing %s", f.name), nil)
		}
	}
	if w.BTCDepositAddress == nil {
		return decodeErr("profile", "missing btc_deposit_address", nil)
	}
	if w.MoreMTDepositCode == nil {
		return decodeErr("profile", "missing more_mt_deposit_code", nil)
	}

	for _, f := range decimals {
		*f.dst = *f.src
	}
	p.BTCDepositAddress = *w.BTCDepositAddress
	p.MoreMTDepositCode = *w.MoreMTDepositCode
	return nil
}

// Check reports whether available equals balance minus reserved for both
// assets.
func (p Profile) Check() bool {
	return p.USDAvailable.Equal(p.USDBalance.Sub(p.USDReserved)) &&
		p.BTCAvailable.Equal(p.BTCBalance.Sub(p.BTCReserved))
}
