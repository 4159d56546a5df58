package sina

import "github.com/shopspring/decimal"

// IndexQuote is one row of the market-center index table. Sina serves numeric
// fields either quoted or bare depending on the node, decimal accepts both.
type IndexQuote struct {
	Symbol        string          `json:"symbol"`        // e.g. "sh000001"
	Code          string          `json:"code"`          // e.g. "000001"
	Name          string          `json:"name"`          // e.g. "上证指数"
	Trade         decimal.Decimal `json:"trade"`         // latest price
	PriceChange   decimal.Decimal `json:"pricechange"`   // absolute change vs. settlement
	ChangePercent decimal.Decimal `json:"changepercent"` // percent change, 1.23 means 1.23%
	Settlement    decimal.Decimal `json:"settlement"`    // previous close
	Open          decimal.Decimal `json:"open"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	Volume        decimal.Decimal `json:"volume"` // shares
	Amount        decimal.Decimal `json:"amount"` // turnover in CNY
	TickTime      string          `json:"ticktime"`
}

// FindBySymbol returns the row with the given symbol.
func FindBySymbol(quotes []IndexQuote, symbol string) (IndexQuote, bool) {
	for _, q := range quotes {
		if q.Symbol == symbol {
			return q, true
		}
	}
	return IndexQuote{}, false
}
