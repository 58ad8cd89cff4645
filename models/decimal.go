package models

import "github.com/shopspring/decimal"

func init() {
	// money is a JSON number on the wire
	decimal.MarshalJSONWithoutQuotes = true
}
