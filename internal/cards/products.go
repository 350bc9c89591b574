package cards

import "sort"

// NumberLength is the length of every issued card number.
const NumberLength = 16

const randomDigits = 9

// Product is a card type the bank can issue.
type Product struct {
	Type string `json:"type"`
	BIN  string `json:"bin"`
}

var products = map[string]Product{
	"Visa Classic":        {Type: "Visa Classic", BIN: "427601"},
	"Visa Gold":           {Type: "Visa Gold", BIN: "427602"},
	"Visa Platinum":       {Type: "Visa Platinum", BIN: "427603"},
	"Mastercard Standard": {Type: "Mastercard Standard", BIN: "546901"},
	"Mastercard World":    {Type: "Mastercard World", BIN: "546902"},
	"Мир":                 {Type: "Мир", BIN: "220220"},
}

// LookupProduct returns the product for a card type name.
func LookupProduct(cardType string) (Product, bool) {
	p, ok := products[cardType]
	return p, ok
}

// Products lists every issuable product ordered by type name.
func Products() []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}
