package review

import (
	"fmt"

	"github.com/joseph-ayodele/receipts-extractor/internal/entity"
)

// duplicateSpread is the largest relative amount difference still treated as the same receipt.
const duplicateSpread = 0.03

type vendorDate struct {
	vendor string
	date   string
}

// DetectDuplicates groups transactions by vendor and date and returns one item per
// transaction in any group whose amounts lie within 3% of each other. Transactions
// missing a vendor or date are never grouped. The queue is not modified.
func DetectDuplicates(txs []entity.Transaction) []Item {
	groups := map[vendorDate][]entity.Transaction{}
	var order []vendorDate
	for _, tx := range txs {
		if tx.Vendor == nil || tx.Date == nil || *tx.Vendor == "" || *tx.Date == "" {
			continue
		}
		k := vendorDate{vendor: *tx.Vendor, date: *tx.Date}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], tx)
	}

	var out []Item
	for _, k := range order {
		group := groups[k]
		if len(group) < 2 || !similarAmounts(group) {
			continue
		}
		for _, tx := range group {
			out = append(out, Item{
				FilePath:          tx.FilePath,
				Reason:            "potential duplicate receipt",
				SuggestedDate:     tx.Date,
				SuggestedAmount:   tx.Amount,
				SuggestedCategory: tx.Category,
				RawSnippet:        fmt.Sprintf("Similar to %d other receipts: %s on %s", len(group)-1, k.vendor, k.date),
			})
		}
	}
	return out
}

func similarAmounts(group []entity.Transaction) bool {
	var lo, hi int64
	n := 0
	for _, tx := range group {
		if tx.Amount == nil || *tx.Amount == 0 {
			continue
		}
		a := *tx.Amount
		if n == 0 || a < lo {
			lo = a
		}
		if n == 0 || a > hi {
			hi = a
		}
		n++
	}
	if n < 2 || hi <= 0 {
		return false
	}
	return float64(hi-lo)/float64(hi) <= duplicateSpread
}
