package extract

import "strings"

var (
	receiptStructureWords = []string{"領収証", "領収", "税抜金額", "消費税額", "内訳", "上記正に領収", "receipt", "tax", "total", "amount"}
	eateryWords           = []string{"curry", "restaurant", "cafe", "カフェ", "レストラン", "食堂", "居酒屋"}
	handwrittenMarkers    = []string{"様", "但", "tel"}
)

// LooksHandwritten reports whether a document with no readable total has the
// shape of a handwritten receipt: printed receipt structure, a readable date,
// and either an eatery name or the addressee/purpose fields filled by hand.
func LooksHandwritten(text string, hasDate bool) bool {
	if !hasDate {
		return false
	}
	lower := strings.ToLower(text)
	if !containsAny(lower, receiptStructureWords) {
		return false
	}
	return containsAny(lower, eateryWords) || containsAny(lower, handwrittenMarkers)
}
