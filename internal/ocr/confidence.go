package ocr

import (
	"regexp"
	"unicode/utf8"
)

var (
	reDate   = regexp.MustCompile(`(20\d{2}|令和|平成)\s*[年/.\-]\s*\d{1,2}|\d{1,2}月\s*\d{1,2}日`)
	reCurr   = regexp.MustCompile(`[¥￥円]|(?i)\bjpy\b`)
	reAmount = regexp.MustCompile(`\d{1,3}(,\d{3})+|\d{3,7}\s*円|[¥￥]\s*\d{2,}`)
	reTotal  = regexp.MustCompile(`合計|小計|領収|お預り|total`)
)

// heuristicConfidence scores recognised text by the receipt artefacts it contains.
// Used when the engine gives no score of its own.
func heuristicConfidence(txt string) float64 {
	score := 0.2
	if reDate.MatchString(txt) {
		score += 0.2
	}
	if reCurr.MatchString(txt) {
		score += 0.15
	}
	if reAmount.MatchString(txt) {
		score += 0.15
	}
	if reTotal.MatchString(txt) {
		score += 0.1
	}
	if utf8.RuneCountInString(txt) > 60 {
		score += 0.1
	}
	return clamp01(score)
}
