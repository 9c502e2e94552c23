package extract

// KeywordTier groups total keywords by how they anchor a candidate.
type KeywordTier int

const (
	// TierRanked keywords score by their fixed Weight.
	TierRanked KeywordTier = iota
	// TierGrandTotal is the plain 合計 family.
	TierGrandTotal
	// TierGrandSynonym covers 総合計 and 税込合計.
	TierGrandSynonym
	// TierUltra keywords (利用金額, 入金額, ...) are validated against the
	// surrounding lines before they earn their bonus.
	TierUltra
)

type TotalKeyword struct {
	Term   string
	Tier   KeywordTier
	Weight int
}

// AmountRules holds every keyword table and threshold used by the amount
// extractor. The zero value is not usable; start from DefaultAmountRules.
type AmountRules struct {
	TotalKeywords []TotalKeyword
	// AvoidKeywords mark lines that carry change, tendered cash, points,
	// subtotals or timestamps.
	AvoidKeywords []string
	// TaxKeywords are direct indicators of a tax line.
	TaxKeywords []string
	// NeighbourTaxKeywords are looked up on the line before or after a number.
	NeighbourTaxKeywords []string
	TaxRateMarkers       []string
	// AdjacentTaxMarkers demote a 合計 candidate whose own neighbour line
	// looks like a tax line.
	AdjacentTaxMarkers []string
	// TotalIndicators on a line mean the number on it is not a tax amount.
	TotalIndicators []string
	// SubtotalCompounds contain 合計 but never name the grand total.
	SubtotalCompounds []string
	// SuspiciousMarkers disqualify ultra keyword matches when they sit on the
	// same line (registration numbers, phone numbers).
	SuspiciousMarkers []string
	// CompetingKeywords disqualify ultra keyword matches on adjacent lines.
	CompetingKeywords []string
	// AmountContext words make a small bare number plausible as money.
	AmountContext []string
	// TenderKeywords mark cash handed over, change and balances. Without a
	// total keyword to anchor on, numbers on these lines are never the total.
	TenderKeywords []string

	MinAmount int64
	MaxAmount int64

	// Recovery re-ranks alternatives when the winner is suspiciously small.
	LowAmountCeiling int64
	RecoveryFloor    int64
	RecoveryRatio    float64

	// HighValueWarn only affects logging.
	HighValueWarn int64
}

// DefaultAmountRules returns the tables tuned on Japanese retail, transit and
// invoice receipts.
func DefaultAmountRules() AmountRules {
	ranked := []string{
		"お支払い金額", "お支払金額", "支払い金額", "支払金額",
		"利用金額", "利用額", "入金額", "領収金額",
		"合計", "合 計", "総合計", "総 合 計", "税込合計",
		"お買上げ", "総計", "税込", "言十", "合",
	}
	tiers := map[string]KeywordTier{
		"利用金額": TierUltra, "利用額": TierUltra, "入金額": TierUltra, "領収金額": TierUltra,
		"合計": TierGrandTotal, "合 計": TierGrandTotal,
		"総合計": TierGrandSynonym, "総 合 計": TierGrandSynonym, "税込合計": TierGrandSynonym,
	}
	keywords := make([]TotalKeyword, 0, len(ranked))
	for i, term := range ranked {
		keywords = append(keywords, TotalKeyword{
			Term:   term,
			Tier:   tiers[term],
			Weight: (len(ranked) - i) * 100,
		})
	}

	return AmountRules{
		TotalKeywords: keywords,
		AvoidKeywords: []string{
			"小計", "商品合計", "税抜", "本体価格", "内税", "消費税", "税額", "税金",
			"対象額", "課税", "おつり", "お釣り", "釣り", "預り", "お預り", "お預り金額",
			"内消費税", "消費税等", "税込計", "税込合計", "軽減税率",
			"ATM手数料", "ATM利用手数料", "手数料", "振込手数料",
			"入金後残高", "残高", "現在残高", "利用可能残高", "ポイント残高",
			"年", "月", "日", "時", "分", "秒", "取引番号", "登録番号", "電話番号",
		},
		TaxKeywords:          []string{"消費税等", "消費税", "税額", "税金", "内税"},
		NeighbourTaxKeywords: []string{"内消費税", "消費税", "税額", "税金"},
		TaxRateMarkers:       []string{"10%", "8%"},
		AdjacentTaxMarkers:   []string{"消費税", "税額", "10%", "8%"},
		TotalIndicators:      []string{"税込", "合計", "総計", "小計", "total", "subtotal"},
		SubtotalCompounds:    []string{"商品合計", "税抜合計", "対象合計"},
		SuspiciousMarkers:    []string{"登録番号", "取引番号", "id:", "tel:", "電話", "番号"},
		CompetingKeywords:    []string{"小計", "税抜", "消費税", "手数料", "お釣り", "残高"},
		AmountContext:        []string{"円", "¥", "合計", "税込", "料金", "代金", "金額"},
		TenderKeywords:       []string{"お預り", "預り", "お預かり", "お釣り", "おつり", "釣り", "残高"},

		MinAmount: 10,
		MaxAmount: 1_000_000,

		LowAmountCeiling: 800,
		RecoveryFloor:    500,
		RecoveryRatio:    0.7,

		HighValueWarn: 50_000,
	}
}
