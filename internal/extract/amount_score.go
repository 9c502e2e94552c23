package extract

import (
	"strconv"
	"strings"
)

// Position is where an amount sits relative to the keyword that anchored it.
type Position string

const (
	PositionCurrent  Position = "current"
	PositionPrevious Position = "previous"
	PositionNext     Position = "next"
)

// ScoreInput is everything a Scorer may look at for one keyword-anchored
// candidate.
type ScoreInput struct {
	Ctx     *ReceiptContext
	Rules   *AmountRules
	Keyword TotalKeyword
	// KeywordLine is the index of the line holding the keyword, AmountLine the
	// line the number was read from.
	KeywordLine int
	AmountLine  int
	Position    Position
	Amount      lineAmount
	// MaxAmount is the largest number found anywhere in the document.
	MaxAmount int64
	// TaxSuspect is set when the amount looks like a tax figure but is kept
	// because the grand-total keyword points straight at it.
	TaxSuspect bool
}

func (in *ScoreInput) amountText() string  { return in.Ctx.line(in.AmountLine) }
func (in *ScoreInput) keywordText() string { return in.Ctx.line(in.KeywordLine) }

// Scorer contributes one signed delta to a candidate's priority. The final
// priority is the sum over all scorers, and every delta is kept in the
// candidate breakdown.
type Scorer struct {
	Name  string
	Score func(in *ScoreInput) int
}

// DefaultScorers is the ranking used for keyword-anchored candidates.
func DefaultScorers() []Scorer {
	return []Scorer{
		{Name: "keyword", Score: keywordScore},
		{Name: "context_penalty", Score: contextPenalty},
		{Name: "pattern", Score: func(in *ScoreInput) int { return in.Amount.Confidence }},
	}
}

const (
	ultraBase          = 2000
	ultraCurrentBonus  = 500
	ultraPreviousBonus = 100
	ultraRejected      = 50

	grandNext          = 7000
	grandNextTiny      = 3000
	grandCurrent       = 5000
	grandPrevious      = 3000
	grandPreviousTwice = 6000
	grandTaxSuspect    = 1000
	tinyTotalCeiling   = 100

	synonymBase          = 4000
	synonymCurrentBonus  = 800
	synonymPreviousBonus = 400

	penaltyPrevTax   = 200
	penaltyPrevAvoid = 180
	penaltyNextAvoid = 150
	penaltySameAvoid = 50
)

func keywordScore(in *ScoreInput) int {
	amount := in.Amount.Value
	switch in.Keyword.Tier {
	case TierUltra:
		if !in.Rules.validateUltra(amount, in.Keyword.Term, in.amountText(), in.keywordText(), in.Position) {
			return ultraRejected
		}
		switch in.Position {
		case PositionCurrent:
			return ultraBase + ultraCurrentBonus
		case PositionPrevious:
			return ultraBase + ultraPreviousBonus
		}
		return ultraBase

	case TierGrandTotal:
		if in.TaxSuspect {
			return grandTaxSuspect
		}
		switch in.Position {
		case PositionNext:
			if containsAny(in.Ctx.line(in.AmountLine+1), in.Rules.AdjacentTaxMarkers) {
				return grandTaxSuspect
			}
			if amount < tinyTotalCeiling && in.MaxAmount >= amount*10 {
				return grandNextTiny
			}
			return grandNext
		case PositionCurrent:
			if couldBeTaxOnTotalLine(amount, in.amountText()) {
				return grandTaxSuspect
			}
			return grandCurrent
		default:
			if containsAny(in.Ctx.line(in.AmountLine-1), in.Rules.AdjacentTaxMarkers) {
				return grandTaxSuspect
			}
			if linesContaining(in.Ctx.Lines, strconv.FormatInt(amount, 10)) >= 2 {
				return grandPreviousTwice
			}
			return grandPrevious
		}

	case TierGrandSynonym:
		switch in.Position {
		case PositionCurrent:
			return synonymBase + synonymCurrentBonus
		case PositionPrevious:
			return synonymBase + synonymPreviousBonus
		}
		return synonymBase
	}
	return in.Keyword.Weight
}

// contextPenalty demotes numbers surrounded by tax, change or subtotal words.
// The number printed on the 合計 line itself is exempt.
func contextPenalty(in *ScoreInput) int {
	if in.Keyword.Tier == TierGrandTotal && in.Position == PositionCurrent {
		return 0
	}
	return -avoidPenalty(in.Ctx, in.Rules, in.AmountLine)
}

func avoidPenalty(ctx *ReceiptContext, r *AmountRules, idx int) int {
	prev := ctx.line(idx - 1)
	switch {
	case idx > 0 && containsAny(prev, r.NeighbourTaxKeywords):
		return penaltyPrevTax
	case idx > 0 && containsAny(prev, r.AvoidKeywords):
		return penaltyPrevAvoid
	case nextLineAvoids(ctx.line(idx+1), r.AvoidKeywords):
		return penaltyNextAvoid
	case containsAny(ctx.line(idx), r.AvoidKeywords):
		return penaltySameAvoid
	}
	return 0
}

// nextLineAvoids ignores 課税 when it is part of 非課税.
func nextLineAvoids(line string, avoid []string) bool {
	for _, kw := range avoid {
		if !strings.Contains(line, kw) {
			continue
		}
		if kw == "課税" && strings.Contains(line, "非課税") {
			continue
		}
		return true
	}
	return false
}

func linesContaining(lines []string, s string) int {
	n := 0
	for _, ln := range lines {
		if strings.Contains(ln, s) {
			n++
		}
	}
	return n
}

const (
	frequencyMin           = 2
	frequencyPerOccurrence = 300
	frequencyMostBonus     = 500
	frequencyTotalBonus    = 500
)

var frequencyTotalIndicators = []string{"税込", "合計", "総計", "小計"}

// frequencyScore ranks a number that is repeated across lines. Only the same
// line and the previous line are checked for avoid words.
func frequencyScore(ctx *ReceiptContext, r *AmountRules, idx int, amt lineAmount, freq, maxFreq int) (int, map[string]int) {
	breakdown := map[string]int{
		"pattern":   amt.Confidence,
		"frequency": freq * frequencyPerOccurrence,
	}
	if freq == maxFreq {
		breakdown["most_frequent"] = frequencyMostBonus
	}
	line := ctx.line(idx)
	if containsAny(line, frequencyTotalIndicators) || strings.HasSuffix(line, "-") {
		breakdown["total_context"] = frequencyTotalBonus
	}
	switch {
	case containsAny(line, r.AvoidKeywords):
		breakdown["context_penalty"] = -penaltySameAvoid
	case idx > 0 && containsAny(ctx.line(idx-1), r.AvoidKeywords):
		breakdown["context_penalty"] = -penaltyPrevAvoid
	}
	total := 0
	for _, v := range breakdown {
		total += v
	}
	return total, breakdown
}
