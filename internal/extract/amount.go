package extract

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
)

// AmountCandidate is one scored reading of the document total.
type AmountCandidate struct {
	Value     int64
	Priority  int
	LineIndex int
	Line      string
	Keyword   string
	Position  Position
	// Kind is "keyword", "standalone" or "frequency".
	Kind      string
	Breakdown map[string]int
}

type AmountOption func(*AmountExtractor)

func WithAmountRules(r AmountRules) AmountOption {
	return func(e *AmountExtractor) { e.rules = r }
}

// WithScorers replaces the keyword-candidate ranking pipeline.
func WithScorers(s ...Scorer) AmountOption {
	return func(e *AmountExtractor) { e.scorers = s }
}

type AmountExtractor struct {
	logger  *slog.Logger
	rules   AmountRules
	scorers []Scorer
}

func NewAmountExtractor(logger *slog.Logger, opts ...AmountOption) *AmountExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &AmountExtractor{
		logger:  logger,
		rules:   DefaultAmountRules(),
		scorers: DefaultScorers(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract returns the document total in yen, or nil when no trustworthy
// candidate exists.
func (e *AmountExtractor) Extract(ctx *ReceiptContext) *Result[int64] {
	cands := e.Candidates(ctx)
	if len(cands) == 0 {
		e.logger.Debug("extract.amount.none")
		return nil
	}

	best := cands[0]
	for _, c := range cands[1:] {
		if c.Priority > best.Priority {
			best = c
		}
	}
	recovered := false
	if alt, ok := e.recover(best, cands); ok {
		e.logger.Info("extract.amount.recovered", "from", best.Value, "to", alt.Value)
		best, recovered = alt, true
	}

	if best.Value > e.rules.HighValueWarn && strings.Contains(strings.ToLower(ctx.FullText), "invoice") {
		e.logger.Warn("extract.amount.high_value", "amount", best.Value)
	}
	e.logger.Debug("extract.amount.selected",
		"amount", best.Value, "priority", best.Priority, "kind", best.Kind, "candidates", len(cands))

	return &Result[int64]{
		Value:      best.Value,
		Confidence: math.Max(0, math.Min(0.95, float64(best.Priority)/10000.0)),
		Source:     snippet(best.Line, 50),
		Meta: map[string]any{
			"keyword":   best.Keyword,
			"position":  string(best.Position),
			"kind":      best.Kind,
			"priority":  best.Priority,
			"breakdown": best.Breakdown,
			"recovered": recovered,
		},
	}
}

// Candidates lists every scored candidate in discovery order.
func (e *AmountExtractor) Candidates(ctx *ReceiptContext) []AmountCandidate {
	r := &e.rules
	perLine := make([][]lineAmount, len(ctx.Lines))
	var maxAmount int64
	for i, ln := range ctx.Lines {
		perLine[i] = r.extractLineAmounts(ln)
		for _, a := range perLine[i] {
			maxAmount = max(maxAmount, a.Value)
		}
	}

	var out []AmountCandidate
	for idx, line := range ctx.Lines {
		if line == "" {
			continue
		}
		for _, kw := range r.TotalKeywords {
			if !r.anchors(line, kw) {
				continue
			}
			for _, pos := range []struct {
				at  int
				rel Position
			}{{idx, PositionCurrent}, {idx - 1, PositionPrevious}, {idx + 1, PositionNext}} {
				if pos.at < 0 || pos.at >= len(ctx.Lines) {
					continue
				}
				for _, amt := range perLine[pos.at] {
					taxLike := r.isTaxAmount(amt.Value, ctx, pos.at)
					if taxLike && !keyedByGrandTotal(kw, pos.rel) {
						continue
					}
					in := &ScoreInput{
						Ctx: ctx, Rules: r, Keyword: kw,
						KeywordLine: idx, AmountLine: pos.at, Position: pos.rel,
						Amount: amt, MaxAmount: maxAmount, TaxSuspect: taxLike,
					}
					out = append(out, e.score(in))
				}
			}
		}
	}

	if len(out) == 0 {
		out = e.standaloneCandidates(ctx, perLine)
	}

	return append(out, e.frequencyCandidates(ctx, perLine)...)
}

// keyedByGrandTotal reports whether a 合計 keyword points directly at the
// amount: the same line or the one after it. Such an amount stays a candidate
// even when it looks like tax.
func keyedByGrandTotal(kw TotalKeyword, pos Position) bool {
	return kw.Tier == TierGrandTotal && pos != PositionPrevious
}

// standaloneCandidates is the fallback when no total keyword anchors anything.
// Tax figures and numbers on tendered-cash or change lines are dropped, and
// the rest carry the same avoid-word penalties as anchored candidates.
func (e *AmountExtractor) standaloneCandidates(ctx *ReceiptContext, perLine [][]lineAmount) []AmountCandidate {
	r := &e.rules
	var out []AmountCandidate
	for idx, amts := range perLine {
		if containsAny(ctx.Lines[idx], r.TenderKeywords) {
			continue
		}
		for _, amt := range amts {
			if r.isTaxAmount(amt.Value, ctx, idx) {
				continue
			}
			penalty := avoidPenalty(ctx, r, idx)
			out = append(out, AmountCandidate{
				Value:     amt.Value,
				Priority:  standaloneBase + amt.Confidence - penalty,
				LineIndex: idx, Line: ctx.Lines[idx], Kind: "standalone",
				Breakdown: map[string]int{
					"base":            standaloneBase,
					"pattern":         amt.Confidence,
					"context_penalty": -penalty,
				},
			})
		}
	}
	return out
}

func (e *AmountExtractor) score(in *ScoreInput) AmountCandidate {
	c := AmountCandidate{
		Value:     in.Amount.Value,
		LineIndex: in.AmountLine,
		Line:      in.amountText(),
		Keyword:   in.Keyword.Term,
		Position:  in.Position,
		Kind:      "keyword",
		Breakdown: make(map[string]int, len(e.scorers)),
	}
	for _, s := range e.scorers {
		d := s.Score(in)
		c.Breakdown[s.Name] = d
		c.Priority += d
	}
	return c
}

// anchors reports whether the keyword occurs on line. 合計 inside a subtotal
// compound such as 商品合計 does not count as the grand total.
func (r *AmountRules) anchors(line string, kw TotalKeyword) bool {
	if kw.Tier == TierGrandTotal {
		for _, c := range r.SubtotalCompounds {
			line = strings.ReplaceAll(line, c, "")
		}
	}
	return strings.Contains(line, kw.Term)
}

// frequencyCandidates adds a candidate for every line holding a number that
// is printed on two or more lines. Tax figures are not counted.
func (e *AmountExtractor) frequencyCandidates(ctx *ReceiptContext, perLine [][]lineAmount) []AmountCandidate {
	r := &e.rules
	type hit struct {
		idx int
		amt lineAmount
	}
	var hits []hit
	freq := make(map[int64]int)
	for idx, amts := range perLine {
		for _, amt := range amts {
			if r.isTaxAmount(amt.Value, ctx, idx) {
				continue
			}
			freq[amt.Value]++
			hits = append(hits, hit{idx, amt})
		}
	}
	maxFreq := 0
	for _, f := range freq {
		maxFreq = max(maxFreq, f)
	}

	var out []AmountCandidate
	for _, h := range hits {
		f := freq[h.amt.Value]
		if f < frequencyMin {
			continue
		}
		prio, breakdown := frequencyScore(ctx, r, h.idx, h.amt, f, maxFreq)
		out = append(out, AmountCandidate{
			Value: h.amt.Value, Priority: prio,
			LineIndex: h.idx, Line: ctx.Lines[h.idx], Kind: "frequency",
			Breakdown: breakdown,
		})
	}
	return out
}

const (
	// standaloneBase lifts ordinary unanchored candidates above zero while
	// keeping them under repeated (frequency) ones.
	standaloneBase = 200

	recoveryAmountWeight  = 50
	recoveryFormatWeight  = 30
	recoverySubtotalBonus = 200
	recoveryContextWeight = 30
)

// recover looks past a suspiciously small winner for a larger amount that is
// repeated or formatted like a total.
func (e *AmountExtractor) recover(best AmountCandidate, cands []AmountCandidate) (AmountCandidate, bool) {
	r := &e.rules
	if best.Value > r.LowAmountCeiling {
		return best, false
	}

	lines := make([]string, len(cands))
	for i, c := range cands {
		lines[i] = c.Line
	}
	joined := strings.ToLower(strings.Join(lines, "\n"))

	var alt *AmountCandidate
	for _, c := range cands {
		if c.Value <= r.RecoveryFloor {
			continue
		}
		sameValue, contexts := 0, 0
		yen, en := fmt.Sprintf("¥%d", c.Value), fmt.Sprintf("%d円", c.Value)
		for _, o := range cands {
			if o.Value == c.Value {
				sameValue++
			}
			if strings.Contains(o.Line, yen) || strings.Contains(o.Line, en) {
				contexts++
			}
		}
		formats := 0
		for _, v := range formatVariants(c.Value) {
			formats += strings.Count(joined, v)
		}
		adjusted := c.Priority + sameValue*recoveryAmountWeight + formats*recoveryFormatWeight + contexts*recoveryContextWeight
		if strings.Contains(c.Line, "小計") {
			adjusted += recoverySubtotalBonus
		}
		if alt == nil || adjusted > alt.Priority {
			next := c
			next.Priority = adjusted
			alt = &next
		}
	}
	if alt == nil || float64(alt.Priority) <= float64(best.Priority)*r.RecoveryRatio {
		return best, false
	}
	return *alt, true
}

func formatVariants(v int64) []string {
	c := formatComma(v)
	return []string{
		fmt.Sprintf("¥%d", v), fmt.Sprintf("%d円", v), "¥" + c, c + "円",
		fmt.Sprintf("¥%d-", v), fmt.Sprintf("%d-", v), fmt.Sprintf("¥ %d", v), fmt.Sprintf("%d ", v),
	}
}
