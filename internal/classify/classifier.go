package classify

import (
	"log/slog"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	confidenceScale    = 10.0
	nearTieRatio       = 0.9
	nearTieMargin      = 1.0
	noMatchConfidence  = 0.1
	conflictConfidence = 0.3
)

// Suggestion is one ranked category candidate.
type Suggestion struct {
	Category   string
	Score      float64
	Confidence float64
}

type Option func(*Classifier)

// WithHeuristics replaces the default overlays. Pass none to score on keywords only.
func WithHeuristics(h ...Heuristic) Option {
	return func(c *Classifier) { c.heuristics = h }
}

// Classifier assigns one category per document from keyword rules plus
// heuristic overlays. It is read-only after construction and safe for concurrent use.
type Classifier struct {
	logger     *slog.Logger
	rules      RuleSet
	heuristics []Heuristic
}

// NewClassifier loads rules from provider; a nil provider selects the built-in
// rule file. Rule loading errors are returned unchanged.
func NewClassifier(logger *slog.Logger, provider RuleProvider, opts ...Option) (*Classifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if provider == nil {
		provider = FileProvider{}
	}
	rules, err := provider.Rules()
	if err != nil {
		return nil, err
	}
	c := &Classifier{logger: logger, rules: rules, heuristics: DefaultHeuristics()}
	for _, o := range opts {
		o(c)
	}
	logger.Info("classify.rules.loaded", "categories", len(rules), "heuristics", len(c.heuristics))
	return c, nil
}

// Categories returns the configured category names in rule order.
func (c *Classifier) Categories() []string {
	return c.rules.Names()
}

// Classify returns the winning category and a confidence in [0, 1].
// No positive score yields ("Other", 0.1); a near tie at the top yields ("Other", 0.3).
func (c *Classifier) Classify(vendor, description, text string) (string, float64) {
	ranked := c.rank(vendor, description, text)
	if len(ranked) == 0 {
		c.logger.Debug("classify.no_match")
		return catOther, noMatchConfidence
	}

	best := ranked[0]
	if contenders := nearTie(ranked); len(contenders) > 1 {
		c.logger.Warn("classify.conflict", "categories", contenders, "score", best.Score)
		return catOther, conflictConfidence
	}

	c.logger.Debug("classify.selected", "category", best.Category, "score", best.Score, "confidence", best.Confidence)
	return best.Category, best.Confidence
}

// Suggestions returns up to n categories with a positive score, best first.
func (c *Classifier) Suggestions(vendor, description, text string, n int) []Suggestion {
	ranked := c.rank(vendor, description, text)
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// Scores exposes the merged keyword and heuristic scores for one document.
func (c *Classifier) Scores(vendor, description, text string) *Scores {
	vendor = norm.NFKC.String(vendor)
	description = norm.NFKC.String(description)
	text = norm.NFKC.String(text)

	haystack := strings.ToLower(vendor + " " + description + " " + text)
	tokens := strings.Fields(haystack)

	total := NewScores()
	for _, r := range c.rules {
		if r.Name == catOther {
			continue
		}
		if v := ruleScore(r, haystack, tokens); v > 0 {
			total.Add(r.Name, v)
		}
	}

	// Heuristics floor against their own tally, so a penalty cannot erase keyword evidence.
	overlay := NewScores()
	in := newInput(vendor, text)
	for _, h := range c.heuristics {
		h.Apply(in, overlay)
	}
	overlay.Each(total.Add)
	return total
}

func (c *Classifier) rank(vendor, description, text string) []Suggestion {
	var out []Suggestion
	c.Scores(vendor, description, text).Each(func(cat string, v float64) {
		if v > 0 {
			out = append(out, Suggestion{Category: cat, Score: v, Confidence: math.Min(v/confidenceScale, 1)})
		}
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// nearTie lists the categories tied with the leader. A tie needs a second
// category within nearTieRatio of the best score and within nearTieMargin points.
func nearTie(ranked []Suggestion) []string {
	best := ranked[0].Score
	high := 0
	for _, s := range ranked {
		if s.Score >= best*nearTieRatio {
			high++
		}
	}
	if high < 2 {
		return nil
	}
	var tied []string
	for _, s := range ranked {
		if math.Abs(s.Score-best) <= nearTieMargin {
			tied = append(tied, s.Category)
		}
	}
	return tied
}
