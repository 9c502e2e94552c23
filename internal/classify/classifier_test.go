package classify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/receipts-extractor/internal/common"
)

func newDefaultClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier(nil, nil)
	require.NoError(t, err)
	return c
}

func keywordOnly(t *testing.T, rules ...CategoryRule) *Classifier {
	t.Helper()
	c, err := NewClassifier(nil, StaticProvider(rules), WithHeuristics())
	require.NoError(t, err)
	return c
}

func TestFileProvider_Builtin(t *testing.T) {
	rules, err := FileProvider{}.Rules()
	require.NoError(t, err)
	require.Len(t, rules, 16)
	assert.Equal(t, "travel", rules[0].Name)
	assert.Equal(t, "Other", rules[len(rules)-1].Name)
	assert.Empty(t, ValidateRules(rules))

	comms, ok := rules.Lookup("communications (phone, internet, postage)")
	require.True(t, ok)
	assert.Contains(t, comms.Keywords, "ntt")
}

func TestFileProvider_Errors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
		return p
	}

	tests := []struct {
		name string
		path string
	}{
		{name: "missing file", path: filepath.Join(dir, "nope.yml")},
		{name: "not a mapping of objects", path: write("list.yml", "travel: [taxi, train]\n")},
		{name: "unknown key", path: write("key.yml", "travel:\n  all: [taxi]\n")},
		{name: "non string keyword", path: write("num.yml", "travel:\n  any: [1]\n")},
		{name: "empty document", path: write("empty.yml", "")},
		{name: "broken yaml", path: write("broken.yml", "travel:\n  any: [taxi\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FileProvider{Path: tt.path}.Rules()
			require.Error(t, err)
			assert.True(t, common.HasCode(err, common.CodeConfig), "got %v", err)

			_, err = NewClassifier(nil, FileProvider{Path: tt.path})
			assert.Error(t, err)
		})
	}
}

func TestParseRules_KeepsFileOrder(t *testing.T) {
	rules, err := ParseRules([]byte("zeta:\n  any: [x]\nalpha:\n  any: [' Y ', '']\n"))
	require.Error(t, err, "empty keyword violates the schema")

	rules, err = ParseRules([]byte("zeta:\n  any: [x]\nalpha:\n  any: [' Y ']\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha"}, rules.Names())
	assert.Equal(t, []string{"y"}, rules[1].Keywords)
	assert.Equal(t, []string{"zeta", "alpha"}, ValidateRules(rules))
}

func TestStaticProvider_Empty(t *testing.T) {
	_, err := StaticProvider(nil).Rules()
	assert.True(t, common.HasCode(err, common.CodeConfig))
}

func TestClassify_KeywordScoring(t *testing.T) {
	c := keywordOnly(t,
		CategoryRule{Name: "travel", Keywords: []string{"タクシー", "Starbucks"}},
		CategoryRule{Name: "entertainment", Keywords: []string{"居酒屋"}},
		CategoryRule{Name: "Other", Keywords: []string{"領収書"}},
	)

	cat, conf := c.Classify("", "", "タクシー 領収書")
	assert.Equal(t, "travel", cat)
	assert.InDelta(t, 0.5, conf, 1e-9)

	cat, conf = c.Classify("", "", "nothing to see")
	assert.Equal(t, "Other", cat)
	assert.InDelta(t, 0.1, conf, 1e-9)

	cat, conf = c.Classify("", "", "タクシー 居酒屋")
	assert.Equal(t, "Other", cat)
	assert.InDelta(t, 0.3, conf, 1e-9)

	// One edit away from a keyword scores below an exact hit.
	cat, conf = c.Classify("STARBUCK", "", "")
	assert.Equal(t, "travel", cat)
	assert.Greater(t, conf, 0.0)
	assert.Less(t, conf, 0.5)
}

func TestClassify_ClearLeaderIsNotATie(t *testing.T) {
	c := keywordOnly(t,
		CategoryRule{Name: "travel", Keywords: []string{"タクシー", "運賃"}},
		CategoryRule{Name: "entertainment", Keywords: []string{"居酒屋"}},
	)
	cat, conf := c.Classify("", "", "タクシー 運賃 居酒屋")
	assert.Equal(t, "travel", cat)
	assert.InDelta(t, 1.0, conf, 1e-9)
}

func TestClassify_Heuristics(t *testing.T) {
	tests := []struct {
		name   string
		vendor string
		text   string
		want   string
		conf   float64
	}{
		{name: "taxi in tokyo", text: "日本交通タクシー\n運賃 ¥1,500\n東京都港区", want: "travel", conf: 1},
		{name: "tokyo izakaya", text: "居酒屋 はなこ\n東京都渋谷区\n合計 ¥4,400", want: "entertainment", conf: 1},
		{name: "hotel outside tokyo", text: "大阪ホテル 宿泊\n大阪府大阪市", want: "travel", conf: 1},
		{name: "office invoice", text: "TAX INVOICE\nOffice rent March\nAccount number: 123", want: "Rent", conf: 1},
		{name: "clinic points", text: "山田クリニック\n保険点数 120点", want: "Medical", conf: 1},
		{name: "legal bureau", text: "東京法務局\n登記簿謄本 手数料", want: "Other", conf: 1},
		{name: "ikea food", vendor: "IKEA", text: "IKEA Shibuya\nミートボール ¥790", want: "entertainment", conf: 1},
		{name: "ikea furniture", vendor: "IKEA", text: "IKEA\nGREJIG 靴ラック ¥1,999", want: "Office supplies", conf: 1},
		{name: "convenience store", vendor: "Seven-Eleven", text: "セブンイレブン千代田店\n2024年10月30日\n合計 ¥390", want: "entertainment", conf: 0.4},
	}

	c := newDefaultClassifier(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, conf := c.Classify(tt.vendor, "", tt.text)
			assert.Equal(t, tt.want, cat)
			assert.InDelta(t, tt.conf, conf, 1e-9)
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	c := newDefaultClassifier(t)
	text := "スターバックス 東京駅店\nラテ ¥550\n打合せ"
	cat, conf := c.Classify("Starbucks", "", text)
	for range 20 {
		gotCat, gotConf := c.Classify("Starbucks", "", text)
		assert.Equal(t, cat, gotCat)
		assert.Equal(t, conf, gotConf)
	}
	assert.GreaterOrEqual(t, conf, 0.0)
	assert.LessOrEqual(t, conf, 1.0)
}

func TestSuggestions(t *testing.T) {
	c := keywordOnly(t,
		CategoryRule{Name: "travel", Keywords: []string{"タクシー", "運賃"}},
		CategoryRule{Name: "entertainment", Keywords: []string{"居酒屋"}},
		CategoryRule{Name: "meetings", Keywords: []string{"会議"}},
	)

	got := c.Suggestions("", "", "タクシー 運賃 居酒屋", 5)
	require.Len(t, got, 2)
	assert.Equal(t, Suggestion{Category: "travel", Score: 10, Confidence: 1}, got[0])
	assert.Equal(t, Suggestion{Category: "entertainment", Score: 5, Confidence: 0.5}, got[1])

	assert.Len(t, c.Suggestions("", "", "タクシー 運賃 居酒屋", 1), 1)
	assert.Empty(t, c.Suggestions("", "", "nothing", 3))
}

func TestScores_Penalize(t *testing.T) {
	s := NewScores()
	s.Add("travel", 3)
	s.Penalize("travel", 5)
	s.Penalize("Other", 10)
	s.PenalizeExisting("meetings", 5)

	assert.Equal(t, 0.0, s.Get("travel"))
	assert.Equal(t, 2, s.Len())

	var order []string
	s.Each(func(cat string, _ float64) { order = append(order, cat) })
	assert.Equal(t, []string{"travel", "Other"}, order)
}

func TestJRHeuristic(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{name: "fare", text: "JR東日本 新宿駅 運賃", want: 3},
		{name: "station building restaurant", text: "JR新宿ミライナタワー ビル 火鍋店", want: -15},
		{name: "station building", text: "JRセントラルタワーズ ビル", want: -5},
		{name: "no jr", text: "新宿 ビル 店", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScores()
			jrHeuristic(newInput("", tt.text), s)
			assert.Equal(t, tt.want, s.Get("travel"))
		})
	}
}

func TestHasSmallAmount(t *testing.T) {
	assert.True(t, hasSmallAmount("ミートボール ¥980"))
	assert.False(t, hasSmallAmount("¥1980 2024年"))
	assert.False(t, hasSmallAmount("¥99"))
}

func TestKeywordScore(t *testing.T) {
	assert.Equal(t, exactScore, keywordScore("タクシー", "日本交通タクシー", nil))
	assert.Equal(t, 0.0, keywordScore("taxi", "bus", []string{"bus"}))
	assert.False(t, couldMatch("ab", "abcdef"))
	assert.True(t, couldMatch("starbucks", "starbuck"))
}
