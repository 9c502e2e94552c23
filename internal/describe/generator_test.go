package describe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestGenerate(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		vendor   *string
		category string
		want     string
	}{
		{name: "ai service overrides category", text: "ChatGPT Plus subscription", category: "Software and Services", want: "ChatGPT"},
		{name: "carrier overrides category", text: "楽天モバイル 月額", category: "communications (phone, internet, postage)", want: "Rakuten Mobile"},
		{name: "taxi", text: "日本交通 タクシー", category: "travel", want: "taxi"},
		{name: "half width taxi", text: "ﾀｸｼｰ", category: "travel", want: "taxi"},
		{name: "hotel", text: "東横イン 宿泊", category: "travel", want: "hotel"},
		{name: "izakaya with meeting", text: "居酒屋 はなこ 打合せ", category: "entertainment", want: "client meeting"},
		{name: "izakaya", text: "居酒屋 はなこ", category: "entertainment", want: "business dinner"},
		{name: "coffee chain from vendor", text: "Tall Latte", vendor: strPtr("Starbucks"), category: "entertainment", want: "coffee"},
		{name: "equipment map order", text: "Kensington SlimBlade Trackball", category: "Equipment", want: "Slimblade trackball"},
		{name: "electricity", text: "東京電力 ご請求", category: "Utilities", want: "electricity bill"},
		{name: "dental", text: "さくら歯科", category: "Medical", want: "dental expense"},
		{name: "language", text: "英語 参考書", category: "Education", want: "language learning"},
		{name: "phone bill", text: "NTT 電話料金", category: "communications (phone, internet, postage)", want: "phone bill"},
		{name: "software", text: "GitHub, Inc. invoice", category: "Software and Services", want: "GitHub"},
		{name: "rent", text: "家賃 3月分", category: "Rent", want: "office rent"},
		{name: "other ignores keyword families", text: "タクシー", category: "Other", want: "business expense"},
		{name: "unknown category falls back to families", text: "タクシー", category: "", want: "taxi"},
		{name: "meeting context", text: "会議室 利用", category: "", want: "business meeting"},
		{name: "nothing matches", text: "", category: "", want: "business expense"},
	}

	g := NewGenerator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Generate(tt.text, tt.vendor, nil, tt.category))
		})
	}
}

func TestGenerate_NeverEmpty(t *testing.T) {
	g := NewGenerator()
	amount := int64(390)
	for _, cat := range []string{"travel", "entertainment", "Equipment", "Medical", "Education", "Other", "nonsense"} {
		assert.NotEmpty(t, g.Generate("", nil, &amount, cat), cat)
	}
}
