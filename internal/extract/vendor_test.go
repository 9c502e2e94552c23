package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVendorExtractor(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		want     string
		wantType string
		conf     float64
	}{
		{name: "known chain", text: "セブンイレブン千代田店\n合計 ¥390", want: "Seven-Eleven", wantType: "chain", conf: 0.95},
		{name: "half width katakana chain", text: "ﾛｰｿﾝ 新宿店", want: "Lawson", wantType: "chain", conf: 0.95},
		{name: "english chain", text: "STARBUCKS COFFEE\nTall Latte", want: "Starbucks", wantType: "chain", conf: 0.95},
		{name: "corporation", text: "株式会社山田商事\n2024/01/01", want: "株式会社山田商事", wantType: "corporation", conf: 0.9},
		{name: "store suffix on second line", text: "いらっしゃいませ\n中村書店", want: "中村書店", wantType: "store", conf: 0.88},
		{name: "fallback first line", text: "Blue Bottle Coffee\nLatte 650", want: "Blue Bottle Coffee", wantType: "fallback", conf: 0.7},
		{name: "fallback skips labels", text: "領収書\nBlue Bottle Coffee", want: "Blue Bottle Coffee", wantType: "fallback", conf: 0.5},
	}

	e := NewVendorExtractor(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.Extract(NewReceiptContext(tt.text))
			require.NotNil(t, res)
			assert.Equal(t, tt.want, res.Value)
			assert.Equal(t, tt.wantType, res.Meta["type"])
			assert.InDelta(t, tt.conf, res.Confidence, 1e-9)
		})
	}
}

func TestVendorExtractor_None(t *testing.T) {
	e := NewVendorExtractor(nil)
	assert.Nil(t, e.Extract(NewReceiptContext("")))
	assert.Nil(t, e.Extract(NewReceiptContext("領収書\n2024年1月1日\n合計 ¥500")))
}

func TestVendorExtractor_WithChains(t *testing.T) {
	e := NewVendorExtractor(nil, WithChains([]Chain{{Match: "ブルーボトル", Display: "Blue Bottle"}}))

	res := e.Extract(NewReceiptContext("ブルーボトルコーヒー清澄白河"))
	require.NotNil(t, res)
	assert.Equal(t, "Blue Bottle", res.Value)

	res = e.Extract(NewReceiptContext("セブンイレブン千代田店"))
	require.NotNil(t, res)
	assert.Equal(t, "seven_eleven", res.Meta["type"])
}

func TestLooksHandwritten(t *testing.T) {
	text := "領収証\n山田太郎 様\n但 お食事代として\n2024年5月1日\nカレー屋"
	assert.True(t, LooksHandwritten(text, true))
	assert.False(t, LooksHandwritten(text, false))
	assert.False(t, LooksHandwritten("山田太郎 様", true))
	assert.False(t, LooksHandwritten("領収証\nお買い物", true))
}

func TestParser_EndToEnd(t *testing.T) {
	p := NewParser(nil, NewDateExtractor(nil, WithClock(fixedClock(2025))), nil, nil)

	f := p.Parse("セブンイレブン千代田店\n2024年10月30日\n合計 ¥390")
	require.NotNil(t, f.Date)
	require.NotNil(t, f.Amount)
	require.NotNil(t, f.Vendor)
	assert.Equal(t, "2024-10-30", f.Date.Value)
	assert.Equal(t, int64(390), f.Amount.Value)
	assert.Equal(t, "Seven-Eleven", f.Vendor.Value)
	assert.False(t, f.Handwritten)
}

func TestParser_Handwritten(t *testing.T) {
	p := NewParser(nil, NewDateExtractor(nil, WithClock(fixedClock(2025))), nil, nil)

	f := p.Parse("領収証\n山田太郎 様\n但 お食事代として\n2024年5月1日")
	assert.Nil(t, f.Amount)
	require.NotNil(t, f.Date)
	assert.True(t, f.Handwritten)
}

func TestNewReceiptContext(t *testing.T) {
	ctx := NewReceiptContext("  ＡＢＣ  \r\n\r\n合計：￥１，０００\r")
	assert.Equal(t, []string{"ABC", "", "合計:¥1,000", ""}, ctx.Lines)
	assert.Equal(t, "", ctx.line(-1))
	assert.Equal(t, "", ctx.line(10))
}
