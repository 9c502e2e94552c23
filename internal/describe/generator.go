package describe

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/joseph-ayodele/receipts-extractor/constants"
)

const (
	defaultDescription = "business expense"
	meetingDescription = "business meeting"
)

// family is a description label and the terms that select it.
type family struct {
	label string
	terms []string
}

// Overrides win regardless of category.
var overrides = []family{
	{"ChatGPT", []string{"chatgpt", "openai", "gpt-4", "gpt-3"}},
	{"Rakuten Mobile", []string{"rakuten", "楽天", "mobile", "モバイル"}},
}

var (
	transportFamilies = []family{
		{"taxi", []string{"タクシー", "taxi"}},
		{"train", []string{"suica", "pasmo", "電車", "地下鉄", "駅", "◇利用日", "利用金額", "入金額"}},
		{"bus", []string{"バス"}},
		{"parking", []string{"駐車", "parking"}},
		{"fuel", []string{"ガソリン", "燃料"}},
		{"toll", []string{"高速", "料金", "toll"}},
	}
	foodFamilies = []family{
		{"client meeting", []string{"居酒屋", "レストラン", "鍋", "火鍋", "食堂"}},
		{"coffee", []string{"スターバックス", "ドトール", "コーヒー", "珈琲", "カフェ"}},
	}
	serviceFamilies = []family{
		{"internet", []string{"wi-fi", "wifi", "インターネット", "通信"}},
		{"phone", []string{"電話", "phone", "tel"}},
		{"office supplies", []string{"文具", "ペン", "ノート", "用紙"}},
		{"equipment", []string{"pc", "パソコン", "プリンタ", "printer"}},
		{"electricity", []string{"電力", "電気"}},
		{"gas", []string{"ガス"}},
		{"water", []string{"水道"}},
	}
	equipmentFamilies = []family{
		{"Slimblade trackball", []string{"slimblade"}},
		{"Kensington device", []string{"kensington"}},
		{"trackball", []string{"trackball"}},
		{"mouse", []string{"mouse"}},
		{"keyboard", []string{"keyboard"}},
		{"monitor", []string{"monitor"}},
		{"webcam", []string{"webcam"}},
		{"desk", []string{"desk"}},
		{"office chair", []string{"chair"}},
		{"printer", []string{"printer"}},
		{"scanner", []string{"scanner"}},
		{"headphones", []string{"headphone"}},
		{"speakers", []string{"speaker"}},
	}
	softwareFamilies = []family{
		{"ChatGPT", []string{"chatgpt", "openai", "gpt-4", "gpt-3"}},
		{"GitHub", []string{"github"}},
		{"Slack", []string{"slack"}},
		{"Zoom", []string{"zoom"}},
		{"Dropbox", []string{"dropbox"}},
		{"Microsoft services", []string{"microsoft"}},
		{"Adobe services", []string{"adobe"}},
		{"Google services", []string{"google"}},
		{"Apple services", []string{"apple"}},
		{"Railway hosting", []string{"railway"}},
		{"Vercel hosting", []string{"vercel"}},
		{"Heroku hosting", []string{"heroku"}},
		{"AWS services", []string{"aws"}},
		{"Setapp", []string{"setapp"}},
	}
	utilityFamilies = []family{
		{"electricity bill", []string{"電力", "電気"}},
		{"gas bill", []string{"ガス"}},
		{"water bill", []string{"水道"}},
	}
	medicalFamilies = []family{
		{"medical expense", []string{"クリニック", "clinic", "病院", "医院"}},
		{"dental expense", []string{"歯科", "歯医者"}},
		{"pharmacy", []string{"薬局", "ドラッグストア", "処方箋"}},
		{"health checkup", []string{"健康診断", "人間ドック"}},
		{"vaccination", []string{"予防接種", "ワクチン"}},
	}
	educationFamilies = []family{
		{"language learning", []string{"アラビア語", "英語", "中国語", "フランス語", "スペイン語", "ドイツ語", "韓国語"}},
		{"books", []string{"有隣堂", "紀伊國屋", "tsutaya"}},
		{"reference materials", []string{"教科書", "参考書", "辞書", "辞典"}},
		{"training", []string{"研修", "セミナー", "講座"}},
		{"certification", []string{"資格", "試験", "検定"}},
	}
	communicationFamilies = []family{
		{"rakuten mobile", []string{"rakuten mobile", "楽天モバイル"}},
		{"internet service", []string{"インターネット", "wi-fi", "wifi"}},
		{"phone bill", []string{"電話", "phone"}},
	}

	meetingTerms = []string{"会議", "打合せ", "ミーティング", "商談"}
)

type builder func(text string) string

// Generator turns category plus keyword hits into a short expense description.
// It is stateless; the zero value is not usable, use NewGenerator.
type Generator struct {
	builders map[string]builder
}

func NewGenerator() *Generator {
	return &Generator{builders: map[string]builder{
		string(constants.Travel):              travel,
		string(constants.Entertainment):       entertainment,
		string(constants.Communications):      firstOr(communicationFamilies, "communications"),
		string(constants.Meetings):            fixed("client meeting"),
		string(constants.OfficeSupplies):      fixed("office supplies"),
		string(constants.Equipment):           firstOr(equipmentFamilies, "office equipment"),
		string(constants.Utilities):           firstOr(utilityFamilies, "utility bill"),
		string(constants.ProfessionalFees):    fixed("professional services"),
		string(constants.OutsourcedFees):      fixed("consulting fees"),
		string(constants.Rent):                fixed("office rent"),
		string(constants.Advertising):         fixed("advertising expense"),
		string(constants.Memberships):         fixed("membership fees"),
		string(constants.Education):           firstOr(educationFamilies, "education"),
		string(constants.Medical):             firstOr(medicalFamilies, "medical expense"),
		string(constants.SoftwareAndServices): firstOr(softwareFamilies, "software services"),
		string(constants.Other):               fixed(defaultDescription),
	}}
}

// Generate returns a short description for one document. The vendor, when known,
// is matched together with the text. It never returns an empty string.
func (g *Generator) Generate(text string, vendor *string, amount *int64, category string) string {
	hay := text
	if vendor != nil && *vendor != "" {
		hay = *vendor + "\n" + text
	}
	hay = strings.ToLower(norm.NFKC.String(hay))

	if d, ok := first(overrides, hay); ok {
		return d
	}
	if b, ok := g.builders[category]; ok {
		if d := b(hay); d != "" {
			return d
		}
	}
	for _, fams := range [][]family{transportFamilies, foodFamilies, serviceFamilies} {
		if d, ok := first(fams, hay); ok {
			return d
		}
	}
	if containsAny(hay, meetingTerms) {
		return meetingDescription
	}
	return defaultDescription
}

func travel(text string) string {
	if d, ok := first(transportFamilies, text); ok {
		return d
	}
	switch {
	case containsAny(text, []string{"ホテル", "hotel", "宿泊"}):
		return "hotel"
	case containsAny(text, []string{"居酒屋", "レストラン", "鍋", "食堂"}):
		return "business meal (out of town)"
	}
	return "travel expense"
}

func entertainment(text string) string {
	meeting := containsAny(text, meetingTerms)
	switch {
	case strings.Contains(text, "居酒屋"):
		return pick(meeting, "client meeting", "business dinner")
	case containsAny(text, []string{"レストラン", "鍋", "食堂"}):
		return pick(meeting, "client meeting", "business meal")
	case containsAny(text, []string{"スターバックス", "ドトール", "starbucks", "doutor"}):
		return pick(meeting, "coffee meeting", "coffee")
	case containsAny(text, []string{"コーヒー", "珈琲", "カフェ"}):
		return "coffee"
	case strings.Contains(text, "映画"):
		return "movie"
	case strings.Contains(text, "カラオケ"):
		return "karaoke"
	}
	return "client entertainment"
}

func fixed(d string) builder {
	return func(string) string { return d }
}

func firstOr(fams []family, fallback string) builder {
	return func(text string) string {
		if d, ok := first(fams, text); ok {
			return d
		}
		return fallback
	}
}

func first(fams []family, text string) (string, bool) {
	for _, f := range fams {
		if containsAny(text, f.terms) {
			return f.label, true
		}
	}
	return "", false
}

func pick(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
