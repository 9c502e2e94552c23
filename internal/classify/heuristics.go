package classify

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/receipts-extractor/constants"
)

// Input is what a heuristic sees. Text keeps its case; Lower and Vendor are lowercased.
type Input struct {
	Vendor string
	Text   string
	Lower  string
}

func newInput(vendor, text string) *Input {
	return &Input{Vendor: strings.ToLower(vendor), Text: text, Lower: strings.ToLower(text)}
}

// Scores accumulates per-category points in first-touch order.
type Scores struct {
	order []string
	vals  map[string]float64
}

func NewScores() *Scores {
	return &Scores{vals: map[string]float64{}}
}

func (s *Scores) Add(cat string, delta float64) {
	if _, ok := s.vals[cat]; !ok {
		s.order = append(s.order, cat)
	}
	s.vals[cat] += delta
}

// Penalize subtracts delta but never takes the category below zero.
func (s *Scores) Penalize(cat string, delta float64) {
	s.Add(cat, 0)
	s.vals[cat] = max(0, s.vals[cat]-delta)
}

// PenalizeExisting is Penalize for categories that already scored.
func (s *Scores) PenalizeExisting(cat string, delta float64) {
	if _, ok := s.vals[cat]; ok {
		s.Penalize(cat, delta)
	}
}

func (s *Scores) Get(cat string) float64 {
	return s.vals[cat]
}

func (s *Scores) Len() int {
	return len(s.order)
}

// Each visits categories in first-touch order.
func (s *Scores) Each(fn func(cat string, v float64)) {
	for _, c := range s.order {
		fn(c, s.vals[c])
	}
}

// Heuristic is one named overlay applied after keyword scoring.
type Heuristic struct {
	Name  string
	Apply func(in *Input, s *Scores)
}

var (
	catTravel        = string(constants.Travel)
	catEntertainment = string(constants.Entertainment)
	catComms         = string(constants.Communications)
	catMeetings      = string(constants.Meetings)
	catOffice        = string(constants.OfficeSupplies)
	catEquipment     = string(constants.Equipment)
	catUtilities     = string(constants.Utilities)
	catProfessional  = string(constants.ProfessionalFees)
	catOutsourced    = string(constants.OutsourcedFees)
	catRent          = string(constants.Rent)
	catAdvertising   = string(constants.Advertising)
	catMemberships   = string(constants.Memberships)
	catEducation     = string(constants.Education)
	catMedical       = string(constants.Medical)
	catOther         = string(constants.Other)
)

var (
	transportTerms      = []string{"地下鉄", "タクシー", "高速", "suica", "pasmo", "新幹線", "バス", "電車"}
	transitFareTerms    = []string{"乗車", "切符", "運賃", "電車代", "駅"}
	commsTerms          = []string{"ntt", "kddi", "ソフトバンク", "wi-fi", "インターネット", "電話", "通信"}
	restaurantCtxTerms  = []string{"料理", "レストラン", "居酒屋", "食堂", "カフェ", "喫茶", "rice", "curry", "ライス", "カレー", "店"}
	ikeaTerms           = []string{"ikea", "イケア"}
	ikeaFoodTerms       = []string{"プラントボール", "plant ball", "ミートボール", "meatball", "フード", "food", "レストラン", "restaurant", "カフェ", "cafe", "ホットドッグ", "hot dog", "ソフトクリーム", "soft cream", "フィッシュ&チップス", "fish&chips", "fish & chips", "フィッシュアンドチップス"}
	ikeaOfficeTerms     = []string{"靴r", "靴ラック", "shoe rack", "grejig", "グレイグ", "デスク", "desk", "チェア", "chair", "収納", "storage", "ファイル", "file", "ボックス", "box", "シェルフ", "shelf"}
	coffeeVendorTerms   = []string{"スターバックス", "ドトール", "珈琲", "コーヒー", "starbucks", "doutor"}
	meetingTerms        = []string{"会議", "打合せ", "ミーティング", "商談"}
	meetingRoomTerms    = []string{"会議", "打合せ", "ミーティング", "商談", "会議室"}
	restaurantTerms     = []string{"居酒屋", "レストラン", "食事", "飲食", "鍋", "火鍋", "店", "お食事代", "料理", "rice", "curry", "ライス", "カレー", "gaprao", "マヤ", "ネパール", "インド", "bagel", "cafe", "カフェ", "ベーグル", "牛", "肉", "焼肉", "焼き鳥", "鳥", "豚", "魚", "海鮮", "寿司", "刺身", "天ぷら", "定食", "弁当", "丼", "麺", "ラーメン", "うどん", "そば", "串焼"}
	lightFoodTerms      = []string{"弁当", "ベント", "サンドイッチ", "おにぎり", "パン", "ドリンク", "飲み物", "コーヒー", "お茶"}
	strongRestaurant    = []string{"お食事代として", "火鍋", "鍋", "居酒屋", "レストラン"}
	foodTerms           = []string{"料理", "rice", "curry", "ライス", "カレー", "gaprao", "マヤ", "ネパール", "インド", "タイ", "thai", "bagel", "cafe", "カフェ", "ベーグル", "牛", "肉", "焼肉", "焼き鳥", "鳥", "豚", "魚", "海鮮", "寿司", "刺身", "天ぷら", "定食", "弁当", "丼", "麺", "ラーメン", "うどん", "そば", "串焼"}
	eveningTerms        = []string{"夜", "ビール", "酒", "アルコール"}
	officeRetailerTerms = []string{"amazon", "アマゾン", "ヨドバシ", "ビックカメラ", "yodobashi", "bic camera"}
	stationeryTerms     = []string{"文具", "ペン", "ノート", "コピー", "用紙"}
	pcTerms             = []string{"pc", "パソコン", "ディスプレイ", "プリンタ"}
	equipmentTerms      = []string{"pc", "パソコン", "ノートパソコン", "mac", "ディスプレイ", "プリンタ", "カメラ"}
	utilityTerms        = []string{"東京電力", "東京ガス", "関西電力", "中部電力"}
	professionalTerms   = []string{"弁護士", "税理士", "会計士", "コンサル"}
	outsourcedTerms     = []string{"外注", "委託", "請負", "業務委託"}
	rentTerms           = []string{"家賃", "賃料", "オフィス", "テナント"}
	advertisingTerms    = []string{"google ads", "facebook", "meta", "広告", "リスティング"}
	bookstoreTerms      = []string{"有隣堂", "紀伊國屋", "tsutaya", "ブックストア", "bookstore"}
	bookTerms           = []string{"本", "書籍", "教科書", "参考書", "語学", "英語", "中国語", "アラビア語", "フランス語", "スペイン語", "ドイツ語", "韓国語", "学習", "勉強", "教育", "辞書", "辞典", "isbn", "復習", "基本", "入門", "初級", "中級", "上級"}
	languageTerms       = []string{"アラビア語", "英語", "中国語", "フランス語", "スペイン語", "ドイツ語", "韓国語", "語学", "復習", "基本"}
	medicalFacilities   = []string{"クリニック", "clinic", "病院", "医院", "診療所", "歯科", "歯医者"}
	medicalContextTerms = []string{"保険管理", "保険点数", "診察", "治療", "医療費", "薬局", "ドラッグストア"}
	medicalPointTerms   = []string{"保険", "医療", "診察", "治療", "クリニック", "病院"}
	medicalWords        = []string{"保険", "医療", "診察", "治療"}
	membershipTerms     = []string{"会費", "年会費", "メンバーシップ", "入会金"}
	restaurantTxnTerms  = []string{"pizza", "pasta", "ボンゴレ", "ビアンコ", "テーブル", "人数:", "担当者:", "pos:", "点数", "小計", "合計", "内消費税", "お預り", "おつり"}
	restaurantNameTerms = []string{"papa milano", "ダイナック", "pizza&pasta"}
	invoiceTerms        = []string{"TAX INVOICE", "Office", "Kitchen Amenities", "BOKSEN", "Account number:", "Invoice number:"}
	legalTerms          = []string{"法務局", "登記", "登記簿"}
	storeTerms          = []string{"ikea", "イケア", "店舗", "pos", "取引", "購入", "商品", "レシート", "領収証"}
	tokyoFoodTerms      = []string{"居酒屋", "レストラン", "飲食", "鍋", "火鍋", "食堂", "コーヒー", "珈琲", "カフェ", "スターバックス", "ドトール", "indian", "restaurant"}
	tokyoTransitTerms   = []string{"駅", "乗車", "切符", "運賃", "電車代", "suica", "pasmo"}
)

// Place names. 京都 is left out of nonTokyoPlaces because it is a substring of 東京都.
var (
	tokyoPlaces = []string{
		"東京都", "東京", "Tokyo", "tokyo", "TOKYO", "渋谷", "新宿", "品川", "池袋", "上野", "銀座", "六本木", "恵比寿",
		"表参道", "原宿", "秋葉原", "浅草", "丸の内", "有楽町", "新橋", "目黒", "中野",
		"吉祥寺", "立川", "八王子", "町田", "府中", "調布", "三鷹", "武蔵野市", "杉並区",
		"世田谷区", "大田区", "江東区", "墨田区", "台東区", "荒川区", "足立区", "葛飾区",
		"江戸川区", "練馬区", "板橋区", "北区", "豊島区", "文京区", "千代田区", "中央区",
		"港区", "目黒区", "品川区",
		"Minato-ku", "Shibuya", "Shinjuku", "Azabu", "Shibuya-ku", "Shinjuku-ku",
		"Chiyoda-ku", "Chuo-ku", "Bunkyo-ku", "Taito-ku", "Sumida-ku", "Koto-ku", "Shinagawa-ku",
		"Meguro-ku", "Ota-ku", "Setagaya-ku", "Suginami-ku", "Nakano-ku", "Toshima-ku",
		"Kita-ku", "Itabashi-ku", "Nerima-ku", "Adachi-ku", "Katsushika-ku", "Edogawa-ku", "Arakawa-ku",
		"Jingumae", "Roppongi", "Ginza", "Akasaka", "Ebisu", "Harajuku", "Omotesando",
	}
	nonTokyoPlaces = []string{
		"大阪", "神戸", "名古屋", "福岡", "札幌", "仙台", "広島", "岡山",
		"熊本", "鹿児島", "沖縄", "北海道", "青森", "岩手", "宮城", "秋田", "山形",
		"福島", "茨城", "栃木", "群馬", "埼玉", "千葉", "神奈川", "新潟", "富山",
		"石川", "福井", "山梨", "長野", "岐阜", "静岡", "愛知", "三重", "滋賀",
		"京都府", "兵庫", "奈良", "和歌山", "鳥取", "島根", "山口", "徳島", "香川",
		"愛媛", "高知", "佐賀", "長崎", "大分", "宮崎",
	}
	strongTokyoPlaces = []string{"Tokyo", "tokyo", "TOKYO", "Minato-ku", "Shibuya", "Shibuya-ku", "Azabu", "東京都", "港区", "渋谷区", "Jingumae", "Japan"}
)

var smallAmountRe = regexp.MustCompile(`\d{3,4}`)

const ikeaFoodCeiling = 1200

// DefaultHeuristics returns the overlays in application order. Order matters:
// some overlays floor categories that earlier overlays raised.
func DefaultHeuristics() []Heuristic {
	return []Heuristic{
		{Name: "transport", Apply: transportHeuristic},
		{Name: "jr", Apply: jrHeuristic},
		{Name: "communications", Apply: communicationsHeuristic},
		{Name: "ikea", Apply: ikeaHeuristic},
		{Name: "coffee_vendor", Apply: coffeeVendorHeuristic},
		{Name: "restaurant", Apply: restaurantHeuristic},
		{Name: "office_retailer", Apply: officeRetailerHeuristic},
		{Name: "equipment", Apply: boost(equipmentTerms, catEquipment, 4)},
		{Name: "utilities", Apply: boost(utilityTerms, catUtilities, 5)},
		{Name: "professional", Apply: boost(professionalTerms, catProfessional, 4)},
		{Name: "outsourced", Apply: boost(outsourcedTerms, catOutsourced, 4)},
		{Name: "rent", Apply: boost(rentTerms, catRent, 5)},
		{Name: "advertising", Apply: boost(advertisingTerms, catAdvertising, 4)},
		{Name: "bookstore", Apply: bookstoreHeuristic},
		{Name: "language", Apply: boost(languageTerms, catEducation, 8)},
		{Name: "medical", Apply: medicalHeuristic},
		{Name: "membership", Apply: membershipHeuristic},
		{Name: "location", Apply: locationHeuristic},
	}
}

func boost(terms []string, cat string, points float64) func(*Input, *Scores) {
	return func(in *Input, s *Scores) {
		if containsAny(in.Lower, terms) {
			s.Add(cat, points)
		}
	}
}

func transportHeuristic(in *Input, s *Scores) {
	if containsAny(in.Lower, transportTerms) {
		s.Add(catTravel, 3)
	}
}

// jrHeuristic separates JR fares from JR station buildings, which show up in
// restaurant and shop addresses.
func jrHeuristic(in *Input, s *Scores) {
	if !strings.Contains(in.Lower, "jr") {
		return
	}
	switch {
	case containsAny(in.Lower, transitFareTerms):
		s.Add(catTravel, 3)
	case strings.Contains(in.Text, "ビル") && strings.Contains(in.Text, "店"):
		s.Add(catTravel, -15)
	case strings.Contains(in.Text, "ビル"):
		s.Add(catTravel, -5)
	}
}

// communicationsHeuristic keeps a restaurant's phone number from reading as a telecom bill.
func communicationsHeuristic(in *Input, s *Scores) {
	if !containsAny(in.Lower, commsTerms) {
		return
	}
	if containsAny(in.Lower, restaurantCtxTerms) {
		s.Add(catComms, 1)
		return
	}
	s.Add(catComms, 3)
}

func ikeaHeuristic(in *Input, s *Scores) {
	if !containsAny(in.Vendor, ikeaTerms) && !containsAny(in.Lower, ikeaTerms) {
		return
	}
	switch {
	case containsAny(in.Lower, ikeaFoodTerms):
		s.Add(catEntertainment, 10)
	case containsAny(in.Lower, ikeaOfficeTerms):
		s.Add(catOffice, 10)
	case hasSmallAmount(in.Text):
		s.Add(catEntertainment, 6)
	}
}

func hasSmallAmount(text string) bool {
	for _, m := range smallAmountRe.FindAllString(text, -1) {
		if n, err := strconv.Atoi(m); err == nil && n <= ikeaFoodCeiling {
			return true
		}
	}
	return false
}

func coffeeVendorHeuristic(in *Input, s *Scores) {
	if !containsAny(in.Vendor, coffeeVendorTerms) {
		return
	}
	if containsAny(in.Lower, meetingTerms) {
		s.Add(catMeetings, 4)
		return
	}
	s.Add(catEntertainment, 2)
}

func restaurantHeuristic(in *Input, s *Scores) {
	if !containsAny(in.Lower, restaurantTerms) {
		return
	}
	switch {
	case containsAny(in.Lower, lightFoodTerms):
		if containsAny(in.Lower, meetingRoomTerms) {
			s.Add(catMeetings, 5)
		} else {
			s.Add(catEntertainment, 3)
		}
	case containsAny(in.Text, strongRestaurant):
		s.Add(catEntertainment, 6)
	case containsAny(in.Lower, foodTerms):
		s.Add(catEntertainment, 8)
	case containsAny(in.Lower, eveningTerms):
		s.Add(catEntertainment, 3)
	default:
		s.Add(catEntertainment, 4)
	}
}

func officeRetailerHeuristic(in *Input, s *Scores) {
	if !containsAny(in.Vendor, officeRetailerTerms) {
		return
	}
	switch {
	case containsAny(in.Lower, stationeryTerms):
		s.Add(catOffice, 3)
	case containsAny(in.Lower, pcTerms):
		s.Add(catEquipment, 3)
	}
}

func bookstoreHeuristic(in *Input, s *Scores) {
	if !containsAny(in.Lower, bookstoreTerms) {
		return
	}
	if containsAny(in.Lower, bookTerms) {
		s.Add(catEducation, 10)
		s.Penalize(catEntertainment, 5)
		return
	}
	s.Add(catEducation, 6)
}

func medicalHeuristic(in *Input, s *Scores) {
	switch {
	case containsAny(in.Lower, medicalFacilities):
		s.Add(catMedical, 10)
	case containsAny(in.Lower, medicalContextTerms):
		s.Add(catMedical, 8)
	case strings.Contains(in.Lower, "点数") && containsAny(in.Lower, medicalPointTerms):
		s.Add(catMedical, 6)
	}
	// Insurance point totals (点) on clinic receipts.
	if strings.Contains(in.Text, "点") && containsAny(in.Lower, medicalWords) {
		s.Add(catMedical, 12)
	}
}

// membershipHeuristic tells real membership fees apart from loyalty-program
// promotions printed on restaurant receipts.
func membershipHeuristic(in *Input, s *Scores) {
	if !containsAny(in.Lower, membershipTerms) {
		return
	}
	if containsAny(in.Lower, restaurantTxnTerms) || containsAny(in.Lower, restaurantNameTerms) {
		s.Add(catEntertainment, 12)
		s.Add(catMemberships, 0.5)
		return
	}
	s.Add(catMemberships, 4)
}

// locationHeuristic treats receipts from outside Tokyo as travel, with office
// invoices and legal bureau fees taking precedence.
func locationHeuristic(in *Input, s *Scores) {
	tokyo := containsAny(in.Text, tokyoPlaces)
	nonTokyo := containsAny(in.Text, nonTokyoPlaces)
	strongTokyo := containsAny(in.Text, strongTokyoPlaces)

	switch {
	case containsAny(in.Text, invoiceTerms):
		s.Add(catRent, 25)
		s.Penalize(catEntertainment, 20)
		s.Penalize(catTravel, 20)
		s.Penalize(catOther, 10)
	case containsAny(in.Lower, legalTerms) ||
		(strings.Contains(in.Lower, "印紙") && !containsAny(in.Lower, storeTerms)):
		s.Add(catOther, 20)
		s.Penalize(catTravel, 25)
		s.Penalize(catProfessional, 10)
		s.Penalize(catOffice, 10)
	case tokyo:
		if containsAny(in.Lower, tokyoFoodTerms) {
			s.Add(catEntertainment, 12)
			s.Penalize(catTravel, pick(strongTokyo, 20, 15))
		} else if !containsAny(in.Lower, tokyoTransitTerms) {
			s.Penalize(catTravel, pick(strongTokyo, 15, 10))
		}
	case nonTokyo && !strongTokyo:
		s.Add(catTravel, 15)
		s.PenalizeExisting(catEntertainment, 5)
		s.PenalizeExisting(catMeetings, 5)
	}
}

func pick(cond bool, a, b float64) float64 {
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
