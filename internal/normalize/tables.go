package normalize

import "github.com/aristath/halalscreen/internal/domain"

// exchangeMappings is the static suffix table: yfinance-style ticker suffix
// to Bloomberg-style exchange code, name, region, and country.
var exchangeMappings = []domain.ExchangeMapping{
	// German markets
	{Suffix: ".DE", BloombergCode: "XETR", ExchangeName: "Deutsche Börse Xetra", Region: domain.RegionEU, CountryCode: "DE"},
	{Suffix: ".F", BloombergCode: "XFRA", ExchangeName: "Frankfurt Stock Exchange", Region: domain.RegionEU, CountryCode: "DE"},
	{Suffix: ".BE", BloombergCode: "XBER", ExchangeName: "Berlin Stock Exchange", Region: domain.RegionEU, CountryCode: "DE"},
	{Suffix: ".MU", BloombergCode: "XMUN", ExchangeName: "Munich Stock Exchange", Region: domain.RegionEU, CountryCode: "DE"},
	{Suffix: ".DU", BloombergCode: "XDUS", ExchangeName: "Düsseldorf Stock Exchange", Region: domain.RegionEU, CountryCode: "DE"},
	{Suffix: ".HM", BloombergCode: "XHAM", ExchangeName: "Hamburg Stock Exchange", Region: domain.RegionEU, CountryCode: "DE"},
	{Suffix: ".HA", BloombergCode: "XHAN", ExchangeName: "Hanover Stock Exchange", Region: domain.RegionEU, CountryCode: "DE"},
	{Suffix: ".SG", BloombergCode: "XSTU", ExchangeName: "Stuttgart Stock Exchange", Region: domain.RegionEU, CountryCode: "DE"},
	// UK markets
	{Suffix: ".L", BloombergCode: "XLON", ExchangeName: "London Stock Exchange", Region: domain.RegionUK, CountryCode: "GB"},
	// Euronext markets
	{Suffix: ".PA", BloombergCode: "XPAR", ExchangeName: "Euronext Paris", Region: domain.RegionEU, CountryCode: "FR"},
	{Suffix: ".AS", BloombergCode: "XAMS", ExchangeName: "Euronext Amsterdam", Region: domain.RegionEU, CountryCode: "NL"},
	{Suffix: ".BR", BloombergCode: "XBRU", ExchangeName: "Euronext Brussels", Region: domain.RegionEU, CountryCode: "BE"},
	{Suffix: ".LS", BloombergCode: "XLIS", ExchangeName: "Euronext Lisbon", Region: domain.RegionEU, CountryCode: "PT"},
	// Italian markets
	{Suffix: ".MI", BloombergCode: "XMIL", ExchangeName: "Borsa Italiana (Milan)", Region: domain.RegionEU, CountryCode: "IT"},
	// Swiss markets
	{Suffix: ".SW", BloombergCode: "XSWX", ExchangeName: "SIX Swiss Exchange", Region: domain.RegionEU, CountryCode: "CH"},
	// Nordic markets
	{Suffix: ".ST", BloombergCode: "XSTO", ExchangeName: "Nasdaq Stockholm", Region: domain.RegionEU, CountryCode: "SE"},
	{Suffix: ".CO", BloombergCode: "XCSE", ExchangeName: "Nasdaq Copenhagen", Region: domain.RegionEU, CountryCode: "DK"},
	{Suffix: ".HE", BloombergCode: "XHEL", ExchangeName: "Nasdaq Helsinki", Region: domain.RegionEU, CountryCode: "FI"},
	{Suffix: ".OL", BloombergCode: "XOSL", ExchangeName: "Oslo Stock Exchange", Region: domain.RegionEU, CountryCode: "NO"},
	// Spanish markets
	{Suffix: ".MC", BloombergCode: "XMAD", ExchangeName: "Bolsa de Madrid", Region: domain.RegionEU, CountryCode: "ES"},
	// Austrian markets
	{Suffix: ".VI", BloombergCode: "XWBO", ExchangeName: "Vienna Stock Exchange", Region: domain.RegionEU, CountryCode: "AT"},
	// Asian markets
	{Suffix: ".HK", BloombergCode: "XHKG", ExchangeName: "Hong Kong Stock Exchange", Region: domain.RegionAsia, CountryCode: "HK"},
	{Suffix: ".T", BloombergCode: "XTKS", ExchangeName: "Tokyo Stock Exchange", Region: domain.RegionAsia, CountryCode: "JP"},
	{Suffix: ".KS", BloombergCode: "XKRX", ExchangeName: "Korea Stock Exchange", Region: domain.RegionAsia, CountryCode: "KR"},
	{Suffix: ".SS", BloombergCode: "XSHG", ExchangeName: "Shanghai Stock Exchange", Region: domain.RegionAsia, CountryCode: "CN"},
	{Suffix: ".SZ", BloombergCode: "XSHE", ExchangeName: "Shenzhen Stock Exchange", Region: domain.RegionAsia, CountryCode: "CN"},
	// Australian markets
	{Suffix: ".AX", BloombergCode: "XASX", ExchangeName: "Australian Securities Exchange", Region: domain.RegionOther, CountryCode: "AU"},
	// Canadian markets
	{Suffix: ".TO", BloombergCode: "XTSE", ExchangeName: "Toronto Stock Exchange", Region: domain.RegionOther, CountryCode: "CA"},
	{Suffix: ".V", BloombergCode: "XTSX", ExchangeName: "TSX Venture Exchange", Region: domain.RegionOther, CountryCode: "CA"},
}

// usExchangeCodes maps US exchange aliases to Bloomberg-style codes. US
// listings carry no ticker suffix, so these only apply via exchange hints.
var usExchangeCodes = map[string]string{
	"NASDAQ": "XNGS", // NASDAQ Global Select
	"NYSE":   "XNYS", // New York Stock Exchange
	"AMEX":   "XASE", // NYSE American (formerly AMEX)
	"NYQ":    "XNYS", // NYSE (alternative code)
	"NMS":    "XNGS", // NASDAQ (alternative code)
}

// preserveSuffixes are ticker suffixes that look like exchange codes but are
// part of the symbol itself. Checked before any exchange suffix matching.
var preserveSuffixes = map[string]struct{}{
	".A": {}, ".B": {}, ".C": {}, ".D": {}, // share classes (e.g. BRK.A)
	"-A": {}, "-B": {}, "-C": {}, "-D": {}, // preferred shares (e.g. BAC-PL)
	".PR": {}, // preferred (alternative format)
	".U":  {}, ".UN": {}, // units (trusts, SPACs)
	".W": {}, ".WS": {}, // warrants
	".R": {}, ".RT": {}, // rights
}
