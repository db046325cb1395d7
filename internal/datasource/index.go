package datasource

// Filter methods for narrowing the screening universe.
const (
	FilterNone          = "none"
	FilterIndexPriority = "index_priority"
)

// IndexPriority ranks symbols by index membership: Dow 30 first, then the
// rest of the S&P 500, then NASDAQ-100 names outside the S&P 500, then the
// remaining universe symbols. Index members are included even when absent
// from universe. Order within a tier follows its input list. n <= 0 keeps
// every symbol.
func IndexPriority(universe, sp500, nasdaq100, dow30 []string, n int) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(dow30)+len(sp500)+len(nasdaq100))
	add := func(symbols []string) {
		for _, s := range FilterSymbols(symbols) {
			if seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	add(dow30)
	add(sp500)
	add(nasdaq100)
	add(universe)

	if n > 0 && len(out) > n {
		return out[:n]
	}
	return out
}

// Dow30Symbols returns the Dow Jones Industrial Average components.
func Dow30Symbols() []string {
	return []string{
		"AAPL", "MSFT", "UNH", "GS", "HD", "CAT", "MCD", "AMGN", "V",
		"HON", "TRV", "AXP", "IBM", "JPM", "PG", "JNJ", "WMT", "CVX",
		"MRK", "DIS", "BA", "DOW", "NKE", "MMM", "VZ", "CSCO", "INTC",
		"WBA", "AMZN", "CRM",
	}
}

// FallbackNasdaq100Symbols is used when the NASDAQ-100 table cannot be read.
func FallbackNasdaq100Symbols() []string {
	return FilterSymbols([]string{
		"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "TSLA", "AVGO",
		"COST", "NFLX", "AMD", "PEP", "ADBE", "CMCSA", "INTC", "QCOM",
		"TXN", "INTU", "AMGN", "ISRG", "VRSK", "BKNG", "FISV", "LRCX",
		"ADP", "PAYX", "KLAC", "CDNS", "SNPS", "CTAS", "FTNT", "NXPI",
		"MCHP", "DXCM", "ODFL", "FAST", "CTSH", "BKR", "IDXX", "ANSS",
		"TEAM", "ROST", "PCAR", "ON", "GEHC", "CDW", "CRWD", "MRVL",
		"ZS", "DDOG", "CPRT", "TTD", "GFS", "ENPH", "ALGN", "NDAQ",
		"VRSN", "CSGP", "WBD", "ILMN", "DLTR", "EXPE", "XEL", "EA",
		"FANG", "MELI", "LCID", "RIVN", "PTON", "HOOD", "SOFI",
	})
}
