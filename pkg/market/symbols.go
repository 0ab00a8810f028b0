package market

import "strings"

// cryptoSymbols is the closed set of tickers and names routed to the crypto adapter.
var cryptoSymbols = map[string]struct{}{
	"btc": {}, "bitcoin": {},
	"eth": {}, "ethereum": {},
	"ada": {}, "cardano": {},
	"sol": {}, "solana": {},
	"bnb": {},
	"xrp": {},
	"doge": {},
	"matic": {},
	"dot": {},
	"avax": {},
}

// coinIDs maps informal crypto symbols to CoinGecko asset ids.
var coinIDs = map[string]string{
	"btc":         "bitcoin",
	"bitcoin":     "bitcoin",
	"eth":         "ethereum",
	"ethereum":    "ethereum",
	"ada":         "cardano",
	"cardano":     "cardano",
	"sol":         "solana",
	"solana":      "solana",
	"bnb":         "binancecoin",
	"binancecoin": "binancecoin",
	"xrp":         "ripple",
	"ripple":      "ripple",
	"doge":        "dogecoin",
	"dogecoin":    "dogecoin",
	"matic":       "matic-network",
	"polygon":     "matic-network",
	"dot":         "polkadot",
	"polkadot":    "polkadot",
	"avax":        "avalanche-2",
	"avalanche":   "avalanche-2",
}

// IsCryptoSymbol reports exact membership of symbol in the crypto set.
// Matching is case-insensitive; substrings never match.
func IsCryptoSymbol(symbol string) bool {
	_, ok := cryptoSymbols[strings.ToLower(strings.TrimSpace(symbol))]
	return ok
}

// CryptoSymbols returns a copy of the crypto routing set.
func CryptoSymbols() []string {
	out := make([]string, 0, len(cryptoSymbols))
	for s := range cryptoSymbols {
		out = append(out, s)
	}
	return out
}

// KindOf classifies a symbol; anything not in the crypto set is an equity.
func KindOf(symbol string) AssetKind {
	if IsCryptoSymbol(symbol) {
		return KindCrypto
	}
	return KindEquity
}

// CoinID translates an informal crypto symbol to the provider asset id.
// Unknown symbols pass through lowercased.
func CoinID(symbol string) string {
	key := strings.ToLower(strings.TrimSpace(symbol))
	if id, ok := coinIDs[key]; ok {
		return id
	}
	return key
}
