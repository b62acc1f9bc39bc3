package util

import "strings"

var quoteAssets = []string{"USDT", "USDC", "BUSD", "USD"}

// BaseAsset upper-cases sym and strips a known quote suffix and separators:
// "btc", "BTC-USDT" and "btcusdt" all yield "BTC".
func BaseAsset(sym string) string {
	s := strings.ToUpper(strings.TrimSpace(sym))
	s = strings.NewReplacer("-", "", "/", "", "_", "").Replace(s)
	for _, q := range quoteAssets {
		if len(s) > len(q) && strings.HasSuffix(s, q) {
			return strings.TrimSuffix(s, q)
		}
	}
	return s
}

// PerpSymbol returns the USDT-margined perpetual symbol for sym.
func PerpSymbol(sym string) string {
	base := BaseAsset(sym)
	if base == "" {
		return ""
	}
	return base + "USDT"
}
