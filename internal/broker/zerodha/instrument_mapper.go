package zerodha

// instrumentMapper translates between trading symbols and Kite
// instrument tokens for the WebSocket subscription API.
//
// TODO: Load the full instrument dump from the Kite instruments
// endpoint instead of this static NSE subset.
type instrumentMapper struct {
	symbolToToken map[string]uint32
	tokenToSymbol map[uint32]string
}

func newInstrumentMapper() *instrumentMapper {
	symbolToToken := map[string]uint32{
		"RELIANCE":   256265,
		"TCS":        2953217,
		"HDFCBANK":   341249,
		"INFY":       408065,
		"HCLTECH":    1850625,
		"LT":         2939649,
		"SBIN":       779521,
		"ICICIBANK":  1270529,
		"AXISBANK":   1510401,
		"KOTAKBANK":  492033,
		"ITC":        424961,
		"TATAMOTORS": 884737,
		"TITAN":      897537,
		"JSWSTEEL":   3001089,
		"ULTRACEMCO": 2952193,
		"BAJFINANCE": 81153,
		"HDFCLIFE":   119553,
		"BHARTIARTL": 2714625,
		"ASIANPAINT": 60417,
		"MARUTI":     2815745,
	}
	tokenToSymbol := make(map[uint32]string, len(symbolToToken))
	for s, t := range symbolToToken {
		tokenToSymbol[t] = s
	}
	return &instrumentMapper{symbolToToken: symbolToToken, tokenToSymbol: tokenToSymbol}
}

// tokensFor resolves symbols to instrument tokens. Symbols absent from
// the table are returned separately so the caller can surface them; a
// silent skip would leave a misconfigured symbol subscribed to nothing.
func (m *instrumentMapper) tokensFor(symbols []string) (tokens []uint32, missing []string) {
	tokens = make([]uint32, 0, len(symbols))
	for _, s := range symbols {
		t, ok := m.symbolToToken[s]
		if !ok {
			missing = append(missing, s)
			continue
		}
		tokens = append(tokens, t)
	}
	return tokens, missing
}

func (m *instrumentMapper) symbolFor(token uint32) string {
	return m.tokenToSymbol[token]
}
