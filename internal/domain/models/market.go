package models

// MarketID identifies a market family the prediction service understands.
type MarketID string

const (
	MarketStocks  MarketID = "stocks"
	MarketFutures MarketID = "futures"
	MarketCrypto  MarketID = "crypto"
)

// MarketDefinition describes one selectable market. Definitions are static.
type MarketDefinition struct {
	ID                MarketID `json:"id"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	ExampleTickers    []string `json:"exampleTickers"`
	AllowedTimeframes []string `json:"allowedTimeframes"`
}

// Allows reports whether tf is one of the market's timeframes.
func (m MarketDefinition) Allows(tf string) bool {
	for _, t := range m.AllowedTimeframes {
		if t == tf {
			return true
		}
	}
	return false
}

// DefaultTimeframe is the first allowed timeframe.
func (m MarketDefinition) DefaultTimeframe() string {
	return m.AllowedTimeframes[0]
}

var markets = []MarketDefinition{
	{
		ID:                MarketStocks,
		Title:             "Stocks",
		Description:       "US equities, daily bars",
		ExampleTickers:    []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA"},
		AllowedTimeframes: []string{"1d"},
	},
	{
		ID:                MarketFutures,
		Title:             "Futures",
		Description:       "Index, energy and metal futures, daily bars",
		ExampleTickers:    []string{"ES=F", "NQ=F", "CL=F", "GC=F"},
		AllowedTimeframes: []string{"1d"},
	},
	{
		ID:                MarketCrypto,
		Title:             "Crypto",
		Description:       "Crypto pairs, intraday or daily bars",
		ExampleTickers:    []string{"BTC-USD", "ETH-USD", "SOL-USD"},
		AllowedTimeframes: []string{"5min", "15min", "1h", "1d"},
	},
}

// Markets returns copies of all market definitions in display order.
func Markets() []MarketDefinition {
	out := make([]MarketDefinition, len(markets))
	for i, m := range markets {
		out[i] = m.clone()
	}
	return out
}

// LookupMarket returns the definition for id.
func LookupMarket(id MarketID) (MarketDefinition, bool) {
	for _, m := range markets {
		if m.ID == id {
			return m.clone(), true
		}
	}
	return MarketDefinition{}, false
}

func (m MarketDefinition) clone() MarketDefinition {
	m.ExampleTickers = append([]string(nil), m.ExampleTickers...)
	m.AllowedTimeframes = append([]string(nil), m.AllowedTimeframes...)
	return m
}
