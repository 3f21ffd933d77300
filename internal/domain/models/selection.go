package models

// Tab is the active dashboard view.
type Tab string

const (
	TabPredict Tab = "predict"
	TabTrack   Tab = "track"
)

// Valid reports whether t is a known tab.
func (t Tab) Valid() bool { return t == TabPredict || t == TabTrack }

// Selection is the user's current choice of instrument and view.
type Selection struct {
	MarketType *MarketID `json:"marketType"`
	Ticker     string    `json:"ticker"`
	Timeframe  string    `json:"timeframe"`
	ActiveTab  Tab       `json:"activeTab"`
}

// Market returns the selected market id, or "" when unset.
func (s Selection) Market() MarketID {
	if s.MarketType == nil {
		return ""
	}
	return *s.MarketType
}

// Ready reports whether a prediction can be requested.
func (s Selection) Ready() bool {
	return s.MarketType != nil && s.Ticker != ""
}

// Key identifies the (ticker, market, timeframe) triple that fetched data belongs to.
func (s Selection) Key() SelectionKey {
	return SelectionKey{Ticker: s.Ticker, Market: s.Market(), Timeframe: s.Timeframe}
}

// SelectionKey is the part of a Selection that scopes fetched data.
type SelectionKey struct {
	Ticker    string
	Market    MarketID
	Timeframe string
}
