package usecase

import (
	"sync"

	"StockTime/internal/domain/models"
	"StockTime/pkg/util"
)

// SelectionState holds the user's market/ticker/timeframe/tab choice.
// Each Select* call reports whether the selection actually changed.
type SelectionState struct {
	mu  sync.RWMutex
	sel models.Selection
}

func NewSelectionState() *SelectionState {
	return &SelectionState{sel: models.Selection{ActiveTab: models.TabPredict}}
}

// Snapshot returns a copy of the current selection.
func (s *SelectionState) Snapshot() models.Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.sel
	if s.sel.MarketType != nil {
		m := *s.sel.MarketType
		out.MarketType = &m
	}
	return out
}

// SelectMarket switches market, clears the ticker and resets the timeframe to the
// market's first allowed one. Unknown ids are ignored.
func (s *SelectionState) SelectMarket(id models.MarketID) bool {
	def, ok := models.LookupMarket(id)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m := def.ID
	s.sel.MarketType = &m
	s.sel.Ticker = ""
	s.sel.Timeframe = def.DefaultTimeframe()
	return true
}

// SelectTicker stores the upper-cased ticker.
func (s *SelectionState) SelectTicker(raw string) bool {
	t := util.NormalizeTicker(raw)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sel.Ticker == t {
		return false
	}
	s.sel.Ticker = t
	return true
}

// SelectTimeframe is a no-op unless a market is set and allows tf.
func (s *SelectionState) SelectTimeframe(tf string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sel.MarketType == nil {
		return false
	}
	def, ok := models.LookupMarket(*s.sel.MarketType)
	if !ok || !def.Allows(tf) || s.sel.Timeframe == tf {
		return false
	}
	s.sel.Timeframe = tf
	return true
}

func (s *SelectionState) SelectTab(tab models.Tab) bool {
	if !tab.Valid() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sel.ActiveTab == tab {
		return false
	}
	s.sel.ActiveTab = tab
	return true
}
