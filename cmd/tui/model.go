package main

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"StockTime/internal/domain/models"
	"StockTime/internal/services/projection"
	"StockTime/internal/usecase"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8"))
	tabOnStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6"))
	tabOffStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	lineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	predStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
)

const sparkTicks = "▁▂▃▄▅▆▇█"

// refreshMsg tells the model the session changed and the view must be rebuilt.
type refreshMsg struct{}

type model struct {
	session  *usecase.Session
	input    textinput.Model
	viewport viewport.Model
	ready    bool
	width    int
	height   int
}

func newModel(s *usecase.Session) model {
	in := textinput.New()
	in.Placeholder = "ticker"
	in.CharLimit = 32
	in.Prompt = "ticker> "
	return model{session: s, input: in}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.input.Focused() {
			switch msg.Type {
			case tea.KeyEnter:
				m.session.SelectTicker(m.input.Value())
				m.input.Blur()
				m.refresh()
				return m, nil
			case tea.KeyEsc:
				m.input.Blur()
				return m, nil
			}
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "m":
			m.session.SelectMarket(nextMarket(m.session.View().Selection.Market()))
		case "f":
			sel := m.session.View().Selection
			if def, ok := models.LookupMarket(sel.Market()); ok {
				m.session.SelectTimeframe(nextOf(def.AllowedTimeframes, sel.Timeframe))
			}
		case "/":
			m.input.SetValue(m.session.View().Selection.Ticker)
			return m, m.input.Focus()
		case "tab":
			if m.session.View().Selection.ActiveTab == models.TabPredict {
				m.session.SelectTab(models.TabTrack)
			} else {
				m.session.SelectTab(models.TabPredict)
			}
		case "p", "enter":
			m.session.Predict(context.Background())
		case "r":
			m.session.RefreshTracking()
		default:
			if m.ready {
				m.viewport, cmd = m.viewport.Update(msg)
			}
			return m, cmd
		}
		m.refresh()
		return m, nil

	case refreshMsg:
		m.refresh()
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		vpHeight := m.height - 3
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.MouseWheelEnabled = true
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.refresh()
		return m, nil
	}

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m *model) refresh() {
	if m.ready {
		m.viewport.SetContent(m.renderContent())
	}
}

func (m model) View() string {
	if !m.ready {
		return "Loading..."
	}
	v := m.session.View()
	sel := v.Selection

	market := "-"
	if def, ok := models.LookupMarket(sel.Market()); ok {
		market = def.Title
	}
	ticker := sel.Ticker
	if ticker == "" {
		ticker = "-"
	}
	header := headerStyle.Render(padOrTrunc(fmt.Sprintf(" StockTime  %s  %s  %s ", market, ticker, sel.Timeframe), m.width))

	tabs := " " + tabStyle(sel.ActiveTab == models.TabPredict).Render(" Predict ") + " " +
		tabStyle(sel.ActiveTab == models.TabTrack).Render(" Track ")
	if v.Polling {
		tabs += dimStyle.Render("  polling")
	}
	if m.input.Focused() {
		tabs += "   " + m.input.View()
	}

	footer := footerStyle.Render(padOrTrunc(
		" q quit  m market  f timeframe  / ticker  tab view  p predict  r refresh  pgup/dn scroll", m.width))
	return header + "\n" + tabs + "\n" + m.viewport.View() + "\n" + footer
}

func (m model) renderContent() string {
	v := m.session.View()
	if v.Selection.MarketType == nil {
		return dimStyle.Render("  press m to choose a market")
	}
	if v.Selection.Ticker == "" {
		def, _ := models.LookupMarket(v.Selection.Market())
		return dimStyle.Render("  press / to enter a ticker, e.g. " + strings.Join(def.ExampleTickers, ", "))
	}

	if v.Selection.ActiveTab == models.TabTrack {
		switch v.Tracking.Status {
		case models.StatusLoading:
			return dimStyle.Render("  loading tracking data...")
		case models.StatusFailure:
			return errStyle.Render("  " + v.Tracking.Message)
		case models.StatusSuccess:
			rows, stats, _ := m.session.TrackingTable()
			return projection.RenderTrackingTable(stats, rows)
		}
		return dimStyle.Render("  tracking idle")
	}

	switch v.Prediction.Status {
	case models.StatusLoading:
		return dimStyle.Render("  predicting...")
	case models.StatusFailure:
		return errStyle.Render("  " + v.Prediction.Message)
	case models.StatusSuccess:
		var b strings.Builder
		if series, ok := m.session.Chart(); ok {
			b.WriteString(sparkline(series, m.width-4))
			b.WriteString("\n\n")
		}
		b.WriteString(projection.RenderPredictionTable(m.session.PredictionTable()))
		return b.String()
	}
	return dimStyle.Render("  press p to predict")
}

// sparkline draws closes then predictions on one shared scale, newest on the right.
func sparkline(s projection.ChartSeries, width int) string {
	n := len(s.Candles) + len(s.Predictions)
	if n == 0 || width <= 0 {
		return ""
	}
	values := make([]float64, 0, n)
	for _, c := range s.Candles {
		values = append(values, c.Close)
	}
	for _, p := range s.Predictions {
		values = append(values, p.Value)
	}
	split := len(s.Candles)
	if len(values) > width {
		drop := len(values) - width
		values = values[drop:]
		split -= drop
		if split < 0 {
			split = 0
		}
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	ticks := []rune(sparkTicks)
	var hist, pred strings.Builder
	for i, v := range values {
		idx := 0
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(len(ticks)-1))
		}
		if i < split {
			hist.WriteRune(ticks[idx])
		} else {
			pred.WriteRune(ticks[idx])
		}
	}
	return "  " + lineStyle.Render(hist.String()) + predStyle.Render(pred.String())
}

func tabStyle(on bool) lipgloss.Style {
	if on {
		return tabOnStyle
	}
	return tabOffStyle
}

func nextMarket(cur models.MarketID) models.MarketID {
	ms := models.Markets()
	for i, m := range ms {
		if m.ID == cur {
			return ms[(i+1)%len(ms)].ID
		}
	}
	return ms[0].ID
}

func nextOf(list []string, cur string) string {
	for i, v := range list {
		if v == cur {
			return list[(i+1)%len(list)]
		}
	}
	return list[0]
}

func padOrTrunc(s string, width int) string {
	if width <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) > width {
		return string(r[:width])
	}
	return s + strings.Repeat(" ", width-len(r))
}
