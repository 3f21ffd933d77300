package projection

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"StockTime/internal/domain/models"
	drepo "StockTime/internal/domain/repository"
	"StockTime/pkg/util"
)

const pending = "Pending"

// Sign classifies an error percentage for coloring.
type Sign string

const (
	SignPositive Sign = "positive"
	SignNegative Sign = "negative"
	SignNeutral  Sign = "neutral"
)

// PredictionRow is one predicted price with its target time.
type PredictionRow struct {
	Step      int    `json:"step"`
	Time      string `json:"time"`
	Timestamp string `json:"timestamp"`
	Price     string `json:"price"`
}

// TrackingRow is one tracked prediction, formatted for display.
type TrackingRow struct {
	ID             string `json:"id"`
	PredictionTime string `json:"predictionTime"`
	TargetTime     string `json:"targetTime"`
	Predicted      string `json:"predicted"`
	Actual         string `json:"actual"`
	Error          string `json:"error"`
	Sign           Sign   `json:"sign"`
}

// StatisticsRow holds the formatted accuracy summary.
type StatisticsRow struct {
	AverageError string `json:"averageError"`
	Within1      string `json:"accuracyWithin1Percent"`
	Within5      string `json:"accuracyWithin5Percent"`
}

// PredictionRows pairs each predicted price with the time it targets.
// Returns nil when there is no historical bar to count from.
func PredictionRows(res *models.PredictionResult, tf string) []PredictionRow {
	if res == nil || len(res.HistoricalData) == 0 {
		return nil
	}
	last := res.HistoricalData[0].Time.Time
	for _, pt := range res.HistoricalData[1:] {
		if pt.Time.After(last) {
			last = pt.Time.Time
		}
	}

	step := time.Duration(drepo.StepMinutes(tf)) * time.Minute
	intraday := drepo.IsIntraday(tf)
	rows := make([]PredictionRow, len(res.Predictions))
	for i, price := range res.Predictions {
		ts := last.Add(time.Duration(i+1) * step)
		stamp := util.FormatDate(ts)
		if intraday {
			stamp = util.FormatDateTime(ts)
		}
		rows[i] = PredictionRow{
			Step:      i + 1,
			Time:      util.FormatTime(ts, tf),
			Timestamp: stamp,
			Price:     util.FormatCurrency(price),
		}
	}
	return rows
}

// TrackingRows formats tracked predictions. Unresolved ones read "Pending" for actual and error.
func TrackingRows(res *models.TrackingResult, tf string) []TrackingRow {
	if res == nil {
		return nil
	}
	rows := make([]TrackingRow, len(res.Predictions))
	for i, p := range res.Predictions {
		row := TrackingRow{
			ID:             string(p.ID),
			PredictionTime: util.FormatTime(p.PredictionTime.Time, tf),
			TargetTime:     util.FormatTime(p.TargetTime.Time, tf),
			Predicted:      util.FormatCurrency(p.PredictedPrice),
			Actual:         pending,
			Error:          pending,
			Sign:           SignNeutral,
		}
		if p.ActualPrice != nil {
			row.Actual = util.FormatCurrency(*p.ActualPrice)
		}
		if p.ErrorPercentage != nil {
			row.Error = util.FormatSignedPercent(*p.ErrorPercentage)
			row.Sign = signOf(*p.ErrorPercentage)
		}
		rows[i] = row
	}
	return rows
}

// StatisticsSummary formats the aggregate accuracy numbers.
func StatisticsSummary(s models.TrackingStatistics) StatisticsRow {
	return StatisticsRow{
		AverageError: util.FormatPercent(s.AverageError, 2),
		Within1:      util.FormatPercent(s.AccuracyWithin1Percent, 1),
		Within5:      util.FormatPercent(s.AccuracyWithin5Percent, 1),
	}
}

func signOf(v float64) Sign {
	switch {
	case v > 0:
		return SignPositive
	case v < 0:
		return SignNegative
	default:
		return SignNeutral
	}
}

// Terminal styles.
var (
	gainStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	colHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	priceStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	statStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
)

func styleFor(s Sign) lipgloss.Style {
	switch s {
	case SignPositive:
		return gainStyle
	case SignNegative:
		return lossStyle
	default:
		return dimStyle
	}
}

// RenderPredictionTable renders rows as a fixed-width terminal table.
func RenderPredictionTable(rows []PredictionRow) string {
	if len(rows) == 0 {
		return dimStyle.Render("  (no predictions)")
	}
	var b strings.Builder
	b.WriteString(colHeaderStyle.Render(fmt.Sprintf("  %-4s %-18s %-18s %14s", "#", "Time", "Timestamp", "Price")))
	b.WriteByte('\n')
	for _, r := range rows {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %-4d ", r.Step)))
		b.WriteString(fmt.Sprintf("%-18s %-18s ", r.Time, r.Timestamp))
		b.WriteString(priceStyle.Render(fmt.Sprintf("%14s", r.Price)))
		b.WriteByte('\n')
	}
	return b.String()
}

// RenderTrackingTable renders the statistics line followed by one line per tracked prediction.
func RenderTrackingTable(stats StatisticsRow, rows []TrackingRow) string {
	var b strings.Builder
	b.WriteString("  Avg error ")
	b.WriteString(statStyle.Render(stats.AverageError))
	b.WriteString("   Accuracy ≤1% ")
	b.WriteString(statStyle.Render(stats.Within1))
	b.WriteString("   Accuracy ≤5% ")
	b.WriteString(statStyle.Render(stats.Within5))
	b.WriteString("\n\n")

	if len(rows) == 0 {
		b.WriteString(dimStyle.Render("  (no tracked predictions)"))
		return b.String()
	}
	b.WriteString(colHeaderStyle.Render(fmt.Sprintf("  %-16s %-16s %14s %14s %9s", "Time", "Target", "Predicted", "Actual", "Error")))
	b.WriteByte('\n')
	for _, r := range rows {
		b.WriteString(fmt.Sprintf("  %-16s %-16s %14s ", r.PredictionTime, r.TargetTime, r.Predicted))
		actual := fmt.Sprintf("%14s", r.Actual)
		if r.Actual == pending {
			b.WriteString(dimStyle.Render(actual))
		} else {
			b.WriteString(actual)
		}
		b.WriteByte(' ')
		b.WriteString(styleFor(r.Sign).Render(fmt.Sprintf("%9s", r.Error)))
		b.WriteByte('\n')
	}
	return b.String()
}
