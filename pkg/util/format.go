package util

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FormatCurrency renders v as dollars with two decimals and thousands separators, e.g. "$1,234.50".
func FormatCurrency(v float64) string {
	s := decimal.NewFromFloat(v).StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	out := groupThousands(intPart) + "." + frac
	if neg && strings.Trim(out, "0.,") != "" {
		return "-$" + out
	}
	return "$" + out
}

// FormatPercent renders v with the given number of decimals and a trailing "%".
func FormatPercent(v float64, decimals int32) string {
	return decimal.NewFromFloat(v).StringFixed(decimals) + "%"
}

// FormatSignedPercent renders v with two decimals and an explicit "+" for positive values.
func FormatSignedPercent(v float64) string {
	s := FormatPercent(v, 2)
	if v > 0 {
		return "+" + s
	}
	return s
}

// FormatTime renders t at the granularity of the timeframe.
func FormatTime(t time.Time, tf string) string {
	t = t.UTC()
	switch tf {
	case "5min", "15min":
		return t.Format("Jan 2, 3:04 PM")
	case "1h":
		return t.Format("Jan 2, 3 PM")
	default:
		return t.Format("Jan 2")
	}
}

// FormatDate renders the calendar day of t.
func FormatDate(t time.Time) string { return DateKey(t) }

// FormatDateTime renders t to the minute.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}

var futuresSymbols = map[string]string{
	"ES":  "CME_MINI:ES1!",
	"NQ":  "NQ1!",
	"YM":  "YM1!",
	"RTY": "RTY1!",
	"MES": "MES1!",
	"MNQ": "MNQ1!",
	"MYM": "MYM1!",
	"M2K": "M2K1!",
	"CL":  "CL1!",
	"MCL": "MCL1!",
	"GC":  "GC1!",
	"MGC": "MGC1!",
	"SI":  "SI1!",
	"ZB":  "ZB1!",
	"ZN":  "ZN1!",
	"6E":  "6E1!",
	"M6E": "M6E1!",
}

// ChartSymbol converts a data-provider ticker (e.g. "ES=F") into the symbol a chart widget expects.
func ChartSymbol(ticker, market string) string {
	clean, _, _ := strings.Cut(NormalizeTicker(ticker), "=")
	switch market {
	case "futures":
		if s, ok := futuresSymbols[clean]; ok {
			return s
		}
		return clean
	case "forex":
		return "FX:" + clean
	default:
		return clean
	}
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
