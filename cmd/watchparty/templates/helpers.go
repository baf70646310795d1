package templates

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

type BenchRow struct {
	Name                    string
	Avg, Min, P75, P99, Max time.Duration
}

type Metric struct {
	Name  string
	Help  string
	Value float64
}

type ReportData struct {
	Title     string
	Generated time.Time
	Loop      bool
	Bench     []BenchRow
	Metrics   []Metric
}

func tableRule(count int) string {
	var sb strings.Builder
	for i := 0; i < count; i++ {
		sb.WriteString("|---")
	}
	sb.WriteString("|")
	return sb.String()
}

func fmtDuration(d time.Duration) string {
	switch {
	case d >= time.Millisecond:
		return d.Round(time.Microsecond).String()
	case d >= time.Microsecond:
		return d.Round(10 * time.Nanosecond).String()
	default:
		return d.String()
	}
}

func humanizeValue(v float64) string {
	return humanize.Commaf(v)
}
