//
// Copyright (c) 2020-2026 Markku Rossi
//
// All rights reserved.
//

package beaver

import (
	"fmt"
	"io"
	"time"

	"github.com/markkurossi/beaver/p2p"
	"github.com/markkurossi/tabulate"
	"github.com/montanaflynn/stats"
)

// Timing records timing samples and renders a profiling report.
type Timing struct {
	Start   time.Time
	Samples []*Sample
	Triples []time.Duration
}

// NewTiming creates a new Timing instance.
func NewTiming() *Timing {
	return &Timing{
		Start: time.Now(),
	}
}

// Sample adds a timing sample with label and data columns.
func (t *Timing) Sample(label string, cols []string) *Sample {
	start := t.Start
	if len(t.Samples) > 0 {
		start = t.Samples[len(t.Samples)-1].End
	}
	sample := &Sample{
		Label: label,
		Start: start,
		End:   time.Now(),
		Cols:  cols,
	}
	t.Samples = append(t.Samples, sample)
	return sample
}

// Triple records the duration of one triple round.
func (t *Timing) Triple(d time.Duration) {
	t.Triples = append(t.Triples, d)
}

// TripleStats summarizes the recorded triple rounds.
type TripleStats struct {
	Count  int
	Mean   time.Duration
	Median time.Duration
	P95    time.Duration
	Max    time.Duration
}

// TripleStats computes the summary statistics of the triple rounds.
func (t *Timing) TripleStats() (TripleStats, error) {
	result := TripleStats{
		Count: len(t.Triples),
	}
	if len(t.Triples) == 0 {
		return result, nil
	}
	data := make(stats.Float64Data, len(t.Triples))
	for i, d := range t.Triples {
		data[i] = float64(d)
	}

	mean, err := data.Mean()
	if err != nil {
		return result, err
	}
	median, err := data.Median()
	if err != nil {
		return result, err
	}
	p95, err := data.Percentile(95)
	if err != nil {
		return result, err
	}
	max, err := data.Max()
	if err != nil {
		return result, err
	}
	result.Mean = time.Duration(mean)
	result.Median = time.Duration(median)
	result.P95 = time.Duration(p95)
	result.Max = time.Duration(max)

	return result, nil
}

// Print prints profiling report to out.
func (t *Timing) Print(out io.Writer, ios p2p.IOStats) {
	if len(t.Samples) == 0 {
		return
	}

	sent := ios.Sent.Load()
	received := ios.Recvd.Load()
	flushed := ios.Flushed.Load()

	tab := tabulate.New(tabulate.UnicodeLight)
	tab.Header("Op").SetAlign(tabulate.ML)
	tab.Header("Time").SetAlign(tabulate.MR)
	tab.Header("%").SetAlign(tabulate.MR)
	tab.Header("Xfer").SetAlign(tabulate.MR)

	total := t.Samples[len(t.Samples)-1].End.Sub(t.Start)
	for _, sample := range t.Samples {
		row := tab.Row()
		row.Column(sample.Label)

		duration := sample.End.Sub(sample.Start)
		row.Column(duration.String())
		row.Column(percent(duration, total))

		for _, col := range sample.Cols {
			row.Column(col)
		}
	}

	ts, err := t.TripleStats()
	if err == nil && ts.Count > 0 {
		subs := []struct {
			label string
			d     time.Duration
		}{
			{"Mean", ts.Mean},
			{"Median", ts.Median},
			{"P95", ts.P95},
			{"Max", ts.Max},
		}
		row := tab.Row()
		row.Column(fmt.Sprintf("Triple ×%d", ts.Count))
		for idx, sub := range subs {
			row := tab.Row()

			var prefix string
			if idx+1 >= len(subs) {
				prefix = "╰╴"
			} else {
				prefix = "├╴"
			}
			row.Column(prefix + sub.label).SetFormat(tabulate.FmtItalic)
			row.Column(sub.d.String()).SetFormat(tabulate.FmtItalic)
		}
	}

	row := tab.Row()
	row.Column("Total").SetFormat(tabulate.FmtBold)
	row.Column(total.String()).SetFormat(tabulate.FmtBold)
	row.Column("").SetFormat(tabulate.FmtBold)
	row.Column(p2p.FileSize(sent + received).String()).
		SetFormat(tabulate.FmtBold)

	row = tab.Row()
	row.Column("├╴Sent").SetFormat(tabulate.FmtItalic)
	row.Column("")
	row.Column(ratio(sent, sent+received)).SetFormat(tabulate.FmtItalic)
	row.Column(p2p.FileSize(sent).String()).SetFormat(tabulate.FmtItalic)

	row = tab.Row()
	row.Column("├╴Rcvd").SetFormat(tabulate.FmtItalic)
	row.Column("")
	row.Column(ratio(received, sent+received)).SetFormat(tabulate.FmtItalic)
	row.Column(p2p.FileSize(received).String()).SetFormat(tabulate.FmtItalic)

	row = tab.Row()
	row.Column("╰╴Flcd").SetFormat(tabulate.FmtItalic)
	row.Column("")
	row.Column("")
	row.Column(fmt.Sprintf("%v", flushed)).SetFormat(tabulate.FmtItalic)

	tab.Print(out)
}

func percent(d, total time.Duration) string {
	if total <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", float64(d)/float64(total)*100)
}

func ratio(n, total uint64) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", float64(n)/float64(total)*100)
}

// Sample contains information about one timing sample.
type Sample struct {
	Label string
	Start time.Time
	End   time.Time
	Cols  []string
}
