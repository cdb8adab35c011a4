// Package report renders the last evaluated generation of a save as a text
// table or an HTML page
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/ajitpratap0/betevolve/pkg/genetic"
)

// Report is an evaluated generation with its nodes ranked by fitness
type Report struct {
	Save        string
	Generation  int
	GeneratedAt time.Time
	Summary     genetic.Summary
	Ranked      []*genetic.Node
}

// New ranks the nodes of gen, best fitness first. Ties keep the stored order.
func New(save string, gen *genetic.Generation) (*Report, error) {
	if gen == nil || len(gen.Nodes) == 0 {
		return nil, fmt.Errorf("save %s has no evaluated generation yet", save)
	}

	ranked := genetic.CloneAll(gen.Nodes)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Fitness > ranked[j].Fitness
	})

	summary := genetic.ComputeSummary(save, gen.Nodes)
	summary.Generation = gen.Number

	return &Report{
		Save:        save,
		Generation:  gen.Number,
		GeneratedAt: time.Now().UTC(),
		Summary:     summary,
		Ranked:      ranked,
	}, nil
}

// Top returns the n best nodes, all of them when n <= 0
func (r *Report) Top(n int) []*genetic.Node {
	if n <= 0 || n > len(r.Ranked) {
		return r.Ranked
	}
	return r.Ranked[:n]
}

// WriteText writes the summary and a table of the top nodes
func (r *Report) WriteText(w io.Writer, top int) error {
	s := r.Summary
	fmt.Fprintf(w, "Save %s, generation %d (%d nodes)\n", r.Save, r.Generation, s.Size)
	fmt.Fprintf(w, "Fitness best %.2f, mean %.2f, stddev %.2f, worst %.2f\n",
		s.BestFitness, s.MeanFitness, s.StdDevFitness, s.WorstFitness)
	fmt.Fprintf(w, "Bets won %d, lost %d, not played %d, skipped %d\n\n",
		s.BetsWon, s.BetsLost, s.BetsNotPlayed, s.BetsSkipped)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "RANK\tFITNESS\tPLAY LIMIT\tDRAW LIMIT\tSTAKE\tSAMPLE\tWON\tLOST\tNOT PLAYED\tSKIPPED\tBORN\t")
	for i, n := range r.Top(top) {
		fmt.Fprintf(tw, "%d\t%.2f\t%.4f\t%.4f\t%.2f\t%d\t%d\t%d\t%d\t%d\t%d\t\n",
			i+1, n.Fitness, n.PlayLimit, n.DrawLimit, n.MinimumStake, n.SimulationSampleSize,
			n.BetsWon, n.BetsLost, n.BetsNotPlayed, n.BetsSkipped, n.Generation)
	}
	return tw.Flush()
}

// GenerateHTML renders the report as a standalone HTML page
func (r *Report) GenerateHTML(top int) (string, error) {
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"formatFloat": formatFloat,
		"formatTime":  formatTime,
		"add":         func(a, b int) int { return a + b },
	}).Parse(reportTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	data := map[string]interface{}{
		"Title":   fmt.Sprintf("%s generation %d", r.Save, r.Generation),
		"Report":  r,
		"Summary": r.Summary,
		"Nodes":   r.Top(top),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// SaveToFile writes the HTML report to path
func (r *Report) SaveToFile(path string, top int) error {
	html, err := r.GenerateHTML(top)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(html), 0o600)
}

func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

func formatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

const reportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>{{ .Title }}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; margin: 2rem; color: #222; }
        table { border-collapse: collapse; }
        th, td { padding: 0.3rem 0.8rem; text-align: right; border-bottom: 1px solid #ddd; }
        .positive { color: #1a7f37; }
        .negative { color: #cf222e; }
        .cards { display: flex; gap: 1rem; margin-bottom: 1.5rem; }
        .card { border: 1px solid #ddd; border-radius: 6px; padding: 0.8rem 1.2rem; }
    </style>
</head>
<body>
    <h1>{{ .Title }}</h1>
    <p>Generated {{ formatTime .Report.GeneratedAt }}</p>
    <div class="cards">
        <div class="card">Best fitness<br><strong>{{ formatFloat .Summary.BestFitness }}</strong></div>
        <div class="card">Mean fitness<br><strong>{{ formatFloat .Summary.MeanFitness }}</strong></div>
        <div class="card">Std dev<br><strong>{{ formatFloat .Summary.StdDevFitness }}</strong></div>
        <div class="card">Won / lost<br><strong>{{ .Summary.BetsWon }} / {{ .Summary.BetsLost }}</strong></div>
        <div class="card">Not played / skipped<br><strong>{{ .Summary.BetsNotPlayed }} / {{ .Summary.BetsSkipped }}</strong></div>
    </div>
    <table>
        <tr><th>Rank</th><th>Fitness</th><th>Play limit</th><th>Draw limit</th><th>Stake</th><th>Sample</th><th>Won</th><th>Lost</th><th>Not played</th><th>Skipped</th><th>Born</th></tr>
        {{ range $i, $n := .Nodes }}
        <tr>
            <td>{{ add $i 1 }}</td>
            <td class="{{ if ge $n.Fitness 0.0 }}positive{{ else }}negative{{ end }}">{{ formatFloat $n.Fitness }}</td>
            <td>{{ printf "%.4f" $n.PlayLimit }}</td>
            <td>{{ printf "%.4f" $n.DrawLimit }}</td>
            <td>{{ formatFloat $n.MinimumStake }}</td>
            <td>{{ $n.SimulationSampleSize }}</td>
            <td>{{ $n.BetsWon }}</td>
            <td>{{ $n.BetsLost }}</td>
            <td>{{ $n.BetsNotPlayed }}</td>
            <td>{{ $n.BetsSkipped }}</td>
            <td>{{ $n.Generation }}</td>
        </tr>
        {{ end }}
    </table>
</body>
</html>
`
