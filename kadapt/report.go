package kadapt

import "github.com/katalvlaran/kadapt/report"

// Row returns the result line of r for seed. Iterations counts the
// processed nodes.
func (r KResult) Row(seed int64) report.Row {
	return report.Row{
		Seed:       seed,
		Status:     report.StatusString(r.Status, r.Heuristic),
		Objective:  r.Objective,
		Seconds:    r.Elapsed.Seconds(),
		GapPercent: r.Gap,
		Iterations: r.Nodes,
	}
}
