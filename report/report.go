// Package report writes result rows and solution files.
//
// A result row is "seed,status,objective,seconds,gap,iterations" with gap in
// percent. Solution files are named "{tag}-n{N}-s{seed}-t.opt".
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/google/uuid"

	"github.com/katalvlaran/kadapt/milp"
)

// Status strings of a result row.
const (
	StatusOptimal = "Optimal"
	StatusInfeas  = "Infeas"
	StatusTimeLim = "Time Lim"
	StatusMemLim  = "Mem Lim"
	StatusHeur    = "Heur"
	StatusUnknown = "Unknown"
)

// ErrFileName is returned for a name that does not follow the solution file scheme.
var ErrFileName = errors.New("report: malformed solution file name")

// StatusString maps a solver status to its row string. Heuristic runs are
// always reported as Heur.
func StatusString(st milp.Status, heuristic bool) string {
	if heuristic {
		return StatusHeur
	}
	switch st {
	case milp.Optimal, milp.OptimalTol:
		return StatusOptimal
	case milp.Infeasible, milp.InfOrUnbd, milp.AbortInfeas:
		return StatusInfeas
	case milp.TimeLimFeas, milp.TimeLimInfeas, milp.AbortFeas:
		return StatusTimeLim
	case milp.MemLimFeas, milp.MemLimInfeas:
		return StatusMemLim
	}

	return StatusUnknown
}

// Row is one result line.
type Row struct {
	Seed       int64
	Status     string
	Objective  float64
	Seconds    float64
	GapPercent float64
	Iterations int
}

func (r Row) record() []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

	return []string{
		strconv.FormatInt(r.Seed, 10),
		r.Status,
		f(r.Objective),
		f(r.Seconds),
		f(r.GapPercent),
		strconv.Itoa(r.Iterations),
	}
}

// Writer appends rows as CSV.
type Writer struct {
	w *csv.Writer
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer { return &Writer{w: csv.NewWriter(w)} }

// Write appends r and flushes.
func (w *Writer) Write(r Row) error {
	if err := w.w.Write(r.record()); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	w.w.Flush()

	return w.w.Error()
}

// ReadRows parses rows written by Writer.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 6
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	out := make([]Row, 0, len(recs))
	for _, rec := range recs {
		var row Row
		var errs [5]error
		row.Seed, errs[0] = strconv.ParseInt(rec[0], 10, 64)
		row.Status = rec[1]
		row.Objective, errs[1] = strconv.ParseFloat(rec[2], 64)
		row.Seconds, errs[2] = strconv.ParseFloat(rec[3], 64)
		row.GapPercent, errs[3] = strconv.ParseFloat(rec[4], 64)
		row.Iterations, errs[4] = strconv.Atoi(rec[5])
		if err := errors.Join(errs[:]...); err != nil {
			return nil, fmt.Errorf("report: row %v: %w", rec, err)
		}
		out = append(out, row)
	}

	return out, nil
}

// SolutionFileName returns "{tag}-n{n}-s{seed}-t.opt".
func SolutionFileName(tag string, n int, seed int64) string {
	return fmt.Sprintf("%s-n%d-s%d-t.opt", tag, n, seed)
}

var fileName = regexp.MustCompile(`^([A-Za-z0-9_]+)-n(\d+)-s(-?\d+)-t\.opt$`)

// ParseSolutionFileName splits a solution file name into its parts.
func ParseSolutionFileName(name string) (tag string, n int, seed int64, err error) {
	m := fileName.FindStringSubmatch(name)
	if m == nil {
		return "", 0, 0, fmt.Errorf("%w: %q", ErrFileName, name)
	}
	n, _ = strconv.Atoi(m[2])
	seed, _ = strconv.ParseInt(m[3], 10, 64)

	return m[1], n, seed, nil
}

// WriteSolution writes a header line with the run id followed by one value
// of x per line.
func WriteSolution(w io.Writer, runID uuid.UUID, x []float64) error {
	if _, err := fmt.Fprintf(w, "# run %s\n", runID); err != nil {
		return err
	}
	for _, v := range x {
		if _, err := fmt.Fprintln(w, strconv.FormatFloat(v, 'g', -1, 64)); err != nil {
			return err
		}
	}

	return nil
}
