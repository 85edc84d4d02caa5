package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/katalvlaran/kadapt/instances"
	"github.com/katalvlaran/kadapt/kadapt"
	"github.com/katalvlaran/kadapt/report"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	args = append(args, "--log-level", "error")
	code := execute(context.Background(), args, &stdout, &stderr)

	return code, stdout.String(), stderr.String()
}

func TestSolveTest1(t *testing.T) {
	dir := t.TempDir()
	code, out, errOut := run(t, "solve", "--problem", "test1", "--k", "2", "--output-dir", dir)
	require.Equal(t, 0, code, errOut)

	rows, err := report.ReadRows(bytes.NewBufferString(out))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, report.StatusOptimal, rows[0].Status)
	require.InDelta(t, 1.25, rows[0].Objective, 1e-6)
	require.InDelta(t, 1.0, rows[1].Objective, 1e-3)

	data, err := os.ReadFile(filepath.Join(dir, "test1-n1-s0-t.opt"))
	require.NoError(t, err)
	require.Contains(t, string(data), "# run ")
}

func TestLShapedSeeds(t *testing.T) {
	dir := t.TempDir()
	csv := filepath.Join(dir, "rows.csv")
	code, out, errOut := run(t, "lshaped", "--problem", "test1", "--seeds", "2,1", "--k", "1",
		"--jobs", "2", "--csv", csv, "--output-dir", dir)
	require.Equal(t, 0, code, errOut)
	require.Empty(t, out)

	f, err := os.Open(csv)
	require.NoError(t, err)
	defer f.Close()
	rows, err := report.ReadRows(f)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, int64(2), rows[0].Seed, "rows follow the order of --seeds")
	require.Equal(t, int64(1), rows[1].Seed)
	for _, r := range rows {
		require.Equal(t, report.StatusOptimal, r.Status)
		require.InDelta(t, 1.25, r.Objective, 1e-6)
		require.Equal(t, 1, r.Iterations)
	}
}

func TestLShapedBranchAndCut(t *testing.T) {
	code, out, errOut := run(t, "lshaped", "--problem", "test1", "--mode", "branch-and-cut", "--k", "1",
		"--output-dir", t.TempDir())
	require.Equal(t, 0, code, errOut)
	rows, err := report.ReadRows(bytes.NewBufferString(out))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.InDelta(t, 1.25, rows[0].Objective, 1e-6)
}

func TestGenerate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpb.yaml")
	code, _, errOut := run(t, "generate", "--problem", "knapsack", "--n", "5", "--seed", "3", "--out", path)
	require.Equal(t, 0, code, errOut)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	got, err := instances.LoadKnapsack(f)
	require.NoError(t, err)
	want, err := instances.GenerateKnapsack(5, 3)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)))

	code, out, _ := run(t, "generate", "--problem", "bestbox", "--n", "5")
	require.Equal(t, 0, code)
	require.Contains(t, out, "sol_file: bb-n5-s1-t.opt")

	code, out, _ = run(t, "generate", "--problem", "elicitation", "--n", "6", "--seed", "2")
	require.Equal(t, 0, code)
	got2, err := instances.LoadElicitation(bytes.NewBufferString(out))
	require.NoError(t, err)
	require.Equal(t, 6, got2.N)
	require.Equal(t, "pe-n6-s2-t.opt", got2.SolFile)
}

func TestUsageErrors(t *testing.T) {
	for _, args := range [][]string{
		{"generate", "--problem", "test1"},
		{"lshaped", "--mode", "nope"},
		{"solve", "--k", "0"},
		{"solve", "--problem", "nope"},
		{"solve", "--separation", "nope", "--problem", "test1"},
		{"solve", "--problem", "test1", "--mode", "nope"},
		{"solve", "--problem", "test1", "--mode", "minmaxmin"},
	} {
		code, _, errOut := run(t, args...)
		require.Equal(t, 1, code, args)
		require.Contains(t, errOut, "Error:", args)
	}
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	err := &kadapt.CodeError{Code: 10005, Op: "solve", Err: errors.New("boom")}
	printError(&buf, err)
	require.Equal(t, "Program ABORTED: Error number 10005\n", buf.String())
}
