// Command kadapt solves generated K-adaptability instances and writes one
// CSV row per solve.
//
//	kadapt solve --problem knapsack --n 10 --seed 1 --k 3
//	kadapt lshaped --problem bestbox --n 8 --seeds 1,2,3 --k 2 --mode branch-and-cut
//	kadapt generate --problem knapsack --n 10 --seed 1 --out cpb.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/katalvlaran/kadapt/kadapt"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{out: stdout}
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	if err != nil {
		printError(stderr, err)
		return 1
	}

	return 0
}

func printError(w io.Writer, err error) {
	var ce *kadapt.CodeError
	if errors.As(err, &ce) {
		fmt.Fprintf(w, "Program ABORTED: Error number %d\n", ce.Code)
		return
	}
	fmt.Fprintln(w, "Error:", err)
}
