package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mwidera/plenum/internal/services"
)

// Exit codes form the scripting contract: crons and wrappers branch on them.
const (
	exitOK               = 0
	exitFatal            = 1
	exitInvalidSelection = 2
	exitPartialFailure   = 3
	exitInterrupted      = 130
)

// errPartialFailure marks a run that finished but left failed items behind.
var errPartialFailure = errors.New("run finished with failures; progress preserved, rerun with 'failed' to retry")

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signalContext()
	defer stop()

	cmd := newRootCommand()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return exitCodeFor(err, os.Stderr)
}

func exitCodeFor(err error, stderr io.Writer) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errPartialFailure):
		fmt.Fprintln(stderr, err)
		return exitPartialFailure
	case errors.Is(err, services.ErrInvalidSelection):
		fmt.Fprintln(stderr, err)
		return exitInvalidSelection
	case errors.Is(err, context.Canceled):
		return exitFatal
	default:
		fmt.Fprintln(stderr, err)
		return exitFatal
	}
}

// signalContext cancels on the first interrupt and force-exits on the
// second. The first signal lets in-flight stages finish; impatient operators
// get an immediate exit.
func signalContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signals
		fmt.Fprintln(os.Stderr, "interrupt received, finishing in-flight stage (interrupt again to force quit)")
		cancel()
		<-signals
		os.Exit(exitInterrupted)
	}()
	return ctx, func() {
		signal.Stop(signals)
		cancel()
	}
}
