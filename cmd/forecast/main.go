// Package main provides the forecast command line tool.
//
// Usage:
//
//	forecast features [flags]   build and store the feature table
//	forecast train [flags]      train a model generation from stored features
//	forecast predict [flags]    forecast upcoming matchups
//	forecast run [flags]        all of the above in one process
//	forecast verify [flags]     retrain and check the current generation reproduces
//
// Configuration is read from FORECAST_CONFIG (YAML) and FORECAST_* env
// vars; flags override both.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "features":
		err = runFeatures(ctx, args)
	case "train":
		err = runTrain(ctx, args)
	case "predict":
		err = runPredict(ctx, args)
	case "run":
		err = runAll(ctx, args)
	case "verify":
		err = runVerify(ctx, args)
	case "-h", "-help", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}

	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: forecast <features|train|predict|run|verify> [flags]")
	fmt.Fprintln(os.Stderr, "run 'forecast <command> -h' for command flags")
}
