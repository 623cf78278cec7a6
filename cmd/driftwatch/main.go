package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/apex/log"
	"github.com/apex/log/handlers/text"
	"github.com/spf13/pflag"

	"github.com/driftwatch/driftwatch"
)

func main() {
	log.SetHandler(text.New(os.Stderr))

	opts, err := driftwatch.ParseCommandLine()
	if err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Printf("Could not parse configuration: %s\n\nUse driftwatch --help for options\n", err)
		}
		os.Exit(1)
	}

	m, errs := driftwatch.New(opts...)
	if len(errs) > 0 {
		fmt.Println("Error in config:")
		for _, e := range errs {
			fmt.Println(e)
		}
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	if err := m.Run(ctx); err != nil {
		fmt.Println("Monitor error:", err)
		os.Exit(1)
	}
	if err := m.Wait(); err != nil {
		fmt.Printf("Not all reports sent: %s\n", err)
		os.Exit(1)
	}

	os.Exit(0)
}
