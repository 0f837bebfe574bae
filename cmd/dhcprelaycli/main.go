package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/veesix-networks/dhcprelay/pkg/api"
	"github.com/veesix-networks/dhcprelay/pkg/version"
)

var (
	serverAddr  = flag.String("server", "localhost:50050", "Relay gateway address")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println("dhcprelaycli", version.Full())
		return
	}

	client, err := api.Dial(*serverAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to %s: %v\n", *serverAddr, err)
		fmt.Fprintf(os.Stderr, "Make sure dhcprelayd is running\n")
		os.Exit(1)
	}
	defer client.Close()

	cli := NewCLI(client, *serverAddr, os.Stdout)

	// Arguments after the flags run a single command and exit.
	if flag.NArg() > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := cli.Execute(ctx, strings.Join(flag.Args(), " ")); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		cli.Stop()
		os.Exit(0)
	}()

	if err := cli.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
