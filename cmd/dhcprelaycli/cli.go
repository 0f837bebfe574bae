package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/veesix-networks/dhcprelay/pkg/api"
	"github.com/veesix-networks/dhcprelay/pkg/models"
	"github.com/veesix-networks/dhcprelay/pkg/record"
)

// RelayClient is the daemon API the CLI drives.
type RelayClient interface {
	List(ctx context.Context) ([]*record.DhcpRecord, error)
	Get(ctx context.Context, id models.HostID) (*record.DhcpRecord, error)
	Counters(ctx context.Context) (map[string]uint64, error)
	ResetCounters(ctx context.Context) error
	Servers(ctx context.Context) ([]api.ServerEntry, error)
}

type CLI struct {
	client     RelayClient
	serverAddr string
	out        io.Writer
	rl         *readline.Instance
	running    bool
	commands   []*command
}

func NewCLI(client RelayClient, serverAddr string, out io.Writer) *CLI {
	c := &CLI{
		client:     client,
		serverAddr: serverAddr,
		out:        out,
		running:    true,
	}
	c.commands = c.buildCommands()
	return c
}

func (c *CLI) Run() error {
	var err error
	c.rl, err = readline.NewEx(&readline.Config{
		Prompt:          "relay> ",
		HistoryFile:     os.ExpandEnv("$HOME/.dhcprelaycli_history"),
		AutoComplete:    c.buildCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer c.rl.Close()

	c.printBanner()

	for c.running {
		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					break
				}
				continue
			} else if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := c.Execute(ctx, line); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		cancel()
	}
	return nil
}

func (c *CLI) Stop() {
	c.running = false
}

func (c *CLI) printBanner() {
	fmt.Fprintln(c.out, "=====================================")
	fmt.Fprintln(c.out, "    dhcprelay Interactive CLI")
	fmt.Fprintln(c.out, "=====================================")
	fmt.Fprintf(c.out, "Connected to: %s\n", c.serverAddr)
	fmt.Fprintln(c.out, "Type 'help' for available commands")
	fmt.Fprintln(c.out, "Type 'exit' or 'quit' to exit")
	fmt.Fprintln(c.out)
}

func (c *CLI) buildCompleter() readline.AutoCompleter {
	byRoot := map[string][]readline.PrefixCompleterInterface{}
	var roots []string
	for _, cmd := range c.commands {
		if len(cmd.path) == 1 {
			byRoot[cmd.path[0]] = nil
			roots = append(roots, cmd.path[0])
			continue
		}
		if _, ok := byRoot[cmd.path[0]]; !ok {
			roots = append(roots, cmd.path[0])
		}
		byRoot[cmd.path[0]] = append(byRoot[cmd.path[0]], readline.PcItem(cmd.path[1]))
	}

	items := make([]readline.PrefixCompleterInterface, 0, len(roots))
	for _, root := range roots {
		items = append(items, readline.PcItem(root, byRoot[root]...))
	}
	return readline.NewPrefixCompleter(items...)
}
