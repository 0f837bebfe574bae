package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/veesix-networks/dhcprelay/pkg/models"
)

type handlerFunc func(ctx context.Context, args []string, format OutputFormat) error

type command struct {
	path        []string
	usage       string
	description string
	handler     handlerFunc
}

func (c *CLI) buildCommands() []*command {
	return []*command{
		{path: []string{"show", "records"}, description: "List every relay record", handler: c.showRecords},
		{path: []string{"show", "record"}, usage: "<mac/vlan>", description: "Show one relay record", handler: c.showRecord},
		{path: []string{"show", "counters"}, description: "Show relay counters", handler: c.showCounters},
		{path: []string{"show", "servers"}, description: "Show configured DHCP servers and their next hops", handler: c.showServers},
		{path: []string{"clear", "counters"}, description: "Reset relay counters", handler: c.clearCounters},
		{path: []string{"help"}, description: "List available commands", handler: c.help},
	}
}

// Execute runs one command line. A trailing "json" or "yaml" selects the
// output format.
func (c *CLI) Execute(ctx context.Context, line string) error {
	words := strings.Fields(line)
	if len(words) == 0 {
		return nil
	}

	format := FormatCLI
	if last := OutputFormat(words[len(words)-1]); last == FormatJSON || last == FormatYAML {
		format = last
		words = words[:len(words)-1]
	}

	for _, cmd := range c.commands {
		if len(words) < len(cmd.path) || !matchPath(cmd.path, words) {
			continue
		}
		return cmd.handler(ctx, words[len(cmd.path):], format)
	}
	return fmt.Errorf("unknown command %q, type 'help'", line)
}

func matchPath(path, words []string) bool {
	for i, p := range path {
		if words[i] != p {
			return false
		}
	}
	return true
}

func (c *CLI) showRecords(ctx context.Context, _ []string, format OutputFormat) error {
	recs, err := c.client.List(ctx)
	if err != nil {
		return err
	}
	if format != FormatCLI {
		return c.render(recs, format)
	}
	return writeRecordTable(c.out, recs)
}

func (c *CLI) showRecord(ctx context.Context, args []string, format OutputFormat) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: show record <mac/vlan>")
	}
	id, err := models.ParseHostID(args[0])
	if err != nil {
		return err
	}
	rec, err := c.client.Get(ctx, id)
	if err != nil {
		return err
	}
	if format != FormatCLI {
		return c.render(rec, format)
	}
	return writeRecordDetail(c.out, rec)
}

func (c *CLI) showCounters(ctx context.Context, _ []string, format OutputFormat) error {
	counts, err := c.client.Counters(ctx)
	if err != nil {
		return err
	}
	if format != FormatCLI {
		return c.render(counts, format)
	}
	return writeCounterTable(c.out, counts)
}

func (c *CLI) showServers(ctx context.Context, _ []string, format OutputFormat) error {
	entries, err := c.client.Servers(ctx)
	if err != nil {
		return err
	}
	if format != FormatCLI {
		return c.render(entries, format)
	}
	return writeServerTable(c.out, entries)
}

func (c *CLI) clearCounters(ctx context.Context, _ []string, _ OutputFormat) error {
	if err := c.client.ResetCounters(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Counters cleared")
	return nil
}

func (c *CLI) help(context.Context, []string, OutputFormat) error {
	lines := make([]string, 0, len(c.commands))
	for _, cmd := range c.commands {
		usage := strings.Join(cmd.path, " ")
		if cmd.usage != "" {
			usage += " " + cmd.usage
		}
		lines = append(lines, fmt.Sprintf("  %-28s %s", usage, cmd.description))
	}
	sort.Strings(lines)

	fmt.Fprintln(c.out, "Available commands:")
	for _, l := range lines {
		fmt.Fprintln(c.out, l)
	}
	fmt.Fprintln(c.out, "Append 'json' or 'yaml' to a show command for structured output.")
	return nil
}
