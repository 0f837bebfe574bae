package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/veesix-networks/dhcprelay/pkg/api"
	"github.com/veesix-networks/dhcprelay/pkg/record"
	"gopkg.in/yaml.v3"
)

type OutputFormat string

const (
	FormatCLI  OutputFormat = "cli"
	FormatJSON OutputFormat = "json"
	FormatYAML OutputFormat = "yaml"
)

func (c *CLI) render(data any, format OutputFormat) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		// Round trip through JSON so the yaml output follows the json tags.
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		out, err := yaml.Marshal(generic)
		if err != nil {
			return err
		}
		_, err = c.out.Write(out)
		return err
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func orDash(s string) string {
	if s == "" || s == "<nil>" {
		return "-"
	}
	return s
}

func writeRecordTable(out io.Writer, recs []*record.DhcpRecord) error {
	if len(recs) == 0 {
		fmt.Fprintln(out, "No records")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "HOST\tIPV4\tV4 STATE\tIPV6\tPD\tV6 STATE\tDIRECT\tLOCATION")
	for _, r := range recs {
		loc := "-"
		if l, ok := r.LatestLocation(); ok {
			loc = l.ConnectPoint.String()
		}
		pd := "-"
		if r.HasPDPrefix() {
			pd = r.PDPrefix.String()
		}
		v4 := "-"
		if r.IP4Status != 0 {
			v4 = r.IP4Status.String()
		}
		v6 := "-"
		if r.IP6Status != 0 {
			v6 = r.IP6Status.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%t\t%s\n",
			r.HostID, orDash(r.IP4Address.String()), v4,
			orDash(r.IP6Address.String()), pd, v6, r.DirectlyConnected, loc)
	}
	return w.Flush()
}

func writeRecordDetail(out io.Writer, r *record.DhcpRecord) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Host:\t%s\n", r.HostID)
	fmt.Fprintf(w, "Directly connected:\t%t\n", r.DirectlyConnected)
	if r.NextHop != nil {
		fmt.Fprintf(w, "Next hop:\t%s\n", r.NextHop)
	}
	if r.IP4Status != 0 {
		fmt.Fprintf(w, "IPv4:\t%s (%s)\n", orDash(r.IP4Address.String()), r.IP4Status)
	}
	if r.IP6Status != 0 {
		fmt.Fprintf(w, "IPv6:\t%s (%s)\n", orDash(r.IP6Address.String()), r.IP6Status)
		if r.HasIP6Address() {
			fmt.Fprintf(w, "  Preferred lifetime:\t%s\n", r.AddrPreferredLifetime)
		}
		if r.HasPDPrefix() {
			fmt.Fprintf(w, "Delegated prefix:\t%s\n", r.PDPrefix)
			fmt.Fprintf(w, "  Preferred lifetime:\t%s\n", r.PDPreferredLifetime)
		}
	}
	fmt.Fprintf(w, "Last seen:\t%s\n", r.LastSeen.Format(time.RFC3339))
	for _, l := range r.Locations {
		fmt.Fprintf(w, "Location:\t%s at %s\n", l.ConnectPoint, l.Time.Format(time.RFC3339))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if len(r.Counters) > 0 {
		fmt.Fprintln(out, "Counters:")
		return writeCounterTable(out, r.Counters)
	}
	return nil
}

func writeCounterTable(out io.Writer, counts map[string]uint64) error {
	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COUNTER\tVALUE")
	for _, n := range names {
		fmt.Fprintf(w, "%s\t%d\n", n, counts[n])
	}
	return w.Flush()
}

func writeServerTable(out io.Writer, entries []api.ServerEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No servers configured")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FAMILY\tLIST\tSERVER\tGATEWAY\tCONNECT POINT\tNEXT HOP")
	for _, e := range entries {
		nextHop := "unresolved"
		if e.ResolvedMAC != "" {
			nextHop = e.ResolvedMAC + " vlan " + e.ResolvedVLAN.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Family, e.List, e.ServerIP, orDash(e.GatewayIP.String()), e.ConnectPoint, nextHop)
	}
	return w.Flush()
}
