package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestTextHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewTextHandler(&buf, nil, "relay"))
	l.Info("Forwarded request", "mac", "00:11:22:33:44:55", "vlan", 10)

	line := buf.String()
	if !strings.Contains(line, "[relay] Forwarded request") {
		t.Fatalf("missing component and message: %q", line)
	}
	if !strings.HasSuffix(line, " mac=00:11:22:33:44:55 vlan=10\n") {
		t.Fatalf("attrs not in call order: %q", line)
	}
}

func TestComponentLevelFallsBackToParent(t *testing.T) {
	Configure("text", LogLevelWarn, map[string]LogLevel{"relay": LogLevelDebug})
	t.Cleanup(func() { Configure("text", LogLevelInfo, nil) })

	if got := getEffectiveLevel("relay.dhcp6"); got != slog.LevelDebug {
		t.Fatalf("got %v, want %v", got, slog.LevelDebug)
	}
	if got := getEffectiveLevel("arp"); got != slog.LevelWarn {
		t.Fatalf("got %v, want %v", got, slog.LevelWarn)
	}
}

func TestWithHostSkipsEmpty(t *testing.T) {
	var buf bytes.Buffer
	direct := true
	l := WithHost(slog.New(NewTextHandler(&buf, nil, "")), HostAttrs{MAC: "aa:bb:cc:dd:ee:ff", Direct: &direct})
	l.Info("Host")

	line := buf.String()
	if strings.Contains(line, "vlan=") {
		t.Fatalf("empty vlan should be omitted: %q", line)
	}
	if !strings.Contains(line, "mac=aa:bb:cc:dd:ee:ff direct=true") {
		t.Fatalf("unexpected attrs: %q", line)
	}
}
