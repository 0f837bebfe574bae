package memory

import (
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/veesix-networks/dhcprelay/pkg/models"
	"github.com/veesix-networks/dhcprelay/pkg/record"
)

func hostID(t *testing.T, mac string, vlan models.VLAN) models.HostID {
	t.Helper()
	hw, err := net.ParseMAC(mac)
	if err != nil {
		t.Fatalf("parse mac: %v", err)
	}
	return models.NewHostID(hw, vlan)
}

func TestPutDoesNotAliasPriorSnapshot(t *testing.T) {
	s := New()
	id := hostID(t, "00:11:22:33:44:55", 10)

	rec := record.New(id)
	rec.IP4Address = net.ParseIP("10.0.0.50").To4()
	rec.AddLocation(models.ConnectPoint{Device: "r1", Port: "eth0"}, time.Unix(100, 0))
	s.Put(id, rec)

	snapshot, ok := s.Get(id)
	if !ok {
		t.Fatal("record missing after put")
	}

	update := snapshot.Clone()
	update.IP4Address[3] = 99
	update.AddLocation(models.ConnectPoint{Device: "r1", Port: "eth1"}, time.Unix(200, 0))
	update.Count("DHCPACK")
	s.Put(id, update)

	if snapshot.IP4Address.String() != "10.0.0.50" {
		t.Fatalf("prior snapshot mutated: got %v", snapshot.IP4Address)
	}
	if len(snapshot.Locations) != 1 || len(snapshot.Counters) != 0 {
		t.Fatalf("prior snapshot mutated: %+v", snapshot)
	}

	// mutating the caller's copy after Put must not reach the store
	update.IP4Address[3] = 1
	stored, _ := s.Get(id)
	if stored.IP4Address.String() != "10.0.0.99" {
		t.Fatalf("stored value aliased caller copy: got %v", stored.IP4Address)
	}
}

func TestRemoveIf(t *testing.T) {
	s := New()
	for i := 0; i < 10; i++ {
		id := hostID(t, fmt.Sprintf("00:00:00:00:00:%02x", i), models.VLAN(i+1))
		rec := record.New(id)
		rec.DirectlyConnected = i%2 == 0
		s.Put(id, rec)
	}

	removed := s.RemoveIf(func(r *record.DhcpRecord) bool { return !r.DirectlyConnected })
	if len(removed) != 5 {
		t.Fatalf("got %d removed, want 5", len(removed))
	}
	if s.Len() != 5 {
		t.Fatalf("got %d left, want 5", s.Len())
	}
	for _, r := range s.All() {
		if !r.DirectlyConnected {
			t.Fatalf("indirect record survived: %v", r.HostID)
		}
	}
}

func TestConcurrentPutsForDifferentHosts(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := models.NewHostID(net.HardwareAddr{0, 0, 0, 0, byte(i >> 8), byte(i)}, 10)
			for j := 0; j < 50; j++ {
				rec := record.GetOrNew(s, id)
				rec.Count("DHCPDISCOVER")
				s.Put(id, rec)
			}
		}(i)
	}
	wg.Wait()

	all := s.All()
	if len(all) != 64 {
		t.Fatalf("got %d records, want 64", len(all))
	}
	for _, r := range all {
		if r.Counters["DHCPDISCOVER"] != 50 {
			t.Fatalf("host %v: got %d, want 50", r.HostID, r.Counters["DHCPDISCOVER"])
		}
	}
}

func TestLatestLocation(t *testing.T) {
	rec := record.New(hostID(t, "00:11:22:33:44:55", 10))
	if _, ok := rec.LatestLocation(); ok {
		t.Fatal("empty record should have no location")
	}
	a := models.ConnectPoint{Device: "r1", Port: "eth0"}
	b := models.ConnectPoint{Device: "r1", Port: "eth1"}
	rec.AddLocation(a, time.Unix(100, 0))
	rec.AddLocation(b, time.Unix(200, 0))
	rec.AddLocation(a, time.Unix(300, 0))

	loc, _ := rec.LatestLocation()
	if loc.ConnectPoint != a || len(rec.Locations) != 2 {
		t.Fatalf("got %v with %d locations, want %v with 2", loc.ConnectPoint, len(rec.Locations), a)
	}
}
