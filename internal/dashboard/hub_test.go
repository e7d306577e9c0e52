package dashboard

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"penguindash/internal/core"
	"penguindash/pkg/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testDataset() *domain.Dataset {
	return domain.NewDataset("test", []domain.Record{
		{Species: domain.SpeciesAdelie, Island: "Torgersen", BodyMassG: domain.Float(3750), BillLengthMM: domain.Float(39.1), BillDepthMM: domain.Float(18.7)},
		{Species: domain.SpeciesGentoo, Island: "Biscoe", BodyMassG: domain.Float(5400), BillLengthMM: domain.Float(47.6), BillDepthMM: domain.Float(14.5)},
		{Species: domain.SpeciesChinstrap, Island: "Dream", BodyMassG: domain.Float(3500), BillLengthMM: domain.Float(46.5), BillDepthMM: domain.Float(17.9)},
	})
}

func TestSessionSnapshotStartsAtDefaults(t *testing.T) {
	hub := NewHub(testDataset(), Options{})
	s := hub.Create(nil)
	snap := s.Snapshot()
	if snap.Summary.Count != 3 || len(snap.Table.Rows) != 3 {
		t.Fatalf("expected full view, got %+v", snap.Summary)
	}
	if snap.State.MassCeiling != 6000 {
		t.Fatalf("unexpected state %+v", snap.State)
	}
	if snap.Summary.Version != snap.Version || snap.Chart.Version != snap.Version || snap.Table.Version != snap.Version {
		t.Fatalf("consumers disagree on version: %+v", snap)
	}
}

func TestApplyRecomputesEveryConsumer(t *testing.T) {
	hub := NewHub(testDataset(), Options{Bins: 5})
	mass := 4000.0
	s := hub.Create(&core.Update{MassCeiling: &mass})
	snap := s.Snapshot()
	if snap.Summary.Count != 2 {
		t.Fatalf("expected initial update applied, got count %d", snap.Summary.Count)
	}
	snap = s.Apply(core.Update{Species: []string{domain.SpeciesChinstrap}})
	if snap.Summary.Count != 1 || len(snap.Table.Rows) != 1 || len(snap.Chart.Series) != 1 {
		t.Fatalf("consumers not recomputed: %+v", snap)
	}
	if len(snap.Chart.Bins) != 5 {
		t.Fatalf("expected configured bin count, got %d", len(snap.Chart.Bins))
	}
	state, version := s.State()
	if version != snap.Version || state.MassCeiling != 4000 {
		t.Fatalf("snapshot version %d, state version %d", snap.Version, version)
	}
}

func TestConcurrentAppliesStayConsistent(t *testing.T) {
	hub := NewHub(testDataset(), Options{})
	s := hub.Create(nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mass := float64(3000 + i*100)
			snap := s.Apply(core.Update{MassCeiling: &mass})
			if snap.State.MassCeiling != mass {
				t.Errorf("snapshot from another event: %v != %v", snap.State.MassCeiling, mass)
			}
		}(i)
	}
	wg.Wait()
	_, version := s.State()
	if version != 21 {
		t.Fatalf("expected 20 serialized events, got version %d", version)
	}
}

func TestHubGetDelete(t *testing.T) {
	hub := NewHub(testDataset(), Options{})
	s := hub.Create(nil)
	got, err := hub.Get(s.ID())
	if err != nil || got != s {
		t.Fatalf("Get: %v", err)
	}
	if err := hub.Delete(s.ID()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := hub.Get(s.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := hub.Delete(s.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	hub := NewHub(testDataset(), Options{TTL: time.Minute, Now: clock})
	idle := hub.Create(nil)
	now = now.Add(50 * time.Second)
	active := hub.Create(nil)
	now = now.Add(20 * time.Second)
	if n := hub.Sweep(); n != 1 {
		t.Fatalf("expected one eviction, got %d", n)
	}
	if _, err := hub.Get(idle.ID()); err == nil {
		t.Fatalf("idle session should be gone")
	}
	if _, err := hub.Get(active.ID()); err != nil {
		t.Fatalf("active session evicted: %v", err)
	}
	if NewHub(testDataset(), Options{}).Sweep() != 0 {
		t.Fatalf("zero ttl must never evict")
	}
}

func TestRunSweeperStopsOnCancel(t *testing.T) {
	hub := NewHub(testDataset(), Options{TTL: time.Nanosecond})
	hub.Create(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.RunSweeper(ctx, time.Millisecond)
		close(done)
	}()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
	if hub.Len() != 0 {
		t.Fatalf("expected sweeper to evict expired session")
	}
}

func TestSessionSubscribeSeesCommits(t *testing.T) {
	hub := NewHub(testDataset(), Options{})
	s := hub.Create(nil)
	var got []uint64
	cancel := s.Subscribe(func(v core.View) { got = append(got, v.Version) })
	s.Apply(core.Update{Species: []string{}})
	cancel()
	s.Apply(core.Update{Species: []string{domain.SpeciesAdelie}})
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("unexpected notifications %v", got)
	}
}

func TestCreateToleratesNonFiniteMeasurements(t *testing.T) {
	ds := domain.NewDataset("odd", []domain.Record{
		{Species: domain.SpeciesAdelie, Island: "Dream", BodyMassG: domain.Float(math.Inf(-1)), BillLengthMM: domain.Float(math.NaN())},
		{Species: domain.SpeciesAdelie, Island: "Dream", BodyMassG: domain.Float(3000), BillLengthMM: domain.Float(38)},
	})
	snap := NewHub(ds, Options{}).Create(nil).Snapshot()
	if snap.Chart.Total != 1 || snap.Summary.Text.MeanBillLength != "38.0 mm" {
		t.Fatalf("non-finite values must be skipped, got chart total %d, bill %q", snap.Chart.Total, snap.Summary.Text.MeanBillLength)
	}
}

func TestRunEveryCallsEachSweep(t *testing.T) {
	var mu sync.Mutex
	calls := map[string]int{}
	sweep := func(name string) func() int {
		return func() int {
			mu.Lock()
			defer mu.Unlock()
			calls[name]++
			return 0
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunEvery(ctx, time.Millisecond, sweep("sessions"), sweep("exports"))
		close(done)
	}()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		ready := calls["sessions"] > 0 && calls["exports"] > 0
		mu.Unlock()
		if ready {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
	mu.Lock()
	defer mu.Unlock()
	if calls["sessions"] == 0 || calls["exports"] == 0 {
		t.Fatalf("expected both sweeps to run, got %v", calls)
	}
}
