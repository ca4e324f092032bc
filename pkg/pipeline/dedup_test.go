package pipeline

import (
	"fmt"
	"sync"
	"testing"
)

func TestLedgerSeen(t *testing.T) {
	ledger := NewLedger(10)

	if ledger.Seen("m1") {
		t.Fatal("first sighting of m1 should not be seen")
	}
	if !ledger.Seen("m1") {
		t.Fatal("second sighting of m1 should be seen")
	}
	if ledger.Seen("m2") {
		t.Fatal("m2 should be independent of m1")
	}
}

func TestLedgerEvictsOldest(t *testing.T) {
	ledger := NewLedger(2)

	ledger.Seen("a")
	ledger.Seen("b")
	ledger.Seen("c") // evicts a

	if ledger.Len() != 2 {
		t.Fatalf("Len = %d, want 2", ledger.Len())
	}
	if ledger.Seen("a") {
		t.Fatal("a should have been evicted")
	}
}

func TestLedgerRefreshesOnDuplicate(t *testing.T) {
	ledger := NewLedger(2)

	ledger.Seen("a")
	ledger.Seen("b")
	ledger.Seen("a") // a becomes most recent
	ledger.Seen("c") // evicts b, not a

	if !ledger.Seen("a") {
		t.Fatal("a should survive after being refreshed")
	}
	if ledger.Seen("b") {
		t.Fatal("b should have been evicted")
	}
}

func TestLedgerConcurrentSameID(t *testing.T) {
	ledger := NewLedger(100)

	const workers = 32
	firsts := make(chan bool, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			firsts <- !ledger.Seen("same-id")
		}()
	}
	wg.Wait()
	close(firsts)

	admitted := 0
	for first := range firsts {
		if first {
			admitted++
		}
	}

	if admitted != 1 {
		t.Fatalf("admitted = %d, want exactly 1 under concurrent delivery", admitted)
	}
}

func TestLedgerConcurrentDistinctIDs(t *testing.T) {
	ledger := NewLedger(1000)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if ledger.Seen(fmt.Sprintf("id-%d", n)) {
				t.Errorf("fresh id-%d reported as seen", n)
			}
		}(i)
	}
	wg.Wait()

	if ledger.Len() != 100 {
		t.Fatalf("Len = %d, want 100", ledger.Len())
	}
}
