package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/adrian-glinqvist/ideasvault/internal/model"
)

func TestReconcile_CorrectsDrift(t *testing.T) {
	tally := NewTallyService()
	trend := NewTrendService(time.Hour, 1.8)
	ledger := NewLedgerService(time.Second, nil)
	store := newFlakyStore()
	persist := NewPersistWorker(store, store, time.Second, nil)
	w := NewReconcileWorker(ledger, tally, trend, persist, time.Minute, nil)

	created := time.Now().Add(-time.Hour)
	tally.Register("idea1", "t", created)
	ledger.Warm([]model.VoteRecord{
		{UserID: "u1", IdeaID: "idea1", Value: 1},
		{UserID: "u2", IdeaID: "idea1", Value: 1},
		{UserID: "u3", IdeaID: "idea1", Value: 1},
	})

	// Sabotage the tally: the ledger sum is 3, the running total says 7.
	tally.Adjust("idea1", 7, time.Now(), nil)

	w.tick()

	snap, err := tally.Snapshot("idea1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.VoteCount != 3 {
		t.Errorf("voteCount after sweep = %d, want ledger sum 3", snap.VoteCount)
	}
	if got := persist.PendingDepth(); got != 1 {
		t.Errorf("pending depth = %d, want 1 (corrected counters queued)", got)
	}
}

func TestReconcile_AgreementIsNoOp(t *testing.T) {
	tally := NewTallyService()
	trend := NewTrendService(time.Hour, 1.8)
	ledger := NewLedgerService(time.Second, nil)
	store := newFlakyStore()
	persist := NewPersistWorker(store, store, time.Second, nil)
	w := NewReconcileWorker(ledger, tally, trend, persist, time.Minute, nil)

	tally.Register("idea1", "t", time.Now())
	ledger.Warm([]model.VoteRecord{
		{UserID: "u1", IdeaID: "idea1", Value: 1},
		{UserID: "u2", IdeaID: "idea1", Value: -1},
	})
	tally.Adjust("idea1", 0, time.Now(), nil)

	w.tick()

	snap, _ := tally.Snapshot("idea1")
	if snap.VoteCount != 0 {
		t.Errorf("voteCount = %d, want 0", snap.VoteCount)
	}
	if got := persist.PendingDepth(); got != 0 {
		t.Errorf("agreement must queue nothing, pending depth = %d", got)
	}
}

func TestReconcile_ConvergesAfterConcurrentVotes(t *testing.T) {
	tally := NewTallyService()
	trend := NewTrendService(time.Hour, 1.8)
	hub := NewHubService(NewTallySnapshots(tally, 30), 64, nil)
	ledger := NewLedgerService(5*time.Second, nil)
	svc := NewVoteService(ledger, tally, trend, hub, nil, nil, nil, nil)
	w := NewReconcileWorker(ledger, tally, trend, nil, time.Minute, nil)

	mustRegister(t, svc, "idea1")

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		uid := fmt.Sprintf("user%d", i)
		wg.Add(1)
		go func(uid string) {
			defer wg.Done()
			svc.Submit(ctx, model.VoteRequest{IdeaID: "idea1", UserID: uid, VoteType: 1})
			if uid == "user7" || uid == "user13" {
				svc.Retract(ctx, model.RetractRequest{IdeaID: "idea1", UserID: uid})
			}
		}(uid)
	}
	wg.Wait()

	// Once operations settle, the tally already equals the ledger sum; the
	// sweep must find nothing to correct.
	sum := ledger.SumForIdea("idea1")
	snap, _ := tally.Snapshot("idea1")
	if snap.VoteCount != sum {
		t.Fatalf("tally %d diverged from ledger sum %d before sweep", snap.VoteCount, sum)
	}

	w.tick()

	snap, _ = tally.Snapshot("idea1")
	if snap.VoteCount != sum {
		t.Errorf("voteCount after sweep = %d, want %d", snap.VoteCount, sum)
	}
}

func TestReconcile_StartStopsOnCancel(t *testing.T) {
	tally := NewTallyService()
	trend := NewTrendService(time.Hour, 1.8)
	ledger := NewLedgerService(time.Second, nil)
	w := NewReconcileWorker(ledger, tally, trend, nil, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}
