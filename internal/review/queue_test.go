package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"curator/internal/clock"
	"curator/internal/events"
	"curator/internal/logging"
	"curator/internal/services"
	"curator/internal/suggest"
	"curator/internal/testsupport"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	q, err := New(cfg, nil, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return q
}

func reviewSuggestion(value string, confidence float64) suggest.CategorizedSuggestion {
	return suggest.CategorizedSuggestion{
		ScoredSuggestion: suggest.ScoredSuggestion{
			RawSuggestion:      suggest.RawSuggestion{Value: value, Confidence: confidence},
			AdjustedConfidence: confidence,
			QualityScore:       confidence,
			Rank:               1,
		},
		Category:    suggest.CategoryManualReview,
		Reason:      "needs review",
		CanOverride: true,
	}
}

func reviewMetadata(fileID, path string, op suggest.OperationType) suggest.FileMetadata {
	return suggest.FileMetadata{
		FileID:       fileID,
		OriginalPath: path,
		TargetPath:   path + ".renamed",
		FileType:     "pdf",
		Size:         2048,
		Operation:    op,
	}
}

func TestAddRejectsWrongCategory(t *testing.T) {
	q := newTestQueue(t)
	sugg := reviewSuggestion("statement.pdf", 92)
	sugg.Category = suggest.CategoryAutoApprove

	if _, err := q.Add(sugg, reviewMetadata("f1", "/data/a.pdf", suggest.OperationRename)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("Add = %v, want validation error", err)
	}
	if q.Size() != 0 {
		t.Fatalf("queue size = %d after rejected add", q.Size())
	}
}

func TestDecideLifecycle(t *testing.T) {
	q := newTestQueue(t)
	id, err := q.Add(reviewSuggestion("invoice.pdf", 70), reviewMetadata("f1", "/data/inv.pdf", suggest.OperationRename))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := q.Decide(id, suggest.DecisionApproved, "", "alex"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("empty reason = %v, want validation error", err)
	}
	if err := q.Decide(id, suggest.DecisionValue("maybe"), "unsure", "alex"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("unknown decision = %v, want validation error", err)
	}
	if err := q.Decide("no-such-entry", suggest.DecisionApproved, "fine", "alex"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("unknown entry = %v, want not-found error", err)
	}

	if err := q.Decide(id, suggest.DecisionApproved, "name matches the document", "alex"); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	entry, ok := q.Entry(id)
	if !ok {
		t.Fatal("entry vanished after decision")
	}
	if entry.Status != suggest.ReviewReviewed {
		t.Fatalf("status = %s, want reviewed", entry.Status)
	}
	if entry.Decision == nil || entry.Decision.Value != suggest.DecisionApproved || entry.Decision.Actor != "alex" {
		t.Fatalf("unexpected decision %+v", entry.Decision)
	}

	if err := q.Decide(id, suggest.DecisionRejected, "changed my mind", "alex"); !errors.Is(err, services.ErrContract) {
		t.Fatalf("second decision = %v, want contract error", err)
	}
}

func TestPendingFiltersAndSorts(t *testing.T) {
	q := newTestQueue(t)
	mustAdd := func(value string, confidence float64, path string, op suggest.OperationType) string {
		t.Helper()
		id, err := q.Add(reviewSuggestion(value, confidence), reviewMetadata("f-"+value, path, op))
		if err != nil {
			t.Fatalf("Add %s: %v", value, err)
		}
		return id
	}
	low := mustAdd("low.pdf", 35, "/inbox/low.pdf", suggest.OperationRename)
	mid := mustAdd("mid.pdf", 55, "/inbox/mid.pdf", suggest.OperationMove)
	high := mustAdd("high.pdf", 75, "/archive/high.pdf", suggest.OperationRename)

	all := q.Pending(ListOptions{})
	if len(all) != 3 {
		t.Fatalf("pending count = %d, want 3", len(all))
	}
	if all[0].ID != high || all[2].ID != low {
		t.Fatal("default ordering should be priority descending")
	}

	ascending := q.Pending(ListOptions{SortBy: SortByConfidence, Ascending: true})
	if ascending[0].ID != low || ascending[2].ID != high {
		t.Fatal("ascending confidence ordering wrong")
	}

	arrivals := q.Pending(ListOptions{SortBy: SortByArrival, Ascending: true})
	if arrivals[0].ID != low || arrivals[2].ID != high {
		t.Fatal("arrival ordering wrong")
	}

	banded := q.Pending(ListOptions{MinConfidence: 40, MaxConfidence: 60})
	if len(banded) != 1 || banded[0].ID != mid {
		t.Fatalf("confidence band returned %d entries", len(banded))
	}

	moves := q.Pending(ListOptions{Operation: suggest.OperationMove})
	if len(moves) != 1 || moves[0].ID != mid {
		t.Fatalf("operation filter returned %d entries", len(moves))
	}

	inbox := q.Pending(ListOptions{PathContains: "/inbox/"})
	if len(inbox) != 2 {
		t.Fatalf("path filter returned %d entries, want 2", len(inbox))
	}

	limited := q.Pending(ListOptions{Limit: 1})
	if len(limited) != 1 || limited[0].ID != high {
		t.Fatal("limit should keep the top-priority entry")
	}
}

func TestNextBatchHonorsConfiguredSize(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Review.BatchSize = 2
	q, err := New(cfg, nil, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i, confidence := range []float64{40, 60, 80} {
		name := string(rune('a'+i)) + ".pdf"
		if _, err := q.Add(reviewSuggestion(name, confidence), reviewMetadata(name, "/inbox/"+name, suggest.OperationRename)); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	batch := q.NextBatch()
	if len(batch) != 2 {
		t.Fatalf("batch size = %d, want 2", len(batch))
	}
	if batch[0].Priority != 80 || batch[1].Priority != 60 {
		t.Fatalf("batch priorities = %v/%v, want highest first", batch[0].Priority, batch[1].Priority)
	}
}

func TestDecideBulkToleratesFailures(t *testing.T) {
	q := newTestQueue(t)
	first, _ := q.Add(reviewSuggestion("a.pdf", 50), reviewMetadata("f1", "/x/a.pdf", suggest.OperationRename))
	second, _ := q.Add(reviewSuggestion("b.pdf", 50), reviewMetadata("f2", "/x/b.pdf", suggest.OperationRename))

	applied, failures := q.DecideBulk([]string{first, "missing", second}, suggest.DecisionRejected, "duplicates", "sam")
	if applied != 2 {
		t.Fatalf("applied = %d, want 2", applied)
	}
	if len(failures) != 1 {
		t.Fatalf("failures = %v, want exactly the missing entry", failures)
	}
	if !errors.Is(failures["missing"], services.ErrNotFound) {
		t.Fatalf("missing entry error = %v", failures["missing"])
	}

	for _, id := range []string{first, second} {
		entry, _ := q.Entry(id)
		if entry.Status != suggest.ReviewReviewed {
			t.Fatalf("entry %s not reviewed after bulk decision", id)
		}
	}
}

func TestOverrideFlipsReviewedEntryAndPersistsAudit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	journal := testsupport.MustOpenStore(t, cfg)
	q, err := New(cfg, journal, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	id, _ := q.Add(reviewSuggestion("contract.pdf", 60), reviewMetadata("f1", "/docs/contract.pdf", suggest.OperationRename))
	if err := q.Decide(id, suggest.DecisionRejected, "name looked wrong", "sam"); err != nil {
		t.Fatalf("Decide: %v", err)
	}

	if err := q.Override(context.Background(), id, suggest.DecisionApproved, "checked the document, name is right", "taylor"); err != nil {
		t.Fatalf("Override: %v", err)
	}

	entry, _ := q.Entry(id)
	if entry.Status != suggest.ReviewReviewed {
		t.Fatalf("status = %s, want reviewed", entry.Status)
	}
	if entry.Decision.Value != suggest.DecisionApproved {
		t.Fatalf("decision = %s, want approved", entry.Decision.Value)
	}
	if len(entry.Overrides) != 1 {
		t.Fatalf("override count = %d, want 1", len(entry.Overrides))
	}
	ov := entry.Overrides[0]
	if ov.OriginalDecision != suggest.DecisionRejected || ov.NewDecision != suggest.DecisionApproved || ov.Actor != "taylor" {
		t.Fatalf("unexpected override record %+v", ov)
	}

	approved := q.Approved()
	if len(approved) != 1 || approved[0].ID != id {
		t.Fatal("overridden entry should appear in the approved list")
	}

	trail, err := journal.AuditTrail(context.Background(), id)
	if err != nil {
		t.Fatalf("AuditTrail: %v", err)
	}
	if len(trail) != 1 {
		t.Fatalf("audit trail length = %d, want 1", len(trail))
	}
	if trail[0].OriginalDecision != "rejected" || trail[0].NewDecision != "approved" || trail[0].Actor != "taylor" {
		t.Fatalf("unexpected audit record %+v", trail[0])
	}
}

func TestOverrideOnPendingActsAsFirstDecision(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	journal := testsupport.MustOpenStore(t, cfg)
	q, err := New(cfg, journal, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	id, _ := q.Add(reviewSuggestion("notes.txt", 45), reviewMetadata("f1", "/docs/notes.txt", suggest.OperationRename))
	if err := q.Override(context.Background(), id, suggest.DecisionApproved, "fine as is", "sam"); err != nil {
		t.Fatalf("Override: %v", err)
	}

	entry, _ := q.Entry(id)
	if entry.Status != suggest.ReviewReviewed || entry.Decision.Value != suggest.DecisionApproved {
		t.Fatalf("unexpected entry state %+v", entry)
	}
	if len(entry.Overrides) != 0 {
		t.Fatal("first decision through Override should not create an override record")
	}

	trail, err := journal.AuditTrail(context.Background(), id)
	if err != nil {
		t.Fatalf("AuditTrail: %v", err)
	}
	if len(trail) != 0 {
		t.Fatalf("audit trail length = %d, want 0", len(trail))
	}
}

func TestEvictionPrefersReviewedEntries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Review.MaxQueueSize = 3
	bus := events.NewBus(8)
	defer bus.Close()
	ch, cancel := bus.Subscribe()
	defer cancel()

	q, err := New(cfg, nil, bus, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	first, _ := q.Add(reviewSuggestion("one.pdf", 50), reviewMetadata("f1", "/x/1.pdf", suggest.OperationRename))
	second, _ := q.Add(reviewSuggestion("two.pdf", 50), reviewMetadata("f2", "/x/2.pdf", suggest.OperationRename))
	third, _ := q.Add(reviewSuggestion("three.pdf", 50), reviewMetadata("f3", "/x/3.pdf", suggest.OperationRename))

	if err := q.Decide(second, suggest.DecisionRejected, "duplicate", "sam"); err != nil {
		t.Fatalf("Decide: %v", err)
	}

	fourth, _ := q.Add(reviewSuggestion("four.pdf", 50), reviewMetadata("f4", "/x/4.pdf", suggest.OperationRename))
	if q.Size() != 3 {
		t.Fatalf("size = %d, want 3", q.Size())
	}
	if _, ok := q.Entry(second); ok {
		t.Fatal("reviewed entry should have been evicted first")
	}
	for _, id := range []string{first, third, fourth} {
		if _, ok := q.Entry(id); !ok {
			t.Fatalf("entry %s unexpectedly evicted", id)
		}
	}

	fifth, _ := q.Add(reviewSuggestion("five.pdf", 50), reviewMetadata("f5", "/x/5.pdf", suggest.OperationRename))
	if _, ok := q.Entry(first); ok {
		t.Fatal("oldest pending entry should be evicted once no reviewed entries remain")
	}
	if _, ok := q.Entry(fifth); !ok {
		t.Fatal("newest entry missing after eviction")
	}

	sawCapacity := false
	for done := false; !done; {
		select {
		case ev := <-ch:
			if ev.Type == events.TypeQueueCapacity {
				payload, ok := ev.Payload.(events.CapacityPayload)
				if !ok || payload.Queue != "review" {
					t.Fatalf("unexpected capacity payload %+v", ev.Payload)
				}
				sawCapacity = true
			}
		default:
			done = true
		}
	}
	if !sawCapacity {
		t.Fatal("no capacity event published")
	}
}

func TestCleanupExpiresOldReviewedEntries(t *testing.T) {
	q := newTestQueue(t)
	fake := clock.NewFake()
	q.clk = fake

	expired, _ := q.Add(reviewSuggestion("old.pdf", 50), reviewMetadata("f1", "/x/old.pdf", suggest.OperationRename))
	if err := q.Decide(expired, suggest.DecisionApproved, "looks right", "sam"); err != nil {
		t.Fatalf("Decide: %v", err)
	}

	fake.Advance(31 * 24 * time.Hour)
	fresh, _ := q.Add(reviewSuggestion("new.pdf", 50), reviewMetadata("f2", "/x/new.pdf", suggest.OperationRename))

	if removed := q.Cleanup(); removed != 1 {
		t.Fatalf("Cleanup removed %d, want 1", removed)
	}
	if _, ok := q.Entry(expired); ok {
		t.Fatal("expired reviewed entry survived cleanup")
	}
	if _, ok := q.Entry(fresh); !ok {
		t.Fatal("fresh pending entry removed by cleanup")
	}
}

func TestRemoveProcessed(t *testing.T) {
	q := newTestQueue(t)
	first, _ := q.Add(reviewSuggestion("a.pdf", 50), reviewMetadata("f1", "/x/a.pdf", suggest.OperationRename))
	second, _ := q.Add(reviewSuggestion("b.pdf", 50), reviewMetadata("f2", "/x/b.pdf", suggest.OperationRename))

	if removed := q.RemoveProcessed([]string{first, "missing"}); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, ok := q.Entry(first); ok {
		t.Fatal("processed entry still present")
	}
	if _, ok := q.Entry(second); !ok {
		t.Fatal("unrelated entry removed")
	}

	pending, reviewed := q.Counts()
	if pending != 1 || reviewed != 0 {
		t.Fatalf("counts = %d pending / %d reviewed", pending, reviewed)
	}
}

func TestParseSortKey(t *testing.T) {
	if key, ok := ParseSortKey("  Priority "); !ok || key != SortByPriority {
		t.Fatalf("ParseSortKey priority = %q/%v", key, ok)
	}
	if _, ok := ParseSortKey("speed"); ok {
		t.Fatal("unknown sort key should not parse")
	}
}
