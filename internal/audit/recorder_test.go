package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"graceparish.org/internal/stream"
)

type memStore struct {
	mu      sync.Mutex
	records []Record
	err     error
	started chan struct{}
	release chan struct{}
}

func (m *memStore) AppendAudit(ctx context.Context, rec Record) error {
	if m.started != nil {
		m.started <- struct{}{}
	}
	if m.release != nil {
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memStore) ListAudit(ctx context.Context, limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record(nil), m.records...), nil
}

func TestRecorderWritesAndPublishes(t *testing.T) {
	store := &memStore{}
	hub := stream.New[Record](4)
	subCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	feed := hub.Subscribe(subCtx)

	r := NewRecorder(store, 8, WithFeed(hub))
	r.Record(context.Background(), "admin-1", ActionRoleAssign, "user-9", map[string]any{"role": "admin"})

	select {
	case rec := <-feed:
		if rec.ActorID != "admin-1" || rec.TargetID != "user-9" || rec.Action != ActionRoleAssign {
			t.Fatalf("unexpected record %+v", rec)
		}
		if rec.ID == "" || rec.OccurredAt.IsZero() {
			t.Fatalf("record missing id or timestamp: %+v", rec)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("record not published")
	}

	if err := r.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	got, _ := store.ListAudit(context.Background(), 10)
	if len(got) != 1 {
		t.Fatalf("expected 1 stored record, got %d", len(got))
	}
}

func TestRecorderSurvivesCancelledCaller(t *testing.T) {
	store := &memStore{}
	r := NewRecorder(store, 8)
	ctx, cancel := context.WithCancel(context.Background())
	r.Record(ctx, "admin-1", ActionUserDelete, "user-3", nil)
	cancel()

	if err := r.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	got, _ := store.ListAudit(context.Background(), 10)
	if len(got) != 1 {
		t.Fatalf("write must complete after caller cancels, got %d records", len(got))
	}
}

func TestRecorderReportsStoreFailure(t *testing.T) {
	boom := errors.New("insert failed")
	r := NewRecorder(&memStore{err: boom}, 8)
	r.Record(context.Background(), "admin-1", ActionContentDelete, "sermon-1", nil)

	select {
	case err := <-r.Errors():
		if !errors.Is(err, boom) {
			t.Fatalf("unexpected error %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("failure not reported")
	}
	_ = r.Close(context.Background())
}

func TestRecorderDropsWhenQueueFull(t *testing.T) {
	store := &memStore{started: make(chan struct{}, 4), release: make(chan struct{})}
	r := NewRecorder(store, 1)

	r.Record(context.Background(), "a", ActionRoleRevoke, "t1", nil)
	<-store.started
	r.Record(context.Background(), "a", ActionRoleRevoke, "t2", nil)
	r.Record(context.Background(), "a", ActionRoleRevoke, "t3", nil)

	select {
	case err := <-r.Errors():
		if !errors.Is(err, ErrQueueFull) {
			t.Fatalf("expected ErrQueueFull, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("overflow not reported")
	}

	close(store.release)
	if err := r.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	got, _ := store.ListAudit(context.Background(), 10)
	if len(got) != 2 {
		t.Fatalf("expected 2 stored records, got %d", len(got))
	}
}

func TestRecordAfterClose(t *testing.T) {
	r := NewRecorder(&memStore{}, 1)
	if err := r.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	r.Record(context.Background(), "a", ActionUserDelete, "t", nil)
	select {
	case err := <-r.Errors():
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("expected closed error")
	}
	if err := r.Close(context.Background()); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
