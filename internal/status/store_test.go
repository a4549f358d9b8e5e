package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"K10PlusExport/internal/domain"
	"K10PlusExport/internal/infrastructure/storage"
)

var allStatuses = []domain.DepositStatus{
	domain.StatusNotDeposited,
	domain.StatusRegistered,
	domain.StatusFailed,
	domain.StatusMarkedRegistered,
	domain.StatusMarkedUnregistered,
}

func newTestStore(t *testing.T) (*Store, *storage.MemoryRepository) {
	t.Helper()

	repo := storage.NewMemoryRepository()
	store := NewStore(repo, nil)
	store.now = func() time.Time { return time.Date(2025, time.March, 4, 9, 0, 0, 0, time.UTC) }
	return store, repo
}

func TestGetDefaultsToNotDeposited(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	record, err := store.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if record.Status != domain.StatusNotDeposited || record.LastError != "" {
		t.Fatalf("unexpected default record: %+v", record)
	}
}

func TestTransitionsFromEveryStatus(t *testing.T) {
	t.Parallel()

	type step struct {
		name    string
		apply   func(*Store, context.Context, int64) error
		want    domain.DepositStatus
		wantErr string
	}
	steps := []step{
		{name: "deposit success", apply: (*Store).RecordDepositSuccess, want: domain.StatusRegistered},
		{
			name: "deposit failure",
			apply: func(s *Store, ctx context.Context, id int64) error {
				return s.RecordDepositFailure(ctx, id, "permission denied")
			},
			want:    domain.StatusFailed,
			wantErr: "permission denied",
		},
		{name: "mark registered", apply: (*Store).MarkRegistered, want: domain.StatusMarkedRegistered},
		{name: "mark unregistered", apply: (*Store).MarkUnregistered, want: domain.StatusMarkedUnregistered},
	}

	ctx := context.Background()
	for _, from := range allStatuses {
		for _, st := range steps {
			store, repo := newTestStore(t)
			if err := repo.SaveStatus(ctx, 5, domain.StatusRecord{Status: from, LastError: "previous"}); err != nil {
				t.Fatalf("seed status: %v", err)
			}

			if err := st.apply(store, ctx, 5); err != nil {
				t.Fatalf("%s from %s: %v", st.name, from, err)
			}

			record, err := store.Get(ctx, 5)
			if err != nil {
				t.Fatalf("Get returned error: %v", err)
			}
			if record.Status != st.want {
				t.Fatalf("%s from %s: got %s, want %s", st.name, from, record.Status, st.want)
			}
			if record.LastError != st.wantErr {
				t.Fatalf("%s from %s: unexpected last error %q", st.name, from, record.LastError)
			}
			if record.UpdatedAt.IsZero() {
				t.Fatalf("%s from %s: updated_at not set", st.name, from)
			}
		}
	}
}

func TestNextRejectsUnknownEvent(t *testing.T) {
	t.Parallel()

	if _, err := Next(domain.StatusRegistered, Event(99)); err == nil {
		t.Fatalf("expected error for unknown event")
	}
}

type failingRepository struct {
	*storage.MemoryRepository
}

func (failingRepository) SaveStatus(context.Context, int64, domain.StatusRecord) error {
	return errors.New("disk full")
}

func TestSaveErrorIsWrapped(t *testing.T) {
	t.Parallel()

	store := NewStore(failingRepository{storage.NewMemoryRepository()}, nil)
	err := store.MarkRegistered(context.Background(), 3)
	if err == nil || err.Error() != "save status 3: disk full" {
		t.Fatalf("unexpected error: %v", err)
	}
}
