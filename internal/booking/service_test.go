package booking

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"antigravity/internal/model"
	"antigravity/internal/rules"
	"antigravity/internal/store"
)

// recorder captures dispatched effects for assertions.
type recorder struct {
	calls chan string
}

func newRecorder() *recorder {
	return &recorder{calls: make(chan string, 16)}
}

func (r *recorder) SendSubmission(ctx context.Context, b *model.Booking) error {
	r.calls <- "submission"
	return nil
}

func (r *recorder) SendApproval(ctx context.Context, b *model.Booking) error {
	r.calls <- "approval"
	return nil
}

func (r *recorder) SendCancellation(ctx context.Context, b *model.Booking) error {
	r.calls <- "cancellation"
	return nil
}

func (r *recorder) Sync(ctx context.Context, b *model.Booking) error {
	r.calls <- "sync"
	return nil
}

func (r *recorder) Remove(ctx context.Context, b *model.Booking) error {
	r.calls <- "remove"
	return nil
}

func (r *recorder) wait(t *testing.T, want string) {
	t.Helper()
	select {
	case got := <-r.calls:
		if got != want {
			t.Fatalf("effect = %s, want %s", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s effect", want)
	}
}

func serviceRules() *rules.RuleSet {
	rs := &rules.RuleSet{
		Location:          time.UTC,
		Weekdays:          map[time.Weekday]bool{},
		Hours:             map[time.Weekday]rules.Window{},
		OvernightWeekdays: map[time.Weekday]bool{time.Friday: true},
		OvernightByDay:    map[time.Weekday]rules.Overnight{},
		OvernightDefault: rules.Overnight{
			Cutoff: rules.MustClock("22:00"),
			Extend: rules.MustClock("10:00"),
		},
		SpecialDates:    map[string]rules.Overnight{},
		LeadHours:       48,
		SlotMinutes:     60,
		HourlyRateCents: 10000,
	}
	for d := time.Monday; d <= time.Friday; d++ {
		rs.Weekdays[d] = true
		rs.Hours[d] = rules.Window{
			Open:  rules.MustClock("09:00"),
			Close: rules.MustClock("22:00"),
		}
	}
	return rs
}

var serviceNow = time.Date(2026, 11, 16, 12, 0, 0, 0, time.UTC) // Monday

func newTestService(t *testing.T) (*Service, *recorder) {
	t.Helper()
	logger := zerolog.Nop()

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"), &logger)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	rec := newRecorder()
	svc := NewService(db, rules.NewProvider(serviceRules()), NewDispatcher(rec, rec, &logger), &logger)
	svc.now = func() time.Time { return serviceNow }
	return svc, rec
}

func validRequest() Request {
	start := time.Date(2026, 11, 20, 10, 0, 0, 0, time.UTC) // Friday, beyond lead
	return Request{
		Start:         start,
		End:           start.Add(time.Hour),
		CustomerName:  "Jordan Reyes",
		CustomerEmail: "jordan@example.com",
		GuestCount:    4,
	}
}

func TestCreate(t *testing.T) {
	svc, rec := newTestService(t)

	b, err := svc.Create(context.Background(), validRequest())
	if err != nil {
		t.Fatal(err)
	}
	if b.ID == 0 || b.Reference == "" {
		t.Error("id or reference not assigned")
	}
	if b.Status != model.StatusPending {
		t.Errorf("status = %s", b.Status)
	}
	if b.CostCents != 10000 {
		t.Errorf("cost = %d", b.CostCents)
	}
	rec.wait(t, "submission")
}

func TestCreateOvernightPricing(t *testing.T) {
	svc, _ := newTestService(t)

	start := time.Date(2026, 11, 20, 22, 0, 0, 0, time.UTC) // Friday at cutoff
	b, err := svc.Create(context.Background(), Request{
		Start:         start,
		End:           time.Date(2026, 11, 21, 10, 0, 0, 0, time.UTC),
		IsOvernight:   true,
		CustomerName:  "Jordan Reyes",
		CustomerEmail: "jordan@example.com",
	})
	if err != nil {
		t.Fatal(err)
	}
	if b.CostCents != 120000 { // 12 hours at $100
		t.Errorf("overnight cost = %d", b.CostCents)
	}
	if b.GuestCount != 1 {
		t.Errorf("guest count default = %d", b.GuestCount)
	}
}

func TestCreateRuleViolation(t *testing.T) {
	svc, _ := newTestService(t)

	req := validRequest()
	req.Start = time.Date(2026, 11, 22, 10, 0, 0, 0, time.UTC) // Sunday
	req.End = req.Start.Add(time.Hour)

	_, err := svc.Create(context.Background(), req)
	var rv *ErrRuleViolation
	if !errors.As(err, &rv) {
		t.Fatalf("err = %v, want ErrRuleViolation", err)
	}
	if len(rv.Violations) == 0 {
		t.Error("no violations reported")
	}
}

func TestCreateSlotTaken(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Create(context.Background(), validRequest()); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Create(context.Background(), validRequest())
	if !errors.Is(err, ErrSlotTaken) {
		t.Errorf("err = %v, want ErrSlotTaken", err)
	}
}

func TestDecide(t *testing.T) {
	svc, rec := newTestService(t)

	b, err := svc.Create(context.Background(), validRequest())
	if err != nil {
		t.Fatal(err)
	}
	rec.wait(t, "submission")

	approved, err := svc.Decide(context.Background(), b.ID, model.StatusApproved)
	if err != nil {
		t.Fatal(err)
	}
	if approved.Status != model.StatusApproved {
		t.Errorf("status = %s", approved.Status)
	}
	rec.wait(t, "approval")
	rec.wait(t, "sync")

	// Approving twice is rejected.
	if _, err := svc.Decide(context.Background(), b.ID, model.StatusApproved); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("double approval err = %v", err)
	}

	// Cancelling an approved booking emails and removes the event.
	if _, err := svc.Decide(context.Background(), b.ID, model.StatusCancelled); err != nil {
		t.Fatal(err)
	}
	rec.wait(t, "cancellation")
	rec.wait(t, "remove")

	if _, err := svc.Decide(context.Background(), 9999, model.StatusApproved); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing booking err = %v", err)
	}
}

func TestDecideBulk(t *testing.T) {
	svc, rec := newTestService(t)

	first, err := svc.Create(context.Background(), validRequest())
	if err != nil {
		t.Fatal(err)
	}
	second := validRequest()
	second.Start = second.Start.Add(2 * time.Hour)
	second.End = second.End.Add(2 * time.Hour)
	b2, err := svc.Create(context.Background(), second)
	if err != nil {
		t.Fatal(err)
	}
	rec.wait(t, "submission")
	rec.wait(t, "submission")

	// Approve one up front so the bulk call has to skip it.
	if _, err := svc.Decide(context.Background(), first.ID, model.StatusApproved); err != nil {
		t.Fatal(err)
	}
	rec.wait(t, "approval")
	rec.wait(t, "sync")

	applied, err := svc.DecideBulk(context.Background(), []int64{first.ID, b2.ID, 9999}, model.StatusApproved)
	if err != nil {
		t.Fatal(err)
	}
	if applied != 1 {
		t.Errorf("applied = %d, want 1", applied)
	}
}

func TestServiceExpireLapsed(t *testing.T) {
	svc, _ := newTestService(t)

	// Created normally, then the clock jumps close to the start.
	b, err := svc.Create(context.Background(), validRequest())
	if err != nil {
		t.Fatal(err)
	}

	svc.now = func() time.Time { return b.StartTime.Add(-24 * time.Hour) }
	n, err := svc.ExpireLapsed(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expired = %d, want 1", n)
	}
}
