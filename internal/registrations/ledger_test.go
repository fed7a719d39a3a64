package registrations

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/centre-jeunesse/backend/internal/models"
	"github.com/centre-jeunesse/backend/internal/schedule"
)

// fakeStore is an in-memory Store. WithEventLock runs the callback
// directly; tests drive the ledger single-threaded.
type fakeStore struct {
	regs        []models.Registration
	clock       *fakeClock
	failInserts int
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) tick() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newFakeStore() *fakeStore {
	return &fakeStore{clock: &fakeClock{t: time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)}}
}

func (s *fakeStore) GetActiveByEventAndMember(_ context.Context, eventID, memberID uuid.UUID) (*models.Registration, error) {
	for _, r := range s.regs {
		if r.EventID == eventID && r.MemberID == memberID && r.Status.Active() {
			cp := r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) Insert(_ context.Context, reg *models.Registration) error {
	if s.failInserts > 0 {
		s.failInserts--
		return ErrConflict
	}
	reg.ID = uuid.New()
	reg.CreatedAt = s.clock.tick()
	reg.UpdatedAt = reg.CreatedAt
	s.regs = append(s.regs, *reg)
	return nil
}

func (s *fakeStore) Update(_ context.Context, reg *models.Registration) error {
	for i := range s.regs {
		if s.regs[i].ID == reg.ID {
			reg.CreatedAt = s.regs[i].CreatedAt
			reg.UpdatedAt = s.clock.tick()
			s.regs[i] = *reg
			return nil
		}
	}
	return errors.New("registration not found")
}

func (s *fakeStore) ListActiveByEvent(_ context.Context, eventID uuid.UUID) ([]models.Registration, error) {
	var out []models.Registration
	for _, r := range s.regs {
		if r.EventID == eventID && r.Status.Active() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) WithEventLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type sentNotification struct {
	n  models.Notification
	to []uuid.UUID
}

type captureNotifier struct {
	sent []sentNotification
}

func (c *captureNotifier) Notify(_ context.Context, n models.Notification, to []uuid.UUID) {
	c.sent = append(c.sent, sentNotification{n: n, to: to})
}

func (c *captureNotifier) countType(t models.NotificationType) int {
	n := 0
	for _, s := range c.sent {
		if s.n.Type == t {
			n++
		}
	}
	return n
}

type fixedStaff struct {
	ids []uuid.UUID
}

func (f fixedStaff) StaffIDs(context.Context) ([]uuid.UUID, error) { return f.ids, nil }

func testMember(name string) *models.Member {
	return &models.Member{ID: uuid.New(), FirstName: name, LastName: "Test", Email: name + "@example.org"}
}

// seriesSchedule has occurrences on June 1 and June 8, 2030, 10:00-12:00 UTC.
var seriesSchedule = json.RawMessage(`{
	"mode": "series",
	"series": [
		{"date": "2030-06-01", "start_time": "10:00", "end_time": "12:00"},
		{"date": "2030-06-08", "start_time": "10:00", "end_time": "12:00"}
	]
}`)

var (
	ts1 = time.Date(2030, 6, 1, 10, 0, 0, 0, time.UTC).Unix()
	ts2 = time.Date(2030, 6, 8, 10, 0, 0, 0, time.UTC).Unix()
)

func testEvent(capacity, waitlist int) *models.Event {
	return &models.Event{
		ID:               uuid.New(),
		Title:            "Atelier théâtre",
		Schedule:         seriesSchedule,
		CapacityTotal:    capacity,
		CapacityWaitlist: waitlist,
		Published:        true,
	}
}

func newTestLedger(store *fakeStore, notifier *captureNotifier, staff StaffDirectory) *Ledger {
	// Avoid handing NewLedger a typed-nil *captureNotifier: wrapped in the
	// Notifier interface it would not compare equal to nil, defeating the
	// ledger's "nil disables notifications" guard.
	var n Notifier
	if notifier != nil {
		n = notifier
	}
	l := NewLedger(store, n, staff, nil, nil)
	l.now = func() time.Time { return time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC) }
	return l
}

func TestRegister_CapacityAndWaitlist(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	ledger := newTestLedger(store, nil, nil)
	event := testEvent(2, 1)
	ctx := context.Background()

	wantStatuses := []models.RegistrationStatus{
		models.StatusConfirmed,
		models.StatusConfirmed,
		models.StatusWaitlisted,
	}
	for i, want := range wantStatuses {
		res, err := ledger.Register(ctx, event, testMember("m"), models.AllScope(), "")
		if err != nil {
			t.Fatalf("register %d: %v", i+1, err)
		}
		if res.Status != want {
			t.Errorf("register %d: status = %s, want %s", i+1, res.Status, want)
		}
	}

	_, err := ledger.Register(ctx, event, testMember("overflow"), models.AllScope(), "")
	if !errors.Is(err, ErrEventFull) {
		t.Fatalf("4th register: err = %v, want ErrEventFull", err)
	}
}

func TestRegister_UnlimitedCapacity(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	ledger := newTestLedger(store, nil, nil)
	event := testEvent(0, 0)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		res, err := ledger.Register(ctx, event, testMember("m"), models.AllScope(), "")
		if err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
		if res.Status != models.StatusConfirmed {
			t.Fatalf("register %d: status = %s, want confirmed", i, res.Status)
		}
	}
}

func TestRegister_Idempotent(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	ledger := newTestLedger(store, nil, nil)
	event := testEvent(5, 0)
	member := testMember("alice")
	ctx := context.Background()

	first, err := ledger.Register(ctx, event, member, models.AllScope(), "premier")
	if err != nil {
		t.Fatal(err)
	}
	second, err := ledger.Register(ctx, event, member, models.CustomScope([]int64{ts1}), "deuxième")
	if err != nil {
		t.Fatal(err)
	}

	if second.Registration.ID != first.Registration.ID {
		t.Error("re-registration created a new row instead of updating in place")
	}
	if !second.Registration.CreatedAt.Equal(first.Registration.CreatedAt) {
		t.Error("re-registration changed created_at")
	}
	if !second.Registration.UpdatedAt.After(first.Registration.UpdatedAt) {
		t.Error("re-registration did not advance updated_at")
	}
	if second.Registration.Note != "deuxième" {
		t.Errorf("note = %q, want the latest note", second.Registration.Note)
	}

	active, _ := store.ListActiveByEvent(ctx, event.ID)
	if len(active) != 1 {
		t.Fatalf("active registrations = %d, want 1", len(active))
	}
	if active[0].Scope.Kind != models.ScopeCustom {
		t.Error("stored scope was not replaced by the latest request")
	}
}

func TestRegister_ScopeValidation(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	ledger := newTestLedger(store, nil, nil)
	event := testEvent(5, 0)
	event.OccurrenceSelectionMode = models.SelectionChoose
	ctx := context.Background()

	cases := []struct {
		name    string
		scope   models.OccurrenceScope
		wantErr bool
	}{
		{"all", models.AllScope(), false},
		{"valid timestamps", models.CustomScope([]int64{ts1, ts2}), false},
		{"unknown timestamp", models.CustomScope([]int64{ts1, 12345}), true},
		{"empty custom", models.CustomScope(nil), true},
		{"unknown kind", models.OccurrenceScope{Kind: "weird"}, true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := ledger.Register(ctx, event, testMember("m"), tc.scope, "")
			if tc.wantErr && !errors.Is(err, ErrInvalidScope) {
				t.Fatalf("err = %v, want ErrInvalidScope", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRegister_DeadlinePassed(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	ledger := newTestLedger(store, nil, nil)
	event := testEvent(5, 0)
	deadline := time.Date(2030, 4, 1, 0, 0, 0, 0, time.UTC)
	event.RegistrationDeadline = &deadline

	_, err := ledger.Register(context.Background(), event, testMember("late"), models.AllScope(), "")
	if !errors.Is(err, ErrDeadlinePassed) {
		t.Fatalf("err = %v, want ErrDeadlinePassed", err)
	}
}

func TestRegister_PendingWhenValidationRequired(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	notifier := &captureNotifier{}
	staffID := uuid.New()
	ledger := newTestLedger(store, notifier, fixedStaff{ids: []uuid.UUID{staffID}})
	event := testEvent(5, 0)
	event.RequiresValidation = true
	member := testMember("bob")
	ctx := context.Background()

	res, err := ledger.Register(ctx, event, member, models.AllScope(), "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != models.StatusPending {
		t.Fatalf("status = %s, want pending", res.Status)
	}
	if got := notifier.countType(models.NotifRegistrationPending); got != 2 {
		// One to the member, one to staff.
		t.Errorf("pending notifications = %d, want 2", got)
	}

	reg, err := ledger.Validate(ctx, event, member.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reg.Status != models.StatusConfirmed {
		t.Fatalf("after validation status = %s, want confirmed", reg.Status)
	}
}

func TestValidate_WaitlistsWhenFull(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	ledger := newTestLedger(store, nil, nil)
	event := testEvent(1, 2)
	event.RequiresValidation = true
	ctx := context.Background()

	first := testMember("first")
	if _, err := ledger.Register(ctx, event, first, models.AllScope(), ""); err != nil {
		t.Fatal(err)
	}
	if _, err := ledger.Validate(ctx, event, first.ID); err != nil {
		t.Fatal(err)
	}

	// The single slot is confirmed; a later pending registration is already
	// waitlisted at registration time since pending counts toward capacity.
	second := testMember("second")
	res, err := ledger.Register(ctx, event, second, models.AllScope(), "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != models.StatusWaitlisted {
		t.Fatalf("status = %s, want waitlisted", res.Status)
	}
}

func TestCancel_PromotesEarliestWaitlisted(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	notifier := &captureNotifier{}
	ledger := newTestLedger(store, notifier, nil)
	event := testEvent(1, 2)
	ctx := context.Background()

	holder := testMember("holder")
	w1 := testMember("wait1")
	w2 := testMember("wait2")
	for _, m := range []*models.Member{holder, w1, w2} {
		if _, err := ledger.Register(ctx, event, m, models.AllScope(), ""); err != nil {
			t.Fatal(err)
		}
	}

	if err := ledger.Cancel(ctx, event, holder.ID); err != nil {
		t.Fatal(err)
	}

	r1, _ := store.GetActiveByEventAndMember(ctx, event.ID, w1.ID)
	r2, _ := store.GetActiveByEventAndMember(ctx, event.ID, w2.ID)
	if r1.Status != models.StatusConfirmed {
		t.Errorf("first waitlisted: status = %s, want confirmed", r1.Status)
	}
	if r2.Status != models.StatusWaitlisted {
		t.Errorf("second waitlisted: status = %s, want still waitlisted", r2.Status)
	}

	if got := notifier.countType(models.NotifWaitlistPromoted); got != 1 {
		t.Fatalf("promotion notifications = %d, want 1", got)
	}
	if to := notifier.sent[len(notifier.sent)-1].to; len(to) != 1 || to[0] != w1.ID {
		t.Error("promotion notification did not go to the promoted member")
	}
}

func TestCancel_NotRegistered(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	ledger := newTestLedger(store, nil, nil)
	event := testEvent(5, 0)

	err := ledger.Cancel(context.Background(), event, uuid.New())
	if !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("err = %v, want ErrNotRegistered", err)
	}
}

func TestCancel_WaitlistedFreesNoSlot(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	notifier := &captureNotifier{}
	ledger := newTestLedger(store, notifier, nil)
	event := testEvent(1, 2)
	ctx := context.Background()

	holder := testMember("holder")
	w1 := testMember("wait1")
	w2 := testMember("wait2")
	for _, m := range []*models.Member{holder, w1, w2} {
		if _, err := ledger.Register(ctx, event, m, models.AllScope(), ""); err != nil {
			t.Fatal(err)
		}
	}

	if err := ledger.Cancel(ctx, event, w1.ID); err != nil {
		t.Fatal(err)
	}
	r2, _ := store.GetActiveByEventAndMember(ctx, event.ID, w2.ID)
	if r2.Status != models.StatusWaitlisted {
		t.Errorf("status = %s, cancelling a waitlisted member must not promote", r2.Status)
	}
	if got := notifier.countType(models.NotifWaitlistPromoted); got != 0 {
		t.Errorf("promotion notifications = %d, want 0", got)
	}
}

func TestRegister_ThresholdNotifiedOnce(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	notifier := &captureNotifier{}
	ledger := newTestLedger(store, notifier, fixedStaff{ids: []uuid.UUID{uuid.New()}})
	event := testEvent(5, 0)
	event.CapacityNotifyThreshold = 2
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := ledger.Register(ctx, event, testMember("m"), models.AllScope(), ""); err != nil {
			t.Fatal(err)
		}
	}
	if got := notifier.countType(models.NotifCapacityThreshold); got != 1 {
		t.Fatalf("threshold notifications = %d, want exactly 1", got)
	}
}

func TestRegister_DisjointCustomScopesShareNoCapacity(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	ledger := newTestLedger(store, nil, nil)
	event := testEvent(1, 0)
	event.OccurrenceSelectionMode = models.SelectionChoose
	ctx := context.Background()

	if _, err := ledger.Register(ctx, event, testMember("a"), models.CustomScope([]int64{ts1}), ""); err != nil {
		t.Fatal(err)
	}
	// Different occurrence, same single slot: no overlap, so it fits.
	res, err := ledger.Register(ctx, event, testMember("b"), models.CustomScope([]int64{ts2}), "")
	if err != nil {
		t.Fatalf("disjoint scope rejected: %v", err)
	}
	if res.Status != models.StatusConfirmed {
		t.Fatalf("status = %s, want confirmed", res.Status)
	}
	// Same occurrence as the first: full, no waitlist.
	if _, err := ledger.Register(ctx, event, testMember("c"), models.CustomScope([]int64{ts1}), ""); !errors.Is(err, ErrEventFull) {
		t.Fatalf("err = %v, want ErrEventFull", err)
	}
}

func TestRegister_RetriesOnceOnConflict(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	store.failInserts = 1
	ledger := newTestLedger(store, nil, nil)
	event := testEvent(5, 0)

	res, err := ledger.Register(context.Background(), event, testMember("racy"), models.AllScope(), "")
	if err != nil {
		t.Fatalf("register after one conflict: %v", err)
	}
	if res.Status != models.StatusConfirmed {
		t.Fatalf("status = %s, want confirmed", res.Status)
	}
}

func TestRegister_SecondConflictSurfaces(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	store.failInserts = 2
	ledger := newTestLedger(store, nil, nil)
	event := testEvent(5, 0)

	_, err := ledger.Register(context.Background(), event, testMember("racy"), models.AllScope(), "")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict after exhausting the retry", err)
	}
}

func TestSnapshot_EventLevelAndPerOccurrence(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	ledger := newTestLedger(store, nil, nil)
	event := testEvent(10, 0)
	event.OccurrenceSelectionMode = models.SelectionChoose
	ctx := context.Background()

	if _, err := ledger.Register(ctx, event, testMember("a"), models.CustomScope([]int64{ts1}), ""); err != nil {
		t.Fatal(err)
	}
	if _, err := ledger.Register(ctx, event, testMember("b"), models.CustomScope([]int64{ts1, ts2}), ""); err != nil {
		t.Fatal(err)
	}
	if _, err := ledger.Register(ctx, event, testMember("c"), models.AllScope(), ""); err != nil {
		t.Fatal(err)
	}

	whole, err := ledger.Snapshot(ctx, event, nil)
	if err != nil {
		t.Fatal(err)
	}
	if whole.ConfirmedCount != 3 {
		t.Errorf("event-level confirmed = %d, want 3", whole.ConfirmedCount)
	}
	if whole.AvailableCount != 7 {
		t.Errorf("event-level available = %d, want 7", whole.AvailableCount)
	}

	first, err := ledger.Snapshot(ctx, event, &ts1)
	if err != nil {
		t.Fatal(err)
	}
	if first.ConfirmedCount != 3 {
		t.Errorf("occurrence 1 confirmed = %d, want 3", first.ConfirmedCount)
	}
	second, err := ledger.Snapshot(ctx, event, &ts2)
	if err != nil {
		t.Fatal(err)
	}
	// Only b (both dates) and c (all) cover the second occurrence.
	if second.ConfirmedCount != 2 {
		t.Errorf("occurrence 2 confirmed = %d, want 2", second.ConfirmedCount)
	}
}

func TestOccurrenceFill_MatchesSnapshots(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	ledger := newTestLedger(store, nil, nil)
	event := testEvent(3, 0)
	event.OccurrenceSelectionMode = models.SelectionChoose
	ctx := context.Background()

	if _, err := ledger.Register(ctx, event, testMember("a"), models.CustomScope([]int64{ts1}), ""); err != nil {
		t.Fatal(err)
	}

	model, err := schedule.Decode(event.Schedule)
	if err != nil {
		t.Fatal(err)
	}
	occs := schedule.Generate(model, schedule.Window{}, time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC))
	fill, err := ledger.OccurrenceFill(ctx, event, occs)
	if err != nil {
		t.Fatal(err)
	}
	if len(fill) != 2 {
		t.Fatalf("fill entries = %d, want 2", len(fill))
	}
	if fill[ts1].ConfirmedCount != 1 || fill[ts2].ConfirmedCount != 0 {
		t.Errorf("fill = %+v, want 1 confirmed on the first occurrence only", fill)
	}
}
