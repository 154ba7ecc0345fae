package booking

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "github.com/postopcare/clinic-scheduling/internal/redis"
	"github.com/postopcare/clinic-scheduling/internal/schedule"
)

// memRepo is an in-memory Repository whose Insert enforces the same
// no-overlap rule as the storage exclusion constraint, so races that
// slip past the service checks still fail the way production does.
type memRepo struct {
	mu     sync.Mutex
	appts  map[uuid.UUID]*Appointment
	events []EventLog
}

func newMemRepo() *memRepo {
	return &memRepo{appts: map[uuid.UUID]*Appointment{}}
}

func (r *memRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok || a.DeletedAt != nil {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memRepo) FindForDay(_ context.Context, clinicID uuid.UUID, day time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, a := range r.appts {
		if a.ClinicID == clinicID && a.Day.Equal(day) && a.Blocking() {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

func (r *memRepo) CountForDay(ctx context.Context, clinicID uuid.UUID, day time.Time) (int, error) {
	appts, err := r.FindForDay(ctx, clinicID, day)
	return len(appts), err
}

func (r *memRepo) Insert(_ context.Context, a *Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start, end := a.Interval(30)
	for _, other := range r.appts {
		if other.ClinicID != a.ClinicID || !other.Day.Equal(a.Day) || !other.Blocking() {
			continue
		}
		os, oe := other.Interval(30)
		if start < oe && end > os {
			return nil, ErrSlotTaken
		}
	}

	cp := *a
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.appts[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (r *memRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, a := range r.appts {
		if a.PatientID == patientID && a.DeletedAt == nil {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.After(out[j].Day) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) FindStalePending(_ context.Context, before time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, a := range r.appts {
		if a.Status == StatusPending && a.DeletedAt == nil && a.Day.Before(before) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *memRepo) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *memRepo) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.EventType)
	}
	return out
}

type memPatients struct {
	clinicByPatient map[uuid.UUID]uuid.UUID
}

func (p *memPatients) BelongsToClinic(_ context.Context, patientID, clinicID uuid.UUID) (bool, error) {
	owner, ok := p.clinicByPatient[patientID]
	if !ok {
		return false, ErrPatientNotFound
	}
	return owner == clinicID, nil
}

// memLocker serializes critical sections per lock key the way the Redis
// day lock does, minus the network.
type memLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newMemLocker() *memLocker {
	return &memLocker{locks: map[string]*sync.Mutex{}}
}

func (l *memLocker) WithDayLock(ctx context.Context, clinicID uuid.UUID, day time.Time, fn func(ctx context.Context) error) error {
	key := clinicID.String() + "|" + day.Format("2006-01-02")
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()
	return fn(ctx)
}

type memScheduleSource struct {
	rows map[string]*schedule.WeeklySchedule
}

func (s *memScheduleSource) FindSchedule(_ context.Context, _ uuid.UUID, _ time.Weekday, spec schedule.Specialization) (*schedule.WeeklySchedule, error) {
	ws, ok := s.rows[spec.Key()]
	if !ok {
		return nil, schedule.ErrScheduleNotFound
	}
	return ws, nil
}

type memBlockSource struct {
	global map[string]bool
	byKind map[string]bool
}

func (b *memBlockSource) GlobalBlockExists(_ context.Context, clinicID uuid.UUID, day time.Time) (bool, error) {
	return b.global[clinicID.String()+"|"+day.Format("2006-01-02")], nil
}

func (b *memBlockSource) KindBlockExists(_ context.Context, clinicID uuid.UUID, kind schedule.AppointmentKind, day time.Time) (bool, error) {
	return b.byKind[clinicID.String()+"|"+string(kind)+"|"+day.Format("2006-01-02")], nil
}

type fixture struct {
	svc      *Service
	repo     *memRepo
	clinicID uuid.UUID
	patient  uuid.UUID
	blocks   *memBlockSource
	sched    *memScheduleSource
	today    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clinicID := uuid.New()
	patientID := uuid.New()
	today := schedule.Day(time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)) // a Monday

	cap := 3
	sched := &memScheduleSource{rows: map[string]*schedule.WeeklySchedule{
		schedule.General().Key(): {
			ID:              uuid.New(),
			ClinicID:        clinicID,
			OpenMinute:      9 * 60,
			CloseMinute:     12 * 60,
			SlotMinutes:     30,
			MaxAppointments: &cap,
			Active:          true,
		},
	}}
	blocks := &memBlockSource{global: map[string]bool{}, byKind: map[string]bool{}}
	repo := newMemRepo()

	svc := NewService(
		repo,
		&memPatients{clinicByPatient: map[uuid.UUID]uuid.UUID{patientID: clinicID}},
		schedule.NewResolver(sched),
		schedule.NewBlockedDateRegistry(blocks),
		newMemLocker(),
		nil,
		zerolog.Nop(),
	)
	svc.now = func() time.Time { return today.Add(10 * time.Hour) }

	return &fixture{
		svc:      svc,
		repo:     repo,
		clinicID: clinicID,
		patient:  patientID,
		blocks:   blocks,
		sched:    sched,
		today:    today,
	}
}

func (f *fixture) request() CreateRequest {
	return CreateRequest{
		ClinicID:  f.clinicID,
		PatientID: f.patient,
		Date:      f.today,
		Start:     10 * 60,
		Kind:      schedule.KindFollowUp,
	}
}

func TestCreateBacksFillsDuration(t *testing.T) {
	f := newFixture(t)

	appt, err := f.svc.Create(context.Background(), f.request())
	require.NoError(t, err)

	require.NotNil(t, appt.DurationMinutes)
	assert.Equal(t, 30, *appt.DurationMinutes)
	assert.Equal(t, StatusPending, appt.Status)
	assert.Equal(t, f.today, appt.Day)
	assert.Equal(t, []string{EventAppointmentRequested}, f.repo.eventTypes())
}

func TestCreateKeepsRequestedDuration(t *testing.T) {
	f := newFixture(t)

	req := f.request()
	req.DurationMinutes = 60
	appt, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 60, *appt.DurationMinutes)
}

func TestCreateRejections(t *testing.T) {
	tests := []struct {
		name    string
		prep    func(f *fixture)
		mutate  func(f *fixture, req *CreateRequest)
		wantErr error
	}{
		{
			name:    "unknown kind",
			mutate:  func(_ *fixture, req *CreateRequest) { req.Kind = "surgery" },
			wantErr: ErrInvalidKind,
		},
		{
			name:    "foreign patient",
			mutate:  func(_ *fixture, req *CreateRequest) { req.ClinicID = uuid.New() },
			wantErr: ErrPatientClinicMismatch,
		},
		{
			name:    "date in the past",
			mutate:  func(f *fixture, req *CreateRequest) { req.Date = f.today.AddDate(0, 0, -1) },
			wantErr: ErrDateInPast,
		},
		{
			name: "blocked date",
			prep: func(f *fixture) {
				f.blocks.global[f.clinicID.String()+"|"+f.today.Format("2006-01-02")] = true
			},
			wantErr: ErrDateBlocked,
		},
		{
			name: "clinic not operating",
			prep: func(f *fixture) {
				delete(f.sched.rows, schedule.General().Key())
			},
			wantErr: schedule.ErrNotOperating,
		},
		{
			name:    "start before open",
			mutate:  func(_ *fixture, req *CreateRequest) { req.Start = 8 * 60 },
			wantErr: ErrOutsideHours,
		},
		{
			name:    "start at close",
			mutate:  func(_ *fixture, req *CreateRequest) { req.Start = 12 * 60 },
			wantErr: ErrOutsideHours,
		},
		{
			name: "end past close",
			mutate: func(_ *fixture, req *CreateRequest) {
				req.Start = 11*60 + 30
				req.DurationMinutes = 60
			},
			wantErr: ErrOutsideHours,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.prep != nil {
				tt.prep(f)
			}
			req := f.request()
			if tt.mutate != nil {
				tt.mutate(f, &req)
			}

			_, err := f.svc.Create(context.Background(), req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.repo.eventTypes())
		})
	}
}

func TestCreateConflictingSlot(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), f.request())
	require.NoError(t, err)

	// Same slot again.
	_, err = f.svc.Create(context.Background(), f.request())
	assert.ErrorIs(t, err, ErrSlotTaken)

	// Overlapping but offset.
	req := f.request()
	req.Start = 10*60 + 15
	_, err = f.svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, ErrSlotTaken)

	// Adjacent slot is fine.
	req = f.request()
	req.Start = 10*60 + 30
	_, err = f.svc.Create(context.Background(), req)
	assert.NoError(t, err)
}

func TestCreateDayFull(t *testing.T) {
	f := newFixture(t)

	for i, start := range []schedule.MinuteOfDay{9 * 60, 9*60 + 30, 10 * 60} {
		req := f.request()
		req.Start = start
		_, err := f.svc.Create(context.Background(), req)
		require.NoError(t, err, "booking %d", i)
	}

	req := f.request()
	req.Start = 11 * 60
	_, err := f.svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, ErrDayFull)
}

func TestCreateCancelledSlotIsReusable(t *testing.T) {
	f := newFixture(t)

	appt, err := f.svc.Create(context.Background(), f.request())
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), appt.ID)
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), f.request())
	assert.NoError(t, err)
}

func TestCreateConcurrentSameSlot(t *testing.T) {
	f := newFixture(t)

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Create(context.Background(), f.request())
		}(i)
	}
	wg.Wait()

	booked := 0
	for _, err := range errs {
		if err == nil {
			booked++
			continue
		}
		assert.ErrorIs(t, err, ErrSlotTaken)
	}
	assert.Equal(t, 1, booked, "exactly one writer may win the slot")

	appts, err := f.repo.FindForDay(context.Background(), f.clinicID, f.today)
	require.NoError(t, err)
	assert.Len(t, appts, 1)
}

func TestLifecycleTransitions(t *testing.T) {
	f := newFixture(t)

	appt, err := f.svc.Create(context.Background(), f.request())
	require.NoError(t, err)

	confirmed, err := f.svc.Approve(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)

	// Confirmed appointments cannot be approved again.
	_, err = f.svc.Approve(context.Background(), appt.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	done, err := f.svc.Complete(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)

	// Completed is terminal.
	_, err = f.svc.Cancel(context.Background(), appt.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	assert.Equal(t, []string{
		EventAppointmentRequested,
		EventAppointmentConfirmed,
		EventAppointmentCompleted,
	}, f.repo.eventTypes())
}

func TestCompleteRequiresConfirmed(t *testing.T) {
	f := newFixture(t)

	appt, err := f.svc.Create(context.Background(), f.request())
	require.NoError(t, err)

	_, err = f.svc.Complete(context.Background(), appt.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionUnknownAppointment(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Approve(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestCancelStalePending(t *testing.T) {
	f := newFixture(t)

	appt, err := f.svc.Create(context.Background(), f.request())
	require.NoError(t, err)

	confirmedOld, err := f.svc.Create(context.Background(), func() CreateRequest {
		req := f.request()
		req.Start = 9 * 60
		return req
	}())
	require.NoError(t, err)
	_, err = f.svc.Approve(context.Background(), confirmedOld.ID)
	require.NoError(t, err)

	// The clock moves two days past the booked date.
	f.svc.now = func() time.Time { return f.today.AddDate(0, 0, 2) }

	n, err := f.svc.CancelStalePending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.svc.Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)

	// Confirmed appointments are staff-managed and left alone.
	got, err = f.svc.Get(context.Background(), confirmedOld.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)
}

func TestContendedDayMapsToRetryableError(t *testing.T) {
	f := newFixture(t)

	held := &heldLocker{}
	f.svc.locker = held

	_, err := f.svc.Create(context.Background(), f.request())
	assert.ErrorIs(t, err, ErrDayContended)
}

// heldLocker simulates another process holding the day lock.
type heldLocker struct{}

func (heldLocker) WithDayLock(context.Context, uuid.UUID, time.Time, func(ctx context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}
