package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kkayomi/class-reservation/internal/model"
	"github.com/kkayomi/class-reservation/internal/queue"
	"github.com/kkayomi/class-reservation/internal/repository"
)

// memReservations is an in-memory ReservationStore carrying just enough
// of the repository's transition rules to drive the services.
type memReservations struct {
	mu        sync.Mutex
	byID      map[uint64]*model.Reservation
	nextID    uint64
	cascade   int64
	createErr error

	clearedRows []uint32
}

func newMemReservations() *memReservations {
	return &memReservations{byID: map[uint64]*model.Reservation{}}
}

func (m *memReservations) seed(r model.Reservation) *model.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == 0 {
		m.nextID++
		r.ID = m.nextID
	} else if r.ID > m.nextID {
		m.nextID = r.ID
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	m.byID[r.ID] = &r
	return &r
}

func (m *memReservations) Create(ctx context.Context, res *model.Reservation) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	res.ID = m.nextID
	res.Status = model.StatusPending
	res.CreatedAt = time.Now().UTC()
	stored := *res
	m.byID[res.ID] = &stored
	return nil
}

func (m *memReservations) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return res, nil
}

func (m *memReservations) GetByChangeToken(ctx context.Context, token string) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, res := range m.byID {
		if res.ChangeToken == token {
			return res, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memReservations) ListByUser(ctx context.Context, userID uint64) ([]*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Reservation
	for _, res := range m.byID {
		if res.UserID != nil && *res.UserID == userID {
			out = append(out, res)
		}
	}
	return out, nil
}

func (m *memReservations) List(ctx context.Context, status model.ReservationStatus) ([]*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Reservation
	for _, res := range m.byID {
		if status == "" || res.Status == status {
			out = append(out, res)
		}
	}
	return out, nil
}

func (m *memReservations) Confirm(ctx context.Context, id uint64) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if res.Status != model.StatusPending {
		return nil, &model.TransitionError{From: res.Status, To: model.StatusConfirmed}
	}
	now := time.Now().UTC()
	res.Status = model.StatusConfirmed
	res.ConfirmedAt = &now
	return res, nil
}

func (m *memReservations) Reject(ctx context.Context, id uint64, reason string) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if res.Status != model.StatusPending {
		return nil, &model.TransitionError{From: res.Status, To: model.StatusRejected}
	}
	now := time.Now().UTC()
	res.Status = model.StatusRejected
	res.RejectReason = &reason
	res.RejectedAt = &now
	return res, nil
}

func (m *memReservations) Cancel(ctx context.Context, id uint64) (*model.Reservation, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.byID[id]
	if !ok {
		return nil, 0, repository.ErrNotFound
	}
	if res.Status != model.StatusPending && res.Status != model.StatusConfirmed {
		return nil, 0, &model.TransitionError{From: res.Status, To: model.StatusCancelled}
	}
	now := time.Now().UTC()
	res.Status = model.StatusCancelled
	res.RejectReason = nil
	res.CancelledAt = &now
	return res, m.cascade, nil
}

func (m *memReservations) SetCancelRequest(ctx context.Context, id uint64, reason string) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if res.Status != model.StatusConfirmed {
		return nil, repository.ErrValidation
	}
	res.CancelReason = &reason
	res.RejectReason = nil
	return res, nil
}

func (m *memReservations) RejectCancelRequest(ctx context.Context, id uint64, reason string) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if res.Status != model.StatusConfirmed || res.CancelReason == nil {
		return nil, repository.ErrValidation
	}
	res.CancelReason = nil
	res.RejectReason = &reason
	return res, nil
}

func (m *memReservations) UpdateAdminMemo(ctx context.Context, id uint64, memo *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	res.AdminMemo = memo
	return nil
}

func (m *memReservations) SetCalendarEvent(ctx context.Context, id uint64, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	res.CalendarEventID = &eventID
	return nil
}

func (m *memReservations) SetSheetRow(ctx context.Context, id uint64, row uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	res.SheetRow = &row
	return nil
}

func (m *memReservations) ClearSheetRow(ctx context.Context, id uint64, row uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	res.SheetRow = nil
	m.clearedRows = append(m.clearedRows, row)
	return nil
}

// memChanges is an in-memory ChangeRequestStore. Approve migrates the
// linked reservation through the shared memReservations, mirroring the
// repository's single-transaction behaviour.
type memChanges struct {
	mu           sync.Mutex
	byID         map[uint64]*model.ChangeRequest
	nextID       uint64
	reservations *memReservations
	createErr    error
}

func newMemChanges(reservations *memReservations) *memChanges {
	return &memChanges{byID: map[uint64]*model.ChangeRequest{}, reservations: reservations}
}

func (m *memChanges) seed(cr model.ChangeRequest) *model.ChangeRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cr.ID == 0 {
		m.nextID++
		cr.ID = m.nextID
	} else if cr.ID > m.nextID {
		m.nextID = cr.ID
	}
	m.byID[cr.ID] = &cr
	return &cr
}

func (m *memChanges) Create(ctx context.Context, cr *model.ChangeRequest) error {
	if m.createErr != nil {
		return m.createErr
	}
	res, err := m.reservations.GetByID(ctx, cr.ReservationID)
	if err != nil {
		return err
	}
	if res.Status != model.StatusConfirmed {
		return &model.TransitionError{From: res.Status, To: model.StatusConfirmed}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.byID {
		if other.ReservationID == cr.ReservationID && other.Status == model.ChangePending {
			return repository.ErrDuplicatePending
		}
	}
	m.nextID++
	cr.ID = m.nextID
	cr.Status = model.ChangePending
	date, tm := res.DesiredDate, res.DesiredTime
	cr.OriginalDate = &date
	cr.OriginalTime = &tm
	cr.CreatedAt = time.Now().UTC()
	stored := *cr
	m.byID[cr.ID] = &stored
	return nil
}

func (m *memChanges) GetByID(ctx context.Context, id uint64) (*model.ChangeRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cr, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cr, nil
}

func (m *memChanges) List(ctx context.Context, status model.ChangeRequestStatus) ([]*model.ChangeRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ChangeRequest
	for _, cr := range m.byID {
		if status == "" || cr.Status == status {
			out = append(out, cr)
		}
	}
	return out, nil
}

func (m *memChanges) ListByReservation(ctx context.Context, reservationID uint64) ([]*model.ChangeRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ChangeRequest
	for _, cr := range m.byID {
		if cr.ReservationID == reservationID {
			out = append(out, cr)
		}
	}
	return out, nil
}

func (m *memChanges) Approve(ctx context.Context, id uint64) (*model.ChangeRequest, *model.Reservation, error) {
	m.mu.Lock()
	cr, ok := m.byID[id]
	if !ok {
		m.mu.Unlock()
		return nil, nil, repository.ErrNotFound
	}
	if cr.Status != model.ChangePending {
		m.mu.Unlock()
		return nil, nil, repository.ErrAlreadyProcessed
	}
	m.mu.Unlock()

	res, err := m.reservations.GetByID(ctx, cr.ReservationID)
	if err != nil {
		return nil, nil, err
	}
	if res.Status != model.StatusConfirmed {
		return nil, nil, &model.TransitionError{From: res.Status, To: model.StatusConfirmed}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	res.DesiredDate = cr.RequestedDate
	res.DesiredTime = cr.RequestedTime
	if cr.ScheduleID != nil {
		res.ScheduleID = cr.ScheduleID
	}
	now := time.Now().UTC()
	cr.Status = model.ChangeApproved
	cr.ProcessedAt = &now
	return cr, res, nil
}

func (m *memChanges) Reject(ctx context.Context, id uint64, reason string) (*model.ChangeRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cr, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if cr.Status != model.ChangePending {
		return nil, repository.ErrAlreadyProcessed
	}
	now := time.Now().UTC()
	cr.Status = model.ChangeRejected
	cr.RejectReason = &reason
	cr.ProcessedAt = &now
	return cr, nil
}

// stubClasses is a map-backed ClassStore.
type stubClasses struct {
	byID map[uint64]model.Class
}

func (s *stubClasses) GetByID(ctx context.Context, id uint64) (model.Class, error) {
	cls, ok := s.byID[id]
	if !ok {
		return model.Class{}, repository.ErrNotFound
	}
	return cls, nil
}

// stubSchedules is a map-backed ScheduleStore.
type stubSchedules struct {
	byID        map[uint64]model.Schedule
	capacityErr error
}

func (s *stubSchedules) GetByID(ctx context.Context, id uint64) (model.Schedule, error) {
	sched, ok := s.byID[id]
	if !ok {
		return model.Schedule{}, repository.ErrNotFound
	}
	return sched, nil
}

func (s *stubSchedules) CheckCapacity(ctx context.Context, scheduleID uint64, numPeople uint32) error {
	return s.capacityErr
}

// recordNotifier captures notification requests. Services send in a
// goroutine, so readers must go through requests().
type recordNotifier struct {
	mu   sync.Mutex
	reqs []model.NotificationRequest
}

func (n *recordNotifier) Send(ctx context.Context, req model.NotificationRequest) model.NotificationResult {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reqs = append(n.reqs, req)
	return model.NotificationResult{Success: true, Channel: model.ChannelKakao}
}

func (n *recordNotifier) requests() []model.NotificationRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]model.NotificationRequest, len(n.reqs))
	copy(out, n.reqs)
	return out
}

// await blocks until the background send goroutines have produced at
// least want requests, then returns a snapshot.
func (n *recordNotifier) await(t *testing.T, want int) []model.NotificationRequest {
	t.Helper()
	require.Eventually(t, func() bool {
		n.mu.Lock()
		defer n.mu.Unlock()
		return len(n.reqs) >= want
	}, time.Second, 5*time.Millisecond)
	return n.requests()
}

// recordCalendar records mirror calls and fails on demand.
type recordCalendar struct {
	created   []model.CalendarEvent
	updated   map[string]model.CalendarEvent
	deleted   []string
	createErr error
	updateErr error
	deleteErr error
}

func (c *recordCalendar) CreateEvent(ctx context.Context, ev model.CalendarEvent) (string, error) {
	if c.createErr != nil {
		return "", c.createErr
	}
	c.created = append(c.created, ev)
	return "evt-1", nil
}

func (c *recordCalendar) UpdateEvent(ctx context.Context, eventID string, ev model.CalendarEvent) error {
	if c.updateErr != nil {
		return c.updateErr
	}
	if c.updated == nil {
		c.updated = map[string]model.CalendarEvent{}
	}
	c.updated[eventID] = ev
	return nil
}

func (c *recordCalendar) DeleteEvent(ctx context.Context, eventID string) error {
	if c.deleteErr != nil {
		return c.deleteErr
	}
	c.deleted = append(c.deleted, eventID)
	return nil
}

// recordSheets records ledger calls and fails on demand.
type recordSheets struct {
	nextRow   uint32
	appended  []model.SheetRow
	updated   map[uint32]model.SheetRow
	deleted   []uint32
	appendErr error
	updateErr error
	deleteErr error
}

func (s *recordSheets) AppendRow(ctx context.Context, row model.SheetRow) (uint32, error) {
	if s.appendErr != nil {
		return 0, s.appendErr
	}
	s.appended = append(s.appended, row)
	if s.nextRow == 0 {
		s.nextRow = 2
	}
	return s.nextRow, nil
}

func (s *recordSheets) UpdateRow(ctx context.Context, rowNum uint32, row model.SheetRow) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	if s.updated == nil {
		s.updated = map[uint32]model.SheetRow{}
	}
	s.updated[rowNum] = row
	return nil
}

func (s *recordSheets) DeleteRow(ctx context.Context, rowNum uint32) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, rowNum)
	return nil
}

// recordPublisher collects broker events instead of dialing AMQP.
type recordPublisher struct {
	mu     sync.Mutex
	events []queue.ChangeEvent
	err    error
}

func (p *recordPublisher) PublishChange(ctx context.Context, ev queue.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordPublisher) changeTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.ChangeType)
	}
	return out
}

// fixture bundles the fakes behind one ReservationService and one
// ChangeRequestService sharing the same stores.
type fixture struct {
	reservations *memReservations
	changes      *memChanges
	classes      *stubClasses
	schedules    *stubSchedules
	notifier     *recordNotifier
	calendar     *recordCalendar
	sheets       *recordSheets
	publisher    *recordPublisher

	svc       *ReservationService
	changeSvc *ChangeRequestService
}

func newFixture() *fixture {
	f := &fixture{
		reservations: newMemReservations(),
		classes:      &stubClasses{byID: map[uint64]model.Class{}},
		schedules:    &stubSchedules{byID: map[uint64]model.Schedule{}},
		notifier:     &recordNotifier{},
		calendar:     &recordCalendar{},
		sheets:       &recordSheets{},
		publisher:    &recordPublisher{},
	}
	f.changes = newMemChanges(f.reservations)
	f.svc = NewReservationService(
		f.reservations, f.classes, f.schedules, f.notifier, f.calendar, f.sheets, f.publisher,
	)
	f.changeSvc = NewChangeRequestService(
		f.changes, f.reservations, f.classes, f.schedules, f.notifier, f.calendar, f.sheets, f.publisher,
	)
	return f
}
