package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"Gin_postgres_redis_borrow_return/models"
	"Gin_postgres_redis_borrow_return/notify"
)

const (
	unknownRequester = "Unknown"
	systemActor      = "System"
)

// Actor is the authenticated identity handed in by the caller. It is trusted as is.
type Actor struct {
	ID    string
	Name  string
	Email string
}

type CreateRequest struct {
	Actor              Actor
	BorrowType         string
	Items              []models.BorrowItem
	BorrowDate         string // DD/MM/YYYY
	BorrowTime         string // HH:MM
	ExpectedReturnDate string
	ExpectedReturnTime string // optional, end of day when empty
	Condition          string
	Notes              string
	UserName           string
	UserIDNumber       string
}

type ReturnRequest struct {
	ID                string
	ReturnDate        string
	ReturnTime        string
	ConditionOnReturn string
	Damages           string
	Actor             *Actor
	ActorName         string
	Notes             string
}

type NotifyResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type Service struct {
	store    Store
	notifier notify.Notifier
	log      *slog.Logger
	loc      *time.Location
	now      func() time.Time
	newID    func(time.Time) string
	retry    []RetryOption
	tracer   trace.Tracer
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.log = l } }

// WithLocation sets the zone display dates are parsed and rendered in.
func WithLocation(loc *time.Location) Option { return func(s *Service) { s.loc = loc } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithIDGenerator(gen func(time.Time) string) Option { return func(s *Service) { s.newID = gen } }

func WithRetry(opts ...RetryOption) Option {
	return func(s *Service) { s.retry = append(s.retry, opts...) }
}

// New builds a Service. A nil notifier falls back to logging events.
func New(store Store, notifier notify.Notifier, opts ...Option) *Service {
	s := &Service{
		store:    store,
		notifier: notifier,
		log:      slog.Default(),
		now:      time.Now,
		newID:    NewTransactionID,
		tracer:   otel.Tracer("Gin_postgres_redis_borrow_return/lifecycle"),
	}
	for _, o := range opts {
		o(s)
	}
	if s.loc == nil {
		if loc, err := time.LoadLocation("Asia/Bangkok"); err == nil {
			s.loc = loc
		} else {
			s.loc = time.UTC
		}
	}
	if s.notifier == nil {
		s.notifier = notify.NewLogNotifier(s.log)
	}
	return s
}

func (s *Service) Location() *time.Location { return s.loc }

// NewTransactionID returns borrow-<unix ms>-<9 hex chars>.
func NewTransactionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("borrow-%d-%s", now.UnixMilli(), suffix)
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.BorrowTransaction, error) {
	ctx, span := s.tracer.Start(ctx, "lifecycle.Create")
	defer span.End()

	t, err := s.newTransaction(req)
	if err != nil {
		return nil, s.fail(span, err)
	}
	if err := s.resolveItems(ctx, t.EquipmentItems); err != nil {
		return nil, s.fail(span, err)
	}
	span.SetAttributes(attribute.String("borrow.id", t.ID))

	entry := &models.TransitionLog{
		TransactionID: t.ID,
		Action:        string(ActionCreate),
		ToStatus:      t.Status,
		ActorID:       req.Actor.ID,
		ActorName:     t.UserName,
		ActorEmail:    req.Actor.Email,
		CreatedAt:     t.CreatedAt,
	}
	if err := s.store.CreateTransaction(ctx, t, entry); err != nil {
		return nil, s.fail(span, fmt.Errorf("create borrow transaction: %w", err))
	}
	s.log.InfoContext(ctx, "[borrow] created", "borrowId", t.ID, "userId", t.UserID, "items", len(t.EquipmentItems))
	return t, nil
}

func (s *Service) newTransaction(req CreateRequest) (*models.BorrowTransaction, error) {
	bt, err := ParseBorrowType(req.BorrowType)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Actor.ID) == "" {
		return nil, fmt.Errorf("%w: requester is required", ErrValidation)
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", ErrValidation)
	}
	items := make([]models.BorrowItem, 0, len(req.Items))
	for i, it := range req.Items {
		if strings.TrimSpace(it.EquipmentID) == "" {
			return nil, fmt.Errorf("%w: item %d has no equipment id", ErrValidation, i)
		}
		if it.QuantityBorrowed < 1 {
			return nil, fmt.Errorf("%w: item %d quantity must be at least 1", ErrValidation, i)
		}
		items = append(items, it)
	}

	borrowAt, err := ParseDisplayDateTime(req.BorrowDate, req.BorrowTime, s.loc)
	if err != nil {
		return nil, err
	}
	returnClock := req.ExpectedReturnTime
	if strings.TrimSpace(returnClock) == "" {
		returnClock = "23:59"
	}
	expectedAt, err := ParseDisplayDateTime(req.ExpectedReturnDate, returnClock, s.loc)
	if err != nil {
		return nil, err
	}
	if expectedAt.Before(borrowAt) {
		return nil, fmt.Errorf("%w: expected return is before borrow", ErrValidation)
	}

	now := s.now()
	return &models.BorrowTransaction{
		ID:                    s.newID(now),
		UserID:                req.Actor.ID,
		UserEmail:             req.Actor.Email,
		UserName:              firstNonEmpty(req.UserName, req.Actor.Name, unknownRequester),
		UserIDNumber:          strings.TrimSpace(req.UserIDNumber),
		BorrowType:            string(bt),
		EquipmentItems:        items,
		BorrowAt:              borrowAt,
		ExpectedReturnAt:      expectedAt,
		ConditionBeforeBorrow: req.Condition,
		Status:                string(StatusScheduled),
		Notes:                 req.Notes,
		Version:               1,
		CreatedAt:             now,
		UpdatedAt:             now,
	}, nil
}

func (s *Service) Confirm(ctx context.Context, id string, actor Actor, actorName, notes string) (*models.BorrowTransaction, error) {
	ctx, span := s.tracer.Start(ctx, "lifecycle.Confirm", trace.WithAttributes(attribute.String("borrow.id", id)))
	defer span.End()

	name := firstNonEmpty(actorName, actor.Name, systemActor)
	t, err := s.transition(ctx, id, ActionConfirm, actor, name, nil, func(t *models.BorrowTransaction, _ Status, now time.Time) []StockDelta {
		t.ConfirmedBy = name
		t.ConfirmedByEmail = actor.Email
		t.ConfirmedAt = &now
		if n := strings.TrimSpace(notes); n != "" {
			if t.Notes == "" {
				t.Notes = n
			} else {
				t.Notes = t.Notes + "\n" + n
			}
		}
		return stockDeltas(t.EquipmentItems, -1, false)
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	s.publish(ctx, notify.RKBorrowConfirmed, t, name, "")
	return t, nil
}

func (s *Service) Cancel(ctx context.Context, id string, actor Actor, actorName, reason string) (*models.BorrowTransaction, error) {
	ctx, span := s.tracer.Start(ctx, "lifecycle.Cancel", trace.WithAttributes(attribute.String("borrow.id", id)))
	defer span.End()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, s.fail(span, ErrReasonRequired)
	}
	name := firstNonEmpty(actorName, actor.Name, systemActor)
	t, err := s.transition(ctx, id, ActionCancel, actor, name, &reason, func(t *models.BorrowTransaction, _ Status, now time.Time) []StockDelta {
		t.CancelledBy = name
		t.CancelledByEmail = actor.Email
		t.CancelledAt = &now
		t.CancelReason = reason
		return nil
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	s.publish(ctx, notify.RKBorrowCancelled, t, name, reason)
	return t, nil
}

func (s *Service) CompleteReturn(ctx context.Context, req ReturnRequest) (*models.BorrowTransaction, error) {
	ctx, span := s.tracer.Start(ctx, "lifecycle.CompleteReturn", trace.WithAttributes(attribute.String("borrow.id", req.ID)))
	defer span.End()

	returnedAt, err := ParseDisplayDateTime(req.ReturnDate, req.ReturnTime, s.loc)
	if err != nil {
		return nil, s.fail(span, err)
	}
	var actor Actor
	if req.Actor != nil {
		actor = *req.Actor
	}
	name := firstNonEmpty(req.ActorName, actor.Name, systemActor)

	t, err := s.transition(ctx, req.ID, ActionReturn, actor, name, nil, func(t *models.BorrowTransaction, from Status, now time.Time) []StockDelta {
		t.ActualReturnAt = &returnedAt
		t.ConditionOnReturn = req.ConditionOnReturn
		t.DamagesAndIssues = req.Damages
		t.ReturnedBy = name
		t.ReturnedByEmail = actor.Email
		t.ReturnedAt = &now
		if n := strings.TrimSpace(req.Notes); n != "" {
			t.Notes = n
		}
		if from != StatusBorrowed {
			return nil
		}
		return stockDeltas(t.EquipmentItems, 1, true)
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	s.publish(ctx, notify.RKBorrowReturned, t, name, "")
	return t, nil
}

type mutation func(t *models.BorrowTransaction, from Status, now time.Time) []StockDelta

// transition is the read-guard-write cycle shared by every state change. A version conflict
// re-reads the row so the status guard runs again on fresh data.
func (s *Service) transition(ctx context.Context, id string, action Action, actor Actor, actorName string, reason *string, mutate mutation) (*models.BorrowTransaction, error) {
	var out *models.BorrowTransaction
	err := RetryOnConflict(ctx, func(ctx context.Context) error {
		cur, err := s.store.FindTransaction(ctx, id)
		if err != nil {
			return err
		}
		from := Status(cur.Status)
		to, err := Next(from, action)
		if err != nil {
			return err
		}

		now := s.now()
		next := *cur
		next.EquipmentItems = append([]models.BorrowItem(nil), cur.EquipmentItems...)
		deltas := mutate(&next, from, now)
		next.Status = string(to)
		next.Version = cur.Version + 1
		next.UpdatedAt = now

		ch := Change{
			Stock: deltas,
			Log: &models.TransitionLog{
				TransactionID: id,
				Action:        string(action),
				FromStatus:    string(from),
				ToStatus:      string(to),
				ActorID:       actor.ID,
				ActorName:     actorName,
				ActorEmail:    actor.Email,
				Reason:        reason,
				CreatedAt:     now,
			},
		}
		if err := s.store.UpdateTransaction(ctx, &next, cur.Version, ch); err != nil {
			return err
		}
		out = &next
		return nil
	}, s.retry...)
	if err != nil {
		if errors.Is(err, ErrConcurrencyConflict) {
			s.log.WarnContext(ctx, "[borrow] conflict retries exhausted", "borrowId", id, "action", action)
		}
		return nil, err
	}
	s.log.InfoContext(ctx, "[borrow] transition", "borrowId", id, "action", action, "status", out.Status, "by", actorName)
	return out, nil
}

// resolveItems overwrites each item's name and category with the stored equipment row;
// the category decides whether a return restocks.
func (s *Service) resolveItems(ctx context.Context, items []models.BorrowItem) error {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.EquipmentID)
	}
	known, err := s.store.LookupEquipment(ctx, ids)
	if err != nil {
		return fmt.Errorf("lookup equipment: %w", err)
	}
	for i := range items {
		e, ok := known[items[i].EquipmentID]
		if !ok {
			return fmt.Errorf("%w: unknown equipment %q", ErrValidation, items[i].EquipmentID)
		}
		items[i].EquipmentName = e.Name
		items[i].EquipmentCategory = e.Category
	}
	return nil
}

// stockDeltas folds items into one delta per equipment id, in first-seen order.
func stockDeltas(items []models.BorrowItem, sign int, skipConsumables bool) []StockDelta {
	var out []StockDelta
	idx := map[string]int{}
	for _, it := range items {
		if skipConsumables && it.EquipmentCategory == models.CategoryConsumable {
			continue
		}
		if i, ok := idx[it.EquipmentID]; ok {
			out[i].Delta += sign * it.QuantityBorrowed
			continue
		}
		idx[it.EquipmentID] = len(out)
		out = append(out, StockDelta{EquipmentID: it.EquipmentID, Delta: sign * it.QuantityBorrowed})
	}
	return out
}

func (s *Service) Get(ctx context.Context, id string) (*models.BorrowTransaction, error) {
	return s.store.FindTransaction(ctx, id)
}

func (s *Service) List(ctx context.Context, q ListQuery) ([]models.BorrowTransaction, error) {
	list, err := s.store.ListTransactions(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list borrow transactions: %w", err)
	}
	return list, nil
}

func (s *Service) History(ctx context.Context, id string) ([]models.TransitionLog, error) {
	if _, err := s.store.FindTransaction(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListTransitions(ctx, id)
}

// Acknowledge sends the request-received mail for t. It never retries and never fails the caller.
func (s *Service) Acknowledge(ctx context.Context, t *models.BorrowTransaction) NotifyResult {
	ev := s.event(notify.RKBorrowCreated, t, t.UserName, "")
	if err := s.notifier.Send(ctx, ev); err != nil {
		s.log.ErrorContext(ctx, "[borrow] acknowledgment failed", "borrowId", t.ID, "err", err)
		return NotifyResult{Success: false, Message: "failed to send email"}
	}
	return NotifyResult{Success: true, Message: "email sent"}
}

func (s *Service) publish(ctx context.Context, kind string, t *models.BorrowTransaction, actor, reason string) {
	if err := s.notifier.Send(ctx, s.event(kind, t, actor, reason)); err != nil {
		s.log.WarnContext(ctx, "[borrow] event not delivered", "kind", kind, "borrowId", t.ID, "err", err)
	}
}

func (s *Service) event(kind string, t *models.BorrowTransaction, actor, reason string) notify.Event {
	names := make([]string, 0, len(t.EquipmentItems))
	for _, it := range t.EquipmentItems {
		names = append(names, it.EquipmentName)
	}
	return notify.Event{
		Kind:          kind,
		TransactionID: t.ID,
		Status:        t.Status,
		Actor:         actor,
		Reason:        reason,
		Mail: notify.BorrowEmail{
			UserEmail:          t.UserEmail,
			UserName:           t.UserName,
			EquipmentNames:     names,
			BorrowDate:         FormatDate(t.BorrowAt, s.loc),
			BorrowTime:         FormatClock(t.BorrowAt, s.loc),
			ExpectedReturnDate: FormatDate(t.ExpectedReturnAt, s.loc),
			ExpectedReturnTime: FormatClock(t.ExpectedReturnAt, s.loc),
			BorrowType:         t.BorrowType,
		},
	}
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
