package lifecycle_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Gin_postgres_redis_borrow_return/lifecycle"
	"Gin_postgres_redis_borrow_return/lifecycle/lifecycletest"
	"Gin_postgres_redis_borrow_return/models"
	"Gin_postgres_redis_borrow_return/notify"
)

var (
	student = lifecycle.Actor{ID: "u1", Name: "Somchai Student", Email: "u1@uni.ac.th"}
	admin   = lifecycle.Actor{ID: "a1", Name: "Admin One", Email: "admin@uni.ac.th"}
	fixedAt = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
)

type fixture struct {
	store    *lifecycletest.MemStore
	recorder *lifecycletest.Recorder
	svc      *lifecycle.Service
}

func newFixture(opts ...lifecycle.Option) fixture {
	store := lifecycletest.NewMemStore()
	store.PutEquipment("E1", "Projector", models.CategoryAsset, 3)
	store.PutEquipment("C1", "Chalk", models.CategoryConsumable, 10)
	rec := &lifecycletest.Recorder{}
	base := []lifecycle.Option{
		lifecycle.WithLocation(time.UTC),
		lifecycle.WithClock(func() time.Time { return fixedAt }),
		lifecycle.WithRetry(lifecycle.WithBaseDelay(time.Millisecond)),
	}
	svc := lifecycle.New(store, rec, append(base, opts...)...)
	return fixture{store: store, recorder: rec, svc: svc}
}

func projectorRequest() lifecycle.CreateRequest {
	return lifecycle.CreateRequest{
		Actor:      student,
		BorrowType: "during-class",
		Items: []models.BorrowItem{
			{EquipmentID: "E1", EquipmentName: "Projector", EquipmentCategory: models.CategoryAsset, QuantityBorrowed: 1},
		},
		BorrowDate:         "01/01/2025",
		BorrowTime:         "10:00",
		ExpectedReturnDate: "01/01/2025",
		ExpectedReturnTime: "12:00",
		Condition:          "ok",
	}
}

func Test_Create_YieldsScheduledWithFreshID(t *testing.T) {
	// arrange
	f := newFixture()
	ctx := context.Background()

	// act
	a, errA := f.svc.Create(ctx, projectorRequest())
	b, errB := f.svc.Create(ctx, projectorRequest())

	// assert
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Regexp(t, `^borrow-\d+-[0-9a-f]{9}$`, a.ID)
	assert.Equal(t, string(lifecycle.StatusScheduled), a.Status)
	assert.Equal(t, int64(1), a.Version)
	assert.Equal(t, time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC), a.BorrowAt)
	assert.Equal(t, "Somchai Student", a.UserName)
	assert.Equal(t, "u1@uni.ac.th", a.UserEmail)

	list, err := f.svc.List(ctx, lifecycle.ListQuery{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func Test_Create_NameFallbacks(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	req := projectorRequest()
	req.UserName = "Given Name"
	got, err := f.svc.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "Given Name", got.UserName)

	req = projectorRequest()
	req.Actor = lifecycle.Actor{ID: "u9"}
	got, err = f.svc.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "Unknown", got.UserName)
}

func Test_Create_ExpectedReturnTimeDefaultsToEndOfDay(t *testing.T) {
	f := newFixture()
	req := projectorRequest()
	req.ExpectedReturnTime = ""

	got, err := f.svc.Create(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 23, 59, 0, 0, time.UTC), got.ExpectedReturnAt)
}

func Test_Create_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*lifecycle.CreateRequest)
	}{
		{"unknown borrow type", func(r *lifecycle.CreateRequest) { r.BorrowType = "weekend" }},
		{"no items", func(r *lifecycle.CreateRequest) { r.Items = nil }},
		{"zero quantity", func(r *lifecycle.CreateRequest) { r.Items[0].QuantityBorrowed = 0 }},
		{"missing equipment id", func(r *lifecycle.CreateRequest) { r.Items[0].EquipmentID = " " }},
		{"bad borrow date", func(r *lifecycle.CreateRequest) { r.BorrowDate = "31/02/2025" }},
		{"return before borrow", func(r *lifecycle.CreateRequest) { r.ExpectedReturnTime = "09:00" }},
		{"no requester", func(r *lifecycle.CreateRequest) { r.Actor = lifecycle.Actor{} }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			req := projectorRequest()
			tc.mutate(&req)

			_, err := f.svc.Create(context.Background(), req)

			assert.ErrorIs(t, err, lifecycle.ErrValidation)
		})
	}
}

func Test_Confirm_Scheduled_BecomesBorrowedAndDecrementsStock(t *testing.T) {
	// arrange
	f := newFixture()
	ctx := context.Background()
	created, err := f.svc.Create(ctx, projectorRequest())
	require.NoError(t, err)

	// act
	got, err := f.svc.Confirm(ctx, created.ID, admin, "", "handed over at desk")

	// assert
	require.NoError(t, err)
	assert.Equal(t, string(lifecycle.StatusBorrowed), got.Status)
	assert.Equal(t, "Admin One", got.ConfirmedBy)
	assert.Equal(t, "admin@uni.ac.th", got.ConfirmedByEmail)
	require.NotNil(t, got.ConfirmedAt)
	assert.Equal(t, "handed over at desk", got.Notes)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, 2, f.store.Quantity("E1"))
	assert.Equal(t, []string{notify.RKBorrowConfirmed}, f.recorder.Kinds())
}

func Test_Confirm_AppendsNotes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req := projectorRequest()
	req.Notes = "for lecture"
	created, err := f.svc.Create(ctx, req)
	require.NoError(t, err)

	got, err := f.svc.Confirm(ctx, created.ID, admin, "Desk", "checked cables")

	require.NoError(t, err)
	assert.Equal(t, "for lecture\nchecked cables", got.Notes)
	assert.Equal(t, "Desk", got.ConfirmedBy)
}

func Test_Confirm_NonScheduled_FailsAndLeavesStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created, err := f.svc.Create(ctx, projectorRequest())
	require.NoError(t, err)
	_, err = f.svc.CompleteReturn(ctx, lifecycle.ReturnRequest{ID: created.ID, ReturnDate: "02/01/2025", ReturnTime: "10:00", ConditionOnReturn: "ok"})
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, created.ID, admin, "", "")

	assert.ErrorIs(t, err, lifecycle.ErrInvalidState)
	stored, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, string(lifecycle.StatusReturned), stored.Status)
	assert.Equal(t, 3, f.store.Quantity("E1"))
}

func Test_Confirm_InsufficientStock(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req := projectorRequest()
	req.Items[0].QuantityBorrowed = 4
	created, err := f.svc.Create(ctx, req)
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, created.ID, admin, "", "")

	assert.ErrorIs(t, err, lifecycle.ErrInsufficientStock)
	stored, _ := f.svc.Get(ctx, created.ID)
	assert.Equal(t, string(lifecycle.StatusScheduled), stored.Status)
	assert.Equal(t, 3, f.store.Quantity("E1"))
}

func Test_Confirm_UnknownID(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Confirm(context.Background(), "borrow-404", admin, "", "")

	assert.ErrorIs(t, err, lifecycle.ErrNotFound)
}

func Test_Confirm_ConcurrentAdmins_OneWins(t *testing.T) {
	// arrange
	f := newFixture()
	ctx := context.Background()
	created, err := f.svc.Create(ctx, projectorRequest())
	require.NoError(t, err)

	// act
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Confirm(ctx, created.ID, lifecycle.Actor{ID: fmt.Sprintf("a%d", i)}, "", "")
		}(i)
	}
	wg.Wait()

	// assert
	var ok, invalid int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, lifecycle.ErrInvalidState):
			invalid++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, invalid)
	assert.Equal(t, 2, f.store.Quantity("E1"))
}

func Test_Confirm_RetriesAfterVersionConflict(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created, err := f.svc.Create(ctx, projectorRequest())
	require.NoError(t, err)

	bumped := false
	f.store.BeforeWrite = func(id string) {
		if !bumped {
			bumped = true
			f.store.Bump(id)
		}
	}

	got, err := f.svc.Confirm(ctx, created.ID, admin, "", "")

	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Version)
	assert.Equal(t, 2, f.store.Quantity("E1"))
}

func Test_Confirm_ConflictRetriesExhausted(t *testing.T) {
	f := newFixture(lifecycle.WithRetry(lifecycle.WithMaxAttempts(2)))
	ctx := context.Background()
	created, err := f.svc.Create(ctx, projectorRequest())
	require.NoError(t, err)
	f.store.BeforeWrite = f.store.Bump

	_, err = f.svc.Confirm(ctx, created.ID, admin, "", "")

	assert.ErrorIs(t, err, lifecycle.ErrConcurrencyConflict)
	assert.Equal(t, 3, f.store.Quantity("E1"))
}

func Test_Cancel_Scheduled(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created, err := f.svc.Create(ctx, projectorRequest())
	require.NoError(t, err)

	got, err := f.svc.Cancel(ctx, created.ID, admin, "", "equipment under repair")

	require.NoError(t, err)
	assert.Equal(t, string(lifecycle.StatusCancelled), got.Status)
	assert.Equal(t, "equipment under repair", got.CancelReason)
	assert.Equal(t, "Admin One", got.CancelledBy)
	require.NotNil(t, got.CancelledAt)
	assert.Equal(t, []string{notify.RKBorrowCancelled}, f.recorder.Kinds())
	assert.Equal(t, "equipment under repair", f.recorder.Events()[0].Reason)
}

func Test_Cancel_RequiresReason(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created, err := f.svc.Create(ctx, projectorRequest())
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, created.ID, admin, "", "   ")

	assert.ErrorIs(t, err, lifecycle.ErrReasonRequired)
	stored, _ := f.svc.Get(ctx, created.ID)
	assert.Equal(t, string(lifecycle.StatusScheduled), stored.Status)
}

func Test_Cancel_UnknownID(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Cancel(context.Background(), "borrow-404", admin, "", "no")

	assert.ErrorIs(t, err, lifecycle.ErrNotFound)
}

func Test_Cancel_RejectedOutsideScheduled(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	borrowed, err := f.svc.Create(ctx, projectorRequest())
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, borrowed.ID, admin, "", "")
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, borrowed.ID, admin, "", "changed mind")

	assert.ErrorIs(t, err, lifecycle.ErrInvalidState)
}

func Test_CompleteReturn_EndToEnd(t *testing.T) {
	// arrange
	f := newFixture()
	ctx := context.Background()
	created, err := f.svc.Create(ctx, projectorRequest())
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, created.ID, admin, "", "")
	require.NoError(t, err)

	// act
	got, err := f.svc.CompleteReturn(ctx, lifecycle.ReturnRequest{
		ID:                created.ID,
		ReturnDate:        "02/01/2025",
		ReturnTime:        "10:00",
		ConditionOnReturn: "ok",
		Actor:             &admin,
	})

	// assert
	require.NoError(t, err)
	assert.Equal(t, string(lifecycle.StatusReturned), got.Status)
	require.NotNil(t, got.ActualReturnAt)
	assert.Equal(t, "02/01/2025", lifecycle.FormatDate(*got.ActualReturnAt, time.UTC))
	assert.Equal(t, "ok", got.ConditionOnReturn)
	assert.Equal(t, "", got.DamagesAndIssues)
	assert.Equal(t, "Admin One", got.ReturnedBy)
	require.NotNil(t, got.ReturnedAt)
	assert.Equal(t, created.UserName, got.UserName)
	assert.Equal(t, created.EquipmentItems, got.EquipmentItems)
	assert.Equal(t, "Admin One", got.ConfirmedBy)
	assert.Equal(t, 3, f.store.Quantity("E1"))

	history, err := f.svc.History(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "create", history[0].Action)
	assert.Equal(t, "confirm", history[1].Action)
	assert.Equal(t, "return", history[2].Action)
	assert.Equal(t, "borrowed", history[2].FromStatus)
}

func Test_CompleteReturn_ConsumablesAreNotRestocked(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req := projectorRequest()
	req.Items = append(req.Items, models.BorrowItem{EquipmentID: "C1", EquipmentName: "Chalk", EquipmentCategory: models.CategoryConsumable, QuantityBorrowed: 4})
	created, err := f.svc.Create(ctx, req)
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, created.ID, admin, "", "")
	require.NoError(t, err)
	assert.Equal(t, 6, f.store.Quantity("C1"))

	_, err = f.svc.CompleteReturn(ctx, lifecycle.ReturnRequest{ID: created.ID, ReturnDate: "02/01/2025", ConditionOnReturn: "ok"})

	require.NoError(t, err)
	assert.Equal(t, 6, f.store.Quantity("C1"))
	assert.Equal(t, 3, f.store.Quantity("E1"))
}

func Test_CompleteReturn_FromScheduled_LeavesStock(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created, err := f.svc.Create(ctx, projectorRequest())
	require.NoError(t, err)

	got, err := f.svc.CompleteReturn(ctx, lifecycle.ReturnRequest{ID: created.ID, ReturnDate: "01/01/2025", ReturnTime: "11:00", ConditionOnReturn: "unused"})

	require.NoError(t, err)
	assert.Equal(t, string(lifecycle.StatusReturned), got.Status)
	assert.Equal(t, "System", got.ReturnedBy)
	assert.Equal(t, 3, f.store.Quantity("E1"))
}

func Test_CompleteReturn_SecondCallIsRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created, err := f.svc.Create(ctx, projectorRequest())
	require.NoError(t, err)
	first, err := f.svc.CompleteReturn(ctx, lifecycle.ReturnRequest{ID: created.ID, ReturnDate: "02/01/2025", ConditionOnReturn: "ok", Notes: "first"})
	require.NoError(t, err)

	_, err = f.svc.CompleteReturn(ctx, lifecycle.ReturnRequest{ID: created.ID, ReturnDate: "03/01/2025", ConditionOnReturn: "scratched", Notes: "second"})

	assert.ErrorIs(t, err, lifecycle.ErrInvalidState)
	stored, _ := f.svc.Get(ctx, created.ID)
	assert.Equal(t, first.ConditionOnReturn, stored.ConditionOnReturn)
	assert.Equal(t, "first", stored.Notes)
}

func Test_CompleteReturn_KeepsExistingNotesWhenNoneGiven(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req := projectorRequest()
	req.Notes = "original note"
	created, err := f.svc.Create(ctx, req)
	require.NoError(t, err)

	got, err := f.svc.CompleteReturn(ctx, lifecycle.ReturnRequest{ID: created.ID, ReturnDate: "02/01/2025", ConditionOnReturn: "ok", Damages: "bent leg"})

	require.NoError(t, err)
	assert.Equal(t, "original note", got.Notes)
	assert.Equal(t, "bent leg", got.DamagesAndIssues)
}

func Test_CompleteReturn_UnknownID(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CompleteReturn(context.Background(), lifecycle.ReturnRequest{ID: "borrow-404", ReturnDate: "02/01/2025"})

	assert.ErrorIs(t, err, lifecycle.ErrNotFound)
}

func Test_CompleteReturn_CancelledIsRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created, err := f.svc.Create(ctx, projectorRequest())
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, created.ID, admin, "", "duplicate request")
	require.NoError(t, err)

	_, err = f.svc.CompleteReturn(ctx, lifecycle.ReturnRequest{ID: created.ID, ReturnDate: "02/01/2025"})

	assert.ErrorIs(t, err, lifecycle.ErrInvalidState)
}

func Test_Acknowledge(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created, err := f.svc.Create(ctx, projectorRequest())
	require.NoError(t, err)

	res := f.svc.Acknowledge(ctx, created)

	assert.True(t, res.Success)
	assert.Equal(t, "email sent", res.Message)
	ev := f.recorder.Events()[0]
	assert.Equal(t, notify.RKBorrowCreated, ev.Kind)
	assert.Equal(t, "u1@uni.ac.th", ev.Mail.UserEmail)
	assert.Equal(t, []string{"Projector"}, ev.Mail.EquipmentNames)
	assert.Equal(t, "01/01/2025", ev.Mail.BorrowDate)
	assert.Equal(t, "10:00", ev.Mail.BorrowTime)
	assert.Equal(t, "12:00", ev.Mail.ExpectedReturnTime)
	assert.Equal(t, "during-class", ev.Mail.BorrowType)
}

func Test_Acknowledge_ReportsFailureWithoutError(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created, err := f.svc.Create(ctx, projectorRequest())
	require.NoError(t, err)
	f.recorder.Err = errors.New("smtp down")

	res := f.svc.Acknowledge(ctx, created)

	assert.False(t, res.Success)
	assert.Equal(t, "failed to send email", res.Message)
	assert.Len(t, f.recorder.Events(), 1)
}

func Test_Transition_NotifierFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created, err := f.svc.Create(ctx, projectorRequest())
	require.NoError(t, err)
	f.recorder.Err = errors.New("queue down")

	got, err := f.svc.Confirm(ctx, created.ID, admin, "", "")

	require.NoError(t, err)
	assert.Equal(t, string(lifecycle.StatusBorrowed), got.Status)
}

func Test_List_NewestFirstAndStatusFilter(t *testing.T) {
	store := lifecycletest.NewMemStore()
	clock := fixedAt
	svc := lifecycle.New(store, &lifecycletest.Recorder{},
		lifecycle.WithLocation(time.UTC),
		lifecycle.WithClock(func() time.Time { clock = clock.Add(time.Minute); return clock }),
	)
	ctx := context.Background()
	first, err := svc.Create(ctx, projectorRequest())
	require.NoError(t, err)
	second, err := svc.Create(ctx, projectorRequest())
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, first.ID, admin, "", "dup")
	require.NoError(t, err)

	all, err := svc.List(ctx, lifecycle.ListQuery{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)

	cancelled, err := svc.List(ctx, lifecycle.ListQuery{Status: lifecycle.StatusCancelled})
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, first.ID, cancelled[0].ID)
}

func Test_Create_TakesCategoryAndNameFromCatalog(t *testing.T) {
	// arrange
	f := newFixture()
	ctx := context.Background()
	req := projectorRequest()
	req.Items = []models.BorrowItem{
		{EquipmentID: "E1", EquipmentName: "Anything", EquipmentCategory: models.CategoryConsumable, QuantityBorrowed: 1},
		{EquipmentID: "C1", EquipmentName: "Anything", EquipmentCategory: models.CategoryAsset, QuantityBorrowed: 4},
	}

	// act
	created, err := f.svc.Create(ctx, req)
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, created.ID, admin, "", "")
	require.NoError(t, err)
	_, err = f.svc.CompleteReturn(ctx, lifecycle.ReturnRequest{ID: created.ID, ReturnDate: "02/01/2025", ConditionOnReturn: "ok"})
	require.NoError(t, err)

	// assert
	assert.Equal(t, "Projector", created.EquipmentItems[0].EquipmentName)
	assert.Equal(t, models.CategoryAsset, created.EquipmentItems[0].EquipmentCategory)
	assert.Equal(t, models.CategoryConsumable, created.EquipmentItems[1].EquipmentCategory)
	assert.Equal(t, 3, f.store.Quantity("E1"), "asset comes back")
	assert.Equal(t, 6, f.store.Quantity("C1"), "consumable is used up")
}

func Test_Create_RejectsUnknownEquipment(t *testing.T) {
	f := newFixture()
	req := projectorRequest()
	req.Items = append(req.Items, models.BorrowItem{EquipmentID: "NOPE", QuantityBorrowed: 1})

	_, err := f.svc.Create(context.Background(), req)

	assert.ErrorIs(t, err, lifecycle.ErrValidation)
	all, err := f.svc.List(context.Background(), lifecycle.ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, all)
}
