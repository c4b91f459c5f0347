package controllers

import (
	"net/http"
	"strings"
	"time"

	"Gin_postgres_redis_borrow_return/app"
	"Gin_postgres_redis_borrow_return/lifecycle"
	"Gin_postgres_redis_borrow_return/models"

	"github.com/gin-gonic/gin"
)

type BorrowController struct {
	svc *lifecycle.Service
	loc *time.Location
}

func NewBorrowController(svc *lifecycle.Service) *BorrowController {
	return &BorrowController{svc: svc, loc: svc.Location()}
}

// borrowView adds the form-style date strings the front-end shows next to each instant.
type borrowView struct {
	*models.BorrowTransaction
	BorrowDate         string `json:"borrowDate"`
	BorrowTime         string `json:"borrowTime"`
	ExpectedReturnDate string `json:"expectedReturnDate"`
	ExpectedReturnTime string `json:"expectedReturnTime"`
	ActualReturnDate   string `json:"actualReturnDate,omitempty"`
	ActualReturnTime   string `json:"actualReturnTime,omitempty"`
}

func (bc *BorrowController) view(t *models.BorrowTransaction) borrowView {
	v := borrowView{
		BorrowTransaction:  t,
		BorrowDate:         lifecycle.FormatDate(t.BorrowAt, bc.loc),
		BorrowTime:         lifecycle.FormatClock(t.BorrowAt, bc.loc),
		ExpectedReturnDate: lifecycle.FormatDate(t.ExpectedReturnAt, bc.loc),
		ExpectedReturnTime: lifecycle.FormatClock(t.ExpectedReturnAt, bc.loc),
	}
	if t.ActualReturnAt != nil {
		v.ActualReturnDate = lifecycle.FormatDate(*t.ActualReturnAt, bc.loc)
		v.ActualReturnTime = lifecycle.FormatClock(*t.ActualReturnAt, bc.loc)
	}
	return v
}

func (bc *BorrowController) views(list []models.BorrowTransaction) []borrowView {
	out := make([]borrowView, 0, len(list))
	for i := range list {
		out = append(out, bc.view(&list[i]))
	}
	return out
}

type createBorrowReq struct {
	BorrowType         string              `json:"borrowType" binding:"required"`
	Items              []models.BorrowItem `json:"equipmentItems" binding:"required"`
	BorrowDate         string              `json:"borrowDate" binding:"required"`
	BorrowTime         string              `json:"borrowTime"`
	ExpectedReturnDate string              `json:"expectedReturnDate" binding:"required"`
	ExpectedReturnTime string              `json:"expectedReturnTime"`
	Condition          string              `json:"conditionBeforeBorrow"`
	Notes              string              `json:"notes"`
	UserName           string              `json:"userName"`
	UserIDNumber       string              `json:"userIdNumber"`
}

// POST /api/borrows
func (bc *BorrowController) Create(c *gin.Context) {
	var in createBorrowReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	t, err := bc.svc.Create(ctx, lifecycle.CreateRequest{
		Actor:              actor(c),
		BorrowType:         in.BorrowType,
		Items:              in.Items,
		BorrowDate:         in.BorrowDate,
		BorrowTime:         in.BorrowTime,
		ExpectedReturnDate: in.ExpectedReturnDate,
		ExpectedReturnTime: in.ExpectedReturnTime,
		Condition:          in.Condition,
		Notes:              in.Notes,
		UserName:           in.UserName,
		UserIDNumber:       in.UserIDNumber,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	// the record stands even when the mail does not go out
	res := bc.svc.Acknowledge(ctx, t)
	c.JSON(http.StatusCreated, app.H{"borrow": bc.view(t), "notification": res})
}

// historyFilter reads ?q=&status=&type=&from=&to= ; "all" or empty means no constraint.
func (bc *BorrowController) historyFilter(c *gin.Context) (lifecycle.HistoryFilter, error) {
	f := lifecycle.HistoryFilter{Search: c.Query("q")}
	if s := c.Query("status"); s != "" && s != "all" {
		st, err := lifecycle.ParseStatus(s)
		if err != nil {
			return f, err
		}
		f.Status = st
	}
	if s := c.Query("type"); s != "" && s != "all" {
		bt, err := lifecycle.ParseBorrowType(s)
		if err != nil {
			return f, err
		}
		f.BorrowType = bt
	}
	var err error
	if s := c.Query("from"); s != "" {
		if f.From, err = lifecycle.ParseDisplayDateTime(s, "", bc.loc); err != nil {
			return f, err
		}
	}
	if s := c.Query("to"); s != "" {
		if f.To, err = lifecycle.ParseDisplayDateTime(s, "", bc.loc); err != nil {
			return f, err
		}
	}
	return f, nil
}

func (bc *BorrowController) list(c *gin.Context, q lifecycle.ListQuery) {
	f, err := bc.historyFilter(c)
	if err != nil {
		writeError(c, err)
		return
	}
	list, err := bc.svc.List(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	list = lifecycle.FilterHistory(list, f, bc.loc)
	c.JSON(http.StatusOK, app.H{"total": len(list), "items": bc.views(list)})
}

// GET /api/borrows/mine
func (bc *BorrowController) Mine(c *gin.Context) {
	bc.list(c, lifecycle.ListQuery{UserID: c.GetString(app.CtxUserID)})
}

// GET /api/borrows (admin)
func (bc *BorrowController) List(c *gin.Context) {
	bc.list(c, lifecycle.ListQuery{})
}

// loadOwned fetches :id and checks the caller owns it or is an admin.
func (bc *BorrowController) loadOwned(c *gin.Context) (*models.BorrowTransaction, bool) {
	t, err := bc.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	if t.UserID != c.GetString(app.CtxUserID) && !c.GetBool(app.CtxIsAdmin) {
		c.JSON(http.StatusForbidden, app.H{"error": "forbidden"})
		return nil, false
	}
	return t, true
}

// GET /api/borrows/:id
func (bc *BorrowController) Get(c *gin.Context) {
	t, ok := bc.loadOwned(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, app.H{"borrow": bc.view(t)})
}

// GET /api/borrows/:id/history (admin)
func (bc *BorrowController) History(c *gin.Context) {
	logs, err := bc.svc.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"transitions": logs})
}

type confirmReq struct {
	ActorName string `json:"actorName"`
	Notes     string `json:"notes"`
}

// POST /api/borrows/:id/confirm (admin)
func (bc *BorrowController) Confirm(c *gin.Context) {
	var in confirmReq
	if err := c.ShouldBindJSON(&in); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	t, err := bc.svc.Confirm(c.Request.Context(), c.Param("id"), actor(c), in.ActorName, in.Notes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"borrow": bc.view(t)})
}

type cancelReq struct {
	ActorName string `json:"actorName"`
	Reason    string `json:"reason"`
}

// POST /api/borrows/:id/cancel (admin)
func (bc *BorrowController) Cancel(c *gin.Context) {
	var in cancelReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	t, err := bc.svc.Cancel(c.Request.Context(), c.Param("id"), actor(c), in.ActorName, in.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"borrow": bc.view(t)})
}

type returnReq struct {
	ReturnDate        string `json:"returnDate" binding:"required"`
	ReturnTime        string `json:"returnTime"`
	ConditionOnReturn string `json:"conditionOnReturn"`
	Damages           string `json:"damagesAndIssues"`
	ActorName         string `json:"actorName"`
	Notes             string `json:"notes"`
}

// POST /api/borrows/:id/return (owner or admin)
func (bc *BorrowController) Return(c *gin.Context) {
	var in returnReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	cur, ok := bc.loadOwned(c)
	if !ok {
		return
	}
	a := actor(c)
	t, err := bc.svc.CompleteReturn(c.Request.Context(), lifecycle.ReturnRequest{
		ID:                cur.ID,
		ReturnDate:        in.ReturnDate,
		ReturnTime:        strings.TrimSpace(in.ReturnTime),
		ConditionOnReturn: in.ConditionOnReturn,
		Damages:           in.Damages,
		Actor:             &a,
		ActorName:         in.ActorName,
		Notes:             in.Notes,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"borrow": bc.view(t)})
}
