package controllers

import (
	"net/http"
	"time"

	"Gin_postgres_redis_borrow_return/app"
	"Gin_postgres_redis_borrow_return/catalog"
	"Gin_postgres_redis_borrow_return/db"
	"Gin_postgres_redis_borrow_return/lifecycle"
	"Gin_postgres_redis_borrow_return/models"

	"github.com/gin-gonic/gin"
)

type RoomController struct {
	repo *db.Repo
	loc  *time.Location
	now  func() time.Time
}

func NewRoomController(repo *db.Repo, loc *time.Location) *RoomController {
	return &RoomController{repo: repo, loc: loc, now: time.Now}
}

type bookingView struct {
	models.RoomBooking
	Status string `json:"status"`
}

func (rc *RoomController) views(list []models.RoomBooking) []bookingView {
	now := rc.now()
	out := make([]bookingView, 0, len(list))
	for _, b := range list {
		out = append(out, bookingView{RoomBooking: b, Status: catalog.BookingStatus(b, now)})
	}
	return out
}

// GET /api/rooms?q=&type=&status=
func (rc *RoomController) List(c *gin.Context) {
	rooms, err := rc.repo.ListRooms(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	rooms = catalog.FilterRooms(rooms, catalog.RoomFilter{
		Search: c.Query("q"),
		Type:   c.Query("type"),
		Status: c.Query("status"),
	})
	c.JSON(http.StatusOK, app.H{"total": len(rooms), "rooms": rooms})
}

// POST /api/rooms (admin)
func (rc *RoomController) Create(c *gin.Context) {
	var in catalog.NewRoom
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	room, err := catalog.ValidateNewRoom(in)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := rc.repo.CreateRoom(c.Request.Context(), &room); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"room": room})
}

// PUT /api/rooms/:id/status {"status": "unavailable"} (admin)
func (rc *RoomController) SetStatus(c *gin.Context) {
	var in struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	st, err := catalog.ParseRoomStatus(in.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	room, err := rc.repo.SetRoomStatus(c.Request.Context(), c.Param("id"), st)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"room": room})
}

// GET /api/rooms/:id/schedule
func (rc *RoomController) Schedule(c *gin.Context) {
	ctx := c.Request.Context()
	room, err := rc.repo.FindRoom(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	bs, err := rc.repo.ListRoomBookings(ctx, room.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"room": room, "days": catalog.UpcomingSchedule(bs, rc.now(), rc.loc)})
}

type bookRoomReq struct {
	Date      string `json:"date" binding:"required"`
	StartTime string `json:"startTime" binding:"required"`
	EndTime   string `json:"endTime" binding:"required"`
	Purpose   string `json:"purpose"`
	UserName  string `json:"userName"`
}

// POST /api/rooms/:id/bookings
func (rc *RoomController) Book(c *gin.Context) {
	var in bookRoomReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	start, err := lifecycle.ParseDisplayDateTime(in.Date, in.StartTime, rc.loc)
	if err != nil {
		writeError(c, err)
		return
	}
	end, err := lifecycle.ParseDisplayDateTime(in.Date, in.EndTime, rc.loc)
	if err != nil {
		writeError(c, err)
		return
	}
	if !start.After(rc.now()) {
		c.JSON(http.StatusBadRequest, app.H{"error": "booking must start in the future"})
		return
	}

	who := actor(c)
	b := &models.RoomBooking{
		RoomID:   c.Param("id"),
		UserID:   who.ID,
		UserName: firstNonBlank(in.UserName, who.Name, who.Email),
		StartAt:  start,
		EndAt:    end,
		Purpose:  in.Purpose,
	}
	if err := rc.repo.CreateRoomBooking(c.Request.Context(), b, rc.loc); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"booking": rc.views([]models.RoomBooking{*b})[0]})
}

// GET /api/room-bookings?q=&status=&roomType=&range=&from=&to= (admin)
func (rc *RoomController) ListBookings(c *gin.Context) {
	now := rc.now()
	rng, err := catalog.RangeFor(c.Query("range"), c.Query("from"), c.Query("to"), now, rc.loc)
	if err != nil {
		writeError(c, err)
		return
	}
	bs, err := rc.repo.ListRoomBookings(c.Request.Context(), "")
	if err != nil {
		writeError(c, err)
		return
	}
	bs = catalog.FilterBookings(bs, catalog.BookingFilter{
		Search:   c.Query("q"),
		Status:   c.Query("status"),
		RoomType: c.Query("roomType"),
		Range:    rng,
	}, now)
	c.JSON(http.StatusOK, app.H{"total": len(bs), "bookings": rc.views(bs)})
}

// POST /api/room-bookings/:id/cancel (booker or admin)
func (rc *RoomController) CancelBooking(c *gin.Context) {
	var in struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&in); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	who := actor(c)
	b, err := rc.repo.CancelRoomBooking(c.Request.Context(), c.Param("id"),
		who.ID, firstNonBlank(who.Name, who.Email), c.GetBool(app.CtxIsAdmin), in.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"booking": rc.views([]models.RoomBooking{*b})[0]})
}

func firstNonBlank(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
