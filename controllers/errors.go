package controllers

import (
	"errors"
	"net/http"

	"Gin_postgres_redis_borrow_return/app"
	"Gin_postgres_redis_borrow_return/catalog"
	"Gin_postgres_redis_borrow_return/db"
	"Gin_postgres_redis_borrow_return/lifecycle"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var statusByErr = []struct {
	err  error
	code int
}{
	{lifecycle.ErrNotFound, http.StatusNotFound},
	{db.ErrEquipmentNotFound, http.StatusNotFound},
	{db.ErrRoomNotFound, http.StatusNotFound},
	{db.ErrBookingNotFound, http.StatusNotFound},
	{gorm.ErrRecordNotFound, http.StatusNotFound},

	{lifecycle.ErrInvalidState, http.StatusConflict},
	{lifecycle.ErrConcurrencyConflict, http.StatusConflict},
	{lifecycle.ErrInsufficientStock, http.StatusConflict},
	{catalog.ErrDuplicateAssetID, http.StatusConflict},
	{catalog.ErrRoomUnavailable, http.StatusConflict},
	{catalog.ErrRoomOverlap, http.StatusConflict},
	{db.ErrBookingCancelled, http.StatusConflict},
	{db.ErrDuplicateRoomCode, http.StatusConflict},

	{db.ErrBookingForbidden, http.StatusForbidden},
	{db.ErrInviteRequired, http.StatusForbidden},
	{db.ErrInviteInvalid, http.StatusForbidden},

	{lifecycle.ErrReasonRequired, http.StatusBadRequest},
	{lifecycle.ErrValidation, http.StatusBadRequest},
	{catalog.ErrInvalidEquipment, http.StatusBadRequest},
	{catalog.ErrInvalidRoom, http.StatusBadRequest},
	{catalog.ErrInvalidBookingWindow, http.StatusBadRequest},
	{catalog.ErrInvalidRange, http.StatusBadRequest},
}

func errorStatus(err error) int {
	for _, m := range statusByErr {
		if errors.Is(err, m.err) {
			return m.code
		}
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	c.JSON(errorStatus(err), app.H{"error": err.Error()})
}
