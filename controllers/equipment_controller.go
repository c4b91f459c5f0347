package controllers

import (
	"net/http"
	"strconv"
	"time"

	"Gin_postgres_redis_borrow_return/app"
	"Gin_postgres_redis_borrow_return/catalog"
	"Gin_postgres_redis_borrow_return/db"

	"github.com/gin-gonic/gin"
)

type EquipmentController struct {
	repo *db.Repo
	now  func() time.Time
}

func NewEquipmentController(repo *db.Repo) *EquipmentController {
	return &EquipmentController{repo: repo, now: time.Now}
}

// GET /api/equipment?q=&category=&page=&size=
func (ec *EquipmentController) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "50"))
	category := c.Query("category")
	if category != "" && category != "all" && !catalog.ValidCategory(category) {
		c.JSON(http.StatusBadRequest, app.H{"error": "unknown category"})
		return
	}

	res, err := ec.repo.ListEquipment(c.Request.Context(), db.EquipmentQuery{
		Q:        c.Query("q"),
		Category: category,
		Page:     page,
		Size:     size,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/equipment (admin)
func (ec *EquipmentController) Create(c *gin.Context) {
	var in catalog.NewEquipment
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	rows, err := catalog.ValidateNewEquipment(in, ec.now())
	if err != nil {
		writeError(c, err)
		return
	}
	if err := ec.repo.CreateEquipment(c.Request.Context(), rows); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"items": rows})
}

// POST /api/equipment/:id/stock (admin)
func (ec *EquipmentController) Restock(c *gin.Context) {
	var in catalog.Restock
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	rows, err := ec.repo.RestockEquipment(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"equipment": rows[0], "added": rows[1:]})
}
