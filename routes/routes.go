package routes

import (
	"net/http"
	"time"

	"Gin_postgres_redis_borrow_return/app"
	"Gin_postgres_redis_borrow_return/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	// controllers and dependencies
	s := controllers.GetSrv(a)
	uc := controllers.GetUserController(s.Repo, s.AppSess, a.Config)
	bc := controllers.NewBorrowController(a.Lifecycle)
	ec := controllers.NewEquipmentController(s.Repo)
	rc := controllers.NewRoomController(s.Repo, a.Config.Location())
	ic := controllers.NewInviteController(a.Inviter, a.Log)

	// shared middleware
	authMW := app.AuthRequired(s.AppSess, s.Repo)
	adminMW := app.AdminOnly()
	seenMW := app.TouchLastSeen(s.Repo, a.RDB, 5*time.Minute)

	r.GET("/healthz", func(c *app.Ctx) { c.JSON(http.StatusOK, app.H{"ok": true}) })

	// ------------------------------
	// WebAuthn (public + signed in)
	// ------------------------------
	wa := r.Group("/webauthn")
	{
		wa.POST("/register/begin", s.BeginRegistration)
		wa.POST("/register/finish", s.FinishRegistration)

		wa.POST("/login/begin", s.BeginLogin)
		wa.POST("/login/finish", s.FinishLogin)
	}
	waAuth := wa.Group("", authMW, seenMW)
	{
		waAuth.GET("/whoami", s.WhoAmI)
		waAuth.POST("/logout", s.Logout)
	}

	// extra passkey for a signed-in user (second device)
	creds := r.Group("/api/credentials", authMW, seenMW)
	{
		creds.POST("/add/begin", s.BeginAddCredential)
		creds.POST("/add/finish", s.FinishAddCredential)
	}

	// ------------------------------
	// users (admin)
	// ------------------------------
	users := r.Group("/api/users", authMW, adminMW)
	{
		users.GET("", uc.ListUsers) // ?q=&page=&size=
		users.GET("/:id", uc.GetUser)
		users.DELETE("/:id", uc.DeleteUser)
		users.PUT("/:id/admin", uc.SetAdmin)
	}
	r.POST("/api/invites", authMW, adminMW, ic.Create)

	// ------------------------------
	// equipment catalog
	// ------------------------------
	equipment := r.Group("/api/equipment", authMW, seenMW)
	{
		equipment.GET("", ec.List) // ?q=&category=&page=&size=
	}
	equipmentAdmin := r.Group("/api/equipment", authMW, adminMW)
	{
		equipmentAdmin.POST("", ec.Create)
		equipmentAdmin.POST("/:id/stock", ec.Restock)
	}

	// ------------------------------
	// rooms and bookings
	// ------------------------------
	rooms := r.Group("/api/rooms", authMW, seenMW)
	{
		rooms.GET("", rc.List) // ?q=&type=&status=
		rooms.GET("/:id/schedule", rc.Schedule)
		rooms.POST("/:id/bookings", rc.Book)
	}
	roomsAdmin := r.Group("/api/rooms", authMW, adminMW)
	{
		roomsAdmin.POST("", rc.Create)
		roomsAdmin.PUT("/:id/status", rc.SetStatus)
	}
	bookings := r.Group("/api/room-bookings", authMW)
	{
		bookings.GET("", adminMW, rc.ListBookings) // ?q=&status=&roomType=&range=&from=&to=
		bookings.POST("/:id/cancel", rc.CancelBooking)
	}

	// ------------------------------
	// borrow transactions
	// ------------------------------
	borrows := r.Group("/api/borrows", authMW, seenMW)
	{
		borrows.POST("", bc.Create)
		borrows.GET("/mine", bc.Mine) // ?q=&status=&type=&from=&to=
		borrows.GET("/:id", bc.Get)
		borrows.POST("/:id/return", bc.Return)
	}
	borrowsAdmin := r.Group("/api/borrows", authMW, adminMW)
	{
		borrowsAdmin.GET("", bc.List)
		borrowsAdmin.POST("/:id/confirm", bc.Confirm)
		borrowsAdmin.POST("/:id/cancel", bc.Cancel)
		borrowsAdmin.GET("/:id/history", bc.History)
	}
}
