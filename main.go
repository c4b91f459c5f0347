package main

import (
	"context"
	"time"
	_ "time/tzdata"

	"Gin_postgres_redis_borrow_return/app"
	"Gin_postgres_redis_borrow_return/config"
	"Gin_postgres_redis_borrow_return/routes"
)

func main() {
	config.LoadEnv()

	application := app.MustNew()
	defer application.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	app.Bootstrap(ctx, application.Config, application.Repo, application.Inviter, application.Log)
	cancel()

	r := application.Router
	routes.RegisterRoutes(r, application)

	port := application.Config.Port
	application.Log.Info("listening", "port", port)
	if err := r.Run(":" + port); err != nil {
		application.Log.Error("server stopped", "err", err)
	}
}
