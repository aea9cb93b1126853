package main

import (
	"log"

	"ticketing/internal/api"
	"ticketing/internal/app"
	"ticketing/internal/auth"
	"ticketing/internal/service"
	"ticketing/internal/store"
	"ticketing/internal/util"
)

func main() {
	cfg, shutdown := app.Init("auth")
	defer shutdown()

	logger := util.GetLogger()
	logger.Info("Starting auth service")

	db, dbReady, closeDB, err := app.OpenStore(cfg, store.UsersSchema)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer closeDB()

	issuer := auth.NewIssuer(cfg.Auth.JWTKey, cfg.Auth.TokenTTL)
	userService := service.NewUserService(db, &auth.Bcrypt{}, issuer)

	handler := api.NewHandler(issuer, map[string]api.Checker{
		"database": dbReady,
	})
	router, group := app.NewRouter(cfg, handler)
	api.NewUsersHandler(userService, cfg.Auth.TokenTTL, cfg.Server.Env == "production").Register(group)

	app.Serve(cfg, router, nil, nil)
}
