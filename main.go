package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/usercore/backend/internal/config"
	"github.com/usercore/backend/internal/db"
	"github.com/usercore/backend/internal/handler"
	"github.com/usercore/backend/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPostgresPool(ctx)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	repo := &db.Postgres{Pool: pool}
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}

	// A missing or unreadable signing key must keep the service from
	// serving any traffic.
	signingKey, err := service.LoadSigningKey(cfg.Auth)
	if err != nil {
		log.Fatalf("signing key: %v", err)
	}
	issuer, err := service.NewTokenIssuer(signingKey)
	if err != nil {
		log.Fatalf("token issuer: %v", err)
	}

	sessions, err := service.NewSessionStore(repo, cfg.Auth)
	if err != nil {
		log.Fatalf("session store: %v", err)
	}
	authService, err := service.NewAuthService(repo, repo, sessions, issuer, cfg.Auth)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	userService, err := service.NewUserService(repo, repo, sessions, cfg.Auth)
	if err != nil {
		log.Fatalf("user service: %v", err)
	}

	if err := userService.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		log.Fatalf("ensure admin: %v", err)
	}

	router := gin.Default()
	if cfg.Server.AllowedOrigins != "" {
		router.Use(handler.CORSMiddleware(strings.Split(cfg.Server.AllowedOrigins, ",")))
	}

	authHandler := handler.NewAuthHandler(authService, userService)
	userHandler := handler.NewUserHandler(userService)
	adminHandler := handler.NewAdminHandler(userService)

	router.GET("/healthz", handler.Health)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)

			authed := auth.Group("")
			authed.Use(handler.AuthMiddleware(authService))
			authed.POST("/logout", authHandler.Logout)
			authed.GET("/me", authHandler.Me)
		}

		users := v1.Group("/users")
		users.Use(handler.AuthMiddleware(authService))
		users.GET("/by-email/:email", userHandler.GetByEmail)

		admin := v1.Group("/admin/users")
		admin.Use(handler.AuthMiddleware(authService), handler.RequireRole("admin"))
		{
			admin.POST("", adminHandler.CreateUser)
			admin.GET("", adminHandler.ListUsers)
			admin.GET("/:id", adminHandler.GetUser)
			admin.PUT("/:id", adminHandler.UpdateUser)
			admin.DELETE("/:id", adminHandler.DeleteUser)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	case <-ctx.Done():
		log.Println("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
