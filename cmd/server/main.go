package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/SAPAAAA/Roundtable-sub001/internal/comment"
	"github.com/SAPAAAA/Roundtable-sub001/internal/config"
	"github.com/SAPAAAA/Roundtable-sub001/internal/db"
	"github.com/SAPAAAA/Roundtable-sub001/internal/eventbus"
	"github.com/SAPAAAA/Roundtable-sub001/internal/message"
	myMiddleware "github.com/SAPAAAA/Roundtable-sub001/internal/middleware"
	"github.com/SAPAAAA/Roundtable-sub001/internal/notification"
	"github.com/SAPAAAA/Roundtable-sub001/internal/post"
	"github.com/SAPAAAA/Roundtable-sub001/internal/realtime"
	"github.com/SAPAAAA/Roundtable-sub001/internal/sub"
	"github.com/SAPAAAA/Roundtable-sub001/internal/user"
	"github.com/SAPAAAA/Roundtable-sub001/internal/vote"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	// Platform layer: Postgres + Redis.
	database, err := db.NewDatabase(cfg.DBDSN)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to Postgres")
	}
	log.Info("connected to PostgreSQL")

	if err := database.AutoMigrate(); err != nil {
		log.WithError(err).Fatal("migration failed")
	}
	log.Info("database schema initialized")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		log.WithError(err).Fatal("failed to connect to Redis")
	}
	log.Info("connected to Redis")

	// Delivery layer: registry + bus.
	registry := realtime.NewRegistry(log)
	bus := eventbus.New(log)

	// Features.
	userRepo := user.NewRepository(database.Conn)
	userService := user.NewService(userRepo, cfg.JWTSecret)
	userHandler := user.NewHandler(userService)

	postRepo := post.NewRepository(database.Conn)
	postHandler := post.NewHandler(postRepo)

	notifStore := notification.NewStore(database.Conn)
	notifService := notification.NewService(notifStore, registry, postRepo, userRepo, redisClient, log)
	notifHandler := notification.NewHandler(notifService)

	commentRepo := comment.NewRepository(database.Conn)
	commentService := comment.NewService(commentRepo, bus)
	commentHandler := comment.NewHandler(commentService)

	voteRepo := vote.NewRepository(database.Conn)
	voteService := vote.NewService(voteRepo, bus)
	scoreCache := vote.NewScoreCache(voteRepo, redisClient, log)
	voteHandler := vote.NewHandler(voteService, scoreCache)

	subRepo := sub.NewRepository(database.Conn)
	subService := sub.NewService(subRepo, userRepo, notifService)
	subHandler := sub.NewHandler(subService)

	messageRepo := message.NewRepository(database.Conn)
	messageService := message.NewService(messageRepo, bus)
	messageHandler := message.NewHandler(messageService)

	wsHandler := realtime.NewHandler(registry, log)

	// Listeners go on the bus before the server takes traffic.
	notification.NewListener(notifService, log).Register(bus)
	message.NewListener(registry, log).Register(bus)
	scoreCache.Register(bus)

	authMiddleware := myMiddleware.NewAuthMiddleware(userService)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Public routes.
	r.Post("/register", userHandler.Register)
	r.Post("/login", userHandler.Login)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	// Protected routes.
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handle)

		r.Get("/api/users/search", userHandler.SearchUsers)
		r.Get("/api/users/{username}", userHandler.GetProfile)

		r.Post("/api/subs", subHandler.Create)
		r.Get("/api/subs/{name}", subHandler.Get)
		r.Post("/api/subs/{name}/moderators", subHandler.InviteModerator)
		r.Put("/api/subs/{name}/subscription", subHandler.Subscribe)
		r.Delete("/api/subs/{name}/subscription", subHandler.Unsubscribe)

		r.Post("/api/posts", postHandler.Create)
		r.Get("/api/posts/{id}", postHandler.Get)
		r.Get("/api/subtables/{id}/posts", postHandler.ListBySubtable)
		r.Get("/api/posts/{id}/comments", commentHandler.ListByPost)
		r.Post("/api/comments", commentHandler.Create)

		r.Post("/api/votes", voteHandler.Cast)
		r.Get("/api/votes/score", voteHandler.Score)

		r.Post("/api/conversations", messageHandler.StartConversation)
		r.Get("/api/conversations", messageHandler.Conversations)
		r.Post("/api/messages", messageHandler.Send)
		r.Get("/api/messages", messageHandler.History)

		r.Get("/api/notifications", notifHandler.List)
		r.Get("/api/notifications/unread-count", notifHandler.UnreadCount)
		r.Post("/api/notifications/{id}/read", notifHandler.MarkRead)

		r.Get("/ws", wsHandler.ServeWs)
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: r}

	go func() {
		log.WithField("addr", cfg.Addr).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	// Orderly termination: stop accepting requests, close live
	// connections with a going-away code, then release the platform.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("http shutdown incomplete")
	}
	registry.Shutdown()
	redisClient.Close()
	database.Conn.Close()
}
