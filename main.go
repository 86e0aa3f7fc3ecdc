package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"YChat/global"
	"YChat/logger"
	"YChat/middleware/security"
	"YChat/module/chat"
	"YChat/module/chat/validate"
	"YChat/module/user"
	"YChat/service/mgo"
	"YChat/service/presence"
	"YChat/service/realtime"
	"YChat/service/storage"
	sec "YChat/tools/security"

	"github.com/gin-gonic/gin"
)

func main() {
	if err := global.Load(); err != nil {
		logger.Errorf("load config: %v", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := global.Config()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongo, err := mgo.Connect(ctx, mgo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		logger.Errorf("connect mongo: %v", err)
		os.Exit(1)
	}
	defer func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongo.Close(shutCtx)
	}()

	// Redis only mirrors presence for external consumers; the server runs
	// without it.
	var mirror realtime.PresenceMirror
	if err := storage.InitRedis(ctx, storage.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}); err != nil {
		logger.Warnf("redis unavailable, presence mirror disabled: %v", err)
	} else {
		mirror = storage.PresenceMirror{TTL: cfg.Presence.MirrorTTL}
	}

	store := storage.NewMongoConversationStore(mongo.DB())
	objects, err := storage.NewGridFSObjectStore(mongo.DB())
	if err != nil {
		logger.Errorf("init object store: %v", err)
		os.Exit(1)
	}

	rules := validate.Rules{
		MinUsernameLen:     cfg.Limits.MinUsernameLen,
		MinPasswordLen:     cfg.Limits.MinPasswordLen,
		MaxAttachmentBytes: cfg.Limits.MaxAttachmentBytes,
	}

	dir := presence.NewDirectory()
	registry := realtime.NewConnRegistry()
	emitter := realtime.NewRegistryEmitter(registry, realtime.NewFanout(4, 256))
	relay := realtime.NewMessageRelay(dir, store, objects, rules, emitter)
	signaling := realtime.NewCallSignalingRouter(dir, store, relay, emitter)
	serverEvents := realtime.NewServerEventEmitter(dir, emitter)

	jwtOpts := sec.Options{Secret: global.JwtSecret(), TTL: cfg.JWT.TTL}
	validator := security.JWTValidator{Opts: jwtOpts}

	gateway := realtime.NewGateway(dir, registry, validator, relay, signaling, mirror, false)

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ws", gateway.HandleWS)

	authed := security.Middleware(validator, dir)

	userGroup := r.Group("/user", authed)
	user.NewHandler(dir).Register(userGroup)

	convGroup := r.Group("/conversation", authed)
	chat.NewHandler(store, serverEvents).Register(convGroup)

	srv := &http.Server{Addr: cfg.Listen, Handler: r}
	go func() {
		logger.Infof("listening on %s", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("http server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logger.Warnf("server shutdown: %v", err)
	}
}
