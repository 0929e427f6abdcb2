package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"PairChat/data/database/mgo/mongoutil"
	"PairChat/global/config"
	"PairChat/logger"
	"PairChat/middleware"
	"PairChat/module/chat/message"
	"PairChat/service/chat"
	"PairChat/service/chat/handlers"
	"PairChat/service/filter"
	"PairChat/service/natsx"
	"PairChat/service/notify"
	"PairChat/service/reminder"
	"PairChat/service/storage"
	redisstore "PairChat/service/storage/redis"
)

func main() {
	cfg := config.Load()
	defer logger.Sync()

	// Mongo
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	mcli, err := mongoutil.NewMongoDB(ctx, &mongoutil.Config{
		Uri:      cfg.MongoURI,
		Database: cfg.MongoDatabase,
	})
	cancel()
	if err != nil {
		log.Fatalf("mongo connect failed: %v", err)
	}
	defer mcli.Close(context.Background())

	store := message.NewStore(mcli.GetDB())
	gate := filter.New(cfg.KeywordBaseURL)

	srv := chat.NewServer(cfg.NodeID, store, gate)
	handlers.RegisterAll(srv)

	// 可选：Redis 在线镜像
	var mirror *storage.Mirror
	if cfg.RedisAddr != "" {
		rctx, rcancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err := redisstore.NewClient(rctx, redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		rcancel()
		if err != nil {
			logger.Warnf("[boot] redis unavailable, presence mirror disabled: %v", err)
		} else {
			mirror = storage.NewMirror(rdb, cfg.NodeID, 0)
			srv.SetPresenceMirror(mirror)
		}
	}

	// 可选：NATS 跨网关桥
	if cfg.NatsURL != "" {
		bridge, err := natsx.Dial(cfg.NatsURL, cfg.NodeID)
		if err != nil {
			logger.Warnf("[boot] nats unavailable, fanout bridge disabled: %v", err)
		} else {
			srv.SetBridge(bridge)
			if err := bridge.Subscribe(srv); err != nil {
				logger.Errorf("[boot] bridge subscribe failed: %v", err)
			}
			defer bridge.Close()
		}
	}

	// 提醒调度器
	sched := reminder.NewScheduler(store, notify.New(cfg.NotifyBaseURL, cfg.NotifyTimeout), srv, cfg.SweepInterval)
	sched.Start()
	defer sched.Stop()

	// HTTP + WebSocket
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Origin(cfg.FrontendOrigin))
	r.GET("/ws", srv.HandleWS)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "node": srv.Node()})
	})
	// 在线状态旁路查询：优先问 Redis 镜像（跨节点），镜像不可用退回本地注册表
	r.GET("/presence/:user", func(c *gin.Context) {
		user := c.Param("user")
		if mirror != nil {
			lctx, lcancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			node, online, err := mirror.Lookup(lctx, user)
			lcancel()
			if err == nil {
				c.JSON(http.StatusOK, gin.H{"userId": user, "online": online, "node": node})
				return
			}
			logger.Warnf("[presence] mirror lookup err: %v", err)
		}
		c.JSON(http.StatusOK, gin.H{"userId": user, "online": srv.ConnMgr().IsOnline(user), "node": srv.Node()})
	})

	logger.Infof("[boot] node=%s listening on %s", cfg.NodeID, cfg.ListenAddr)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}
