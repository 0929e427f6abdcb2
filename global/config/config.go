package config

import (
	"os"
	"strconv"
	"time"

	"PairChat/logger"
	"PairChat/tools/ids"
)

// AppConfig 聚合引擎运行所需的全部外部参数。
// 环境变量覆盖默认值；未配置 Redis/NATS 时对应能力关闭。
type AppConfig struct {
	NodeID string // 节点ID（多网关部署时区分来源）

	ListenAddr     string
	FrontendOrigin string

	MongoURI      string
	MongoDatabase string

	RedisAddr     string // 可选：presence 镜像
	RedisPassword string
	RedisDB       int

	NatsURL string // 可选：跨网关 fanout 桥

	KeywordBaseURL string // 违规关键词接口（actions 服务）
	NotifyBaseURL  string // 通知接口（actions 服务）

	SweepInterval time.Duration // 提醒扫描周期
	NotifyTimeout time.Duration // 单次通知调用超时
}

var Global = AppConfig{
	NodeID:         "gateway_1",
	ListenAddr:     ":4000",
	FrontendOrigin: "http://localhost:3000",
	MongoURI:       "mongodb://localhost:27017",
	MongoDatabase:  "pairchat",
	KeywordBaseURL: "http://localhost:8888",
	NotifyBaseURL:  "http://localhost:3001",
	SweepInterval:  time.Minute,
	NotifyTimeout:  5 * time.Second,
}

// Load 从环境变量刷新 Global，并初始化 id 生成器。
func Load() *AppConfig {
	env := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	env("CHAT_NODE_ID", &Global.NodeID)
	env("CHAT_LISTEN_ADDR", &Global.ListenAddr)
	env("FRONTEND_URL", &Global.FrontendOrigin)
	env("MONGO_URI", &Global.MongoURI)
	env("MONGO_DATABASE", &Global.MongoDatabase)
	env("REDIS_ADDR", &Global.RedisAddr)
	env("REDIS_PASSWORD", &Global.RedisPassword)
	env("NATS_URL", &Global.NatsURL)
	env("API_URL", &Global.KeywordBaseURL)
	env("ACTIONS_URL", &Global.NotifyBaseURL)

	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			Global.RedisDB = n
		}
	}
	if v := os.Getenv("CHAT_SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			Global.SweepInterval = d
		}
	}
	if v := os.Getenv("CHAT_NODE_NUM"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			ids.SetNodeID(n)
		}
	}

	logger.Infof("config loaded node=%s listen=%s mongo=%s", Global.NodeID, Global.ListenAddr, Global.MongoDatabase)
	return &Global
}
