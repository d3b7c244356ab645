package main

import (
	"time"

	"github.com/gin-gonic/gin"

	"crosspost/apps/composer-service/dao"
	"crosspost/apps/composer-service/handler"
	"crosspost/apps/composer-service/model"
	"crosspost/apps/composer-service/service"
	"crosspost/pkg/platform"
	"crosspost/pkg/server"
	"crosspost/pkg/storage"
)

func main() {
	// 创建应用程序
	app := server.NewApplication("composer-service")

	// 启用HTTP和WebSocket服务器
	app.EnableHTTP()
	wsServer := app.EnableWebSocket()

	cfg := app.GetConfig()

	// 初始化PostgreSQL连接
	postgreSQL := app.GetPostgreSQL()

	// 自动迁移数据库表结构
	if err := postgreSQL.AutoMigrate(
		&model.PostDraft{},
		&model.MediaItem{},
		&model.ShortVideoOptions{},
		&model.SubmissionRecord{},
		&model.DispatchRecord{},
	); err != nil {
		panic("Failed to migrate database: " + err.Error())
	}

	// 初始化本地资产存储
	store, err := storage.NewLocalStore(cfg.Storage.RootDir, cfg.Storage.BaseURL, app.GetLogger())
	if err != nil {
		panic("Failed to init asset store: " + err.Error())
	}

	// 初始化DAO层
	composerDAO := dao.NewComposerDAO(postgreSQL)
	archiveDAO := dao.NewArchiveDAO(app.GetMongoDB())

	// 账号能力查询客户端
	capTimeout := parseDuration(cfg.Accounts.Timeout, 10*time.Second)
	capTTL := parseDuration(cfg.Accounts.CapabilitiesTTL, 5*time.Minute)
	capabilities := service.NewAccountCapabilityProvider(
		cfg.Accounts.BaseURL, capTimeout, capTTL, app.GetRedisClient(), app.GetLogger())

	// 平台投递客户端
	connectors := platform.NewConnectorManager(cfg, app.GetKratosLogger())
	dispatcher := service.NewHTTPDispatcher(connectors, store, app.GetLogger())

	// 初始化Service层
	svc := service.NewService(
		composerDAO,
		archiveDAO,
		app.GetRedisClient(),
		app.GetKafkaProducer(),
		store,
		capabilities,
		dispatcher,
		app.GetLogger(),
	)

	// 初始化Handler
	httpHandler := handler.NewHTTPHandler(svc, app.GetLogger())
	wsHandler := handler.NewWSHandler(app.GetRedisClient(), app.GetLogger())

	// 注册HTTP路由
	app.RegisterHTTPRoutes(func(engine *gin.Engine) {
		httpHandler.RegisterRoutes(engine)
	})

	// 注册投递进度推送
	wsServer.RegisterHandler("/api/v1/composer/submission/progress",
		server.WebSocketHandlerFunc(wsHandler.HandleProgress))

	// 运行应用程序
	if err := app.Run(); err != nil {
		panic(err)
	}
}

// parseDuration 解析时间字符串,非法时取默认值
func parseDuration(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return fallback
}
