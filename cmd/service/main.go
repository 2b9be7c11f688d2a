package main

import (
	"BF4Report/internal/config"
	"BF4Report/internal/logging"
	"BF4Report/internal/scraper"
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// newRouter настраивает маршруты и CORS
func newRouter(cfg *config.Config, h *handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(h.log))

	// Настройка CORS
	corsCfg := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
		h.log.Info("CORS настроен", zap.Strings("origins", cfg.AllowedOrigins))
	} else {
		// Fallback для разработки
		h.log.Warn("ALLOWED_ORIGINS не установлен, используется AllowAllOrigins (небезопасно для production!)")
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.ExposeHeaders = []string{"Content-Disposition"}
	router.Use(cors.New(corsCfg))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/api/reports", h.handleReports)
	router.POST("/api/reports/csv", h.handleReportsCSV)

	return router
}

func main() {
	// Загрузка переменных окружения из .env файла
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		log.Fatalf("Ошибка инициализации логгера: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Настройка режима Gin (production/debug)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	h := &handlers{
		scraper: scraper.NewScraper(scraper.Options{
			Timeout:            cfg.RequestTimeout,
			UserAgent:          cfg.UserAgent,
			InsecureSkipVerify: !cfg.SSLVerify,
			MaxBodySize:        cfg.MaxBodySize,
		}, logger),
		log: logger,
	}

	router := newRouter(cfg, h)

	addr := cfg.Addr()
	logger.Info("сервер запущен", zap.String("addr", "http://"+addr))

	if err := router.Run(addr); err != nil {
		logger.Fatal("ошибка сервера", zap.Error(err))
	}
}
