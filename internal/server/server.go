package server

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mirror173/shop-analyzer/internal/config"
	"github.com/mirror173/shop-analyzer/internal/server/handlers"
)

//go:embed static
var staticFiles embed.FS

// Server HTTP服务器
type Server struct {
	router   *gin.Engine
	handlers *handlers.Handlers
}

// NewServer 创建服务器
func NewServer(cfg *config.AppConfig) *Server {
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		router:   gin.Default(),
		handlers: handlers.NewHandlers(cfg),
	}

	s.setupRoutes(cfg.Server.DevMode)

	return s
}

// setupRoutes 设置路由
func (s *Server) setupRoutes(devMode bool) {
	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	api := s.router.Group("/api/v1")
	{
		api.POST("/upload", s.handlers.UploadFile)
		api.POST("/compare", s.handlers.CompareFiles)

		files := api.Group("/files/:fileId")
		{
			files.GET("/columns", s.handlers.GetColumns)
			files.GET("/months", s.handlers.GetMonths)
			files.GET("/summary", s.handlers.GetSummary)
			files.GET("/analysis", s.handlers.GetAnalysis)
			files.GET("/products", s.handlers.GetProducts)
			files.GET("/shipping", s.handlers.GetShipping)
			files.GET("/daily", s.handlers.GetDaily)
			files.GET("/comparison", s.handlers.GetComparison)
			files.POST("/export", s.handlers.Export)
		}

		api.GET("/export/download/:exportId", s.handlers.Download)
	}

	// 首页：内嵌的单页面仪表板
	sub, _ := fs.Sub(staticFiles, "static")

	s.router.GET("/", func(c *gin.Context) {
		data, err := fs.ReadFile(sub, "index.html")
		if err != nil {
			c.Status(http.StatusNotFound)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", data)
	})

	s.router.NoRoute(func(c *gin.Context) {
		data, err := fs.ReadFile(sub, "index.html")
		if err != nil {
			c.Status(http.StatusNotFound)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", data)
	})
}

// Run 启动服务器
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Router 返回底层路由（用于测试）
func (s *Server) Router() *gin.Engine {
	return s.router
}
