package http

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/rent-estimator/internal/infra/config"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.tmpl")))
	router.Use(
		gin.Recovery(),
		requestID(),
		requestLogger(handler.logger),
		errorHandlingMiddleware(handler.logger),
	)

	limit := rateLimitMiddleware(cfg.HTTP.RateLimit, handler.logger)

	router.GET("/", handler.Home)
	router.GET("/healthz", handler.Health)
	views := router.Group("/views/:id")
	{
		views.GET("", handler.ShowView)
		views.POST("/estimate", limit, handler.SubmitForm)
		views.POST("/close", handler.CloseView)
	}

	api := router.Group("/api/v1", corsMiddleware(cfg.HTTP.AllowedOrigins))
	{
		api.OPTIONS("/*path", func(c *gin.Context) {})
		api.POST("/views", handler.MountView)
		api.GET("/views/:id", handler.GetView)
		api.POST("/views/:id/estimate", limit, handler.Estimate)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
