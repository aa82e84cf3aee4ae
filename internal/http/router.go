package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"emotion-diary/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
// Con jwtSvc nil las rutas por usuario quedan sin autenticacion.
func NewRouter(
	logger *zap.Logger,
	healthH *HealthHandler,
	diaryH *DiaryHandler,
	paletteH *PaletteHandler,
	jwtSvc *service.JWTService,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.GET("/", healthH.Root)
	r.GET("/readyz", healthH.Ready)

	protected := r.Group("")
	if jwtSvc != nil {
		protected.Use(JWTAuthMiddleware(jwtSvc))
	}

	protected.POST("/diary", diaryH.PostText)
	protected.POST("/diary/text", diaryH.PostText)
	protected.POST("/diary/audio", diaryH.PostAudio)
	protected.GET("/diary", diaryH.GetEntry)
	protected.GET("/diary/similar", diaryH.GetSimilar)

	users := protected.Group("/users/:uid")
	users.GET("/palette", paletteH.GetPalette)
	users.PUT("/palette", paletteH.PutPalette)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
