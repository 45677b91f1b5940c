package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ceneo-opinions/internal/app"
	"ceneo-opinions/internal/checksum"
	"ceneo-opinions/internal/normalize"
	"ceneo-opinions/internal/observability"
	"ceneo-opinions/internal/stats"
	"ceneo-opinions/internal/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

// Extractor runs one product extraction.
type Extractor interface {
	Extract(ctx context.Context, productID string) (*app.Summary, error)
}

// Server is the browser UI and JSON API over extracted products.
type Server struct {
	extractor  Extractor
	repo       storage.Repository
	columns    []string
	logger     *observability.Logger
	metrics    *observability.Metrics
	normalizer *normalize.Normalizer
	checksum   *checksum.Generator
}

func NewServer(
	extractor Extractor,
	repo storage.Repository,
	columns []string,
	normalizer *normalize.Normalizer,
	logger *observability.Logger,
	metrics *observability.Metrics,
) *Server {
	return &Server{
		extractor:  extractor,
		repo:       repo,
		columns:    columns,
		logger:     logger,
		metrics:    metrics,
		normalizer: normalizer,
		checksum:   checksum.NewGenerator(),
	}
}

var templateFuncs = template.FuncMap{
	"rating": func(r stats.Rating) string {
		if math.IsNaN(float64(r)) {
			return "brak"
		}
		return fmt.Sprintf("%.2f", float64(r))
	},
	"percent": percent,
}

func percent(part, total int) string {
	if total == 0 {
		return "0.0"
	}
	return fmt.Sprintf("%.1f", float64(part)*100/float64(total))
}

// SetupRouter configures the Gin router with every page and API route.
func (s *Server) SetupRouter() (*gin.Engine, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	router.SetHTMLTemplate(tmpl)

	router.GET("/", s.HandleIndex)
	router.GET("/author", s.HandleAuthor)
	router.GET("/extract", s.HandleExtractForm)
	router.POST("/extract", s.HandleExtract)
	router.GET("/products", s.HandleProducts)
	router.GET("/product/:id", s.HandleProduct)
	router.GET("/charts/:id", s.HandleCharts)
	router.GET("/export/:id/:format", s.HandleExport)

	api := router.Group("/api")
	api.GET("/products", s.HandleAPIProducts)
	api.GET("/products/:id/stats", s.HandleAPIStats)
	api.GET("/products/:id/opinions", s.HandleAPIOpinions)
	api.GET("/charts/:id", s.HandleAPICharts)

	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	return router, nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start).String(),
		)
	}
}

// ListenAndServe runs the router until ctx is cancelled, then drains
// in-flight requests for at most shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	router, err := s.SetupRouter()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("HTTP server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
