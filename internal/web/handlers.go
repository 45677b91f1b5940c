package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ceneo-opinions/internal/app"
	"ceneo-opinions/internal/export"
	"ceneo-opinions/internal/scraper"
	"ceneo-opinions/internal/stats"
	"ceneo-opinions/internal/storage"
)

// User-facing messages of the extract form.
const (
	msgMissingID     = "Podaj id produktu"
	msgInvalidID     = "Nieprawidłowe id produktu"
	msgNotFound      = "Nie znaleziono produktu o podanym id"
	msgNoReviews     = "Dla produktu o podanym id nie ma jeszcze żadnych opinii"
	msgInProgress    = "Ekstrakcja opinii tego produktu już trwa, spróbuj za chwilę"
	msgMalformed     = "Nie udało się odczytać ocen w opiniach tego produktu"
	msgExtractFailed = "Wystąpił błąd podczas pobierania opinii"
	msgNoData        = "Brak danych dla tego produktu"
	msgNoOpinion     = "Nie mam zdania"
)

// errorResponse creates a standardized error response.
func errorResponse(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// handleAPIError maps storage errors to JSON responses.
func (s *Server) handleAPIError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse("not_found", msgNoData))
	case errors.Is(err, storage.ErrInvalidProductID):
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", msgInvalidID))
	default:
		s.logger.Error("Request failed", "path", c.Request.URL.Path, "error", err.Error())
		c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to process request"))
	}
}

// handlePageError renders the not-found page for missing products.
func (s *Server) handlePageError(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidProductID) {
		c.HTML(http.StatusNotFound, "not_found.html", gin.H{"Message": msgNoData})
		return
	}
	s.logger.Error("Request failed", "path", c.Request.URL.Path, "error", err.Error())
	c.HTML(http.StatusInternalServerError, "not_found.html", gin.H{"Message": msgExtractFailed})
}

func (s *Server) HandleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", nil)
}

func (s *Server) HandleAuthor(c *gin.Context) {
	c.HTML(http.StatusOK, "author.html", nil)
}

func (s *Server) HandleExtractForm(c *gin.Context) {
	c.HTML(http.StatusOK, "extract.html", gin.H{"ProductID": ""})
}

// HandleExtract handles POST /extract.
func (s *Server) HandleExtract(c *gin.Context) {
	productID := strings.TrimSpace(c.PostForm("product_id"))
	if productID == "" {
		c.HTML(http.StatusBadRequest, "extract.html", gin.H{"Error": msgMissingID, "ProductID": ""})
		return
	}

	_, err := s.extractor.Extract(c.Request.Context(), productID)
	if err != nil {
		status, message := extractFailure(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("Extraction failed", "product_id", productID, "error", err.Error())
		}
		c.HTML(status, "extract.html", gin.H{"Error": message, "ProductID": productID})
		return
	}

	c.Redirect(http.StatusSeeOther, "/product/"+productID)
}

func extractFailure(err error) (int, string) {
	var malformed *stats.MalformedRatingError
	switch {
	case errors.Is(err, storage.ErrInvalidProductID):
		return http.StatusBadRequest, msgInvalidID
	case errors.Is(err, scraper.ErrProductNotFound):
		return http.StatusNotFound, msgNotFound
	case errors.Is(err, scraper.ErrNoReviewsYet):
		return http.StatusOK, msgNoReviews
	case errors.Is(err, app.ErrExtractionInProgress):
		return http.StatusConflict, msgInProgress
	case errors.As(err, &malformed):
		return http.StatusUnprocessableEntity, msgMalformed
	default:
		return http.StatusInternalServerError, msgExtractFailed
	}
}

// HandleProducts handles GET /products.
func (s *Server) HandleProducts(c *gin.Context) {
	products, err := s.repo.ListStats(c.Request.Context())
	if err != nil {
		s.logger.Error("Failed to list products", "error", err.Error())
		products = []*stats.ProductStats{}
	}
	c.HTML(http.StatusOK, "products.html", gin.H{"Products": products})
}

type cell struct {
	Text  string
	Title string
}

// HandleProduct handles GET /product/:id.
func (s *Server) HandleProduct(c *gin.Context) {
	productID := c.Param("id")
	records, err := s.repo.Opinions(c.Request.Context(), productID)
	if err != nil {
		s.handlePageError(c, err)
		return
	}

	productName := ""
	if st, err := s.repo.Stats(c.Request.Context(), productID); err == nil {
		productName = st.ProductName
	}

	rows := make([][]cell, 0, len(records))
	for _, r := range records {
		row := make([]cell, len(s.columns))
		for i, name := range s.columns {
			text := export.Cell(r.Get(name))
			if name == scraper.FieldContent {
				full := s.normalizer.CleanText(text)
				row[i] = cell{Text: s.normalizer.TruncatePreview(full), Title: full}
				continue
			}
			row[i] = cell{Text: text}
		}
		rows = append(rows, row)
	}

	c.HTML(http.StatusOK, "product.html", gin.H{
		"ProductID":   productID,
		"ProductName": productName,
		"Columns":     s.columns,
		"Rows":        rows,
		"Formats":     []export.Format{export.FormatCSV, export.FormatXLSX, export.FormatJSON},
	})
}

// ChartSlice is one labelled count of a chart.
type ChartSlice struct {
	Label   string `json:"label"`
	Count   int    `json:"count"`
	Percent string `json:"-"`
}

// ChartData feeds both the charts page and GET /api/charts/:id.
type ChartData struct {
	ProductID       string              `json:"product_id"`
	ProductName     string              `json:"product_name"`
	Recommendations []ChartSlice        `json:"recommendations"`
	Stars           []stats.StarsBucket `json:"stars"`
}

func (s *Server) chartData(c *gin.Context) (*ChartData, error) {
	productID := c.Param("id")
	st, err := s.repo.Stats(c.Request.Context(), productID)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.Opinions(c.Request.Context(), productID)
	if err != nil {
		return nil, err
	}
	hist, err := stats.StarsHistogram(records)
	if err != nil {
		return nil, err
	}

	total := st.Recommendations.Total()
	slices := make([]ChartSlice, 0, len(st.Recommendations))
	for _, b := range st.Recommendations {
		label := b.Label()
		if b.Key == nil {
			label = msgNoOpinion
		}
		slices = append(slices, ChartSlice{
			Label:   label,
			Count:   b.Count,
			Percent: percent(b.Count, total),
		})
	}

	return &ChartData{
		ProductID:       productID,
		ProductName:     st.ProductName,
		Recommendations: slices,
		Stars:           hist,
	}, nil
}

// HandleCharts handles GET /charts/:id.
func (s *Server) HandleCharts(c *gin.Context) {
	data, err := s.chartData(c)
	if err != nil {
		s.handlePageError(c, err)
		return
	}

	maxStars := 0
	for _, b := range data.Stars {
		if b.Count > maxStars {
			maxStars = b.Count
		}
	}
	c.HTML(http.StatusOK, "charts.html", gin.H{
		"Chart":    data,
		"MaxStars": maxStars,
	})
}

// HandleAPICharts handles GET /api/charts/:id.
func (s *Server) HandleAPICharts(c *gin.Context) {
	data, err := s.chartData(c)
	if err != nil {
		s.handleAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// HandleExport handles GET /export/:id/:format.
func (s *Server) HandleExport(c *gin.Context) {
	productID := c.Param("id")
	records, err := s.repo.Opinions(c.Request.Context(), productID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) && !errors.Is(err, storage.ErrInvalidProductID) {
		s.logger.Error("Failed to load opinions", "product_id", productID, "error", err.Error())
		c.String(http.StatusInternalServerError, msgExtractFailed)
		return
	}
	if len(records) == 0 {
		c.String(http.StatusNotFound, msgNoData)
		return
	}

	format, err := export.ParseFormat(c.Param("format"))
	if err != nil {
		c.String(http.StatusBadRequest, "Unsupported format")
		return
	}

	data, err := export.Render(format, records, s.columns)
	if err != nil {
		s.logger.Error("Export failed", "product_id", productID, "format", string(format), "error", err.Error())
		c.String(http.StatusInternalServerError, msgExtractFailed)
		return
	}

	etag := s.checksum.ETag(data)
	c.Header("ETag", etag)
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+format.Filename(productID)+`"`)
	c.Data(http.StatusOK, format.ContentType(), data)
}

// ListProductsResponse represents the response for GET /api/products.
type ListProductsResponse struct {
	Products []*stats.ProductStats `json:"products"`
	Total    int                   `json:"total"`
}

// HandleAPIProducts handles GET /api/products.
func (s *Server) HandleAPIProducts(c *gin.Context) {
	products, err := s.repo.ListStats(c.Request.Context())
	if err != nil {
		s.handleAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListProductsResponse{Products: products, Total: len(products)})
}

// HandleAPIStats handles GET /api/products/:id/stats.
func (s *Server) HandleAPIStats(c *gin.Context) {
	st, err := s.repo.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.handleAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// HandleAPIOpinions handles GET /api/products/:id/opinions.
func (s *Server) HandleAPIOpinions(c *gin.Context) {
	records, err := s.repo.Opinions(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.handleAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}
