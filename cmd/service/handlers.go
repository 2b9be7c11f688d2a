package main

import (
	"BF4Report/internal/report"
	"BF4Report/internal/scraper"
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Структура для входящего запроса
type ReportsRequest struct {
	URL string `json:"url"`
}

// Структура ответа с отчётами в табличном виде
type ReportsResponse struct {
	Persona  string     `json:"persona"`
	FileName string     `json:"file_name"`
	Endpoint string     `json:"endpoint"`
	Header   []string   `json:"header"`
	Rows     [][]string `json:"rows"`
}

type handlers struct {
	scraper *scraper.Scraper
	log     *zap.Logger
}

// statusFor сопоставляет ошибку пайплайна с HTTP статусом
func statusFor(err error) int {
	switch {
	case errors.Is(err, scraper.ErrEndpointNotFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, report.ErrNoReports):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

// scrape разбирает тело запроса и выполняет проход скрапера
func (h *handlers) scrape(c *gin.Context) (*scraper.Result, [][]string, bool) {
	var reqData ReportsRequest
	if err := c.ShouldBindJSON(&reqData); err != nil {
		h.log.Warn("ошибка привязки JSON", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат запроса (ожидался JSON)"})
		return nil, nil, false
	}

	pageURL := strings.TrimSpace(reqData.URL)
	if pageURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL не может быть пустым"})
		return nil, nil, false
	}

	res, err := h.scraper.Scrape(pageURL)
	if err == nil {
		var rows [][]string
		if rows, err = report.Rows(res.Reports); err == nil {
			return res, rows, true
		}
	}

	h.log.Error("ошибка выгрузки отчётов", zap.String("url", pageURL), zap.Error(err))
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
	return nil, nil, false
}

// Обработчик для POST /api/reports
func (h *handlers) handleReports(c *gin.Context) {
	res, rows, ok := h.scrape(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, ReportsResponse{
		Persona:  report.Persona(res.Reports),
		FileName: report.FileName(res.Reports, ""),
		Endpoint: res.EndpointURL,
		Header:   report.Header(),
		Rows:     rows,
	})
}

// Обработчик для POST /api/reports/csv
func (h *handlers) handleReportsCSV(c *gin.Context) {
	res, _, ok := h.scrape(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, res.Reports); err != nil {
		h.log.Error("ошибка формирования CSV", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	filename := report.FileName(res.Reports, "")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// requestLogger пишет каждый запрос в zap
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		log.Info("http запрос",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(started)),
		)
	}
}
