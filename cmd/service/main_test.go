package main

import (
	"BF4Report/internal/config"
	"BF4Report/internal/report"
	"BF4Report/internal/scraper"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const reportsJSON = `{"br_array":[
	{"createdAt":1700000000,"personaName":"Pl@yer#1","kills":40,"R7":5},
	{"createdAt":1700003600,"personaName":"Pl@yer#1","kills":12}
]}`

func init() {
	gin.SetMode(gin.TestMode)
}

func newSite(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, body := range routes {
		body := body
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestRouter(t *testing.T, origins ...string) *gin.Engine {
	logger := zaptest.NewLogger(t)
	h := &handlers{
		scraper: scraper.NewScraper(scraper.Options{Timeout: 2 * time.Second}, logger),
		log:     logger,
	}
	return newRouter(&config.Config{AllowedOrigins: origins}, h)
}

func post(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func urlBody(u string) string {
	b, _ := json.Marshal(ReportsRequest{URL: u})
	return string(b)
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandleReports(t *testing.T) {
	site := newSite(t, map[string]string{
		"/p":    `<script>var cr_url = "/json";</script>`,
		"/json": reportsJSON,
	})

	rec := post(newTestRouter(t), "/api/reports", urlBody(site.URL+"/p"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ReportsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Pl@yer#1", resp.Persona)
	assert.Equal(t, "Pl_yer_1.csv", resp.FileName)
	assert.Equal(t, site.URL+"/json", resp.Endpoint)
	assert.Equal(t, report.Header(), resp.Header)
	require.Len(t, resp.Rows, 2)
	assert.Equal(t, "231114 22:13", resp.Rows[0][0])
	assert.Equal(t, "20", resp.Rows[0][14])
	assert.Equal(t, "0", resp.Rows[1][14])
}

func TestHandleReportsCSV(t *testing.T) {
	site := newSite(t, map[string]string{
		"/p":    `<script>var cr_url = "/json";</script>`,
		"/json": reportsJSON,
	})

	rec := post(newTestRouter(t), "/api/reports/csv", urlBody(site.URL+"/p"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Pl_yer_1.csv"`, rec.Header().Get("Content-Disposition"))

	records, err := csv.NewReader(bytes.NewReader(rec.Body.Bytes())).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestHandleReports_BadRequest(t *testing.T) {
	router := newTestRouter(t)

	assert.Equal(t, http.StatusBadRequest, post(router, "/api/reports", `not json`).Code)
	assert.Equal(t, http.StatusBadRequest, post(router, "/api/reports", `{"url":"  "}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(router, "/api/reports/csv", `{}`).Code)
}

func TestHandleReports_ErrorStatuses(t *testing.T) {
	site := newSite(t, map[string]string{
		"/nomarker":   `<html></html>`,
		"/empty":      `<script>var cr_url = "/empty.json";</script>`,
		"/empty.json": `{"br_array":[]}`,
		"/broken":     `<script>var cr_url = "/missing.json";</script>`,
	})
	router := newTestRouter(t)

	assert.Equal(t, http.StatusUnprocessableEntity, post(router, "/api/reports", urlBody(site.URL+"/nomarker")).Code)
	assert.Equal(t, http.StatusNotFound, post(router, "/api/reports", urlBody(site.URL+"/empty")).Code)
	assert.Equal(t, http.StatusBadGateway, post(router, "/api/reports/csv", urlBody(site.URL+"/broken")).Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(errors.Wrap(scraper.ErrEndpointNotFound, "wrapped")))
	assert.Equal(t, http.StatusNotFound, statusFor(report.ErrNoReports))
	assert.Equal(t, http.StatusBadGateway, statusFor(errors.New("timeout")))
}

func TestCORS_AllowedOrigins(t *testing.T) {
	router := newTestRouter(t, "https://allowed.example")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://allowed.example")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "https://allowed.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
