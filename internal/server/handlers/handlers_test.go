package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/mirror173/shop-analyzer/internal/config"
)

func newTestRouter() (*gin.Engine, *Handlers) {
	gin.SetMode(gin.TestMode)

	h := NewHandlers(config.DefaultConfig())

	r := gin.New()
	api := r.Group("/api/v1")
	{
		api.POST("/upload", h.UploadFile)
		api.POST("/compare", h.CompareFiles)
		api.GET("/files/:fileId/columns", h.GetColumns)
		api.GET("/files/:fileId/months", h.GetMonths)
		api.GET("/files/:fileId/summary", h.GetSummary)
		api.GET("/files/:fileId/products", h.GetProducts)
		api.GET("/files/:fileId/shipping", h.GetShipping)
		api.GET("/export/download/:exportId", h.Download)
	}
	return r, h
}

// fixtureXLSX 构造测试工作簿字节
func fixtureXLSX(t *testing.T) []byte {
	t.Helper()

	f := excelize.NewFile()
	rows := [][]interface{}{
		{"商品中文名称", "商品数量", "商品总金额", "运费", "付款时间"},
		{"连衣裙", 2, 199.8, 10, "2024-05-01"},
		{"衬衫", 1, 89.9, 0, "2024-06-02"},
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			if err := f.SetCellValue("Sheet1", cell, v); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

// uploadFixture 上传测试工作簿并返回fileId
func uploadFixture(t *testing.T, r *gin.Engine) string {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "sales.xlsx")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := part.Write(fixtureXLSX(t)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	resp := decodeResponse(t, w)
	if resp.Code != 0 {
		t.Fatalf("upload failed: %+v", resp)
	}

	data := resp.Data.(map[string]interface{})
	fileID, _ := data["fileId"].(string)
	if fileID == "" {
		t.Fatalf("missing fileId: %+v", data)
	}
	return fileID
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestUploadAndColumns(t *testing.T) {
	r, _ := newTestRouter()
	fileID := uploadFixture(t, r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/files/"+fileID+"/columns", nil))

	resp := decodeResponse(t, w)
	if resp.Code != 0 {
		t.Fatalf("columns failed: %+v", resp)
	}

	data := resp.Data.(map[string]interface{})
	columns, _ := data["columns"].([]interface{})
	if len(columns) != 5 {
		t.Fatalf("expected 5 columns, got %v", columns)
	}
	mapping, _ := data["mapping"].(map[string]interface{})
	if mapping["product"] != "商品中文名称" || mapping["amount"] != "商品总金额" {
		t.Fatalf("unexpected mapping: %v", mapping)
	}
}

func TestUpload_RejectsBadExtension(t *testing.T) {
	r, _ := newTestRouter()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, _ := writer.CreateFormFile("file", "sales.csv")
	part.Write([]byte("a,b,c"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	resp := decodeResponse(t, w)
	if resp.Code != 1002 {
		t.Fatalf("expected code 1002, got %d", resp.Code)
	}
}

func TestGetMonths(t *testing.T) {
	r, _ := newTestRouter()
	fileID := uploadFixture(t, r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/files/"+fileID+"/months", nil))

	resp := decodeResponse(t, w)
	data := resp.Data.(map[string]interface{})
	months, _ := data["months"].([]interface{})
	if len(months) != 2 || months[0] != "2024-05" || months[1] != "2024-06" {
		t.Fatalf("unexpected months: %v", months)
	}
}

func TestGetProducts(t *testing.T) {
	r, _ := newTestRouter()
	fileID := uploadFixture(t, r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/files/"+fileID+"/products?mode=product", nil))

	resp := decodeResponse(t, w)
	if resp.Code != 0 {
		t.Fatalf("products failed: %+v", resp)
	}

	raw, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var summary struct {
		Rows []struct {
			Key     string  `json:"key"`
			Revenue float64 `json:"revenue"`
		} `json:"rows"`
	}
	if err := json.Unmarshal(raw, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if len(summary.Rows) != 2 || summary.Rows[0].Key != "连衣裙" {
		t.Fatalf("unexpected rows: %+v", summary.Rows)
	}
}

func TestGetShipping(t *testing.T) {
	r, _ := newTestRouter()
	fileID := uploadFixture(t, r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/files/"+fileID+"/shipping", nil))

	resp := decodeResponse(t, w)
	if resp.Code != 0 {
		t.Fatalf("shipping failed: %+v", resp)
	}
	if !strings.Contains(w.Body.String(), "免运费") {
		t.Fatalf("expected shipping buckets in response")
	}
}

func TestUnknownFile(t *testing.T) {
	r, _ := newTestRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/files/nope/summary", nil))

	resp := decodeResponse(t, w)
	if resp.Code != 2001 {
		t.Fatalf("expected code 2001, got %d", resp.Code)
	}
}

func TestDownload_ExpiredExportEvicted(t *testing.T) {
	r, h := newTestRouter()

	path := filepath.Join(t.TempDir(), "export.xlsx")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	h.exportsMu.Lock()
	h.exports["expired"] = exportEntry{Path: path, ExpiresAt: time.Now().Add(-time.Minute)}
	h.exportsMu.Unlock()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/export/download/expired", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for expired export, got %d", w.Code)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expired export file must be removed")
	}

	h.exportsMu.RLock()
	_, stillThere := h.exports["expired"]
	h.exportsMu.RUnlock()
	if stillThere {
		t.Fatalf("expired export entry must be evicted")
	}
}

func TestDownload_LiveExport(t *testing.T) {
	r, h := newTestRouter()

	path := filepath.Join(t.TempDir(), "export.xlsx")
	if err := os.WriteFile(path, []byte("workbook"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	h.exportsMu.Lock()
	h.exports["live"] = exportEntry{Path: path, ExpiresAt: time.Now().Add(time.Hour)}
	h.exportsMu.Unlock()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/export/download/live", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "workbook" {
		t.Fatalf("unexpected body: %q", w.Body.String())
	}
}

func TestCompareFiles(t *testing.T) {
	r, _ := newTestRouter()
	baseID := uploadFixture(t, r)
	curID := uploadFixture(t, r)

	payload, _ := json.Marshal(map[string]string{
		"baselineFileId": baseID,
		"currentFileId":  curID,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/compare", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	resp := decodeResponse(t, w)
	if resp.Code != 0 {
		t.Fatalf("compare failed: %+v", resp)
	}
	data := resp.Data.(map[string]interface{})
	if data["comparison"] == nil || data["monthlyStats"] == nil {
		t.Fatalf("missing comparison payload: %v", data)
	}
}
