package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mirror173/shop-analyzer/internal/analyzer"
	"github.com/mirror173/shop-analyzer/internal/config"
	"github.com/mirror173/shop-analyzer/internal/model"
	"github.com/mirror173/shop-analyzer/internal/schema"
	"github.com/mirror173/shop-analyzer/internal/service/excel"
)

// Handlers API处理器
type Handlers struct {
	cfg *config.AppConfig

	// 上传文件缓存
	uploads   map[string]*uploadedFile
	uploadsMu sync.RWMutex

	// 导出文件缓存，条目到期后在访问时清理
	exports   map[string]exportEntry
	exportsMu sync.RWMutex
}

// exportTTL 导出文件保留时长
const exportTTL = time.Hour

// exportEntry 已导出的临时文件
type exportEntry struct {
	Path      string
	ExpiresAt time.Time
}

// uploadedFile 已上传文件及其按工作表缓存的解析结果
type uploadedFile struct {
	FileName string
	Parser   *excel.Parser

	mu       sync.Mutex
	datasets map[string]*model.Dataset
}

// NewHandlers 创建处理器
func NewHandlers(cfg *config.AppConfig) *Handlers {
	return &Handlers{
		cfg:     cfg,
		uploads: make(map[string]*uploadedFile),
		exports: make(map[string]exportEntry),
	}
}

// Response 通用响应
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func errorResponse(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

// ==================== Upload ====================

// UploadFile 上传Excel文件
func (h *Handlers) UploadFile(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		errorResponse(c, 1001, "请上传文件")
		return
	}
	defer file.Close()

	maxBytes := h.cfg.Data.MaxUploadMB * 1024 * 1024
	if header.Size > maxBytes {
		errorResponse(c, 1003, fmt.Sprintf("文件过大，最大支持%dMB", h.cfg.Data.MaxUploadMB))
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".xlsx" && ext != ".xls" {
		errorResponse(c, 1002, "仅支持 .xlsx 和 .xls 格式")
		return
	}

	parser := excel.NewParser()
	if err := parser.LoadFile(file); err != nil {
		errorResponse(c, 1002, "文件解析失败: "+err.Error())
		return
	}

	sheets, err := parser.GetSheets()
	if err != nil {
		errorResponse(c, 1002, "获取工作表失败")
		return
	}

	fileID := parser.GetFileID()

	h.uploadsMu.Lock()
	h.uploads[fileID] = &uploadedFile{
		FileName: header.Filename,
		Parser:   parser,
		datasets: make(map[string]*model.Dataset),
	}
	h.uploadsMu.Unlock()

	success(c, gin.H{
		"fileId":   fileID,
		"fileName": header.Filename,
		"fileSize": header.Size,
		"sheets":   sheets,
	})
}

// upload 按ID取上传缓存
func (h *Handlers) upload(fileID string) (*uploadedFile, bool) {
	h.uploadsMu.RLock()
	defer h.uploadsMu.RUnlock()
	up, ok := h.uploads[fileID]
	return up, ok
}

// dataset 取指定工作表的记录集（带缓存）和角色映射
// sheet为空时取第一个工作表
func (h *Handlers) dataset(fileID, sheet string) (*model.Dataset, schema.RoleMapping, error) {
	up, ok := h.upload(fileID)
	if !ok {
		return nil, nil, fmt.Errorf("文件不存在或已过期")
	}

	if sheet == "" {
		first, err := up.Parser.FirstSheet()
		if err != nil {
			return nil, nil, err
		}
		sheet = first
	}

	up.mu.Lock()
	defer up.mu.Unlock()

	ds, cached := up.datasets[sheet]
	if !cached {
		parsed, err := up.Parser.Records(sheet)
		if err != nil {
			return nil, nil, err
		}
		up.datasets[sheet] = parsed
		ds = parsed
	}

	return ds, schema.Resolve(ds.Columns), nil
}

// ==================== Schema ====================

// GetColumns 获取列信息、自动识别的角色映射和预览行
func (h *Handlers) GetColumns(c *gin.Context) {
	fileID := c.Param("fileId")
	sheet := c.Query("sheet")

	up, ok := h.upload(fileID)
	if !ok {
		errorResponse(c, 2001, "文件不存在或已过期")
		return
	}

	if sheet == "" {
		first, err := up.Parser.FirstSheet()
		if err != nil {
			errorResponse(c, 2002, err.Error())
			return
		}
		sheet = first
	}

	columns, err := up.Parser.GetColumns(sheet)
	if err != nil {
		errorResponse(c, 2002, "读取列名失败: "+err.Error())
		return
	}

	preview, err := up.Parser.GetPreviewRows(sheet, 10)
	if err != nil {
		preview = [][]string{}
	}

	success(c, gin.H{
		"sheet":   sheet,
		"columns": columns,
		"mapping": schema.Resolve(columns),
		"preview": preview,
	})
}

// GetMonths 获取数据集中可用的月份列表
func (h *Handlers) GetMonths(c *gin.Context) {
	fileID := c.Param("fileId")
	sheet := c.Query("sheet")

	ds, mapping, err := h.dataset(fileID, sheet)
	if err != nil {
		errorResponse(c, 2001, err.Error())
		return
	}

	_, months, ok := analyzer.SplitByMonth(ds.Records, mapping)
	if !ok {
		success(c, gin.H{"months": []string{}})
		return
	}

	success(c, gin.H{"months": months})
}

// ==================== Analysis ====================

// analyzeOptions 从请求参数构造分析选项
// 对比月份未显式给出时，默认取数据中最近的两个月份
func (h *Handlers) analyzeOptions(c *gin.Context, ds *model.Dataset, mapping schema.RoleMapping) analyzer.Options {
	opts := analyzer.Options{
		TopN:          h.cfg.Analysis.TopN,
		BaselineMonth: c.Query("baseline"),
		CurrentMonth:  c.Query("current"),
	}

	if top, err := strconv.Atoi(c.Query("top")); err == nil && top > 0 {
		opts.TopN = top
	}

	if opts.BaselineMonth == "" && opts.CurrentMonth == "" {
		if baseline, current, ok := analyzer.LatestPeriods(ds.Records, mapping); ok {
			opts.BaselineMonth = baseline
			opts.CurrentMonth = current
		}
	}

	return opts
}

// GetAnalysis 获取完整分析结果
func (h *Handlers) GetAnalysis(c *gin.Context) {
	fileID := c.Param("fileId")
	sheet := c.Query("sheet")

	ds, mapping, err := h.dataset(fileID, sheet)
	if err != nil {
		errorResponse(c, 2001, err.Error())
		return
	}

	bundle := analyzer.Analyze(ds.Records, mapping, h.analyzeOptions(c, ds, mapping))
	success(c, bundle)
}

// GetSummary 获取数据集整体指标
func (h *Handlers) GetSummary(c *gin.Context) {
	fileID := c.Param("fileId")

	ds, mapping, err := h.dataset(fileID, c.Query("sheet"))
	if err != nil {
		errorResponse(c, 2001, err.Error())
		return
	}

	success(c, analyzer.Summarize(ds.Records, mapping))
}

// GetProducts 获取分组聚合结果
// mode: product / product_size / category / size
func (h *Handlers) GetProducts(c *gin.Context) {
	fileID := c.Param("fileId")
	mode := analyzer.GroupMode(c.DefaultQuery("mode", string(analyzer.GroupByProduct)))

	ds, mapping, err := h.dataset(fileID, c.Query("sheet"))
	if err != nil {
		errorResponse(c, 2001, err.Error())
		return
	}

	summary, ok := analyzer.Aggregate(ds.Records, mapping, mode)
	if !ok {
		errorResponse(c, 3001, "缺少分组列或数值列，无法聚合")
		return
	}

	if top, err := strconv.Atoi(c.Query("top")); err == nil && top > 0 {
		summary.Rows = summary.Top(top)
	}

	success(c, summary)
}

// GetShipping 获取运费分布
func (h *Handlers) GetShipping(c *gin.Context) {
	fileID := c.Param("fileId")

	ds, mapping, err := h.dataset(fileID, c.Query("sheet"))
	if err != nil {
		errorResponse(c, 2001, err.Error())
		return
	}

	dist, ok := analyzer.DistributeShipping(ds.Records, mapping)
	if !ok {
		errorResponse(c, 3002, "缺少运费列，无法分析运费分布")
		return
	}

	success(c, dist)
}

// GetDaily 获取每日趋势
func (h *Handlers) GetDaily(c *gin.Context) {
	fileID := c.Param("fileId")

	ds, mapping, err := h.dataset(fileID, c.Query("sheet"))
	if err != nil {
		errorResponse(c, 2001, err.Error())
		return
	}

	trend, ok := analyzer.DailyRollup(ds.Records, mapping)
	if !ok {
		errorResponse(c, 3003, "缺少日期列，无法分析每日趋势")
		return
	}

	success(c, trend)
}

// GetComparison 获取同一文件内两个月份的对比
func (h *Handlers) GetComparison(c *gin.Context) {
	fileID := c.Param("fileId")

	ds, mapping, err := h.dataset(fileID, c.Query("sheet"))
	if err != nil {
		errorResponse(c, 2001, err.Error())
		return
	}

	baseline := c.Query("baseline")
	current := c.Query("current")
	if baseline == "" || current == "" {
		b, cur, ok := analyzer.LatestPeriods(ds.Records, mapping)
		if !ok {
			errorResponse(c, 3004, "数据不足两个月份，无法对比")
			return
		}
		baseline, current = b, cur
	}

	mode := analyzer.GroupMode(c.DefaultQuery("mode", string(analyzer.GroupByProduct)))
	comparison, ok := analyzer.ComparePeriods(ds.Records, mapping, baseline, current, mode)
	if !ok {
		errorResponse(c, 3004, fmt.Sprintf("月份 %s / %s 无法对比", baseline, current))
		return
	}

	success(c, gin.H{
		"baselineMonth": baseline,
		"currentMonth":  current,
		"comparison":    comparison,
	})
}

// CompareFiles 对比两个独立上传文件
func (h *Handlers) CompareFiles(c *gin.Context) {
	var req struct {
		BaselineFileID string `json:"baselineFileId"`
		CurrentFileID  string `json:"currentFileId"`
		BaselineSheet  string `json:"baselineSheet"`
		CurrentSheet   string `json:"currentSheet"`
		Mode           string `json:"mode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, 1001, "参数错误")
		return
	}

	baseDS, baseMapping, err := h.dataset(req.BaselineFileID, req.BaselineSheet)
	if err != nil {
		errorResponse(c, 2001, "基期文件: "+err.Error())
		return
	}
	curDS, curMapping, err := h.dataset(req.CurrentFileID, req.CurrentSheet)
	if err != nil {
		errorResponse(c, 2001, "本期文件: "+err.Error())
		return
	}

	mode := analyzer.GroupByProduct
	if req.Mode != "" {
		mode = analyzer.GroupMode(req.Mode)
	}

	comparison, ok := analyzer.CompareDatasets(baseDS.Records, baseMapping, curDS.Records, curMapping, mode)
	if !ok {
		errorResponse(c, 3004, "缺少分组列或数值列，无法对比")
		return
	}

	success(c, gin.H{
		"comparison":   comparison,
		"monthlyStats": analyzer.Overview(analyzer.Summarize(baseDS.Records, baseMapping), analyzer.Summarize(curDS.Records, curMapping)),
	})
}

// ==================== Export ====================

// Export 导出分析结果到Excel
func (h *Handlers) Export(c *gin.Context) {
	fileID := c.Param("fileId")

	ds, mapping, err := h.dataset(fileID, c.Query("sheet"))
	if err != nil {
		errorResponse(c, 2001, err.Error())
		return
	}

	bundle := analyzer.Analyze(ds.Records, mapping, h.analyzeOptions(c, ds, mapping))

	exporter := excel.NewExporter()
	file, err := exporter.Export(bundle)
	if err != nil {
		errorResponse(c, 3005, "导出失败: "+err.Error())
		return
	}

	exportID := uuid.New().String()
	tmpPath := filepath.Join(os.TempDir(), fmt.Sprintf("shop_analyzer_export_%s.xlsx", exportID))
	if err := file.SaveAs(tmpPath); err != nil {
		errorResponse(c, 3005, "保存失败")
		return
	}

	expiresAt := time.Now().Add(exportTTL)

	h.exportsMu.Lock()
	h.evictExpiredLocked()
	h.exports[exportID] = exportEntry{Path: tmpPath, ExpiresAt: expiresAt}
	h.exportsMu.Unlock()

	success(c, gin.H{
		"downloadUrl": fmt.Sprintf("/api/v1/export/download/%s", exportID),
		"expiresAt":   expiresAt.Format(time.RFC3339),
	})
}

// evictExpiredLocked 删除已过期的导出条目及其临时文件
// 调用方需持有exportsMu写锁
func (h *Handlers) evictExpiredLocked() {
	now := time.Now()
	for id, entry := range h.exports {
		if now.After(entry.ExpiresAt) {
			os.Remove(entry.Path)
			delete(h.exports, id)
		}
	}
}

// Download 下载导出文件
func (h *Handlers) Download(c *gin.Context) {
	exportID := c.Param("exportId")

	h.exportsMu.RLock()
	entry, ok := h.exports[exportID]
	h.exportsMu.RUnlock()

	if ok && time.Now().After(entry.ExpiresAt) {
		h.exportsMu.Lock()
		delete(h.exports, exportID)
		h.exportsMu.Unlock()
		os.Remove(entry.Path)
		ok = false
	}

	if !ok {
		c.String(http.StatusNotFound, "文件不存在或已过期")
		return
	}

	c.Header("Content-Disposition", "attachment; filename=shop_analyzer_export.xlsx")
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.File(entry.Path)
}
