package excel

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/mirror173/shop-analyzer/internal/model"
)

// Parser Excel解析器
type Parser struct {
	file   *excelize.File
	fileID string
}

// NewParser 创建解析器
func NewParser() *Parser {
	return &Parser{
		fileID: uuid.New().String(),
	}
}

// LoadFile 加载Excel文件
func (p *Parser) LoadFile(reader io.Reader) error {
	file, err := excelize.OpenReader(reader)
	if err != nil {
		return fmt.Errorf("failed to open excel: %w", err)
	}
	p.file = file
	return nil
}

// GetFileID 获取文件ID
func (p *Parser) GetFileID() string {
	return p.fileID
}

// GetSheets 获取工作表列表
func (p *Parser) GetSheets() ([]model.SheetInfo, error) {
	if p.file == nil {
		return nil, errors.New("no file loaded")
	}

	sheets := p.file.GetSheetList()
	result := make([]model.SheetInfo, 0, len(sheets))

	for _, name := range sheets {
		rows, err := p.file.GetRows(name)
		if err != nil {
			continue
		}
		result = append(result, model.SheetInfo{
			Name:     name,
			RowCount: len(rows),
		})
	}

	return result, nil
}

// FirstSheet 返回第一个工作表名
func (p *Parser) FirstSheet() (string, error) {
	if p.file == nil {
		return "", errors.New("no file loaded")
	}
	sheets := p.file.GetSheetList()
	if len(sheets) == 0 {
		return "", errors.New("workbook has no sheets")
	}
	return sheets[0], nil
}

// GetColumns 获取列名（首行）
func (p *Parser) GetColumns(sheet string) ([]string, error) {
	if p.file == nil {
		return nil, errors.New("no file loaded")
	}

	rows, err := p.file.GetRows(sheet)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, errors.New("empty sheet")
	}

	return rows[0], nil
}

// GetPreviewRows 获取预览行
func (p *Parser) GetPreviewRows(sheet string, limit int) ([][]string, error) {
	if p.file == nil {
		return nil, errors.New("no file loaded")
	}

	rows, err := p.file.GetRows(sheet)
	if err != nil {
		return nil, err
	}

	if len(rows) <= 1 {
		return [][]string{}, nil
	}

	end := limit + 1
	if end > len(rows) {
		end = len(rows)
	}

	return rows[1:end], nil
}

// Records 将工作表解析为记录集
// 首行为表头，单元格做宽松类型转换；解析失败的单元格为空值，行不丢弃
func (p *Parser) Records(sheet string) (*model.Dataset, error) {
	if p.file == nil {
		return nil, errors.New("no file loaded")
	}

	rows, err := p.file.GetRows(sheet)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, errors.New("empty sheet")
	}

	header := rows[0]
	dataset := &model.Dataset{
		Columns: header,
		Records: make([]model.Record, 0, len(rows)-1),
	}

	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		rec := make(model.Record, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			if i < len(row) {
				rec[col] = model.CoerceCell(row[i])
			} else {
				rec[col] = model.Null()
			}
		}
		dataset.Records = append(dataset.Records, rec)
	}

	return dataset, nil
}

// isBlankRow 判断整行是否为空
func isBlankRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
