package model

// Record 一行原始数据
// 列集合因数据源而异，按原始列名取值
type Record map[string]Value

// Get 按列名取值，缺失列为Null
func (r Record) Get(column string) Value {
	if v, ok := r[column]; ok {
		return v
	}
	return Null()
}

// Dataset 一份已加载的表格数据
type Dataset struct {
	Columns []string `json:"columns"` // 原始列名，保持表头顺序
	Records []Record `json:"-"`
}

// Len 数据行数
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// SheetInfo 工作表信息
type SheetInfo struct {
	Name     string `json:"name"`
	RowCount int    `json:"rowCount"`
}
