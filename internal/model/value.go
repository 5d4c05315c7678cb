package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind 单元格值类型
type Kind int

const (
	KindNull   Kind = iota // 空值
	KindText               // 文本
	KindNumber             // 数值
	KindDate               // 日期
)

// Value 单元格标量值
// 数值和日期保留原始文本，便于展示和分组
type Value struct {
	Kind   Kind
	Text   string
	Number float64
	Date   time.Time
}

// Null 创建空值
func Null() Value {
	return Value{Kind: KindNull}
}

// NewText 创建文本值
func NewText(s string) Value {
	return Value{Kind: KindText, Text: s}
}

// NewNumber 创建数值
func NewNumber(f float64) Value {
	return Value{Kind: KindNumber, Number: f}
}

// NewDate 创建日期值
func NewDate(t time.Time) Value {
	return Value{Kind: KindDate, Date: t}
}

// IsNull 判断是否为空值
func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

// AsString 返回展示用字符串
func (v Value) AsString() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindText:
		return v.Text
	case KindNumber:
		if v.Text != "" {
			return v.Text
		}
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindDate:
		if v.Text != "" {
			return v.Text
		}
		return v.Date.Format("2006-01-02")
	}
	return ""
}

// AsFloat 返回数值，非数值按0处理
func (v Value) AsFloat() float64 {
	if v.Kind == KindNumber {
		return v.Number
	}
	return 0
}

// AsDate 返回日期值
// 数值按Excel序列日期解释（1900日期系统）
func (v Value) AsDate() (time.Time, bool) {
	switch v.Kind {
	case KindDate:
		return v.Date, true
	case KindNumber:
		if t, ok := excelSerialDate(v.Number); ok {
			return t, true
		}
	case KindText:
		if t, ok := parseDate(v.Text); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// numberCleaner 去除货币符号、千分位和空白
var numberCleaner = strings.NewReplacer(
	",", "", "￥", "", "¥", "", "$", "", "元", "", " ", "", " ", "",
)

// CoerceCell 将原始单元格文本转换为标量值
// 空文本为Null；可解析为数值的保留原始文本；其余为文本
func CoerceCell(raw string) Value {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Null()
	}

	if f, ok := ParseNumber(trimmed); ok {
		return Value{Kind: KindNumber, Number: f, Text: trimmed}
	}

	if t, ok := parseDate(trimmed); ok {
		return Value{Kind: KindDate, Date: t, Text: trimmed}
	}

	return NewText(trimmed)
}

// ParseNumber 宽松解析数值
// 支持千分位、货币符号和百分号；解析失败返回false
func ParseNumber(raw string) (float64, bool) {
	s := numberCleaner.Replace(strings.TrimSpace(raw))
	if s == "" {
		return 0, false
	}

	percent := strings.HasSuffix(s, "%")
	if percent {
		s = strings.TrimSuffix(s, "%")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if percent {
		f /= 100
	}
	return f, true
}

// dateLayouts 支持的日期格式
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-1-2",
	"2006/1/2",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"2006年01月02日",
	"2006年1月2日",
	"2006-01",
	"2006/01",
	"2006年1月",
	time.RFC3339,
}

// parseDate 宽松解析日期文本
func parseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// excelSerialDate 将Excel序列日期转换为时间
// 序列值以1899-12-30为基准（兼容1900闰年bug）
func excelSerialDate(serial float64) (time.Time, bool) {
	// 过小或过大的数值不视为日期
	if serial < 1 || serial > 2958465 { // 9999-12-31
		return time.Time{}, false
	}
	base := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	days := int(serial)
	frac := serial - float64(days)
	t := base.AddDate(0, 0, days).Add(time.Duration(frac * 24 * float64(time.Hour)))
	return t, true
}

// Ratio 可能无定义的比率/百分比
// 基数为0时比率无定义，序列化为null而非0
type Ratio struct {
	Defined bool
	Value   float64
}

// NewRatio 创建有定义的比率
func NewRatio(v float64) Ratio {
	return Ratio{Defined: true, Value: v}
}

// RatioOf 计算 num/den，den为0时无定义
func RatioOf(num, den float64) Ratio {
	if den == 0 {
		return Ratio{}
	}
	return Ratio{Defined: true, Value: num / den}
}

// GrowthRate 计算增长率百分比 (current-baseline)/baseline*100
// 基期为0时无定义（新增项不能按0%增长处理）
func GrowthRate(baseline, current float64) Ratio {
	if baseline == 0 {
		return Ratio{}
	}
	return Ratio{Defined: true, Value: (current - baseline) / baseline * 100}
}

// MarshalJSON 无定义时输出null
func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Defined {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(Round2(r.Value), 'f', -1, 64)), nil
}

// UnmarshalJSON 解析比率，null为无定义
func (r *Ratio) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*r = Ratio{}
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid ratio: %w", err)
	}
	*r = Ratio{Defined: true, Value: f}
	return nil
}

// String 展示用字符串，无定义显示 "-"
func (r Ratio) String() string {
	if !r.Defined {
		return "-"
	}
	return strconv.FormatFloat(Round2(r.Value), 'f', 2, 64)
}

// Round2 四舍五入到2位小数
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
