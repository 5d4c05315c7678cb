package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// sizePatterns 英文尺码模式，长码在前避免XL吞掉XXL
var sizePatterns = []struct {
	pattern string
	size    string
}{
	{"XXXL", "3XL"},
	{"XXL", "2XL"},
	{"XXS", "2XS"},
	{"XS", "XS"},
	{"XL", "XL"},
	{"L", "L"},
	{"M", "M"},
	{"S", "S"},
}

// shoeSizeRe 数字鞋码 20-46
var shoeSizeRe = regexp.MustCompile(`\b(2[0-9]|3[0-9]|4[0-6])\b`)

// heightCodes 身高码
var heightCodes = []string{"160", "165", "170", "175", "180", "185", "190"}

// ExtractSize 从尺寸列或SKU文本中提取标准化尺码
// 依次尝试英文尺码、数字鞋码、身高码；空值为"未知"，无法识别为"标准"
func ExtractSize(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "未知"
	}

	for _, p := range sizePatterns {
		if strings.Contains(s, p.pattern) {
			return p.size
		}
	}

	if m := shoeSizeRe.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("码%s", m[1])
	}

	for _, code := range heightCodes {
		if strings.Contains(s, code) {
			return fmt.Sprintf("身高%s", code)
		}
	}

	return "标准"
}
