package analyzer

import (
	"fmt"

	"github.com/mirror173/shop-analyzer/internal/model"
	"github.com/mirror173/shop-analyzer/internal/schema"
)

// Options 一次完整分析的参数
// 对比月份由调用方显式指定，核心不做隐式推断
type Options struct {
	TopN          int    `json:"topN"`          // 产品榜单长度，<=0不截断
	BaselineMonth string `json:"baselineMonth"` // 对比基期 YYYY-MM
	CurrentMonth  string `json:"currentMonth"`  // 对比本期 YYYY-MM
}

// Bundle 一次完整分析的所有结果表
// 缺少对应角色的部分为nil，并记录一条数据形态警告
type Bundle struct {
	Mapping      schema.RoleMapping    `json:"mapping"`
	Overview     *DatasetSummary       `json:"overview"`
	Products     *Summary              `json:"products,omitempty"`
	ProductSizes *Summary              `json:"productSizes,omitempty"`
	Categories   *Summary              `json:"categories,omitempty"`
	Sizes        *Summary              `json:"sizes,omitempty"`
	Shipping     *ShippingDistribution `json:"shipping,omitempty"`
	Daily        *DailyTrend           `json:"daily,omitempty"`
	Comparison   *Comparison           `json:"comparison,omitempty"`
	MonthlyStats []OverviewRow         `json:"monthlyStats,omitempty"`
	Warnings     []string              `json:"warnings,omitempty"`
}

// Analyze 对一份数据集执行全部可用的分析
// 每次调用基于原始记录重新计算，不依赖共享状态
func Analyze(records []model.Record, mapping schema.RoleMapping, opts Options) *Bundle {
	b := &Bundle{
		Mapping:  mapping,
		Overview: Summarize(records, mapping),
	}

	if mapping.Empty() {
		b.warn("无法自动识别列名，请检查表头或手动指定映射")
		return b
	}

	if s, ok := Aggregate(records, mapping, GroupByProduct); ok {
		s.Rows = s.Top(opts.TopN)
		b.Products = s
	} else {
		b.warn("缺少产品列或数值列，跳过产品业绩分析")
	}

	if s, ok := Aggregate(records, mapping, GroupByProductSize); ok {
		s.Rows = s.Top(opts.TopN)
		b.ProductSizes = s
	}

	if s, ok := Aggregate(records, mapping, GroupByCategory); ok {
		b.Categories = s
	}

	if s, ok := Aggregate(records, mapping, GroupBySize); ok {
		b.Sizes = s
	}

	if d, ok := DistributeShipping(records, mapping); ok {
		b.Shipping = d
	} else {
		b.warn("缺少运费列，跳过运费分布分析")
	}

	if t, ok := DailyRollup(records, mapping); ok {
		b.Daily = t
	} else {
		b.warn("缺少日期列，跳过每日趋势分析")
	}

	if opts.BaselineMonth != "" && opts.CurrentMonth != "" {
		b.compareMonths(records, mapping, opts)
	}

	return b
}

// compareMonths 执行月度对比并生成总体对照表
func (b *Bundle) compareMonths(records []model.Record, mapping schema.RoleMapping, opts Options) {
	byMonth, _, ok := SplitByMonth(records, mapping)
	if !ok {
		b.warn("缺少日期列，无法进行月度对比")
		return
	}

	baseRecords, hasBase := byMonth[opts.BaselineMonth]
	curRecords, hasCur := byMonth[opts.CurrentMonth]
	if !hasBase || !hasCur {
		b.warn(fmt.Sprintf("月份 %s / %s 在数据中不存在，无法对比", opts.BaselineMonth, opts.CurrentMonth))
		return
	}

	comparison, ok := CompareDatasets(baseRecords, mapping, curRecords, mapping, GroupByProduct)
	if !ok {
		b.warn("缺少产品列或数值列，无法进行月度对比")
		return
	}

	b.Comparison = comparison
	b.MonthlyStats = Overview(Summarize(baseRecords, mapping), Summarize(curRecords, mapping))
}

func (b *Bundle) warn(msg string) {
	b.Warnings = append(b.Warnings, msg)
}
