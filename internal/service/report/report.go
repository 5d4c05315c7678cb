package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/mirror173/shop-analyzer/internal/analyzer"
)

// Generator 文本报告生成器
type Generator struct {
	now func() time.Time
}

// NewGenerator 创建报告生成器
func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

const lineWidth = 60

// Generate 生成店铺业绩分析文本报告
func (g *Generator) Generate(bundle *analyzer.Bundle) string {
	var b strings.Builder

	rule := strings.Repeat("=", lineWidth)
	sep := strings.Repeat("-", lineWidth)

	b.WriteString(rule + "\n")
	b.WriteString("店铺业绩分析报告\n")
	b.WriteString(fmt.Sprintf("生成时间: %s\n", g.now().Format("2006-01-02 15:04:05")))
	b.WriteString(rule + "\n\n")

	for _, w := range bundle.Warnings {
		b.WriteString(fmt.Sprintf("⚠ %s\n", w))
	}
	if len(bundle.Warnings) > 0 {
		b.WriteString("\n")
	}

	if bundle.Overview != nil {
		b.WriteString("【业绩概览】\n")
		b.WriteString(sep + "\n")
		writeOverview(&b, bundle.Overview)
		b.WriteString("\n")
	}

	if bundle.Products != nil {
		b.WriteString("【产品业绩分析】\n")
		b.WriteString(sep + "\n")
		writeSummary(&b, "产品", bundle.Products)
		b.WriteString("\n")
	}

	if bundle.ProductSizes != nil {
		b.WriteString("【产品+尺寸业绩分析】\n")
		b.WriteString(sep + "\n")
		writeSummary(&b, "产品_尺寸", bundle.ProductSizes)
		b.WriteString("\n")
	}

	if bundle.Comparison != nil {
		b.WriteString("【月度对比分析】\n")
		b.WriteString(sep + "\n")
		writeComparison(&b, bundle.Comparison)
		b.WriteString("\n")
	}

	if bundle.MonthlyStats != nil {
		b.WriteString("【月度总体指标】\n")
		b.WriteString(sep + "\n")
		for _, row := range bundle.MonthlyStats {
			b.WriteString(fmt.Sprintf("%-12s 上月 %12.2f  本月 %12.2f  增长率 %s%%\n",
				row.Metric, row.Baseline, row.Current, row.Growth))
		}
		b.WriteString("\n")
	}

	if bundle.Shipping != nil {
		b.WriteString("【运费分布】\n")
		b.WriteString(sep + "\n")
		for _, bucket := range bundle.Shipping.Buckets {
			b.WriteString(fmt.Sprintf("%-10s %6d\n", bucket.Label, bucket.Count))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func writeOverview(b *strings.Builder, o *analyzer.DatasetSummary) {
	fmt.Fprintf(b, "记录数: %d  订单数: %d  产品数: %d\n", o.Records, o.Orders, o.Products)
	fmt.Fprintf(b, "总销售额: %.2f  总销量: %.2f  总运费: %.2f  净收入: %.2f\n",
		o.Revenue, o.Quantity, o.Shipping, o.NetRevenue)
	fmt.Fprintf(b, "平均客单价: %s  平均单价: %s  运费占比: %s%%\n",
		o.AvgOrderValue, o.AvgUnitPrice, o.ShippingRatio)
}

func writeSummary(b *strings.Builder, keyHeader string, s *analyzer.Summary) {
	fmt.Fprintf(b, "%-24s %12s %10s %10s %10s\n",
		keyHeader, "销售额", "占比(%)", "销量", "运费")
	for _, row := range s.Rows {
		fmt.Fprintf(b, "%-24s %12.2f %10.2f %10.2f %10.2f\n",
			row.Key, row.Revenue, row.RevenueShare, row.Quantity, row.Shipping)
	}
}

func writeComparison(b *strings.Builder, c *analyzer.Comparison) {
	fmt.Fprintf(b, "%-24s %12s %12s %12s %10s %6s\n",
		"产品", "上月销售额", "本月销售额", "变化", "变化率(%)", "状态")
	for _, row := range c.Rows {
		status := ""
		if row.New {
			status = "新增"
		} else if row.Discontinued {
			status = "下架"
		}
		fmt.Fprintf(b, "%-24s %12.2f %12.2f %12.2f %10s %6s\n",
			row.Key, row.BaselineRevenue, row.CurrentRevenue, row.RevenueDelta,
			row.RevenueGrowth, status)
	}
}
