package analyzer

import (
	"github.com/mirror173/shop-analyzer/internal/model"
	"github.com/mirror173/shop-analyzer/internal/schema"
)

// DatasetSummary 数据集整体指标
// 角色未识别时对应指标为零值，比率类指标在分母为0时无定义
type DatasetSummary struct {
	Records       int         `json:"records"`
	Revenue       float64     `json:"revenue"`
	Quantity      float64     `json:"quantity"`
	Shipping      float64     `json:"shipping"`
	NetRevenue    float64     `json:"netRevenue"` // 销售额减运费
	Orders        int         `json:"orders"`
	Products      int         `json:"products"`
	Sizes         int         `json:"sizes"`
	AvgOrderValue model.Ratio `json:"avgOrderValue"` // 平均客单价
	AvgUnitPrice  model.Ratio `json:"avgUnitPrice"`  // 平均单价
	ShippingRatio model.Ratio `json:"shippingRatio"` // 运费占比(%)
}

// Summarize 计算数据集整体指标
func Summarize(records []model.Record, mapping schema.RoleMapping) *DatasetSummary {
	s := &DatasetSummary{Records: len(records)}

	orders := make(map[string]struct{})
	products := make(map[string]struct{})
	sizes := make(map[string]struct{})

	for _, rec := range records {
		s.Revenue += mapping.Number(rec, schema.RoleAmount)
		s.Quantity += mapping.Number(rec, schema.RoleQuantity)
		s.Shipping += mapping.Number(rec, schema.RoleShipping)

		if id := mapping.Text(rec, schema.RoleOrder); id != "" {
			orders[id] = struct{}{}
		}
		if p := mapping.Text(rec, schema.RoleProduct); p != "" {
			products[p] = struct{}{}
		}
		if sz := mapping.Text(rec, schema.RoleSize); sz != "" {
			sizes[sz] = struct{}{}
		}
	}

	s.Orders = len(orders)
	s.Products = len(products)
	s.Sizes = len(sizes)

	s.AvgOrderValue = model.RatioOf(s.Revenue, float64(s.Orders))
	s.AvgUnitPrice = model.RatioOf(s.Revenue, s.Quantity)
	s.ShippingRatio = scaleRatio(model.RatioOf(s.Shipping, s.Revenue), 100)

	s.Revenue = model.Round2(s.Revenue)
	s.Quantity = model.Round2(s.Quantity)
	s.Shipping = model.Round2(s.Shipping)
	s.NetRevenue = model.Round2(s.Revenue - s.Shipping)

	return s
}

// OverviewRow 月度总体对比的一行
type OverviewRow struct {
	Metric   string      `json:"metric"`
	Baseline float64     `json:"baseline"`
	Current  float64     `json:"current"`
	Growth   model.Ratio `json:"growth"`
}

// Overview 生成两个周期的总体指标对照表
func Overview(baseline, current *DatasetSummary) []OverviewRow {
	if baseline == nil || current == nil {
		return nil
	}

	rows := []OverviewRow{
		{Metric: "总销售额", Baseline: baseline.Revenue, Current: current.Revenue},
		{Metric: "总销量", Baseline: baseline.Quantity, Current: current.Quantity},
		{Metric: "订单数", Baseline: float64(baseline.Orders), Current: float64(current.Orders)},
	}

	// 平均客单价两期都有定义时才参与对比
	if baseline.AvgOrderValue.Defined && current.AvgOrderValue.Defined {
		rows = append(rows, OverviewRow{
			Metric:   "平均客单价",
			Baseline: model.Round2(baseline.AvgOrderValue.Value),
			Current:  model.Round2(current.AvgOrderValue.Value),
		})
	}

	for i := range rows {
		rows[i].Growth = model.GrowthRate(rows[i].Baseline, rows[i].Current)
	}

	return rows
}
