package analyzer

import (
	"sort"

	"github.com/mirror173/shop-analyzer/internal/model"
	"github.com/mirror173/shop-analyzer/internal/schema"
)

// GroupMode 聚合分组方式
type GroupMode string

const (
	GroupByProduct     GroupMode = "product"      // 按产品
	GroupByProductSize GroupMode = "product_size" // 按产品+尺寸
	GroupByCategory    GroupMode = "category"     // 按品类
	GroupBySize        GroupMode = "size"         // 按提取的尺码
)

// productSizeSeparator 产品+尺寸组合键分隔符
const productSizeSeparator = "_"

// unknownKey 分组值缺失时的归属桶
// 缺失分组值的行不丢弃，保证汇总与明细一致
const unknownKey = "未知"

// SummaryRow 聚合结果的一行
// 占比相对本次聚合自身的合计计算，合计为0时占比记0
type SummaryRow struct {
	Key           string      `json:"key"`
	Revenue       float64     `json:"revenue"`
	RevenueShare  float64     `json:"revenueShare"`
	Quantity      float64     `json:"quantity"`
	QuantityShare float64     `json:"quantityShare"`
	Shipping      float64     `json:"shipping"`
	Orders        int         `json:"orders"`
	Products      int         `json:"products"`
	AvgUnitPrice  model.Ratio `json:"avgUnitPrice"`
	AvgOrderValue model.Ratio `json:"avgOrderValue"`
	ShippingRatio model.Ratio `json:"shippingRatio"`
}

// Summary 一次聚合的完整结果
// Rows 按主指标（有销售额按销售额，否则按销量）降序排列
type Summary struct {
	Mode          GroupMode    `json:"mode"`
	HasRevenue    bool         `json:"hasRevenue"`
	HasQuantity   bool         `json:"hasQuantity"`
	HasShipping   bool         `json:"hasShipping"`
	HasOrders     bool         `json:"hasOrders"`
	TotalRevenue  float64      `json:"totalRevenue"`
	TotalQuantity float64      `json:"totalQuantity"`
	TotalShipping float64      `json:"totalShipping"`
	Rows          []SummaryRow `json:"rows"`
}

// Top 返回排序后前n行，n不为正或超长时返回全部
func (s *Summary) Top(n int) []SummaryRow {
	if s == nil {
		return nil
	}
	if n <= 0 || n >= len(s.Rows) {
		return s.Rows
	}
	return s.Rows[:n]
}

// rowByKey 按键索引行，供对比使用
func (s *Summary) rowByKey() map[string]SummaryRow {
	idx := make(map[string]SummaryRow, len(s.Rows))
	for _, row := range s.Rows {
		idx[row.Key] = row
	}
	return idx
}

// groupAccum 单个分组的累加器
type groupAccum struct {
	revenue  float64
	quantity float64
	shipping float64
	orders   map[string]struct{}
	products map[string]struct{}
}

// Aggregate 按分组方式聚合原始记录
// 映射中缺少分组所需角色或全部数值角色时返回(nil, false)，
// 由调用方作为数据形态警告处理，不视为错误。
func Aggregate(records []model.Record, mapping schema.RoleMapping, mode GroupMode) (*Summary, bool) {
	keyFn, ok := groupKeyFunc(mapping, mode)
	if !ok {
		return nil, false
	}

	hasRevenue := mapping.Has(schema.RoleAmount)
	hasQuantity := mapping.Has(schema.RoleQuantity)
	hasShipping := mapping.Has(schema.RoleShipping)
	hasOrders := mapping.Has(schema.RoleOrder)

	if !hasRevenue && !hasQuantity && !hasShipping {
		return nil, false
	}

	groups := make(map[string]*groupAccum)
	order := make([]string, 0)

	for _, rec := range records {
		key := keyFn(rec)
		if key == "" {
			key = unknownKey
		}

		acc, exists := groups[key]
		if !exists {
			acc = &groupAccum{
				orders:   make(map[string]struct{}),
				products: make(map[string]struct{}),
			}
			groups[key] = acc
			order = append(order, key)
		}

		acc.revenue += mapping.Number(rec, schema.RoleAmount)
		acc.quantity += mapping.Number(rec, schema.RoleQuantity)
		acc.shipping += mapping.Number(rec, schema.RoleShipping)

		if hasOrders {
			if id := mapping.Text(rec, schema.RoleOrder); id != "" {
				acc.orders[id] = struct{}{}
			}
		}
		if product := mapping.Text(rec, schema.RoleProduct); product != "" {
			acc.products[product] = struct{}{}
		}
	}

	summary := &Summary{
		Mode:        mode,
		HasRevenue:  hasRevenue,
		HasQuantity: hasQuantity,
		HasShipping: hasShipping,
		HasOrders:   hasOrders,
		Rows:        make([]SummaryRow, 0, len(groups)),
	}

	var totalRevenue, totalQuantity, totalShipping float64
	for _, acc := range groups {
		totalRevenue += acc.revenue
		totalQuantity += acc.quantity
		totalShipping += acc.shipping
	}

	for _, key := range order {
		acc := groups[key]
		row := SummaryRow{
			Key:      key,
			Revenue:  model.Round2(acc.revenue),
			Quantity: model.Round2(acc.quantity),
			Shipping: model.Round2(acc.shipping),
			Orders:   len(acc.orders),
			Products: len(acc.products),
		}

		if hasRevenue {
			row.RevenueShare = pctOfTotal(acc.revenue, totalRevenue)
			row.AvgUnitPrice = model.RatioOf(acc.revenue, acc.quantity)
			row.AvgOrderValue = model.RatioOf(acc.revenue, float64(row.Orders))
			row.ShippingRatio = scaleRatio(model.RatioOf(acc.shipping, acc.revenue), 100)
		}
		if hasQuantity {
			row.QuantityShare = pctOfTotal(acc.quantity, totalQuantity)
		}

		summary.Rows = append(summary.Rows, row)
	}

	summary.TotalRevenue = model.Round2(totalRevenue)
	summary.TotalQuantity = model.Round2(totalQuantity)
	summary.TotalShipping = model.Round2(totalShipping)

	sortRows(summary)

	return summary, true
}

// groupKeyFunc 构造分组键函数
func groupKeyFunc(mapping schema.RoleMapping, mode GroupMode) (func(model.Record) string, bool) {
	switch mode {
	case GroupByProduct:
		if !mapping.Has(schema.RoleProduct) {
			return nil, false
		}
		return func(rec model.Record) string {
			return mapping.Text(rec, schema.RoleProduct)
		}, true

	case GroupByProductSize:
		if !mapping.Has(schema.RoleProduct) {
			return nil, false
		}
		// 尺寸列未识别时退化为按产品分组
		if !mapping.Has(schema.RoleSize) {
			return func(rec model.Record) string {
				return mapping.Text(rec, schema.RoleProduct)
			}, true
		}
		return func(rec model.Record) string {
			product := mapping.Text(rec, schema.RoleProduct)
			size := mapping.Text(rec, schema.RoleSize)
			if product == "" {
				return ""
			}
			return product + productSizeSeparator + size
		}, true

	case GroupByCategory:
		if !mapping.Has(schema.RoleCategory) {
			return nil, false
		}
		return func(rec model.Record) string {
			return mapping.Text(rec, schema.RoleCategory)
		}, true

	case GroupBySize:
		// 优先尺寸列，其次从产品/SKU文本中提取
		role := schema.RoleSize
		if !mapping.Has(role) {
			role = schema.RoleProduct
		}
		if !mapping.Has(role) {
			return nil, false
		}
		return func(rec model.Record) string {
			return schema.ExtractSize(mapping.Text(rec, role))
		}, true
	}

	return nil, false
}

// pctOfTotal 计算占比百分数，合计为0时记0
func pctOfTotal(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return model.Round2(part / total * 100)
}

// scaleRatio 将比率按倍数缩放，保持无定义状态
func scaleRatio(r model.Ratio, factor float64) model.Ratio {
	if !r.Defined {
		return r
	}
	return model.NewRatio(r.Value * factor)
}

// sortRows 按主指标降序排序，同值按键名升序保证稳定
func sortRows(s *Summary) {
	primary := func(row SummaryRow) float64 {
		if s.HasRevenue {
			return row.Revenue
		}
		return row.Quantity
	}
	sort.SliceStable(s.Rows, func(i, j int) bool {
		a, b := primary(s.Rows[i]), primary(s.Rows[j])
		if a != b {
			return a > b
		}
		return s.Rows[i].Key < s.Rows[j].Key
	})
}
