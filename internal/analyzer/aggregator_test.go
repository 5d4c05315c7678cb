package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirror173/shop-analyzer/internal/model"
	"github.com/mirror173/shop-analyzer/internal/schema"
)

// rec 测试用记录构造
func rec(fields map[string]interface{}) model.Record {
	r := make(model.Record, len(fields))
	for col, v := range fields {
		switch val := v.(type) {
		case string:
			r[col] = model.CoerceCell(val)
		case float64:
			r[col] = model.NewNumber(val)
		case int:
			r[col] = model.NewNumber(float64(val))
		}
	}
	return r
}

// salesMapping 常用角色映射
func salesMapping() schema.RoleMapping {
	return schema.RoleMapping{
		schema.RoleProduct:  "产品",
		schema.RoleSize:     "尺寸",
		schema.RoleQuantity: "数量",
		schema.RoleAmount:   "金额",
		schema.RoleShipping: "运费",
		schema.RoleOrder:    "订单编号",
		schema.RoleDate:     "日期",
	}
}

func TestAggregate_ByProduct(t *testing.T) {
	t.Parallel()

	records := []model.Record{
		rec(map[string]interface{}{"产品": "A", "金额": 100, "数量": 2}),
		rec(map[string]interface{}{"产品": "B", "金额": 300, "数量": 1}),
		rec(map[string]interface{}{"产品": "A", "金额": 50, "数量": 1}),
	}
	mapping := schema.RoleMapping{
		schema.RoleProduct:  "产品",
		schema.RoleAmount:   "金额",
		schema.RoleQuantity: "数量",
	}

	summary, ok := Aggregate(records, mapping, GroupByProduct)
	require.True(t, ok)
	require.Len(t, summary.Rows, 2)

	// 按销售额降序：B在前
	assert.Equal(t, "B", summary.Rows[0].Key)
	assert.Equal(t, 300.0, summary.Rows[0].Revenue)
	assert.Equal(t, 1.0, summary.Rows[0].Quantity)
	assert.Equal(t, 66.67, summary.Rows[0].RevenueShare)

	assert.Equal(t, "A", summary.Rows[1].Key)
	assert.Equal(t, 150.0, summary.Rows[1].Revenue)
	assert.Equal(t, 3.0, summary.Rows[1].Quantity)
	assert.Equal(t, 33.33, summary.Rows[1].RevenueShare)

	assert.Equal(t, 450.0, summary.TotalRevenue)
}

func TestAggregate_SharesSumTo100(t *testing.T) {
	t.Parallel()

	records := []model.Record{
		rec(map[string]interface{}{"产品": "甲", "金额": 33.33}),
		rec(map[string]interface{}{"产品": "乙", "金额": 33.33}),
		rec(map[string]interface{}{"产品": "丙", "金额": 33.34}),
	}
	mapping := schema.RoleMapping{schema.RoleProduct: "产品", schema.RoleAmount: "金额"}

	summary, ok := Aggregate(records, mapping, GroupByProduct)
	require.True(t, ok)

	var total float64
	for _, row := range summary.Rows {
		total += row.RevenueShare
	}
	assert.InDelta(t, 100.0, total, 0.01)
}

func TestAggregate_ProductSizeCompositeKey(t *testing.T) {
	t.Parallel()

	records := []model.Record{
		rec(map[string]interface{}{"产品": "连衣裙", "尺寸": "M", "金额": 100, "数量": 1}),
		rec(map[string]interface{}{"产品": "连衣裙", "尺寸": "L", "金额": 200, "数量": 2}),
		rec(map[string]interface{}{"产品": "连衣裙", "尺寸": "M", "金额": 50, "数量": 1}),
	}
	mapping := salesMapping()

	summary, ok := Aggregate(records, mapping, GroupByProductSize)
	require.True(t, ok)
	require.Len(t, summary.Rows, 2)
	assert.Equal(t, "连衣裙_L", summary.Rows[0].Key)
	assert.Equal(t, "连衣裙_M", summary.Rows[1].Key)
	assert.Equal(t, 150.0, summary.Rows[1].Revenue)
}

func TestAggregate_ProductSizeTotalsMatchProductTotals(t *testing.T) {
	t.Parallel()

	// 每个产品只有一个尺寸时，两种分组的合计一致
	records := []model.Record{
		rec(map[string]interface{}{"产品": "A", "尺寸": "M", "金额": 120, "数量": 2}),
		rec(map[string]interface{}{"产品": "B", "尺寸": "L", "金额": 80, "数量": 1}),
		rec(map[string]interface{}{"产品": "A", "尺寸": "M", "金额": 30, "数量": 1}),
	}
	mapping := salesMapping()

	byProduct, ok := Aggregate(records, mapping, GroupByProduct)
	require.True(t, ok)
	bySize, ok := Aggregate(records, mapping, GroupByProductSize)
	require.True(t, ok)

	assert.Equal(t, byProduct.TotalRevenue, bySize.TotalRevenue)
	assert.Equal(t, byProduct.TotalQuantity, bySize.TotalQuantity)
	assert.Len(t, bySize.Rows, len(byProduct.Rows))
}

func TestAggregate_SizeFallbackToProduct(t *testing.T) {
	t.Parallel()

	// 尺寸列未识别时product_size退化为按产品分组
	records := []model.Record{
		rec(map[string]interface{}{"产品": "A", "金额": 100}),
		rec(map[string]interface{}{"产品": "A", "金额": 50}),
	}
	mapping := schema.RoleMapping{schema.RoleProduct: "产品", schema.RoleAmount: "金额"}

	summary, ok := Aggregate(records, mapping, GroupByProductSize)
	require.True(t, ok)
	require.Len(t, summary.Rows, 1)
	assert.Equal(t, "A", summary.Rows[0].Key)
}

func TestAggregate_MissingRolesNotOK(t *testing.T) {
	t.Parallel()

	records := []model.Record{rec(map[string]interface{}{"产品": "A", "金额": 100})}

	// 无分组角色
	_, ok := Aggregate(records, schema.RoleMapping{schema.RoleAmount: "金额"}, GroupByProduct)
	assert.False(t, ok)

	// 无数值角色
	_, ok = Aggregate(records, schema.RoleMapping{schema.RoleProduct: "产品"}, GroupByProduct)
	assert.False(t, ok)

	// 品类分组但品类列未识别
	_, ok = Aggregate(records, schema.RoleMapping{schema.RoleProduct: "产品", schema.RoleAmount: "金额"}, GroupByCategory)
	assert.False(t, ok)
}

func TestAggregate_MissingKeyGoesToUnknownBucket(t *testing.T) {
	t.Parallel()

	records := []model.Record{
		rec(map[string]interface{}{"产品": "A", "金额": 100}),
		rec(map[string]interface{}{"金额": 60}),
	}
	mapping := schema.RoleMapping{schema.RoleProduct: "产品", schema.RoleAmount: "金额"}

	summary, ok := Aggregate(records, mapping, GroupByProduct)
	require.True(t, ok)
	require.Len(t, summary.Rows, 2)

	// 缺失分组值的行保留在"未知"桶，合计不缩水
	assert.Equal(t, 160.0, summary.TotalRevenue)
	assert.Equal(t, "未知", summary.Rows[1].Key)
	assert.Equal(t, 60.0, summary.Rows[1].Revenue)
}

func TestAggregate_ZeroTotalSharesAreZero(t *testing.T) {
	t.Parallel()

	records := []model.Record{
		rec(map[string]interface{}{"产品": "A", "金额": 0}),
		rec(map[string]interface{}{"产品": "B", "金额": 0}),
	}
	mapping := schema.RoleMapping{schema.RoleProduct: "产品", schema.RoleAmount: "金额"}

	summary, ok := Aggregate(records, mapping, GroupByProduct)
	require.True(t, ok)
	for _, row := range summary.Rows {
		assert.Equal(t, 0.0, row.RevenueShare)
	}
}

func TestAggregate_DistinctOrdersAndDerived(t *testing.T) {
	t.Parallel()

	records := []model.Record{
		rec(map[string]interface{}{"产品": "A", "金额": 100, "数量": 2, "运费": 10, "订单编号": "o1"}),
		rec(map[string]interface{}{"产品": "A", "金额": 100, "数量": 2, "运费": 0, "订单编号": "o1"}),
		rec(map[string]interface{}{"产品": "A", "金额": 100, "数量": 1, "运费": 5, "订单编号": "o2"}),
	}
	mapping := salesMapping()

	summary, ok := Aggregate(records, mapping, GroupByProduct)
	require.True(t, ok)
	row := summary.Rows[0]

	assert.Equal(t, 2, row.Orders)
	require.True(t, row.AvgOrderValue.Defined)
	assert.Equal(t, 150.0, row.AvgOrderValue.Value)
	require.True(t, row.AvgUnitPrice.Defined)
	assert.Equal(t, 60.0, row.AvgUnitPrice.Value)
	require.True(t, row.ShippingRatio.Defined)
	assert.Equal(t, 5.0, row.ShippingRatio.Value)
}

func TestAggregate_QuantityFallbackSort(t *testing.T) {
	t.Parallel()

	// 无销售额时按销量降序
	records := []model.Record{
		rec(map[string]interface{}{"产品": "A", "数量": 1}),
		rec(map[string]interface{}{"产品": "B", "数量": 5}),
	}
	mapping := schema.RoleMapping{schema.RoleProduct: "产品", schema.RoleQuantity: "数量"}

	summary, ok := Aggregate(records, mapping, GroupByProduct)
	require.True(t, ok)
	assert.False(t, summary.HasRevenue)
	assert.Equal(t, "B", summary.Rows[0].Key)
}

func TestSummary_Top(t *testing.T) {
	t.Parallel()

	records := []model.Record{
		rec(map[string]interface{}{"产品": "A", "金额": 300}),
		rec(map[string]interface{}{"产品": "B", "金额": 200}),
		rec(map[string]interface{}{"产品": "C", "金额": 100}),
	}
	mapping := schema.RoleMapping{schema.RoleProduct: "产品", schema.RoleAmount: "金额"}

	summary, ok := Aggregate(records, mapping, GroupByProduct)
	require.True(t, ok)

	top := summary.Top(2)
	require.Len(t, top, 2)
	assert.Equal(t, "A", top[0].Key)
	assert.Equal(t, "B", top[1].Key)

	assert.Len(t, summary.Top(0), 3)
	assert.Len(t, summary.Top(99), 3)
}

func TestAggregate_BySizeExtraction(t *testing.T) {
	t.Parallel()

	records := []model.Record{
		rec(map[string]interface{}{"产品": "DRESS-XL", "金额": 100}),
		rec(map[string]interface{}{"产品": "DRESS-M", "金额": 50}),
		rec(map[string]interface{}{"产品": "DRESS-XL", "金额": 30}),
	}
	mapping := schema.RoleMapping{schema.RoleProduct: "产品", schema.RoleAmount: "金额"}

	summary, ok := Aggregate(records, mapping, GroupBySize)
	require.True(t, ok)
	require.Len(t, summary.Rows, 2)
	assert.Equal(t, "XL", summary.Rows[0].Key)
	assert.Equal(t, 130.0, summary.Rows[0].Revenue)
}
