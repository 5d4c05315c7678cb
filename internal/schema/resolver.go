package schema

import "strings"

// roleRule 单个角色的同义词规则
type roleRule struct {
	role     Role
	keywords []string
}

// roleRules 角色识别规则，按优先级排列
// 排列顺序决定多关键词列名的归属：
// "商品总金额"先被amount认领（不会落到product），
// "运费收入"先被shipping认领（不会落到amount），
// "商品数量"先被quantity认领，"商品目录"先被category认领。
// 同义词全部小写，匹配统一按小写子串进行。
var roleRules = []roleRule{
	{RoleOrder, []string{"订单编号", "订单号", "交易编号", "order id", "order_id", "orderid", "order no"}},
	{RoleShipping, []string{"运费", "邮费", "快递费", "shipping", "freight"}},
	{RoleAmount, []string{"金额", "销售额", "收入", "amount", "sales", "revenue"}},
	{RoleQuantity, []string{"数量", "件数", "销量", "quantity", "qty"}},
	{RoleSize, []string{"尺寸", "规格", "size"}},
	{RoleCategory, []string{"品类", "类目", "目录", "分类", "category"}},
	{RoleProduct, []string{"产品", "品名", "商品", "货品", "名称", "product", "item", "sku"}},
	{RoleDate, []string{"日期", "付款时间", "时间", "date", "月份", "month"}},
}

// Resolve 将原始列名解析为角色映射
// 按角色优先级逐个扫描列名，关键词子串匹配（大小写不敏感），
// 每个角色认领第一个命中的未被占用列，每列至多归属一个角色。
// 没有任何列命中时返回空映射，由调用方检查，不报错。
func Resolve(columns []string) RoleMapping {
	normalized := make([]string, len(columns))
	for i, col := range columns {
		normalized[i] = strings.ToLower(NormalizeColumnName(col))
	}

	mapping := make(RoleMapping)
	claimed := make([]bool, len(columns))

	for _, rule := range roleRules {
		for i, col := range normalized {
			if claimed[i] || col == "" {
				continue
			}
			if ContainsAny(col, rule.keywords) {
				mapping[rule.role] = columns[i]
				claimed[i] = true
				break
			}
		}
	}

	return mapping
}

// ResolveWith 在自动识别结果上套用手工指定的映射
// 手工指定的列覆盖自动结果，列名必须存在于表头中
func ResolveWith(columns []string, overrides map[Role]string) RoleMapping {
	mapping := Resolve(columns)

	exists := make(map[string]bool, len(columns))
	for _, col := range columns {
		exists[col] = true
	}

	for role, col := range overrides {
		if exists[col] {
			mapping[role] = col
		}
	}

	return mapping
}
