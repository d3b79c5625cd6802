package normalize

// Field pairs a payload key with its display label.
type Field struct {
	Key   string
	Label string
}

// FieldGroup is one ordered run of related fields. A group is emitted
// only when at least one of its fields is present in the payload.
type FieldGroup struct {
	Name   string
	Fields []Field
}

// FieldSchema is the static, ordered field-to-label mapping for one
// document sub-type. It is the single source of truth for key-value
// rendering order; payload key order is never used.
type FieldSchema struct {
	Title  string
	Groups []FieldGroup
}

// vatInvoiceSchema covers the provider's VAT-invoice record. Group order
// is basic info, seller, purchaser, (commodity table), totals, remarks.
var vatInvoiceSchema = FieldSchema{
	Title: "增值税发票识别结果",
	Groups: []FieldGroup{
		{
			Name: "basic",
			Fields: []Field{
				{Key: "InvoiceType", Label: "发票类型"},
				{Key: "InvoiceCode", Label: "发票代码"},
				{Key: "InvoiceNum", Label: "发票号码"},
				{Key: "InvoiceDate", Label: "开票日期"},
				{Key: "CheckCode", Label: "校验码"},
			},
		},
		{
			Name: "seller",
			Fields: []Field{
				{Key: "SellerName", Label: "销售方名称"},
				{Key: "SellerRegisterNum", Label: "销售方纳税人识别号"},
				{Key: "SellerAddress", Label: "销售方地址电话"},
				{Key: "SellerBank", Label: "销售方开户行及账号"},
			},
		},
		{
			Name: "purchaser",
			Fields: []Field{
				{Key: "PurchaserName", Label: "购买方名称"},
				{Key: "PurchaserRegisterNum", Label: "购买方纳税人识别号"},
				{Key: "PurchaserAddress", Label: "购买方地址电话"},
				{Key: "PurchaserBank", Label: "购买方开户行及账号"},
			},
		},
		{
			Name: "totals",
			Fields: []Field{
				{Key: "TotalAmount", Label: "合计金额"},
				{Key: "TotalTax", Label: "合计税额"},
				{Key: "AmountInWords", Label: "价税合计(大写)"},
				{Key: "AmountInFigures", Label: "价税合计(小写)"},
			},
		},
		{
			Name: "remarks",
			Fields: []Field{
				{Key: "Remarks", Label: "备注"},
				{Key: "Payee", Label: "收款人"},
				{Key: "Checker", Label: "复核"},
				{Key: "NoteDrawer", Label: "开票人"},
			},
		},
	},
}

// commodityColumns are the per-line-item columns of the VAT commodity
// table, rendered as fixed-width text rows between the purchaser and
// totals groups.
var commodityColumns = []Field{
	{Key: "CommodityName", Label: "货物名称"},
	{Key: "CommodityNum", Label: "数量"},
	{Key: "CommodityPrice", Label: "单价"},
	{Key: "CommodityTaxRate", Label: "税率"},
	{Key: "CommodityTax", Label: "税额"},
	{Key: "CommodityAmount", Label: "金额"},
}

// multiInvoiceFields are the optional scalar fields of a bundle record,
// emitted after the detail pairs in this order.
var multiInvoiceFields = []Field{
	{Key: "money", Label: "金额"},
	{Key: "tax", Label: "Tax"},
	{Key: "date", Label: "Date"},
	{Key: "publisher", Label: "Publisher"},
	{Key: "buyer", Label: "Buyer"},
	{Key: "seller", Label: "Seller"},
}
