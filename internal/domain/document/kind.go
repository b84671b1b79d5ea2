package document

// Kind identifies which financial document type a Document is
type Kind string

const (
	KindInvoice           Kind = "invoice"
	KindPurchaseBill      Kind = "purchase_bill"
	KindProductionExpense Kind = "production_expense"
	KindBudget            Kind = "budget"
	KindSalesOrder        Kind = "sales_order"
	KindPurchaseOrder     Kind = "purchase_order"
)

// AllKinds lists every supported document kind
var AllKinds = []Kind{
	KindInvoice,
	KindPurchaseBill,
	KindProductionExpense,
	KindBudget,
	KindSalesOrder,
	KindPurchaseOrder,
}

// IsValid checks if the kind is a supported document kind
func (k Kind) IsValid() bool {
	switch k {
	case KindInvoice, KindPurchaseBill, KindProductionExpense,
		KindBudget, KindSalesOrder, KindPurchaseOrder:
		return true
	}
	return false
}

// String returns the string representation of Kind
func (k Kind) String() string {
	return string(k)
}

// Label returns the human-readable name used in policy messages
func (k Kind) Label() string {
	switch k {
	case KindInvoice:
		return "Invoice"
	case KindPurchaseBill:
		return "Purchase bill"
	case KindProductionExpense:
		return "Production expense"
	case KindBudget:
		return "Budget"
	case KindSalesOrder:
		return "Sales order"
	case KindPurchaseOrder:
		return "Purchase order"
	default:
		return ""
	}
}

// NumberPrefix returns the prefix for generated document numbers
func (k Kind) NumberPrefix() string {
	switch k {
	case KindInvoice:
		return "INV"
	case KindPurchaseBill:
		return "PB"
	case KindProductionExpense:
		return "PEX"
	case KindBudget:
		return "BUD"
	case KindSalesOrder:
		return "SO"
	case KindPurchaseOrder:
		return "PO"
	default:
		return "DOC"
	}
}

// ParseKind accepts both snake_case and kebab-case kind names, as used in URLs
func ParseKind(s string) (Kind, bool) {
	k := Kind(s)
	switch s {
	case "purchase-bill":
		k = KindPurchaseBill
	case "production-expense":
		k = KindProductionExpense
	case "sales-order":
		k = KindSalesOrder
	case "purchase-order":
		k = KindPurchaseOrder
	}
	return k, k.IsValid()
}
