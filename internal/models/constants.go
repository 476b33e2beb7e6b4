package models

// Default field values for the canonical transaction schema. Categories keep
// their Arabic display form since that is what the report channel shows.
const (
	CategoryOther             = "أخرى"
	CategoryGeneralPurchases  = "مشتريات عامة"
	CategoryIncomingTransfers = "حوالات واردة"
	CategoryOutgoingTransfers = "حوالات صادرة"
	CategoryBills             = "فواتير"

	MerchantUnspecified = "غير محدد"

	DefaultCurrency = "SAR"
)

// Transaction types
const (
	TypePurchase = "purchase"
	TypeTransfer = "transfer"
	TypeBill     = "bill"
	TypeWithdraw = "withdrawal"
)

// Queue item statuses. An ERR status carries a truncated reason suffix,
// e.g. "ERR: provider timeout".
const (
	StatusNew     = "NEW"
	StatusRunning = "RUN"
	StatusOK      = "OK"
	StatusSkipDup = "SKIP_DUP"
	StatusErr     = "ERR"
)

// Account types
const (
	AccountTypeBank   = "bank"
	AccountTypeCard   = "card"
	AccountTypeWallet = "wallet"
)

// Budget status tiers
const (
	BudgetSafe = "safe"
	BudgetNear = "near"
	BudgetWarn = "warn"
	BudgetOver = "over"
)

// Field length caps enforced by sanitization.
const (
	MaxMerchantLen = 100
	MaxCategoryLen = 100
	MaxTypeLen     = 50
	MaxAccountLen  = 32
)
