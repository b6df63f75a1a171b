package shared

// Payment and reporting permissions.
const (
	PermPaymentsView          = "payments:view"
	PermPaymentsCreate        = "payments:create"
	PermPaymentsRefund        = "payments:refund"
	PermPaymentsExport        = "payments:export"
	PermPaymentsManageMethods = "payments:manage_methods"

	PermBillingView   = "billing:view"
	PermBillingManage = "billing:manage"

	PermReportsView   = "reports:view"
	PermReportsCreate = "reports:create"
	PermReportsExport = "reports:export"
	PermReportsShare  = "reports:share"
)

// PaymentScopes lists all permissions related to payments and reporting.
func PaymentScopes() []string {
	return []string{
		PermPaymentsView,
		PermPaymentsCreate,
		PermPaymentsRefund,
		PermPaymentsExport,
		PermPaymentsManageMethods,
		PermBillingView,
		PermBillingManage,
		PermReportsView,
		PermReportsCreate,
		PermReportsExport,
		PermReportsShare,
	}
}
