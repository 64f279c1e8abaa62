// Package domain holds the client-side billing vocabulary.
package domain

// BillingModel is how a client is charged.
type BillingModel string

const (
	// BillingFlatFee charges a fixed monthly amount.
	BillingFlatFee BillingModel = "flat_fee"
	// BillingFlatFeePercent charges a fixed amount plus a percentage.
	BillingFlatFeePercent BillingModel = "flat_fee_percent"
	// BillingAdHoc bills per engagement, with no recurring fee.
	BillingAdHoc BillingModel = "ad_hoc"
)

func IsKnownBillingModel(m BillingModel) bool {
	switch m {
	case BillingFlatFee, BillingFlatFeePercent, BillingAdHoc:
		return true
	}
	return false
}

// UsesPercentage reports whether the model carries a billing percentage.
func (m BillingModel) UsesPercentage() bool {
	return m == BillingFlatFeePercent
}

// PaymentMethod is how the client pays.
type PaymentMethod string

const (
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCreditCard   PaymentMethod = "credit_card"
	PaymentDirectDebit  PaymentMethod = "direct_debit"
	PaymentInvoice      PaymentMethod = "invoice"
)

func IsKnownPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentBankTransfer, PaymentCreditCard, PaymentDirectDebit, PaymentInvoice:
		return true
	}
	return false
}
