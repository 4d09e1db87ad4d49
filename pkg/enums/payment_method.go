package enums

// PaymentMethod is the label a buyer picks at checkout. No gateway is involved.
type PaymentMethod string

const (
	PaymentMethodCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
	PaymentMethodCreditCard     PaymentMethod = "CREDIT_CARD"
	PaymentMethodDebitCard      PaymentMethod = "DEBIT_CARD"
	PaymentMethodPayPal         PaymentMethod = "PAYPAL"

	// DefaultPaymentMethod applies when checkout omits a method.
	DefaultPaymentMethod = PaymentMethodCashOnDelivery
)

var paymentMethods = members[PaymentMethod]{
	PaymentMethodCashOnDelivery,
	PaymentMethodCreditCard,
	PaymentMethodDebitCard,
	PaymentMethodPayPal,
}

func (p PaymentMethod) String() string { return string(p) }

func (p PaymentMethod) IsValid() bool { return paymentMethods.contains(p) }

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return paymentMethods.parse("payment method", value)
}
