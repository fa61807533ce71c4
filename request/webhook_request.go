package request

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountCode struct {
	Code string `json:"code"`
}

// OrderCreatedEvent is the inbound "order paid" payload. EventID is the
// external order GID and doubles as the idempotency key for redelivered
// webhooks.
type OrderCreatedEvent struct {
	EventID             string          `json:"admin_graphql_api_id"`
	OrderNumber         string          `json:"name"`
	CustomerEmail       string          `json:"customer_email"`
	CustomerFirstName   *string         `json:"customer_first_name"`
	CustomerLastName    *string         `json:"customer_last_name"`
	TotalPrice          decimal.Decimal `json:"total_price"`
	DiscountCodes       []DiscountCode  `json:"discount_codes"`
	IsSubscriptionOrder bool            `json:"is_subscription_order"`
}

// SubscriptionEvent is the inbound subscription-contract payload, used for
// both create and update topics.
type SubscriptionEvent struct {
	EventID           string           `json:"event_id"`
	SubscriptionID    string           `json:"admin_graphql_api_id"`
	CustomerID        *string          `json:"admin_graphql_api_customer_id"`
	CustomerEmail     string           `json:"customer_email"`
	CustomerFirstName *string          `json:"customer_first_name"`
	CustomerLastName  *string          `json:"customer_last_name"`
	Status            string           `json:"status"`
	Cadence           string           `json:"cadence"`
	Brand             *string          `json:"brand"`
	NextBillingDate   *time.Time       `json:"next_billing_date"`
	LastPaymentStatus *string          `json:"last_payment_status"`
	OrderTotal        *decimal.Decimal `json:"order_total"`
}
