package enum

// Order lifecycle, CHECK constrained in DB. Pending can move to Served,
// Paid or Cancelled; Served can move to Paid or Cancelled. Paid and
// Cancelled are terminal.

const (
	OrderStatusPending   = "Pending"
	OrderStatusServed    = "Served"
	OrderStatusPaid      = "Paid"
	OrderStatusCancelled = "Cancelled"
)

const (
	UserRoleAdmin  = "Admin"
	UserRoleWaiter = "Waiter"
)

const (
	DiscountTypePercentage = "Percentage"
	DiscountTypeFixed      = "Fixed"
)

// Common payment method labels. The column itself is free text so new
// methods don't need a migration.
const (
	PaymentMethodCash = "Cash"
	PaymentMethodCard = "Card"
	PaymentMethodUPI  = "UPI"
)

// DefaultParty scopes logins for the single deployed restaurant.
const DefaultParty = "cafe and restaurents"

// SystemUserUsername identifies the synthetic user that owns orders placed
// through the public self-service page. Created lazily on first public order.
const SystemUserUsername = "online_orders"

// SystemUserName is the display name snapshotted onto public orders.
const SystemUserName = "Online Orders"
