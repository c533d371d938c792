package events

const (
	TopicCheckoutCompleted = "payments.checkout.completed"
	TopicInventoryAdjusted = "inventory.adjusted"
	TopicOrderPaid         = "order.paid"
)

// PartitionKey keeps every event about one entity (product, order, checkout
// session) on one partition so consumers see them in order.
func PartitionKey(id string) []byte { return []byte(id) }
