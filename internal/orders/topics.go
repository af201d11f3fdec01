package orders

const (
	TopicOrderLifecycle = "order.lifecycle"
)

// Partition key = order_id, supaya event lifecycle satu order tetap berurutan.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
