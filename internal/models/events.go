package models

// OrderConfirmedEvent is published when an order has been validated and
// persisted. EventID is the dedupe key: the consumer processes each event
// id at most once even if the broker redelivers.
type OrderConfirmedEvent struct {
	EventID string           `json:"event_id"`
	OrderID int              `json:"order_id"`
	Items   []OrderItemEvent `json:"items"`
}

type OrderItemEvent struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}
