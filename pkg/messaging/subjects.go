package messaging

const (
	// OrdersStream is the JetStream stream capturing every order subject.
	OrdersStream = "ORDERS"
	// OrdersSubjects is the subject filter bound to OrdersStream.
	OrdersSubjects = "orders.>"
	// OrdersPlacedSubject carries OrderPlacedEvent.
	OrdersPlacedSubject = "orders.placed"
)
