package domain

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPaid      OrderStatus = "paid"
	StatusMaking    OrderStatus = "making"
	StatusReady     OrderStatus = "ready"
	StatusCompleted OrderStatus = "completed"
	StatusRefunded  OrderStatus = "refunded"
)

// transitions is the whole lifecycle. The happy path is listed first
// per state; refunds branch off only while the kitchen still owns the
// order.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusPaid},
	StatusPaid:      {StatusMaking, StatusRefunded},
	StatusMaking:    {StatusReady, StatusRefunded},
	StatusReady:     {StatusCompleted},
	StatusCompleted: nil,
	StatusRefunded:  nil,
}

func ValidOrderStatus(s OrderStatus) bool {
	_, ok := transitions[s]
	return ok
}

func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Next returns the happy-path successor, or "" when the state is
// terminal.
func Next(from OrderStatus) OrderStatus {
	nexts := transitions[from]
	if len(nexts) == 0 {
		return ""
	}
	return nexts[0]
}

func IsTerminal(s OrderStatus) bool {
	return len(transitions[s]) == 0 && ValidOrderStatus(s)
}

// amendable are the states where post-payment adjustments make sense:
// money has changed hands and the order was not unwound by a refund.
var amendable = map[OrderStatus]bool{
	StatusPaid:      true,
	StatusMaking:    true,
	StatusReady:     true,
	StatusCompleted: true,
}

func CanAmend(s OrderStatus) bool {
	return amendable[s]
}
