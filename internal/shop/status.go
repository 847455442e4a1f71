package shop

type Status string

const (
	StatusPending        Status = "PENDING"
	StatusProcessing     Status = "PROCESSING"
	StatusPacked         Status = "PACKED"
	StatusShipped        Status = "SHIPPED"
	StatusOutForDelivery Status = "OUT_FOR_DELIVERY"
	StatusDelivered      Status = "DELIVERED"
	StatusCancelled      Status = "CANCELLED"
	StatusReturned       Status = "RETURNED"
)

// Cancel hanya boleh sebelum SHIPPED; setelah itu order jalan terus.
var validNext = map[Status]map[Status]bool{
	StatusPending:        {StatusProcessing: true, StatusCancelled: true},
	StatusProcessing:     {StatusPacked: true, StatusCancelled: true},
	StatusPacked:         {StatusShipped: true, StatusCancelled: true},
	StatusShipped:        {StatusOutForDelivery: true},
	StatusOutForDelivery: {StatusDelivered: true},
	StatusDelivered:      {StatusReturned: true},
	StatusCancelled:      {},
	StatusReturned:       {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func IsTerminal(s Status) bool {
	return len(validNext[s]) == 0
}

func IsValidStatus(s Status) bool {
	_, ok := validNext[s]
	return ok
}
