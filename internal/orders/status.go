package orders

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusFulfilled Status = "fulfilled"
	StatusCanceled  Status = "canceled"
	StatusRefunded  Status = "refunded"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusPaid: true, StatusCanceled: true},
	StatusPaid:      {StatusFulfilled: true, StatusRefunded: true, StatusCanceled: true},
	StatusFulfilled: {StatusRefunded: true},
	StatusCanceled:  {},
	StatusRefunded:  {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// StatusForPayment maps the provider's payment status onto the initial order
// status: only a settled "paid" yields StatusPaid.
func StatusForPayment(paymentStatus string) Status {
	if paymentStatus == "paid" {
		return StatusPaid
	}
	return StatusPending
}
