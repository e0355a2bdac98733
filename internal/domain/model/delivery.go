package model

import "time"

// DeliveryStatus is the outcome of one forward attempt.
type DeliveryStatus string

const (
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
	DeliveryDuplicate DeliveryStatus = "duplicate"
	DeliveryDropped   DeliveryStatus = "dropped"
)

// Delivery is the audit entry for a forwarded questionnaire.
type Delivery struct {
	ID         string
	Flow       string
	Endpoint   string
	UserID     string
	Records    int
	Payload    []byte
	Status     DeliveryStatus
	HTTPStatus int
	Error      string
	CreatedAt  time.Time
}
