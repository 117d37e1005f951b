package models

import "time"

// DateLayout and TimeLayout are the accepted booking formats (YYYY-MM-DD and 24-hour HH:MM).
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Booking is a completed interview booking. All four fields are mandatory and
// format-checked before the record reaches a booking store.
type Booking struct {
	ID        string    `json:"id,omitempty" bson:"-"`
	Name      string    `json:"name" bson:"name" validate:"required,min=2"`
	Email     string    `json:"email" bson:"email" validate:"required,email"`
	Date      string    `json:"date" bson:"date" validate:"required,bookingdate"`
	Time      string    `json:"time" bson:"time" validate:"required,bookingtime"`
	CreatedAt time.Time `json:"created_at,omitempty" bson:"created_at"`
}

// Validate checks the four booking fields.
func (b *Booking) Validate() error {
	return Validate(b)
}
