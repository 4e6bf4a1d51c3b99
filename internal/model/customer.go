package model

import "time"

// Customer is a person who booked at a salon, identified by phone within
// that salon.
type Customer struct {
    ID        uint64    // customers.id
    SalonID   uint64    // customers.salon_id
    Name      string    // customers.name
    Phone     string    // customers.phone (E.164)
    CreatedAt time.Time // customers.created_at
    UpdatedAt time.Time // customers.updated_at
}
