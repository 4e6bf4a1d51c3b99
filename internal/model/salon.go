package model

// Salon represents a row in the salons table.
type Salon struct {
    ID   uint64 // salons.id
    Name string // salons.name
}

// SalonService is a bookable service offered by a salon.  Its price is
// copied onto the booking when a hold is confirmed.
type SalonService struct {
    ID              uint64 // salon_services.id
    SalonID         uint64 // salon_services.salon_id
    Name            string // salon_services.name
    PriceCents      uint32 // salon_services.price_cents
    DurationMinutes uint32 // salon_services.duration_minutes
    IsActive        bool   // salon_services.is_active
}
