package model

import "time"

// BookingStatus is the lifecycle state of a Booking.
type BookingStatus string

const (
    BookingPending   BookingStatus = "PENDING"
    BookingConfirmed BookingStatus = "CONFIRMED"
    BookingCancelled BookingStatus = "CANCELLED"
    BookingCompleted BookingStatus = "COMPLETED"
)

// Booking records a confirmed appointment.  Bookings are only created by
// promoting a hold and are only cancelled through a management token.
//
// Fields:
//  ID              – primary key identifier.
//  SalonID         – salon of the appointment.
//  ServiceID       – booked service.
//  CustomerID      – customer row scoped to the salon.
//  Date, Time      – slot identity parts copied from the hold.
//  Status          – PENDING, CONFIRMED, CANCELLED or COMPLETED.
//  TotalPriceCents – service price at confirmation time.
type Booking struct {
    ID              uint64        // bookings.id
    SalonID         uint64        // bookings.salon_id
    ServiceID       uint64        // bookings.service_id
    CustomerID      uint64        // bookings.customer_id
    Date            string        // bookings.slot_date
    Time            string        // bookings.slot_time
    Status          BookingStatus // bookings.status
    TotalPriceCents uint32        // bookings.total_price_cents
    CreatedAt       time.Time     // bookings.created_at
    UpdatedAt       time.Time     // bookings.updated_at
}

// BookingDetail is a booking joined with its salon, service and customer
// for display through the management link.
type BookingDetail struct {
    Booking
    SalonName     string
    ServiceName   string
    CustomerName  string
    CustomerPhone string
}
