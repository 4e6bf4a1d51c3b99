package model

import "time"

// HoldStatus is the lifecycle state of a BookingHold.
type HoldStatus string

const (
    HoldReserved  HoldStatus = "RESERVED"
    HoldConfirmed HoldStatus = "CONFIRMED"
    HoldCancelled HoldStatus = "CANCELLED"
    HoldExpired   HoldStatus = "EXPIRED"
)

// Terminal reports whether no further transition is allowed.
func (s HoldStatus) Terminal() bool { return s != HoldReserved }

// BookingHold represents a temporary claim on a salon slot while the
// customer verifies their phone number.  A hold is only active while
// its status is RESERVED and ExpiresAt is in the future; a RESERVED
// hold whose expiry has passed is treated as expired even before the
// sweeper flips its status.
//
// Fields:
//  ID            – UUID returned to the client.
//  SalonID       – salon owning the slot.
//  ServiceID     – service booked in the slot.
//  Date          – slot day, "YYYY-MM-DD".
//  Time          – slot start, "HH:MM".
//  CustomerName  – optional name captured at hold time.
//  CustomerPhone – optional E.164 phone captured at hold time.
//  Status        – RESERVED, CONFIRMED, CANCELLED or EXPIRED.
//  ExpiresAt     – end of the hold window.
//  CreatedAt     – creation timestamp.
type BookingHold struct {
    ID            string     // booking_holds.id
    SalonID       uint64     // booking_holds.salon_id
    ServiceID     uint64     // booking_holds.service_id
    Date          string     // booking_holds.slot_date
    Time          string     // booking_holds.slot_time
    CustomerName  *string    // booking_holds.customer_name (nullable)
    CustomerPhone *string    // booking_holds.customer_phone (nullable)
    Status        HoldStatus // booking_holds.status
    ExpiresAt     time.Time  // booking_holds.expires_at
    CreatedAt     time.Time  // booking_holds.created_at
}

// ActiveAt reports whether the hold still blocks its slot at now.
func (h BookingHold) ActiveAt(now time.Time) bool {
    return h.Status == HoldReserved && h.ExpiresAt.After(now)
}

// Slot returns the slot identity the hold claims.
func (h BookingHold) Slot() Slot {
    return Slot{SalonID: h.SalonID, ServiceID: h.ServiceID, Date: h.Date, Time: h.Time}
}

// Slot is the uniqueness key for conflict checks.  It is not stored on its
// own; slot_claims uses it as primary key.
type Slot struct {
    SalonID   uint64
    ServiceID uint64
    Date      string
    Time      string
}
