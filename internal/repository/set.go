package repository

import "database/sql"

// Set bundles every repository bound to one database.
type Set struct {
	Holds     *HoldRepo
	Claims    *SlotClaimRepo
	Bookings  *BookingRepo
	Customers *CustomerRepo
	Services  *ServiceRepo
	Otp       *OtpRepo
	Tokens    *ManageTokenRepo
}

// NewSet builds all repositories for db.
func NewSet(db *sql.DB) *Set {
	return &Set{
		Holds:     NewHoldRepo(db),
		Claims:    NewSlotClaimRepo(db),
		Bookings:  NewBookingRepo(db),
		Customers: NewCustomerRepo(db),
		Services:  NewServiceRepo(db),
		Otp:       NewOtpRepo(db),
		Tokens:    NewManageTokenRepo(db),
	}
}
