package service

// Principal is the authenticated caller. Capability checks go through it
// rather than comparing user ids.
type Principal interface {
	ID() uint
	CanManageOrders() bool
	CanManageCatalog() bool
}

func owns(p Principal, userID uint) bool {
	return p != nil && p.ID() == userID
}
