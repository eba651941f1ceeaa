package customer

import (
	"errors"
	"fmt"
)

var ErrForbidden = errors.New("operation not permitted")

type Operation string

const (
	OpBrowseCatalog     Operation = "catalog:browse"
	OpManageCatalog     Operation = "catalog:manage"
	OpViewInventory     Operation = "inventory:view"
	OpManageInventory   Operation = "inventory:manage"
	OpPlaceOrder        Operation = "order:place"
	OpViewOwnOrders     Operation = "order:view-own"
	OpViewAnyOrder      Operation = "order:view-any"
	OpCorrectOrderTotal Operation = "order:correct-total"
	OpViewReports       Operation = "report:view"
	OpManageCustomers   Operation = "customer:manage"
)

var userCapabilities = map[Operation]bool{
	OpBrowseCatalog: true,
	OpViewInventory: true,
	OpPlaceOrder:    true,
	OpViewOwnOrders: true,
}

// Authorize reports whether role may perform op. Admins may do everything,
// users only what userCapabilities lists.
func Authorize(role Role, op Operation) error {
	switch role {
	case RoleAdmin:
		return nil
	case RoleUser:
		if userCapabilities[op] {
			return nil
		}
	}
	return fmt.Errorf("%w: role %q cannot %s", ErrForbidden, role, op)
}
