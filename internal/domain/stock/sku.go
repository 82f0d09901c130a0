package stock

import (
	"fmt"
	"strings"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
)

// SKUKey identifies one stock-keeping unit: a product at a warehouse,
// optionally refined by batch number and storage location. It is the
// identity tuple every inventory record, movement, and reservation hangs off.
type SKUKey struct {
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	BatchNumber string
	LocationID  string
}

// NewSKUKey creates a SKU key for a product-warehouse combination
func NewSKUKey(productID, warehouseID uuid.UUID) (SKUKey, error) {
	key := SKUKey{ProductID: productID, WarehouseID: warehouseID}
	if err := key.Validate(); err != nil {
		return SKUKey{}, err
	}
	return key, nil
}

// WithBatch returns a copy of the key refined to a specific batch
func (k SKUKey) WithBatch(batchNumber string) SKUKey {
	k.BatchNumber = batchNumber
	return k
}

// WithLocation returns a copy of the key refined to a storage location
func (k SKUKey) WithLocation(locationID string) SKUKey {
	k.LocationID = locationID
	return k
}

// Validate checks the mandatory components of the key
func (k SKUKey) Validate() error {
	if k.ProductID == uuid.Nil {
		return shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if k.WarehouseID == uuid.Nil {
		return shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	return nil
}

// String renders a stable textual form of the key. Cross-record operations
// sort their lock acquisition by this value, so it must be deterministic.
func (k SKUKey) String() string {
	var b strings.Builder
	b.WriteString(k.ProductID.String())
	b.WriteByte('/')
	b.WriteString(k.WarehouseID.String())
	if k.BatchNumber != "" {
		fmt.Fprintf(&b, "/batch=%s", k.BatchNumber)
	}
	if k.LocationID != "" {
		fmt.Fprintf(&b, "/loc=%s", k.LocationID)
	}
	return b.String()
}

// Less imposes the deterministic total order used for lock acquisition
func (k SKUKey) Less(other SKUKey) bool {
	return k.String() < other.String()
}

// Equal reports whether two keys identify the same stock-keeping unit
func (k SKUKey) Equal(other SKUKey) bool {
	return k == other
}
