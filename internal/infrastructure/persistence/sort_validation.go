package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed
// fields. Returns the defaultField if the input is invalid, empty, or not in
// the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// InventoryRecordSortFields contains allowed sort fields for inventory records
var InventoryRecordSortFields = map[string]bool{
	"id":                 true,
	"created_at":         true,
	"updated_at":         true,
	"product_id":         true,
	"warehouse_id":       true,
	"batch_number":       true,
	"location_id":        true,
	"quantity_available": true,
	"quantity_reserved":  true,
	"quantity_ordered":   true,
	"unit_cost":          true,
	"last_stock_date":    true,
}

// StockMovementSortFields contains allowed sort fields for ledger entries
var StockMovementSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"movement_date":  true,
	"movement_type":  true,
	"product_id":     true,
	"warehouse_id":   true,
	"quantity":       true,
	"reference_type": true,
	"reference_id":   true,
}

// StockReservationSortFields contains allowed sort fields for reservations
var StockReservationSortFields = map[string]bool{
	"id":                 true,
	"created_at":         true,
	"updated_at":         true,
	"reservation_number": true,
	"product_id":         true,
	"warehouse_id":       true,
	"reserved_quantity":  true,
	"reservation_date":   true,
	"expiry_date":        true,
	"status":             true,
}

// StockBatchSortFields contains allowed sort fields for batches
var StockBatchSortFields = map[string]bool{
	"id":                 true,
	"created_at":         true,
	"updated_at":         true,
	"batch_number":       true,
	"product_id":         true,
	"warehouse_id":       true,
	"current_quantity":   true,
	"manufacturing_date": true,
	"expiry_date":        true,
}

// StockAdjustmentSortFields contains allowed sort fields for adjustments
var StockAdjustmentSortFields = map[string]bool{
	"id":                true,
	"created_at":        true,
	"updated_at":        true,
	"adjustment_number": true,
	"warehouse_id":      true,
	"type":              true,
	"status":            true,
	"submitted_at":      true,
	"approved_at":       true,
}

// WarehouseTransferSortFields contains allowed sort fields for transfers
var WarehouseTransferSortFields = map[string]bool{
	"id":                true,
	"created_at":        true,
	"updated_at":        true,
	"transfer_number":   true,
	"from_warehouse_id": true,
	"to_warehouse_id":   true,
	"status":            true,
	"completed_at":      true,
}
