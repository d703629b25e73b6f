package enums

import (
	"fmt"
	"strings"
)

// EquipmentStatus is the availability flag derived from an item's count.
type EquipmentStatus string

const (
	EquipmentStatusAvailable EquipmentStatus = "available"
	EquipmentStatusLoanedOut EquipmentStatus = "loaned_out"
	EquipmentStatusDamaged   EquipmentStatus = "damaged"
)

var validEquipmentStatuses = []EquipmentStatus{
	EquipmentStatusAvailable,
	EquipmentStatusLoanedOut,
	EquipmentStatusDamaged,
}

var legacyEquipmentStatuses = map[string]EquipmentStatus{
	"tersedia": EquipmentStatusAvailable,
	"dipinjam": EquipmentStatusLoanedOut,
	"rusak":    EquipmentStatusDamaged,
}

func (s EquipmentStatus) IsValid() bool {
	for _, candidate := range validEquipmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseEquipmentStatus(value string) (EquipmentStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validEquipmentStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	if status, ok := legacyEquipmentStatuses[normalized]; ok {
		return status, nil
	}
	return "", fmt.Errorf("invalid equipment status %q", value)
}
