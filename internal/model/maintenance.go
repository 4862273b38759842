package model

import (
	"strings"
	"time"
)

// MaintenanceCategory classifies a maintenance request.
type MaintenanceCategory string

const (
	CategoryPlumbing   MaintenanceCategory = "Plumbing"
	CategoryElectrical MaintenanceCategory = "Electrical"
	CategoryFurniture  MaintenanceCategory = "Furniture"
	CategoryCleaning   MaintenanceCategory = "Cleaning"
	CategoryInternet   MaintenanceCategory = "Internet"
	CategorySecurity   MaintenanceCategory = "Security"
	CategoryOther      MaintenanceCategory = "Other"
)

var maintenanceCategories = []MaintenanceCategory{
	CategoryPlumbing, CategoryElectrical, CategoryFurniture, CategoryCleaning,
	CategoryInternet, CategorySecurity, CategoryOther,
}

// ParseMaintenanceCategory matches s case-insensitively.
func ParseMaintenanceCategory(s string) (MaintenanceCategory, bool) {
	for _, c := range maintenanceCategories {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, true
		}
	}
	return "", false
}

// MaintenanceStatus is the progress of a maintenance request.
type MaintenanceStatus string

const (
	MaintenancePending    MaintenanceStatus = "Pending"
	MaintenanceInProgress MaintenanceStatus = "In Progress"
	MaintenanceResolved   MaintenanceStatus = "Resolved"
)

// ParseMaintenanceStatus matches s case-insensitively, accepting
// "in_progress" and "in-progress" for In Progress.
func ParseMaintenanceStatus(s string) (MaintenanceStatus, bool) {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.NewReplacer("_", " ", "-", " ").Replace(k)
	switch k {
	case "pending":
		return MaintenancePending, true
	case "in progress":
		return MaintenanceInProgress, true
	case "resolved":
		return MaintenanceResolved, true
	}
	return "", false
}

// CanTransitionTo allows Pending → In Progress → Resolved and the
// Pending → Resolved shortcut.
func (s MaintenanceStatus) CanTransitionTo(next MaintenanceStatus) bool {
	switch s {
	case MaintenancePending:
		return next == MaintenanceInProgress || next == MaintenanceResolved
	case MaintenanceInProgress:
		return next == MaintenanceResolved
	}
	return false
}

// MaintenanceRequest is a row in `maintenance_requests`.
type MaintenanceRequest struct {
	ID          uint64              `json:"id"`
	StudentID   uint64              `json:"studentId"`
	HostelID    *uint64             `json:"hostelId,omitempty"`
	Category    MaintenanceCategory `json:"category"`
	RoomNumber  string              `json:"roomNumber"`
	Description string              `json:"description"`
	Status      MaintenanceStatus   `json:"status"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}
