package models

import "time"

// Статусы груза. "pending" встречался в старых записях как синоним
// "available" — на чтении нормализуем в available, новый код его не пишет.
const (
	LoadStatusAvailable  = "available"
	LoadStatusPending    = "pending" // legacy alias of available
	LoadStatusInProgress = "in_progress"
	LoadStatusCompleted  = "completed"
	LoadStatusCancelled  = "cancelled"
)

// LoadStatusTerminal reports whether no further transition is defined
// out of the given status.
func LoadStatusTerminal(status string) bool {
	return status == LoadStatusCompleted || status == LoadStatusCancelled
}

// NormalizeLoadStatus collapses the legacy "pending" into "available".
func NormalizeLoadStatus(status string) string {
	if status == LoadStatusPending {
		return LoadStatusAvailable
	}
	return status
}

type Load struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId"`
	// DriverID установлен тогда и только тогда, когда статус in_progress или completed.
	DriverID *string `json:"driverId,omitempty"`

	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	OriginLat   *float64 `json:"originLat,omitempty"`
	OriginLng   *float64 `json:"originLng,omitempty"`
	DestLat     *float64 `json:"destLat,omitempty"`
	DestLng     *float64 `json:"destLng,omitempty"`

	WeightKG    float64    `json:"weightKg"`
	Price       float64    `json:"price"`
	PackageType *string    `json:"packageType,omitempty"`
	TruckType   *string    `json:"truckType,omitempty"`
	BodyType    *string    `json:"bodyType,omitempty"`
	PickupDate  *time.Time `json:"pickupDate,omitempty"`

	ReceiverName    *string `json:"receiverName,omitempty"`
	ReceiverPhone   *string `json:"receiverPhone,omitempty"`
	ReceiverAddress *string `json:"receiverAddress,omitempty"`

	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Денормализованные профили сторон (JOIN в админских/личных выборках).
	Owner  *PartyInfo `json:"owner,omitempty"`
	Driver *PartyInfo `json:"driver,omitempty"`
}

// PartyInfo is the embedded owner/driver slice of a profile returned by
// joined load reads.
type PartyInfo struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
}

type LoadCreateInput struct {
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	OriginLat   *float64 `json:"originLat,omitempty"`
	OriginLng   *float64 `json:"originLng,omitempty"`
	DestLat     *float64 `json:"destLat,omitempty"`
	DestLng     *float64 `json:"destLng,omitempty"`

	WeightKG    float64    `json:"weightKg"`
	Price       float64    `json:"price"`
	PackageType *string    `json:"packageType,omitempty"`
	TruckType   *string    `json:"truckType,omitempty"`
	BodyType    *string    `json:"bodyType,omitempty"`
	PickupDate  *time.Time `json:"pickupDate,omitempty"`

	ReceiverName    *string `json:"receiverName,omitempty"`
	ReceiverPhone   *string `json:"receiverPhone,omitempty"`
	ReceiverAddress *string `json:"receiverAddress,omitempty"`
}
