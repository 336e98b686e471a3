package types

// DecommissionRequest starts a grace period. Zero OverrideDays derives the
// period from the application's environments.
type DecommissionRequest struct {
	OverrideDays int `json:"override_days" validate:"gte=0,lte=365"`
}

// MarkInactiveRequest is read from the query string of the maintenance route.
type MarkInactiveRequest struct {
	Hours int `validate:"gte=0,lte=8760"`
}

// LineageQuery holds the common lineage query parameters.
type LineageQuery struct {
	IncludeInactive bool
	Limit           int    `validate:"gte=0,lte=5000"`
	Direction       string `validate:"omitempty,oneof=inbound outbound both"`
}
