package backend

import "github.com/shopspring/decimal"

// DailyRecord is one weight measurement for one unit on one day.
// Date is normalized by the backend to YYYY-MM-DD.
type DailyRecord struct {
	Date string          `json:"date"`
	Kg   decimal.Decimal `json:"kg"`
}

// UnitResult is the backend's outcome for a single requested unit.
// A non-empty Error marks the unit as failed; Total and Rows are then
// stand-in values (zero/empty), not real data.
type UnitResult struct {
	UnitID string          `json:"unit_id"`
	Rows   []DailyRecord   `json:"rows"`
	Total  decimal.Decimal `json:"total"`
	Error  string          `json:"error,omitempty"`
}

// Failed reports whether the backend recorded a unit-level failure.
func (r UnitResult) Failed() bool {
	return r.Error != ""
}

// CollectRequest is the body of POST /api/scrape. Units are sent
// verbatim and un-deduplicated; the backend owns normalization and
// date-range validation.
type CollectRequest struct {
	Units     []string `json:"units"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
}

// CollectResponse carries one UnitResult per requested unit, in
// request order.
type CollectResponse struct {
	Results         []UnitResult `json:"results"`
	TotalUnits      int          `json:"total_units"`
	SuccessfulUnits int          `json:"successful_units"`
	FailedUnits     int          `json:"failed_units"`
}

// UnitInfo describes a unit found by POST /api/discover_units.
type UnitInfo struct {
	UnitID   string `json:"unit_id"`
	UnitName string `json:"unit_name"`
}

// DiscoverResponse is the body of POST /api/discover_units.
type DiscoverResponse struct {
	Units []UnitInfo `json:"units"`
	Total int        `json:"total"`
}

// CredentialStatus is the body of GET /api/login.
type CredentialStatus struct {
	HasCredentials bool   `json:"has_credentials"`
	Username       string `json:"username,omitempty"`
}

// Credentials is the body of POST /api/login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Health is the body of GET /health.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
