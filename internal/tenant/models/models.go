package models

// Record is one persisted tenant entry. The JSON field names are the stable
// wire contract of the tenants file and must not change. DirectoryID maps to
// the "tenantId" field: the external directory identifier, distinct from the
// record's own ID.
type Record struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DirectoryID  string `json:"tenantId"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	IsActive     bool   `json:"isActive"`
	LastSync     string `json:"lastSync"`
	UserCount    int    `json:"userCount"`
	LicenseCount int    `json:"licenseCount"`
}

// Redacted is the external view of a Record: every field except the secret,
// plus a flag telling callers whether one is stored. No caller outside the
// tenant component ever sees the secret, encrypted or not.
type Redacted struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DirectoryID  string `json:"tenantId"`
	ClientID     string `json:"clientId"`
	IsActive     bool   `json:"isActive"`
	LastSync     string `json:"lastSync"`
	UserCount    int    `json:"userCount"`
	LicenseCount int    `json:"licenseCount"`
	HasSecret    bool   `json:"hasSecret"`
}

// Redact strips the secret from a record for external consumption.
func (r Record) Redact() Redacted {
	return Redacted{
		ID:           r.ID,
		Name:         r.Name,
		DirectoryID:  r.DirectoryID,
		ClientID:     r.ClientID,
		IsActive:     r.IsActive,
		LastSync:     r.LastSync,
		UserCount:    r.UserCount,
		LicenseCount: r.LicenseCount,
		HasSecret:    r.ClientSecret != "",
	}
}
