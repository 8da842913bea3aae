package models

import (
	"encoding/json"
	"strconv"
	"strings"

	dErrors "prism/pkg/domain-errors"
)

// FlexInt decodes JSON numbers, numeric strings, and null alike.
// Anything non-numeric coerces to 0 rather than rejecting the request,
// matching the store's tolerant handling of count fields.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			*f = FlexInt(n)
			return nil
		}
	}
	*f = 0
	return nil
}

// CreateRequest carries the fields for a new tenant registration.
type CreateRequest struct {
	Name         string `json:"name"`
	DirectoryID  string `json:"tenantId"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	IsActive     *bool  `json:"isActive"`
}

// Sanitize trims surrounding whitespace from all string fields.
func (r *CreateRequest) Sanitize() {
	r.Name = strings.TrimSpace(r.Name)
	r.DirectoryID = strings.TrimSpace(r.DirectoryID)
	r.ClientID = strings.TrimSpace(r.ClientID)
	r.ClientSecret = strings.TrimSpace(r.ClientSecret)
}

// Validate checks that every required field is present and non-blank.
func (r *CreateRequest) Validate() error {
	if r.Name == "" || r.DirectoryID == "" || r.ClientID == "" || r.ClientSecret == "" {
		return dErrors.New(dErrors.CodeValidation, "missing required fields")
	}
	return nil
}

// Active resolves the optional isActive flag, defaulting to true.
func (r *CreateRequest) Active() bool {
	if r.IsActive == nil {
		return true
	}
	return *r.IsActive
}

// UpdateRequest carries a partial tenant update. Nil pointers mean
// "field not supplied, keep the existing value".
type UpdateRequest struct {
	Name         *string  `json:"name"`
	DirectoryID  *string  `json:"tenantId"`
	ClientID     *string  `json:"clientId"`
	ClientSecret *string  `json:"clientSecret"`
	IsActive     *bool    `json:"isActive"`
	LastSync     *string  `json:"lastSync"`
	UserCount    *FlexInt `json:"userCount"`
	LicenseCount *FlexInt `json:"licenseCount"`
}

// Sanitize trims supplied string fields in place.
func (r *UpdateRequest) Sanitize() {
	for _, f := range []*string{r.Name, r.DirectoryID, r.ClientID, r.ClientSecret} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
}

// Apply merges the supplied fields over an existing record. The secret is
// intentionally not applied here: re-encryption belongs to the service and
// only happens when a non-blank secret was supplied.
func (r *UpdateRequest) Apply(rec *Record) {
	if r.Name != nil {
		rec.Name = *r.Name
	}
	if r.DirectoryID != nil {
		rec.DirectoryID = *r.DirectoryID
	}
	if r.ClientID != nil {
		rec.ClientID = *r.ClientID
	}
	if r.IsActive != nil {
		rec.IsActive = *r.IsActive
	}
	if r.LastSync != nil {
		rec.LastSync = *r.LastSync
	}
	if r.UserCount != nil {
		rec.UserCount = int(*r.UserCount)
	}
	if r.LicenseCount != nil {
		rec.LicenseCount = int(*r.LicenseCount)
	}
}
