package salesforce

import (
	"fmt"
	"strings"
)

// QueryResult is the response to a SOQL query. Records are kept as generic
// maps; the set of fields depends entirely on the query.
type QueryResult struct {
	TotalSize      int              `json:"totalSize"`
	Done           bool             `json:"done"`
	NextRecordsURL string           `json:"nextRecordsUrl,omitempty"`
	Records        []map[string]any `json:"records"`
}

// SObjectSummary is one entry of the org's object catalog.
type SObjectSummary struct {
	Name       string `json:"name"`
	Label      string `json:"label"`
	Custom     bool   `json:"custom"`
	Queryable  bool   `json:"queryable"`
	Createable bool   `json:"createable"`
}

// describeGlobalResponse wraps the global describe payload.
type describeGlobalResponse struct {
	Sobjects []SObjectSummary `json:"sobjects"`
}

// FieldDescribe is the field-level metadata of one object field.
type FieldDescribe struct {
	Name           string          `json:"name"`
	Label          string          `json:"label"`
	Type           string          `json:"type"`
	Length         int             `json:"length,omitempty"`
	Nillable       bool            `json:"nillable"`
	Custom         bool            `json:"custom"`
	Updateable     bool            `json:"updateable"`
	PicklistValues []PicklistValue `json:"picklistValues,omitempty"`
}

// PicklistValue is one allowed value of a picklist field.
type PicklistValue struct {
	Value  string `json:"value"`
	Label  string `json:"label"`
	Active bool   `json:"active"`
}

// SObjectDescribe is the metadata of one object type.
type SObjectDescribe struct {
	Name       string          `json:"name"`
	Label      string          `json:"label"`
	Custom     bool            `json:"custom"`
	Queryable  bool            `json:"queryable"`
	Createable bool            `json:"createable"`
	Fields     []FieldDescribe `json:"fields"`
}

// SaveResult is the response to a record insert.
type SaveResult struct {
	ID      string           `json:"id"`
	Success bool             `json:"success"`
	Errors  []APIErrorDetail `json:"errors,omitempty"`
}

// APIErrorDetail is one error entry from a Salesforce error payload.
type APIErrorDetail struct {
	Message   string   `json:"message"`
	ErrorCode string   `json:"errorCode"`
	Fields    []string `json:"fields,omitempty"`
}

// APIError is a non-2xx response from the Salesforce REST API.
type APIError struct {
	StatusCode int
	Errors     []APIErrorDetail
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("salesforce api error: status %d", e.StatusCode)
	}

	parts := make([]string, 0, len(e.Errors))
	for _, detail := range e.Errors {
		if detail.ErrorCode != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", detail.ErrorCode, detail.Message))
		} else {
			parts = append(parts, detail.Message)
		}
	}
	return fmt.Sprintf("salesforce api error (status %d): %s", e.StatusCode, strings.Join(parts, "; "))
}
