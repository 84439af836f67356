// Package salesforce provides a thin client for the Salesforce REST API.
//
// Clients are built per request from the caller's resolved credentials; the
// server never holds Salesforce credentials of its own. All calls go to the
// caller's instance endpoint using their bearer token, so org isolation falls
// out of Salesforce's own authorization model.
//
// # Supported Operations
//
//   - Query: run a SOQL query
//   - DescribeSObject: field-level metadata for one object type
//   - ListSObjects: the org's object catalog (global describe)
//   - GetRecord: fetch a single record by id
//   - CreateRecord: insert a single record
//
// API errors are returned as *APIError carrying the HTTP status and the
// error payload Salesforce responded with.
package salesforce
