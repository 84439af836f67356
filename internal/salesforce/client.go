package salesforce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/forcerelay/forcerelay/internal/auth"
	"github.com/forcerelay/forcerelay/internal/instrumentation"
)

// APIVersion is the Salesforce REST API version all calls target.
const APIVersion = "v60.0"

// Client talks to one Salesforce instance with one caller's credentials. It is
// cheap to construct and scoped to a single request; nothing caches it.
type Client struct {
	baseURL string
	hc      *http.Client
	metrics *instrumentation.Metrics
}

// NewClient builds a client from resolved credentials. The instance URL must
// already be known; callers resolve it through the credential layer first.
// A nil metrics recorder disables operation metrics.
func NewClient(ctx context.Context, ac *auth.AuthContext, metrics *instrumentation.Metrics) (*Client, error) {
	if ac == nil || ac.Token == "" {
		return nil, errors.New("no credentials to build salesforce client from")
	}
	if ac.InstanceURL == "" {
		return nil, errors.New("instance URL not resolved")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: ac.Token,
		TokenType:   "Bearer",
	})

	return &Client{
		baseURL: strings.TrimRight(ac.InstanceURL, "/"),
		hc:      oauth2.NewClient(ctx, ts),
		metrics: metrics,
	}, nil
}

// Query runs a SOQL query and returns the first page of results.
func (c *Client) Query(ctx context.Context, soql string) (*QueryResult, error) {
	if strings.TrimSpace(soql) == "" {
		return nil, errors.New("empty SOQL query")
	}

	endpoint := fmt.Sprintf("%s/services/data/%s/query?%s",
		c.baseURL, APIVersion, url.Values{"q": {soql}}.Encode())

	var result QueryResult
	if err := c.do(ctx, "query", http.MethodGet, endpoint, nil, &result); err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}
	return &result, nil
}

// DescribeSObject retrieves the field-level metadata of one object type.
func (c *Client) DescribeSObject(ctx context.Context, name string) (*SObjectDescribe, error) {
	if name == "" {
		return nil, errors.New("sobject name is required")
	}

	endpoint := fmt.Sprintf("%s/services/data/%s/sobjects/%s/describe",
		c.baseURL, APIVersion, url.PathEscape(name))

	var result SObjectDescribe
	if err := c.do(ctx, "describe", http.MethodGet, endpoint, nil, &result); err != nil {
		return nil, fmt.Errorf("failed to describe %s: %w", name, err)
	}
	return &result, nil
}

// ListSObjects retrieves the org's object catalog.
func (c *Client) ListSObjects(ctx context.Context) ([]SObjectSummary, error) {
	endpoint := fmt.Sprintf("%s/services/data/%s/sobjects", c.baseURL, APIVersion)

	var result describeGlobalResponse
	if err := c.do(ctx, "describe_global", http.MethodGet, endpoint, nil, &result); err != nil {
		return nil, fmt.Errorf("failed to list sobjects: %w", err)
	}
	return result.Sobjects, nil
}

// GetRecord fetches a single record by id. When fields is non-empty, only
// those fields are requested.
func (c *Client) GetRecord(ctx context.Context, sobject, id string, fields []string) (map[string]any, error) {
	if sobject == "" || id == "" {
		return nil, errors.New("sobject name and record id are required")
	}

	endpoint := fmt.Sprintf("%s/services/data/%s/sobjects/%s/%s",
		c.baseURL, APIVersion, url.PathEscape(sobject), url.PathEscape(id))
	if len(fields) > 0 {
		endpoint += "?" + url.Values{"fields": {strings.Join(fields, ",")}}.Encode()
	}

	var record map[string]any
	if err := c.do(ctx, "get_record", http.MethodGet, endpoint, nil, &record); err != nil {
		return nil, fmt.Errorf("failed to get %s record %s: %w", sobject, id, err)
	}
	return record, nil
}

// CreateRecord inserts a single record and returns its new id.
func (c *Client) CreateRecord(ctx context.Context, sobject string, fields map[string]any) (*SaveResult, error) {
	if sobject == "" {
		return nil, errors.New("sobject name is required")
	}
	if len(fields) == 0 {
		return nil, errors.New("record fields are required")
	}

	endpoint := fmt.Sprintf("%s/services/data/%s/sobjects/%s",
		c.baseURL, APIVersion, url.PathEscape(sobject))

	var result SaveResult
	if err := c.do(ctx, "create_record", http.MethodPost, endpoint, fields, &result); err != nil {
		return nil, fmt.Errorf("failed to create %s record: %w", sobject, err)
	}
	return &result, nil
}

// do issues one API call, decodes the response into out, and records the
// operation metric.
func (c *Client) do(ctx context.Context, operation, method, endpoint string, body, out any) error {
	start := time.Now()
	err := c.roundTrip(ctx, method, endpoint, body, out)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	c.metrics.RecordSalesforceOperation(ctx, operation, status, time.Since(start))

	return err
}

func (c *Client) roundTrip(ctx context.Context, method, endpoint string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// decodeAPIError turns a non-2xx response into an *APIError. Salesforce
// returns errors as a JSON array of {message, errorCode} objects; anything
// else is preserved as a single opaque message.
func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return apiErr
	}

	var details []APIErrorDetail
	if jsonErr := json.Unmarshal(data, &details); jsonErr == nil {
		apiErr.Errors = details
		return apiErr
	}

	if msg := strings.TrimSpace(string(data)); msg != "" {
		apiErr.Errors = []APIErrorDetail{{Message: msg}}
	}
	return apiErr
}
