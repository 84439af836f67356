package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forcerelay/forcerelay/internal/auth"
	"github.com/forcerelay/forcerelay/internal/instrumentation"
	"github.com/forcerelay/forcerelay/internal/salesforce"
	"github.com/forcerelay/forcerelay/internal/server"
)

// GetSalesforceClient builds a request-scoped Salesforce client from the
// credentials the auth gate attached to ctx. The instance URL is settled here,
// on the first path that actually needs a client, not speculatively by the
// gate. Derivation failures surface as tool errors for the caller to act on.
func GetSalesforceClient(ctx context.Context, sc *server.ServerContext) (*salesforce.Client, error) {
	ac := auth.FromContext(ctx)
	if !ac.Valid() {
		return nil, errors.New("no credentials attached to this request")
	}

	if ac.InstanceURL == "" {
		start := time.Now()
		err := sc.Resolver().EnsureInstanceURL(ctx, ac)

		result := instrumentation.StatusSuccess
		if err != nil {
			result = instrumentation.StatusError
		}
		sc.Metrics().RecordEndpointDerivation(ctx, result, time.Since(start))

		if err != nil {
			return nil, fmt.Errorf("unable to resolve the Salesforce instance for this token: %w", err)
		}
	}

	return salesforce.NewClient(ctx, ac, sc.Metrics())
}
