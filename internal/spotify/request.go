package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/desertthunder/spotauth/internal/shared"
)

// PendingRequest is a single API request under construction. Parameter
// setters return modified copies, so a PendingRequest can be reused and
// narrowed without affecting earlier values.
//
// Each endpoint accepts a fixed parameter set; setting anything else poisons
// the request, and the error comes back from [PendingRequest.Raw] or
// [PendingRequest.Do].
type PendingRequest struct {
	client   *Client
	token    string
	method   string
	endpoint string
	params   url.Values
	accepted map[string]bool
	body     any
	err      error
}

// Limit sets the maximum number of items to return.
func (r PendingRequest) Limit(limit int) PendingRequest {
	return r.setParam("limit", strconv.Itoa(limit))
}

// Offset sets the index of the first item to return.
func (r PendingRequest) Offset(offset int) PendingRequest {
	return r.setParam("offset", strconv.Itoa(offset))
}

// Market sets the market (an ISO 3166-1 alpha-2 country code).
func (r PendingRequest) Market(market string) PendingRequest {
	return r.setParam("market", market)
}

// Country sets the country (an ISO 3166-1 alpha-2 country code).
func (r PendingRequest) Country(country string) PendingRequest {
	return r.setParam("country", country)
}

// Locale sets the locale (an ISO 639-1 language code joined with an
// ISO 3166-1 alpha-2 country code, e.g. "es_MX").
func (r PendingRequest) Locale(locale string) PendingRequest {
	return r.setParam("locale", locale)
}

// Fields sets a filter for the fields to include in the response.
func (r PendingRequest) Fields(fields string) PendingRequest {
	return r.setParam("fields", fields)
}

// IncludeGroups filters an artist's albums by group, e.g. "album,single".
func (r PendingRequest) IncludeGroups(groups string) PendingRequest {
	return r.setParam("include_groups", groups)
}

// IncludeExternal set to "audio" marks externally hosted audio as playable.
func (r PendingRequest) IncludeExternal(value string) PendingRequest {
	return r.setParam("include_external", value)
}

// setParam records a query parameter on a copy of the request. The first
// rejected parameter sticks and short-circuits later setters.
func (r PendingRequest) setParam(key, value string) PendingRequest {
	if r.err != nil {
		return r
	}
	if !r.accepted[key] {
		r.err = fmt.Errorf("%w: parameter %q is not accepted by %s", shared.ErrInvalidArgument, key, r.endpoint)
		return r
	}

	params := make(url.Values, len(r.params)+1)
	for k, v := range r.params {
		params[k] = v
	}
	params.Set(key, value)
	r.params = params

	return r
}

// Do executes the request and decodes the response into result when result
// is non-nil. This is the final call of the method chain.
func (r PendingRequest) Do(ctx context.Context, result any) error {
	if r.err != nil {
		return r.err
	}
	return r.client.do(ctx, r.method, r.endpoint, r.token, r.params, r.body, result)
}

// Raw executes the request and returns the undecoded response body.
func (r PendingRequest) Raw(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := r.Do(ctx, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
