package apiclient

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// standbyFailureMessage is the only error message the standby path surfaces.
// The standby's native error detail goes to the logger, never to callers, so
// UI code cannot grow a dependency on a backend-specific error format.
const standbyFailureMessage = "standby request failed"

// StandbyQuery is the standby-side translation of a read operation. The
// standby addresses resource collections with query-string operators instead
// of JSON bodies, so each capable operation carries the filters, ordering
// and window it needs in this form.
type StandbyQuery struct {
	// Resource is the collection name, e.g. "articles".
	Resource string
	// Filters holds column conditions in operator.value form,
	// e.g. {"status": ["eq.PUBLISHED"], "title": ["ilike.*sol*"]}.
	Filters url.Values
	// Order is "<column>.<asc|desc>", empty for backend default.
	Order string
	// Limit and Offset window the collection. Limit 0 means unbounded.
	Limit  int
	Offset int
	// Single unwraps a one-element array response into the bare object.
	Single bool
}

// encode renders the query-string dialect. url.Values.Encode sorts keys, so
// the same logical query always produces the same URL.
func (q *StandbyQuery) encode() string {
	values := url.Values{}
	for column, conditions := range q.Filters {
		for _, cond := range conditions {
			values.Add(column, cond)
		}
	}
	if q.Order != "" {
		values.Set("order", q.Order)
	}
	limit := q.Limit
	if q.Single {
		limit = 1
	}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	if q.Offset > 0 {
		values.Set("offset", strconv.Itoa(q.Offset))
	}
	return values.Encode()
}

// standbyURLFor resolves the full standby URL for a translated query.
func (c *Client) standbyURLFor(q *StandbyQuery) string {
	base := strings.TrimRight(c.standbyURL, "/")
	u := base + "/" + q.Resource
	if encoded := q.encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

// doStandby performs one attempt against the standby backend and normalizes
// whatever happens into an envelope. No cache, no retries: the standby path
// is a single shot, and every failure mode collapses into the same generic
// terminal failure.
func (c *Client) doStandby(ctx context.Context, req *Request, requestID string, start time.Time) *Envelope {
	q := req.Standby

	attemptCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	fullURL := c.standbyURLFor(q)
	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, fullURL, nil)
	if err != nil {
		return c.standbyFailure(req, requestID, "build request", err, 0)
	}

	// Fixed API key auth; the user's bearer token is never attached here.
	httpReq.Header.Set("apikey", c.standbyAPIKey)
	httpReq.Header.Set("Accept", "application/json")
	if !q.Single {
		// Ask for the collection size so pagination meta can be synthesized.
		httpReq.Header.Set("Prefer", "count=exact")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return c.standbyFailure(req, requestID, "transport", err, 0)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return c.standbyFailure(req, requestID, "read body", err, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return c.standbyFailure(req, requestID, "status", nil, resp.StatusCode)
	}

	env, err := c.wrapStandbyBody(q, body, resp.Header.Get("Content-Range"))
	if err != nil {
		return c.standbyFailure(req, requestID, "decode", err, resp.StatusCode)
	}

	if c.metrics != nil {
		c.metrics.RecordStandbyRequest(string(req.Operation), "success")
	}
	if c.debugEnabled(c.debug.LogRequests) {
		c.logger.Debug("Standby request served", "requestID", requestID, "operation", string(req.Operation), "resource", q.Resource, "duration", time.Since(start))
	}
	return env
}

// wrapStandbyBody turns a raw standby payload into the envelope shape. Lists
// arrive as JSON arrays; single reads are one-element arrays that unwrap to
// the bare object. Anything that does not parse is an error for the caller
// to normalize.
func (c *Client) wrapStandbyBody(q *StandbyQuery, body []byte, contentRange string) (*Envelope, error) {
	if q.Single {
		var rows []json.RawMessage
		if err := json.Unmarshal(body, &rows); err != nil {
			// Some deployments answer single-row requests with a bare
			// object already.
			var obj map[string]json.RawMessage
			if objErr := json.Unmarshal(body, &obj); objErr != nil {
				return nil, err
			}
			return newSuccessEnvelope(json.RawMessage(body), nil), nil
		}
		if len(rows) == 0 {
			return nil, errEnvelopeShape
		}
		return newSuccessEnvelope(rows[0], nil), nil
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, err
	}

	meta := standbyMeta(q, contentRange)
	return newSuccessEnvelope(json.RawMessage(body), meta), nil
}

// standbyMeta synthesizes pagination meta from the requested window and the
// Content-Range header when the standby provides one.
func standbyMeta(q *StandbyQuery, contentRange string) *PaginationMeta {
	if q.Limit <= 0 {
		return nil
	}

	meta := &PaginationMeta{
		Page:  q.Offset/q.Limit + 1,
		Limit: q.Limit,
	}
	if total, ok := parseContentRangeTotal(contentRange); ok {
		meta.Total = total
		meta.TotalPages = (total + q.Limit - 1) / q.Limit
	}
	return meta
}

// parseContentRangeTotal extracts the collection size from a header shaped
// like "0-9/57". A "*" or missing total reports false.
func parseContentRangeTotal(contentRange string) (int, bool) {
	if contentRange == "" {
		return 0, false
	}
	idx := strings.LastIndex(contentRange, "/")
	if idx < 0 || idx+1 >= len(contentRange) {
		return 0, false
	}
	totalPart := contentRange[idx+1:]
	if totalPart == "*" {
		return 0, false
	}
	total, err := strconv.Atoi(totalPart)
	if err != nil || total < 0 {
		return 0, false
	}
	return total, true
}

// standbyFailure logs the underlying detail and returns the generic standby
// failure envelope.
func (c *Client) standbyFailure(req *Request, requestID, stage string, cause error, statusCode int) *Envelope {
	if c.metrics != nil {
		c.metrics.RecordStandbyRequest(string(req.Operation), "error")
		c.metrics.RecordError(string(KindStandby), string(req.Operation))
	}
	if c.logger != nil {
		fields := []interface{}{
			"requestID", requestID,
			"operation", string(req.Operation),
			"stage", stage,
		}
		if statusCode > 0 {
			fields = append(fields, "statusCode", statusCode)
		}
		if cause != nil {
			fields = append(fields, "error", cause.Error())
		}
		c.logger.Warn("Standby request failed", fields...)
	}
	return newFailureEnvelope(KindStandby, standbyFailureMessage, nil)
}
