// Package crm is the HTTP adapter for the HubSpot-compatible contact API.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/fintrack/backend/internal/domain/crmsync"
	"github.com/fintrack/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
)

const (
	contactsPath = "/crm/v3/objects/contacts"
	searchPath   = contactsPath + "/search"
)

// ContactClient implements crmsync.ContactGateway over HTTP
type ContactClient struct {
	config     Config
	httpClient *http.Client
	metrics    *telemetry.SyncMetrics
}

// ClientOption configures a ContactClient
type ClientOption func(*ContactClient)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cc *ContactClient) {
		cc.httpClient = c
	}
}

// WithMetrics records call latency on m
func WithMetrics(m *telemetry.SyncMetrics) ClientOption {
	return func(cc *ContactClient) {
		cc.metrics = m
	}
}

// NewContactClient creates a client; the config is validated and defaulted
func NewContactClient(cfg Config, opts ...ClientOption) (*ContactClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &ContactClient{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SearchByEmail finds the contact whose email property equals email
func (c *ContactClient) SearchByEmail(ctx context.Context, email string) (*crmsync.Contact, error) {
	req := searchRequest{
		FilterGroups: []filterGroup{{
			Filters: []filter{{PropertyName: propEmail, Operator: "EQ", Value: email}},
		}},
		Properties: []string{propEmail, propFirstName, propLastName},
		Limit:      1,
	}

	var resp searchResponse
	if err := c.do(ctx, "search", http.MethodPost, searchPath, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	obj := resp.Results[0]
	return &crmsync.Contact{
		ID:        obj.ID,
		Email:     obj.Properties[propEmail],
		FirstName: obj.Properties[propFirstName],
		LastName:  obj.Properties[propLastName],
	}, nil
}

// CreateContact creates a contact and returns its ID
func (c *ContactClient) CreateContact(ctx context.Context, fields crmsync.ContactFields) (string, error) {
	var resp contactObject
	if err := c.do(ctx, "create", http.MethodPost, contactsPath, toInput(fields), &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("crm: create response has no contact id")
	}
	return resp.ID, nil
}

// UpdateContact sets email and any non-empty name on contactID
func (c *ContactClient) UpdateContact(ctx context.Context, contactID string, fields crmsync.ContactFields) error {
	path := contactsPath + "/" + url.PathEscape(contactID)
	return c.do(ctx, "update", http.MethodPatch, path, toInput(fields), nil)
}

// toInput omits empty names so an update never blanks names set in the CRM
func toInput(fields crmsync.ContactFields) contactInput {
	props := map[string]string{propEmail: fields.Email}
	if fields.FirstName != "" {
		props[propFirstName] = fields.FirstName
	}
	if fields.LastName != "" {
		props[propLastName] = fields.LastName
	}
	return contactInput{Properties: props}
}

// do sends one JSON request. Non-2xx responses become *crmsync.RemoteError
// with the raw body preserved for the audit log.
func (c *ContactClient) do(ctx context.Context, operation, method, path string, in, out any) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "crm."+operation,
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute("http.request.method", method),
	)
	start := time.Now()
	defer func() {
		c.metrics.RecordRemoteCall(ctx, operation, time.Since(start), err)
		telemetry.RecordError(span, err)
		span.End()
	}()

	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("crm: failed to marshal %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("crm: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("crm: %s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBodySize))
	if err != nil {
		return fmt.Errorf("crm: failed to read response: %w", err)
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrHTTPStatus, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		remote := newRemoteError(resp, body)
		telemetry.SetAttributes(span, telemetry.SpanAttrCRMCategory, remote.Category)
		return remote
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("crm: failed to decode %s response: %w", operation, err)
	}
	return nil
}

func newRemoteError(resp *http.Response, body []byte) *crmsync.RemoteError {
	remote := &crmsync.RemoteError{
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil {
		remote.Message = eb.Message
		remote.Category = eb.Category
		remote.CorrelationID = eb.CorrelationID
	}
	if remote.Message == "" {
		remote.Message = http.StatusText(resp.StatusCode)
	}
	return remote
}

var _ crmsync.ContactGateway = (*ContactClient)(nil)
