// Package salesforce implements the minimal Salesforce REST surface the
// exporter needs: username+password+token login, sobject describe, and SOQL
// query execution with transparent page following.
//
// The package is intentionally small. It is not a general Salesforce SDK:
//   - No retry/backoff (callers own that policy; the exporter has none).
//   - No CRUD operations.
//   - Errors map onto a small typed taxonomy (errors.go) so callers can
//     distinguish "malformed query" and "authentication failed" faults from
//     everything else.
package salesforce

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIVersion is the REST API version all endpoints are pinned to.
const APIVersion = "v59.0"

// Credentials holds the username+password+security-token login inputs.
// Domain is the login host prefix: "login" for production, "test" for
// sandboxes.
type Credentials struct {
	Username      string
	Password      string
	SecurityToken string
	Domain        string
}

// Client is an authenticated connection to one Salesforce org.
type Client struct {
	httpc       *http.Client
	instanceURL string
	sessionID   string
}

// Record is one row returned by a SOQL query. Relationship sub-objects
// (e.g. "Pricebook2") appear as nested map[string]any values; they may be
// entirely absent when the parent record is inaccessible to the running user.
type Record map[string]any

// Str returns the field as a string, or "" when absent or null.
func (r Record) Str(field string) string {
	s, _ := r[field].(string)
	return s
}

// Sub returns a relationship sub-object, or nil when absent.
func (r Record) Sub(rel string) Record {
	m, _ := r[rel].(map[string]any)
	return m
}

// SubVal returns a field from a relationship sub-object, or nil when either
// the sub-object or the field is absent.
func (r Record) SubVal(rel, field string) any {
	sub := r.Sub(rel)
	if sub == nil {
		return nil
	}
	return sub[field]
}

// FieldDescribe is one attribute descriptor from a describe call. Queryable
// is a pointer because the flag may be omitted entirely, and an omitted flag
// means "queryable" (see export.DiscoverCustomFields).
type FieldDescribe struct {
	Name                string `json:"name"`
	Custom              bool   `json:"custom"`
	DeprecatedAndHidden bool   `json:"deprecatedAndHidden"`
	Queryable           *bool  `json:"queryable"`
}

// SObjectDescribe is the subset of describe metadata the exporter consumes.
type SObjectDescribe struct {
	Name   string          `json:"name"`
	Fields []FieldDescribe `json:"fields"`
}

// RecordIterator is a blocking pull iterator over query results. Pagination
// cursors are advanced internally; callers never see page boundaries.
//
// Usage follows the sql.Rows shape:
//
//	it, err := c.Query(ctx, soql)
//	for it.Next(ctx) { r := it.Record(); ... }
//	if err := it.Err(); err != nil { ... }
type RecordIterator interface {
	Next(ctx context.Context) bool
	Record() Record
	Err() error
}

// loginEndpoint builds the SOAP login URL for a domain prefix. It is a
// package variable so tests can point logins at a local server.
var loginEndpoint = func(domain string) string {
	if domain == "" {
		domain = "login"
	}
	return "https://" + domain + ".salesforce.com/services/Soap/u/59.0"
}

const loginEnvelope = `<?xml version="1.0" encoding="utf-8"?>
<env:Envelope xmlns:xsd="http://www.w3.org/2001/XMLSchema"
    xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
    xmlns:env="http://schemas.xmlsoap.org/soap/envelope/"
    xmlns:urn="urn:partner.soap.sforce.com">
  <env:Body>
    <n1:login xmlns:n1="urn:partner.soap.sforce.com">
      <n1:username>%s</n1:username>
      <n1:password>%s</n1:password>
    </n1:login>
  </env:Body>
</env:Envelope>`

type loginResponse struct {
	ServerURL string `xml:"Body>loginResponse>result>serverUrl"`
	SessionID string `xml:"Body>loginResponse>result>sessionId"`
}

type soapFault struct {
	FaultCode   string `xml:"Body>Fault>faultcode"`
	FaultString string `xml:"Body>Fault>faultstring"`
}

// Login authenticates with the SOAP partner endpoint and returns a client
// bound to the org's instance URL. The security token is appended to the
// password, matching the username+password+token flow.
//
// Errors:
//   - *AuthError when the service rejects the credentials.
//   - plain wrapped errors for transport or envelope failures.
func Login(ctx context.Context, creds Credentials) (*Client, error) {
	body := fmt.Sprintf(loginEnvelope,
		xmlEscape(creds.Username),
		xmlEscape(creds.Password+creds.SecurityToken),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginEndpoint(creds.Domain), strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("login request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=UTF-8")
	req.Header.Set("SOAPAction", "login")

	httpc := &http.Client{Timeout: 60 * time.Second}
	resp, err := httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("login response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var f soapFault
		if xml.Unmarshal(raw, &f) == nil && f.FaultString != "" {
			return nil, &AuthError{APIError: APIError{
				StatusCode: resp.StatusCode,
				ErrorCode:  f.FaultCode,
				Message:    f.FaultString,
			}}
		}
		return nil, &AuthError{APIError: APIError{
			StatusCode: resp.StatusCode,
			ErrorCode:  "LOGIN_FAILED",
			Message:    strings.TrimSpace(string(raw)),
		}}
	}

	var lr loginResponse
	if err := xml.Unmarshal(raw, &lr); err != nil {
		return nil, fmt.Errorf("login response: %w", err)
	}
	if lr.SessionID == "" || lr.ServerURL == "" {
		return nil, fmt.Errorf("login response: missing sessionId/serverUrl")
	}

	u, err := url.Parse(lr.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("login serverUrl: %w", err)
	}

	return &Client{
		httpc:       httpc,
		instanceURL: u.Scheme + "://" + u.Host,
		sessionID:   lr.SessionID,
	}, nil
}

// NewSessionClient builds a client from an existing session, bypassing login.
// Used by tests and by callers that manage sessions externally.
func NewSessionClient(instanceURL, sessionID string) *Client {
	return &Client{
		httpc:       &http.Client{Timeout: 60 * time.Second},
		instanceURL: strings.TrimRight(instanceURL, "/"),
		sessionID:   sessionID,
	}
}

// Describe fetches attribute metadata for one sobject type.
func (c *Client) Describe(ctx context.Context, sobject string) (*SObjectDescribe, error) {
	var out SObjectDescribe
	path := "/services/data/" + APIVersion + "/sobjects/" + url.PathEscape(sobject) + "/describe"
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, fmt.Errorf("describe %s: %w", sobject, err)
	}
	return &out, nil
}

// queryResponse is one page of query results.
type queryResponse struct {
	TotalSize      int      `json:"totalSize"`
	Done           bool     `json:"done"`
	NextRecordsURL string   `json:"nextRecordsUrl"`
	Records        []Record `json:"records"`
}

// Query executes a SOQL query and returns a pull iterator over all result
// pages. The first page is fetched eagerly so that query faults (malformed
// SOQL, expired session) surface here rather than on the first Next call.
func (c *Client) Query(ctx context.Context, soql string) (RecordIterator, error) {
	path := "/services/data/" + APIVersion + "/query?q=" + url.QueryEscape(soql)

	var page queryResponse
	if err := c.getJSON(ctx, path, &page); err != nil {
		return nil, err
	}
	return &recordStream{c: c, page: page}, nil
}

// recordStream implements RecordIterator over paginated query results.
type recordStream struct {
	c    *Client
	page queryResponse
	i    int
	cur  Record
	err  error
}

func (s *recordStream) Next(ctx context.Context) bool {
	if s.err != nil {
		return false
	}
	for s.i >= len(s.page.Records) {
		if s.page.Done || s.page.NextRecordsURL == "" {
			return false
		}
		var next queryResponse
		if err := s.c.getJSON(ctx, s.page.NextRecordsURL, &next); err != nil {
			s.err = err
			return false
		}
		s.page = next
		s.i = 0
	}
	s.cur = s.page.Records[s.i]
	s.i++
	return true
}

func (s *recordStream) Record() Record { return s.cur }
func (s *recordStream) Err() error     { return s.err }

// getJSON performs an authenticated GET against a REST path and decodes the
// JSON response. Non-2xx responses are decoded into the typed error taxonomy.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.instanceURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.sessionID)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, raw)
	}
	return json.Unmarshal(raw, out)
}

// decodeAPIError parses the REST error body ([{message, errorCode}]) and
// classifies it. Bodies that do not match the documented shape still produce
// an *APIError carrying the raw text.
func decodeAPIError(status int, raw []byte) error {
	var items []struct {
		Message   string `json:"message"`
		ErrorCode string `json:"errorCode"`
	}
	if err := json.Unmarshal(raw, &items); err == nil && len(items) > 0 {
		return classifyAPIError(status, items[0].ErrorCode, items[0].Message)
	}
	return &APIError{
		StatusCode: status,
		ErrorCode:  "UNKNOWN",
		Message:    strings.TrimSpace(string(raw)),
	}
}

func xmlEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
