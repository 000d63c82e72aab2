package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"sfmon_exporter/internal/logger"

	"github.com/phuslu/log"
)

// Client wraps the org's REST and Tooling query surfaces. Query results
// larger than one response page are followed transparently via the
// continuation URL, so callers always see a flat record sequence.
type Client struct {
	session *Session

	// queryClient bounds SOQL/Tooling queries; downloadClient bounds the
	// much larger EventLogFile body transfers.
	queryClient    *http.Client
	downloadClient *http.Client

	log log.Logger
}

// Limit is one entry from the org /limits endpoint.
type Limit struct {
	Max       int `json:"Max"`
	Remaining int `json:"Remaining"`
}

// queryPage is the envelope of one query API response page.
type queryPage struct {
	TotalSize      int               `json:"totalSize"`
	Done           bool              `json:"done"`
	NextRecordsURL string            `json:"nextRecordsUrl"`
	Records        []json.RawMessage `json:"records"`
}

// NewClient builds a client for the given session. queryTimeout bounds each
// query request; requestTimeout bounds log-file downloads.
func NewClient(session *Session, queryTimeout, requestTimeout time.Duration) *Client {
	return &Client{
		session:        session,
		queryClient:    &http.Client{Timeout: queryTimeout},
		downloadClient: &http.Client{Timeout: requestTimeout},
		log:            logger.NewLoggerWithContext("salesforce-client"),
	}
}

// Session exposes the underlying session handle.
func (c *Client) Session() *Session {
	return c.session
}

// Query runs a SOQL query against the record API, follows pagination until
// the result set is complete, and decodes all records into dest (a pointer
// to a slice of per-caller record structs).
func (c *Client) Query(ctx context.Context, soql string, dest any) error {
	endpoint := c.session.BaseURL() + "/query?q=" + url.QueryEscape(soql)
	return c.queryAll(ctx, endpoint, dest)
}

// ToolingQuery runs a query against the Tooling API surface with the same
// pagination contract as Query. The Tooling API reaches metadata objects
// (DeployRequest, ApexClass, CronTrigger, SecurityHealthCheck) that the
// record API does not expose.
func (c *Client) ToolingQuery(ctx context.Context, soql string, dest any) error {
	endpoint := c.session.BaseURL() + "/tooling/query?q=" + url.QueryEscape(soql)
	return c.queryAll(ctx, endpoint, dest)
}

func (c *Client) queryAll(ctx context.Context, endpoint string, dest any) error {
	var records []json.RawMessage

	for endpoint != "" {
		page, err := c.fetchPage(ctx, endpoint)
		if err != nil {
			return err
		}
		records = append(records, page.Records...)

		if page.Done || page.NextRecordsURL == "" {
			break
		}
		endpoint = c.session.InstanceURL + page.NextRecordsURL
	}

	return decodeRecords(records, dest)
}

func (c *Client) fetchPage(ctx context.Context, endpoint string) (*queryPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build query request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.session.AccessToken)

	resp, err := c.queryClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("query returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	var page queryPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode query response: %w", err)
	}
	return &page, nil
}

// decodeRecords re-assembles the accumulated raw records into one JSON array
// and unmarshals it into the caller's typed slice, so schema drift surfaces
// at the query boundary instead of deep inside a collector.
func decodeRecords(records []json.RawMessage, dest any) error {
	combined, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to combine query records: %w", err)
	}
	if err := json.Unmarshal(combined, dest); err != nil {
		return fmt.Errorf("failed to decode query records: %w", err)
	}
	return nil
}

// Limits fetches the org /limits endpoint.
func (c *Client) Limits(ctx context.Context) (map[string]Limit, error) {
	endpoint := c.session.BaseURL() + "/limits"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build limits request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.session.AccessToken)

	resp, err := c.queryClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("limits request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("limits returned HTTP %d", resp.StatusCode)
	}

	limits := make(map[string]Limit)
	if err := json.NewDecoder(resp.Body).Decode(&limits); err != nil {
		return nil, fmt.Errorf("failed to decode limits response: %w", err)
	}
	return limits, nil
}
