package salesforce

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Row is one parsed line of an EventLogFile CSV body. Log rows carry no
// stable schema across event types, so they stay string-keyed; collectors
// pick out the columns they need.
type Row map[string]string

// Get returns the named column, or "" when absent.
func (r Row) Get(key string) string {
	return r[key]
}

// logDescriptor identifies one EventLogFile record.
type logDescriptor struct {
	ID string `json:"Id"`
}

// LatestEventLog resolves the newest EventLogFile of the given event type
// and interval, downloads its body and parses it into rows.
//
// A missing descriptor or an empty body returns (nil, nil): "no log yet" is
// normal shortly after the hour and must not count as a failed cycle.
// HTTP and CSV failures return an error.
func (c *Client) LatestEventLog(ctx context.Context, eventType, interval string) ([]Row, error) {
	soql := fmt.Sprintf(
		"SELECT Id FROM EventLogFile WHERE EventType = '%s' AND Interval = '%s' ORDER BY LogDate DESC LIMIT 1",
		eventType, interval)

	var descriptors []logDescriptor
	if err := c.Query(ctx, soql, &descriptors); err != nil {
		return nil, fmt.Errorf("event log descriptor query failed: %w", err)
	}
	if len(descriptors) == 0 {
		c.log.Debug().Str("event_type", eventType).Str("interval", interval).Msg("No event log file found")
		return nil, nil
	}

	return c.downloadLogRows(ctx, descriptors[0].ID)
}

func (c *Client) downloadLogRows(ctx context.Context, logID string) ([]Row, error) {
	endpoint := fmt.Sprintf("%s/sobjects/EventLogFile/%s/LogFile", c.session.BaseURL(), logID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build log file request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.session.AccessToken)

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("log file download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("log file download returned HTTP %d", resp.StatusCode)
	}

	return parseCSVRows(resp.Body)
}

// parseCSVRows reads a header-first CSV document into string-keyed rows.
func parseCSVRows(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i, col := range header {
		header[i] = strings.TrimSpace(col)
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV row: %w", err)
		}
		row := make(Row, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
