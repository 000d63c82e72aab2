// Package trust queries the Salesforce Trust status API for incidents and
// maintenance windows affecting a pod. The API is public and unauthenticated.
package trust

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sfmon_exporter/internal/logger"

	"github.com/phuslu/log"
)

// DefaultBaseURL is the public Trust status API root.
const DefaultBaseURL = "https://api.status.salesforce.com"

// Client talks to the Trust status API.
type Client struct {
	baseURL string
	hc      *http.Client
	log     log.Logger
}

// Incident is one active incident from /v1/incidents/active.
type Incident struct {
	ID           string   `json:"id"`
	InstanceKeys []string `json:"instanceKeys"`
	Impacts      []struct {
		Severity string `json:"severity"`
	} `json:"IncidentImpacts"`
}

// Maintenance is one entry from /v1/maintenances.
type Maintenance struct {
	ID               string   `json:"id"`
	InstanceKeys     []string `json:"instanceKeys"`
	PlannedStartTime string   `json:"plannedStartTime"`
	PlannedEndTime   string   `json:"plannedEndTime"`
	Message          struct {
		EventStatus string `json:"eventStatus"`
	} `json:"message"`
}

// NewClient builds a Trust API client. baseURL is overridable for tests;
// pass "" for the public endpoint.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: timeout},
		log:     logger.NewLoggerWithContext("trust-api"),
	}
}

// Severity returns the incident's first reported severity, or "unknown".
func (i Incident) Severity() string {
	if len(i.Impacts) == 0 || i.Impacts[0].Severity == "" {
		return "unknown"
	}
	return i.Impacts[0].Severity
}

// AffectsPod reports whether the incident lists the given pod.
func (i Incident) AffectsPod(pod string) bool {
	for _, key := range i.InstanceKeys {
		if key == pod {
			return true
		}
	}
	return false
}

// Status returns the maintenance event status, or "unknown".
func (m Maintenance) Status() string {
	if m.Message.EventStatus == "" {
		return "unknown"
	}
	return m.Message.EventStatus
}

// Upcoming reports whether the window is scheduled or currently running.
// Completed and canceled windows are not worth a series.
func (m Maintenance) Upcoming() bool {
	switch strings.ToLower(m.Message.EventStatus) {
	case "scheduled", "in progress":
		return true
	}
	return false
}

// AffectsPod reports whether the maintenance window lists the given pod.
func (m Maintenance) AffectsPod(pod string) bool {
	for _, key := range m.InstanceKeys {
		if key == pod {
			return true
		}
	}
	return false
}

// ActiveIncidents fetches all currently active incidents.
func (c *Client) ActiveIncidents(ctx context.Context) ([]Incident, error) {
	var incidents []Incident
	if err := c.get(ctx, "/v1/incidents/active", &incidents); err != nil {
		return nil, err
	}
	return incidents, nil
}

// Maintenances fetches all published maintenance windows.
func (c *Client) Maintenances(ctx context.Context) ([]Maintenance, error) {
	var maintenances []Maintenance
	if err := c.get(ctx, "/v1/maintenances", &maintenances); err != nil {
		return nil, err
	}
	return maintenances, nil
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build trust API request: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("trust API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("trust API %s returned HTTP %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode trust API response: %w", err)
	}
	return nil
}
