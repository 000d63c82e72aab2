package collectors

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sfmon_exporter/internal/metrics"
)

// LoginEvents refreshes the success/failure/unique-user counters from the
// latest hourly Login log. A missing log reports zeros rather than holding
// the previous hour's counts.
func (c *Collectors) LoginEvents(ctx context.Context) error {
	c.log.Info().Msg("Monitoring login events")

	logRows, err := c.api.LatestEventLog(ctx, "Login", "Hourly")
	if err != nil {
		return err
	}

	var success, failure float64
	uniqueUsers := make(map[string]bool)
	for _, row := range logRows {
		if row.Get("LOGIN_STATUS") == "LOGIN_NO_ERROR" {
			success++
		} else {
			failure++
		}
		if userID := row.Get("USER_ID"); userID != "" {
			uniqueUsers[userID] = true
		}
	}

	c.metrics.LoginSuccess.Replace([]metrics.SeriesValue{{Value: success}})
	c.metrics.LoginFailure.Replace([]metrics.SeriesValue{{Value: failure}})
	c.metrics.UniqueLoginAttempts.Replace([]metrics.SeriesValue{{Value: float64(len(uniqueUsers))}})
	return nil
}

type loginHistoryRecord struct {
	UserID   string `json:"UserId"`
	Status   string `json:"Status"`
	Browser  string `json:"Browser"`
	LoginGeo *struct {
		Latitude  float64 `json:"Latitude"`
		Longitude float64 `json:"Longitude"`
	} `json:"LoginGeo"`
}

// Geolocation refreshes the login-location gauge from the last hour of
// LoginHistory, resolving user IDs to names in configurable chunks to stay
// under the SOQL IN-clause limit.
func (c *Collectors) Geolocation(ctx context.Context) error {
	c.log.Info().Msg("Getting geolocation data")

	end := time.Now().UTC()
	start := end.Add(-time.Hour)
	soql := fmt.Sprintf(
		"SELECT UserId, LoginGeo.Latitude, LoginGeo.Longitude, Status, Browser FROM LoginHistory WHERE LoginTime >= %s AND LoginTime <= %s",
		start.Format("2006-01-02T15:04:05Z"), end.Format("2006-01-02T15:04:05Z"))

	var logins []loginHistoryRecord
	if err := c.api.Query(ctx, soql, &logins); err != nil {
		return err
	}

	userIDs := make([]string, 0, len(logins))
	seen := make(map[string]bool)
	for _, login := range logins {
		if login.UserID != "" && !seen[login.UserID] {
			seen[login.UserID] = true
			userIDs = append(userIDs, login.UserID)
		}
	}

	names, err := c.userNames(ctx, userIDs)
	if err != nil {
		return err
	}

	var rows []metrics.SeriesValue
	for _, login := range logins {
		if login.LoginGeo == nil {
			continue
		}
		name, ok := names[login.UserID]
		if !ok {
			name = "Unknown User"
		}
		rows = append(rows, metrics.SeriesValue{
			Labels: []string{
				name,
				fmt.Sprintf("%v", login.LoginGeo.Longitude),
				fmt.Sprintf("%v", login.LoginGeo.Latitude),
				login.Browser,
				login.Status,
			},
			Value: 1,
		})
	}
	c.metrics.Geolocation.Replace(rows)
	return nil
}

// userNames resolves user IDs to names in chunks.
func (c *Collectors) userNames(ctx context.Context, userIDs []string) (map[string]string, error) {
	chunkSize := c.cfg.Logins.GeolocationChunkSize
	if chunkSize <= 0 {
		chunkSize = 100
	}

	names := make(map[string]string, len(userIDs))
	for start := 0; start < len(userIDs); start += chunkSize {
		end := start + chunkSize
		if end > len(userIDs) {
			end = len(userIDs)
		}
		quoted := make([]string, 0, end-start)
		for _, id := range userIDs[start:end] {
			quoted = append(quoted, "'"+id+"'")
		}

		var users []struct {
			ID   string `json:"Id"`
			Name string `json:"Name"`
		}
		soql := "SELECT Id, Name FROM User WHERE Id IN (" + strings.Join(quoted, ", ") + ")"
		if err := c.api.Query(ctx, soql, &users); err != nil {
			return nil, err
		}
		for _, user := range users {
			names[user.ID] = user.Name
		}
	}
	return names, nil
}

// salesforceTimeLayouts covers the datetime formats Salesforce emits.
var salesforceTimeLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	time.RFC3339,
}

func parseSalesforceTime(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range salesforceTimeLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// IntegrationUserPasswords refreshes the days-until-password-expiry gauge
// for the configured integration users.
func (c *Collectors) IntegrationUserPasswords(ctx context.Context) error {
	c.log.Info().Msg("Monitoring integration user password expiration")

	userNames := c.cfg.Logins.IntegrationUserNames
	if len(userNames) == 0 {
		c.log.Warn().Msg("No integration users configured")
		c.metrics.IntegrationUserPasswordExpiration.Replace(nil)
		return nil
	}

	quoted := make([]string, 0, len(userNames))
	for _, name := range userNames {
		quoted = append(quoted, "'"+name+"'")
	}
	soql := "SELECT Id, Name, Username, LastPasswordChangeDate FROM User WHERE Name IN (" +
		strings.Join(quoted, ", ") + ")"

	var users []struct {
		ID                     string `json:"Id"`
		Name                   string `json:"Name"`
		Username               string `json:"Username"`
		LastPasswordChangeDate string `json:"LastPasswordChangeDate"`
	}
	if err := c.api.Query(ctx, soql, &users); err != nil {
		return err
	}

	expiryDays := c.cfg.Logins.PasswordExpiryDays
	if expiryDays <= 0 {
		expiryDays = 90
	}

	var rows []metrics.SeriesValue
	for _, user := range users {
		if user.LastPasswordChangeDate == "" {
			c.log.Warn().Str("user", user.Name).Msg("No password change date on record")
			continue
		}
		changed, err := parseSalesforceTime(user.LastPasswordChangeDate)
		if err != nil {
			c.log.Warn().Err(err).Str("user", user.Name).Msg("Could not parse password change date")
			continue
		}
		daysSince := int(time.Since(changed).Hours() / 24)
		daysLeft := expiryDays - daysSince
		rows = append(rows, metrics.SeriesValue{
			Labels: []string{user.ID, user.Name, user.Username, changed.Format("2006-01-02")},
			Value:  float64(daysLeft),
		})
	}
	c.metrics.IntegrationUserPasswordExpiration.Replace(rows)
	return nil
}
