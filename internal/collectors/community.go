package collectors

import (
	"context"

	"sfmon_exporter/internal/metrics"
)

// sfdcLoggerRecord is one SFDC_Logger__c entry, the custom object the
// community portals write their Apex failures to.
type sfdcLoggerRecord struct {
	ID              string `json:"Id"`
	Name            string `json:"Name"`
	SourceName      string `json:"Source_Name__c"`
	CreatedDate     string `json:"CreatedDate"`
	LogMessage      string `json:"Log_Message__c"`
	RecordID        string `json:"Record_Id__c"`
	LogLevel        string `json:"Log_Level__c"`
	CalloutResponse string `json:"Log_Callout_Response_Payload__c"`
}

// CommunityLoginErrors refreshes the gauge of Error and Fatal community
// login failures logged in the last seven days.
func (c *Collectors) CommunityLoginErrors(ctx context.Context) error {
	c.log.Info().Msg("Querying community login error logs")

	soql := `SELECT Id, Name, Source_Name__c, CreatedDate, Log_Message__c, Record_Id__c, Log_Level__c
		FROM SFDC_Logger__c
		WHERE Source_Name__c = 'Community - Login'
		AND Log_Level__c IN ('Error','Fatal')
		AND CreatedDate = LAST_N_DAYS:7
		ORDER BY CreatedDate DESC`

	var records []sfdcLoggerRecord
	if err := c.api.Query(ctx, soql, &records); err != nil {
		return err
	}

	rows := make([]metrics.SeriesValue, 0, len(records))
	for _, record := range records {
		rows = append(rows, metrics.SeriesValue{
			Labels: []string{record.ID, record.Name, record.LogLevel,
				record.LogMessage, record.RecordID, record.CreatedDate},
			Value: 1,
		})
	}
	c.metrics.CommunityLoginErrors.Replace(rows)
	return nil
}

// CommunityRegistrationErrors refreshes the gauge of Error and Fatal
// community registration failures from the last seven days, including the
// callout response payload for integration failures.
func (c *Collectors) CommunityRegistrationErrors(ctx context.Context) error {
	c.log.Info().Msg("Querying community registration error logs")

	soql := `SELECT Id, Name, Source_Name__c, CreatedDate, Log_Message__c, Record_Id__c, Log_Level__c, Log_Callout_Response_Payload__c
		FROM SFDC_Logger__c
		WHERE Source_Name__c IN ('Community - Conversation Id', 'Community - Registration', 'GSP - Registration PRMP', 'AvalaraIdentityCreateAvataxAccount')
		AND Log_Level__c IN ('Error','Fatal')
		AND CreatedDate = LAST_N_DAYS:7
		ORDER BY CreatedDate DESC`

	var records []sfdcLoggerRecord
	if err := c.api.Query(ctx, soql, &records); err != nil {
		return err
	}

	rows := make([]metrics.SeriesValue, 0, len(records))
	for _, record := range records {
		rows = append(rows, metrics.SeriesValue{
			Labels: []string{record.ID, record.Name, record.SourceName,
				record.LogLevel, record.LogMessage, record.CalloutResponse,
				record.RecordID, record.CreatedDate},
			Value: 1,
		})
	}
	c.metrics.CommunityRegistrationErrors.Replace(rows)
	return nil
}
