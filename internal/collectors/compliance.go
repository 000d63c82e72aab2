package collectors

import (
	"context"
	"strconv"
	"strings"

	"sfmon_exporter/internal/metrics"
)

// LargeQueries refreshes the gauge of users whose API calls processed more
// rows than the configured threshold in the last hourly API log.
func (c *Collectors) LargeQueries(ctx context.Context) error {
	c.log.Info().Msg("Getting users querying large record counts")

	logRows, err := c.api.LatestEventLog(ctx, "API", "Hourly")
	if err != nil {
		return err
	}

	threshold := c.cfg.Compliance.LargeQueryRowThreshold
	if threshold <= 0 {
		threshold = 10000
	}

	type key struct {
		userID, userName, method, entityName string
		rowsProcessed                        int
	}
	counts := make(map[key]int)
	nameCache := make(map[string]string)
	for _, row := range logRows {
		rowsProcessed, err := strconv.Atoi(row.Get("ROWS_PROCESSED"))
		if err != nil || rowsProcessed <= threshold {
			continue
		}
		userID := row.Get("USER_ID")
		if userID == "" {
			continue
		}
		name, ok := nameCache[userID]
		if !ok {
			name = c.userName(ctx, userID)
			nameCache[userID] = name
		}
		counts[key{userID, name, row.Get("METHOD_NAME"), row.Get("ENTITY_NAME"), rowsProcessed}]++
	}

	rows := make([]metrics.SeriesValue, 0, len(counts))
	for k, count := range counts {
		rows = append(rows, metrics.SeriesValue{
			Labels: []string{k.userID, k.userName, k.method, k.entityName,
				strconv.Itoa(k.rowsProcessed)},
			Value: float64(count),
		})
	}
	c.metrics.HourlyLargeQueries.Replace(rows)
	return nil
}

// auditTrailRecord is one SetupAuditTrail row with the creator name joined.
type auditTrailRecord struct {
	Action       string `json:"Action"`
	Section      string `json:"Section"`
	CreatedDate  string `json:"CreatedDate"`
	Display      string `json:"Display"`
	DelegateUser string `json:"DelegateUser"`
	CreatedBy    *struct {
		Name string `json:"Name"`
	} `json:"CreatedBy"`
}

func (r auditTrailRecord) userName() string {
	if r.CreatedBy == nil || r.CreatedBy.Name == "" {
		return "Unknown"
	}
	return r.CreatedBy.Name
}

func (c *Collectors) queryAuditTrail(ctx context.Context) ([]auditTrailRecord, error) {
	soql := "SELECT Action, Section, CreatedById, CreatedBy.Name, CreatedDate, Display, DelegateUser " +
		"FROM SetupAuditTrail WHERE CreatedDate = YESTERDAY"
	if excluded := c.cfg.Compliance.ExcludeUsers; len(excluded) > 0 {
		quoted := make([]string, 0, len(excluded))
		for _, name := range excluded {
			quoted = append(quoted, "'"+name+"'")
		}
		soql += " AND CreatedBy.Name NOT IN (" + strings.Join(quoted, ", ") + ")"
	}
	soql += " ORDER BY CreatedDate DESC"

	var records []auditTrailRecord
	if err := c.api.Query(ctx, soql, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// SuspiciousRecords refreshes the gauge of yesterday's setup changes that
// fall outside the allowed section/action table. Excluded users are trusted
// wholesale.
func (c *Collectors) SuspiciousRecords(ctx context.Context) error {
	c.log.Info().Msg("Getting audit trail records")

	records, err := c.queryAuditTrail(ctx)
	if err != nil {
		return err
	}

	var rows []metrics.SeriesValue
	for _, record := range records {
		if isAllowedAction(record.Section, record.Action) {
			continue
		}
		rows = append(rows, metrics.SeriesValue{
			Labels: []string{record.Action, record.Section, record.userName(),
				record.CreatedDate, record.Display, record.DelegateUser},
			Value: 1,
		})
	}
	c.metrics.SuspiciousRecords.Replace(rows)
	return nil
}

// SharingChanges refreshes the gauge of yesterday's org-wide sharing
// default changes from the audit trail.
func (c *Collectors) SharingChanges(ctx context.Context) error {
	c.log.Info().Msg("Getting org-wide sharing setting changes")

	records, err := c.queryAuditTrail(ctx)
	if err != nil {
		return err
	}

	var rows []metrics.SeriesValue
	for _, record := range records {
		if record.Section != "Sharing Defaults" {
			continue
		}
		rows = append(rows, metrics.SeriesValue{
			Labels: []string{record.CreatedDate, record.userName(),
				record.Action, record.Display},
			Value: 1,
		})
	}
	c.metrics.OrgWideSharingChanges.Replace(rows)
	return nil
}

// ForbiddenProfileAssignments refreshes the gauge of active users holding a
// profile that must never be assigned in production. With no forbidden
// profiles configured the check is a no-op and reports the sentinel.
func (c *Collectors) ForbiddenProfileAssignments(ctx context.Context) error {
	c.log.Info().Msg("Checking for active users with forbidden profile assignments")

	profiles := c.cfg.Compliance.ForbiddenProfiles
	if len(profiles) == 0 {
		c.log.Info().Msg("No forbidden profiles configured, skipping check")
		c.metrics.ForbiddenProfileUsers.Replace(nil)
		return nil
	}

	quoted := make([]string, 0, len(profiles))
	for _, name := range profiles {
		quoted = append(quoted, "'"+name+"'")
	}
	soql := "SELECT Id, Name, Username, Profile.Name FROM User WHERE IsActive = true AND Profile.Name IN (" +
		strings.Join(quoted, ", ") + ")"

	var users []struct {
		ID       string `json:"Id"`
		Name     string `json:"Name"`
		Username string `json:"Username"`
		Profile  *struct {
			Name string `json:"Name"`
		} `json:"Profile"`
	}
	if err := c.api.Query(ctx, soql, &users); err != nil {
		return err
	}

	var rows []metrics.SeriesValue
	for _, user := range users {
		profileName := "Unknown"
		if user.Profile != nil {
			profileName = user.Profile.Name
		}
		c.log.Warn().
			Str("user", user.Name).
			Str("username", user.Username).
			Str("profile", profileName).
			Msg("Active user assigned a forbidden profile")
		rows = append(rows, metrics.SeriesValue{
			Labels: []string{user.ID, user.Name, user.Username, profileName},
			Value:  1,
		})
	}
	c.metrics.ForbiddenProfileUsers.Replace(rows)
	return nil
}

// isAllowedAction reports whether a setup action is on the allow list for
// its section. Comparison is case-insensitive on the action.
func isAllowedAction(section, action string) bool {
	for _, allowed := range allowedSectionActions[section] {
		if strings.EqualFold(allowed, action) {
			return true
		}
	}
	return false
}

// allowedSectionActions lists routine administrative actions per setup
// section. Anything not on this list counts as suspicious.
var allowedSectionActions = map[string][]string{
	"":                                     {"createScratchOrg", "changedsenderemail", "deleteScratchOrg", "loginasgrantedtopartnerbt"},
	"Certificate and Key Management":       {"insertCertificate"},
	"Custom App Licenses":                  {"addeduserpackagelicense", "granteduserpackagelicense"},
	"Customer Portal":                      {"createdcustomersuccessuser"},
	"Currency":                             {"updateddatedexchrate"},
	"Data Management":                      {"queueMembership"},
	"Email Administration":                 {"dkimRotationSuccessful", "dkimRotationPreparationSuccessful"},
	"Holidays":                             {"holiday_insert"},
	"Inbox mobile and legacy desktop apps": {"enableSIQUserNonEAC"},
	"Groups":                               {"groupMembership"},
	"Manage Territories":                   {"tm2_userAddedToTerritory", "tm2_userRemovedFromTerritory"},
	"Manage Users": {
		"activateduser", "createduser", "changedcommunitynickname",
		"changedemail", "changedfederationid", "changedinteractionuseroffon",
		"changedinteractionuseronoff", "changedmarketinguseroffon",
		"changedmarketinguseronoff", "changedManager", "changedprofileforuser",
		"changedprofileforusercusttostd", "changedprofileforuserstdtocust",
		"changedroleforusertonone", "changedroleforuser", "changedroleforuserfromnone",
		"changedpassword", "changedUserEmailVerifiedStatusUnverified",
		"changedUserEmailVerifiedStatusVerified", "changedUserPhoneNumber",
		"changedUserPhoneVerifiedStatusUnverified", "deactivateduser",
		"deleteAuthenticatorPairing", "deleteTwoFactorInfo2", "deleteTwoFactorTempCode",
		"frozeuser", "insertAuthenticatorPairing", "insertTwoFactorInfo2",
		"insertTwoFactorTempCode", "lightningloginenroll", "PermSetAssign",
		"PermSetGroupAssign", "PermSetGroupUnassign", "PermSetLicenseAssign",
		"PermSetUnassign", "PermSetLicenseUnassign", "registeredUserPhoneNumber",
		"resetpassword", "suOrgAdminLogin", "suOrgAdminLogout", "unfrozeuser",
		"useremailchangesent",
	},
	"Mobile Administration": {"assigneduserstomobileconfig"},
}
