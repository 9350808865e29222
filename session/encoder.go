package session

import (
	"encoding/json"
	"strconv"
	"time"
)

const (
	fieldToken           = "token"
	fieldRefreshToken    = "refreshToken"
	fieldUserType        = "userType"
	fieldUserRoles       = "userRoles"
	fieldUserID          = "userId"
	fieldMemberID        = "memberId"
	fieldName            = "name"
	fieldUsername        = "username"
	fieldLoginTimestamp  = "loginTimestamp"
	fieldSessionStart    = "sessionStart"
	fieldIsAuthenticated = "isAuthenticated"
)

var recordFields = []string{
	fieldToken,
	fieldRefreshToken,
	fieldUserType,
	fieldUserRoles,
	fieldUserID,
	fieldMemberID,
	fieldName,
	fieldUsername,
	fieldLoginTimestamp,
	fieldSessionStart,
	fieldIsAuthenticated,
}

// requiredFields must all be present for an Active Session to be usable.
var requiredFields = []string{fieldToken, fieldSessionStart, fieldUserType}

func activeKey(field string) string {
	return field
}

func namespacedKey(role Role, field string) string {
	return string(role) + "_" + field
}

func activeKeys() []string {
	keys := make([]string, len(recordFields))
	for i, f := range recordFields {
		keys[i] = activeKey(f)
	}
	return keys
}

func namespacedKeys(role Role) []string {
	keys := make([]string, len(recordFields))
	for i, f := range recordFields {
		keys[i] = namespacedKey(role, f)
	}
	return keys
}

// encodeFields flattens a record into field -> value pairs keyed by bare
// field names. Optional fields that are empty are omitted.
func encodeFields(rec *Record, sessionStart time.Time) (map[string]string, error) {
	roles, err := json.Marshal(NormalizeRoles(rec.UserRoles))
	if err != nil {
		return nil, err
	}

	out := map[string]string{
		fieldToken:           rec.Token,
		fieldUserType:        string(rec.UserType),
		fieldUserRoles:       string(roles),
		fieldUserID:          rec.UserID,
		fieldName:            rec.Name,
		fieldUsername:        rec.Username,
		fieldLoginTimestamp:  formatMillis(rec.LoginTimestamp),
		fieldSessionStart:    formatMillis(sessionStart),
		fieldIsAuthenticated: "true",
	}
	if rec.RefreshToken != "" {
		out[fieldRefreshToken] = rec.RefreshToken
	}
	if rec.MemberID != "" {
		out[fieldMemberID] = rec.MemberID
	}
	return out, nil
}

// decodeFields rebuilds a record from values using keyOf to address each
// field. It reports which required fields were absent.
func decodeFields(values map[string]string, keyOf func(string) string) (*Record, []string) {
	var missing []string
	for _, f := range requiredFields {
		if values[keyOf(f)] == "" {
			missing = append(missing, f)
		}
	}

	rec := &Record{
		Token:        values[keyOf(fieldToken)],
		RefreshToken: values[keyOf(fieldRefreshToken)],
		UserType:     Role(values[keyOf(fieldUserType)]),
		UserID:       values[keyOf(fieldUserID)],
		MemberID:     values[keyOf(fieldMemberID)],
		Name:         values[keyOf(fieldName)],
		Username:     values[keyOf(fieldUsername)],
	}
	if raw := values[keyOf(fieldUserRoles)]; raw != "" {
		var roles []string
		if err := json.Unmarshal([]byte(raw), &roles); err == nil {
			rec.UserRoles = roles
		}
	}
	if ts, ok := parseMillis(values[keyOf(fieldLoginTimestamp)]); ok {
		rec.LoginTimestamp = ts
	}
	if ts, ok := parseMillis(values[keyOf(fieldSessionStart)]); ok {
		rec.SessionStart = ts
	} else if values[keyOf(fieldSessionStart)] != "" {
		missing = append(missing, fieldSessionStart)
	}

	return rec, missing
}

func formatMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func parseMillis(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
