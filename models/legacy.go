package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NormalizeLegacyIssue converts a raw issue document written by any of the
// older schema variants into the canonical Issue. Field aliases handled:
// id/_id (string, numeric or object id), category/issueType, priority/severity,
// imageUrl/imageURL, assignedTo/organizationName/assignedOrgId, userId/createdBy,
// string or numeric coordinates. lookupOrg maps an organization reference
// (id or display name) to a directory id; when it is nil or fails the raw
// reference is kept.
func NormalizeLegacyIssue(doc map[string]any, lookupOrg func(ref string) (string, bool)) Issue {
	issue := Issue{
		ID:          firstID(doc, "_id", "id"),
		Title:       firstString(doc, "title"),
		Description: firstString(doc, "description"),
		Location:    firstString(doc, "location"),
		Category:    IssueCategory(firstString(doc, "category", "issueType")),
		UserID:      firstID(doc, "userId", "createdBy", "user_id"),
		Latitude:    firstFloat(doc, "latitude", "lat"),
		Longitude:   firstFloat(doc, "longitude", "lng"),
		CreatedAt:   firstTime(doc, "createdAt", "created_at"),
		UpdatedAt:   firstTime(doc, "updatedAt", "updated_at"),
	}

	issue.Status = StatusOpen
	if s, ok := ParseStatus(firstString(doc, "status")); ok {
		issue.Status = s
	}
	issue.Priority = PriorityMedium
	if p, ok := ParsePriority(firstString(doc, "priority", "severity")); ok {
		issue.Priority = p
	}
	if img := firstString(doc, "imageUrl", "imageURL"); img != "" {
		issue.ImageURL = &img
	}
	if ref := firstID(doc, "assignedTo", "organizationName", "assignedOrgId"); ref != "" {
		if lookupOrg != nil {
			if id, ok := lookupOrg(ref); ok {
				ref = id
			}
		}
		issue.AssignedTo = &ref
	}
	if issue.UpdatedAt.IsZero() {
		issue.UpdatedAt = issue.CreatedAt
	}
	return issue
}

func firstString(doc map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := doc[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// firstID also accepts numeric ids and anything exposing Hex(), such as a
// mongo ObjectID.
func firstID(doc map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := doc[k].(type) {
		case nil:
			continue
		case string:
			if v != "" {
				return v
			}
		case interface{ Hex() string }:
			return v.Hex()
		case int, int32, int64:
			return fmt.Sprintf("%d", v)
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func firstFloat(doc map[string]any, keys ...string) *float64 {
	for _, k := range keys {
		switch v := doc[k].(type) {
		case float64:
			return &v
		case float32:
			f := float64(v)
			return &f
		case int32:
			f := float64(v)
			return &f
		case int64:
			f := float64(v)
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

func firstTime(doc map[string]any, keys ...string) time.Time {
	for _, k := range keys {
		switch v := doc[k].(type) {
		case time.Time:
			return v
		case interface{ Time() time.Time }:
			return v.Time()
		case string:
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}
