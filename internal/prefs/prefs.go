// Package prefs holds per-user notification preferences. Stored objects
// may be absent or partial; every read path merges over the documented
// defaults so a missing object is never treated as "no preferences".
package prefs

import (
	"encoding/json"

	"github.com/costpilot-dev/costpilot/internal/types"
)

type Preferences struct {
	InApp                map[string]bool `json:"in_app"`
	Email                map[string]bool `json:"email"`
	PriorityThreshold    string          `json:"priority_threshold"`
	ProjectSubscriptions []uint          `json:"project_subscriptions"`
	PushEnabled          bool            `json:"push_enabled"`
}

// partial mirrors Preferences with pointer/nilable fields so absent keys
// are distinguishable from explicit zero values.
type partial struct {
	InApp                map[string]bool `json:"in_app"`
	Email                map[string]bool `json:"email"`
	PriorityThreshold    *string         `json:"priority_threshold"`
	ProjectSubscriptions []uint          `json:"project_subscriptions"`
	PushEnabled          *bool           `json:"push_enabled"`
}

// Defaults returns the documented baseline: every category visible
// in-app, only approval and deadline traffic by email, no push until the
// user explicitly links a device.
func Defaults() Preferences {
	return Preferences{
		InApp: map[string]bool{
			types.NotificationApprovalRequest: true,
			types.NotificationApprovalResult:  true,
			types.NotificationCostOverrun:     true,
			types.NotificationTaskUpdate:      true,
			types.NotificationSystem:          true,
			types.NotificationDeadline:        true,
		},
		Email: map[string]bool{
			types.NotificationApprovalRequest: true,
			types.NotificationApprovalResult:  true,
			types.NotificationCostOverrun:     false,
			types.NotificationTaskUpdate:      false,
			types.NotificationSystem:          false,
			types.NotificationDeadline:        true,
		},
		PriorityThreshold:    types.PriorityLow,
		ProjectSubscriptions: nil,
		PushEnabled:          false,
	}
}

// Decode parses a stored preference document and merges it over the
// defaults. Empty or malformed input yields the defaults unchanged.
func Decode(raw []byte) Preferences {
	return Merge(Defaults(), raw)
}

// Merge layers a partial document over a base object. Keys absent from
// the document keep the base value; malformed input returns the base
// unchanged.
func Merge(base Preferences, raw []byte) Preferences {
	effective := base
	effective.InApp = copyFlags(base.InApp)
	effective.Email = copyFlags(base.Email)

	if len(raw) == 0 {
		return effective
	}

	var stored partial
	if err := json.Unmarshal(raw, &stored); err != nil {
		return effective
	}

	for category, enabled := range stored.InApp {
		effective.InApp[category] = enabled
	}

	for category, enabled := range stored.Email {
		effective.Email[category] = enabled
	}

	if stored.PriorityThreshold != nil {
		effective.PriorityThreshold = *stored.PriorityThreshold
	}

	if stored.ProjectSubscriptions != nil {
		effective.ProjectSubscriptions = stored.ProjectSubscriptions
	}

	if stored.PushEnabled != nil {
		effective.PushEnabled = *stored.PushEnabled
	}

	return effective
}

// Encode serializes effective preferences for storage.
func Encode(p Preferences) ([]byte, error) {
	return json.Marshal(p)
}

func copyFlags(flags map[string]bool) map[string]bool {
	copied := make(map[string]bool, len(flags))
	for category, enabled := range flags {
		copied[category] = enabled
	}
	return copied
}

// SubscribedTo reports whether the user follows a specific project.
func (p Preferences) SubscribedTo(projectID uint) bool {
	for _, id := range p.ProjectSubscriptions {
		if id == projectID {
			return true
		}
	}
	return false
}
