package prefs

import (
	"testing"

	"github.com/costpilot-dev/costpilot/internal/types"
	"github.com/stretchr/testify/require"
)

func TestDecodeEmpty(t *testing.T) {
	require.Equal(t, Defaults(), Decode(nil))
	require.Equal(t, Defaults(), Decode([]byte{}))
}

func TestDecodeMalformed(t *testing.T) {
	require.Equal(t, Defaults(), Decode([]byte("{not json")))
}

func TestDecodeMissingEmailMapUsesDefaults(t *testing.T) {
	raw := []byte(`{"in_app":{"task_update":false},"priority_threshold":"high"}`)

	got := Decode(raw)

	require.Equal(t, Defaults().Email, got.Email, "absent email sub-map must equal the defaults")
	require.False(t, got.InApp[types.NotificationTaskUpdate])
	require.True(t, got.InApp[types.NotificationDeadline], "untouched in_app keys keep their defaults")
	require.Equal(t, types.PriorityHigh, got.PriorityThreshold)
}

func TestDecodeExplicitFalseSurvivesMerge(t *testing.T) {
	raw := []byte(`{"email":{"approval_request":false},"push_enabled":true}`)

	got := Decode(raw)

	require.False(t, got.Email[types.NotificationApprovalRequest])
	require.True(t, got.Email[types.NotificationDeadline])
	require.True(t, got.PushEnabled)
}

func TestDecodeProjectSubscriptions(t *testing.T) {
	raw := []byte(`{"project_subscriptions":[3,7]}`)

	got := Decode(raw)

	require.True(t, got.SubscribedTo(3))
	require.True(t, got.SubscribedTo(7))
	require.False(t, got.SubscribedTo(9))
}

func TestMergeLayersOverCurrent(t *testing.T) {
	base := Decode([]byte(`{"push_enabled":true,"email":{"deadline":false}}`))

	got := Merge(base, []byte(`{"priority_threshold":"critical"}`))

	require.True(t, got.PushEnabled, "untouched keys keep the current value, not the default")
	require.False(t, got.Email[types.NotificationDeadline])
	require.Equal(t, types.PriorityCritical, got.PriorityThreshold)
}

func TestMergeDoesNotMutateBase(t *testing.T) {
	base := Defaults()

	Merge(base, []byte(`{"in_app":{"system":false}}`))

	require.True(t, base.InApp[types.NotificationSystem])
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := Defaults()
	p.PushEnabled = true
	p.ProjectSubscriptions = []uint{12}

	raw, err := Encode(p)
	require.NoError(t, err)
	require.Equal(t, p, Decode(raw))
}
