package audit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeStructuredPayload(t *testing.T) {
	raw := Details{
		Message:  "Banned Alice (42)",
		Target:   "Alice",
		Reason:   "spam",
		Duration: "24h",
		Extras:   map[string]string{"source": "admin panel"},
	}.Encode()

	n := Normalize(raw)
	require.Equal(t, "Banned Alice (42)", n.Message)
	require.Equal(t, "Alice", n.Target)
	require.Equal(t, "spam", n.Reason)
	require.Equal(t, "24h", n.Duration)
	require.Equal(t, "admin panel", n.Extras["source"])
}

func TestNormalizeLegacyKeyNames(t *testing.T) {
	n := Normalize(`{"message":"Banned Bob","ban_reason":"harassment","ban_duration":"7 days","username":"Bob"}`)
	require.Equal(t, "harassment", n.Reason)
	require.Equal(t, "7 days", n.Duration)
	require.Equal(t, "Bob", n.TargetNameHint)

	n = Normalize(`{"restriction_reason":"caps lock"}`)
	require.Equal(t, "caps lock", n.Reason)
	// No message key: the whole raw payload becomes the message.
	require.NotEmpty(t, n.Message)
}

func TestNormalizeFreeTextHeuristics(t *testing.T) {
	n := Normalize("Banned JohnDoe (17) for 3 days: repeated spam")
	require.Equal(t, "3 days", n.Duration)
	require.Equal(t, "repeated spam", n.Reason)
	require.Equal(t, "JohnDoe", n.TargetNameHint)
	require.Equal(t, "17", n.Target)

	n = Normalize("Restricted Jane (8). Reason: trolling")
	require.Equal(t, "trolling", n.Reason)
	require.Equal(t, "Jane", n.TargetNameHint)

	// Nothing matches: the raw text is the message and nothing else is set.
	n = Normalize("maintenance toggled")
	require.Equal(t, "maintenance toggled", n.Message)
	require.Empty(t, n.Reason)
	require.Empty(t, n.Duration)
}

func TestNormalizeEmpty(t *testing.T) {
	require.Equal(t, Normalized{}, Normalize(""))
	require.Equal(t, Normalized{}, Normalize("   "))
}

func TestExtractTargetUserID(t *testing.T) {
	// JSON keys first, in priority order.
	require.EqualValues(t, 42, ExtractTargetUserID(`{"target_user_id":42}`))
	require.EqualValues(t, 7, ExtractTargetUserID(`{"user_id":"7"}`))
	require.EqualValues(t, 9, ExtractTargetUserID(`{"uid":9}`))

	// Free-text patterns.
	require.EqualValues(t, 17, ExtractTargetUserID("Banned JohnDoe (17) for spam"))
	require.EqualValues(t, 3, ExtractTargetUserID("auto-ban applied to user 3"))
	require.EqualValues(t, 55, ExtractTargetUserID("evasion detected, id: 55"))

	// No id anywhere.
	require.Zero(t, ExtractTargetUserID("settings updated"))
	require.Zero(t, ExtractTargetUserID(`{"message":"no target"}`))
}
