package report_test

import (
	"testing"

	"flagpost/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultReasons(t *testing.T) {
	entries := report.DefaultReasons().Entries()
	require.Len(t, entries, 5)

	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	assert.Equal(t, []string{"inappropriate", "spam", "offensive", "copyright", "other"}, keys)
}

func TestNormalizeReasons(t *testing.T) {
	t.Run("parses key|label lines", func(t *testing.T) {
		c := report.NormalizeReasons("spam|Spam\nabuse|Abusive Behavior")
		entries := c.Entries()
		require.Len(t, entries, 2)
		assert.Equal(t, report.ReasonEntry{Key: "spam", Label: "Spam"}, entries[0])
		assert.Equal(t, report.ReasonEntry{Key: "abuse", Label: "Abusive Behavior"}, entries[1])
	})

	t.Run("sanitizes keys and trims labels", func(t *testing.T) {
		c := report.NormalizeReasons("  Hate Speech! | Hate speech \n")
		entries := c.Entries()
		require.Len(t, entries, 1)
		assert.Equal(t, "hatespeech", entries[0].Key)
		assert.Equal(t, "Hate speech", entries[0].Label)
	})

	t.Run("discards malformed lines and duplicate keys", func(t *testing.T) {
		c := report.NormalizeReasons("no separator here\nspam|Spam\nspam|Spam Again\n|no key\nempty|")
		entries := c.Entries()
		require.Len(t, entries, 1)
		assert.Equal(t, "Spam", entries[0].Label)
	})

	t.Run("self-heals empty input to the fallback entry", func(t *testing.T) {
		for _, raw := range []string{"", "   \n\n", "garbage without pipes", "!!!|  "} {
			c := report.NormalizeReasons(raw)
			entries := c.Entries()
			require.Len(t, entries, 1, "input %q", raw)
			assert.Equal(t, "inappropriate", entries[0].Key)
			assert.Equal(t, "Inappropriate Content", entries[0].Label)
		}
	})
}

func TestReasonCatalogResolve(t *testing.T) {
	c := report.DefaultReasons()

	assert.Equal(t, "Spam", c.Resolve("spam"))
	assert.Equal(t, "Copyright Violation", c.Resolve("copyright"))

	// Unknown keys fall through unchanged so old reports stay readable.
	assert.Equal(t, "legacy_reason", c.Resolve("legacy_reason"))
}

func TestReasonCatalogLines(t *testing.T) {
	raw := "spam|Spam\nother|Other"
	c := report.NormalizeReasons(raw)
	assert.Equal(t, raw, c.Lines())

	// Lines output round-trips through NormalizeReasons.
	again := report.NormalizeReasons(c.Lines())
	assert.Equal(t, c.Entries(), again.Entries())
}
