package report

import "strings"

// ReasonEntry maps a short key to its display label.
type ReasonEntry struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// ReasonCatalog resolves report-reason keys to display labels. Entry order is
// preserved for presentation but carries no semantic weight. A catalog is
// never empty.
type ReasonCatalog struct {
	entries []ReasonEntry
	byKey   map[string]string
}

// fallbackReason is the single entry a catalog self-heals to when an update
// would leave it empty.
var fallbackReason = ReasonEntry{Key: "inappropriate", Label: "Inappropriate Content"}

// DefaultReasons returns the stock reason catalog.
func DefaultReasons() *ReasonCatalog {
	return newCatalog([]ReasonEntry{
		{Key: "inappropriate", Label: "Inappropriate Content"},
		{Key: "spam", Label: "Spam"},
		{Key: "offensive", Label: "Offensive Language"},
		{Key: "copyright", Label: "Copyright Violation"},
		{Key: "other", Label: "Other"},
	})
}

func newCatalog(entries []ReasonEntry) *ReasonCatalog {
	c := &ReasonCatalog{
		entries: entries,
		byKey:   make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		c.byKey[e.Key] = e.Label
	}
	return c
}

// NormalizeReasons parses line-oriented "key|label" pairs into a catalog.
// Whitespace is trimmed, keys are lowercased and stripped to alphanumerics
// plus '_' and '-', and malformed lines are discarded. If nothing survives,
// the result self-heals to the single fallback entry.
func NormalizeReasons(raw string) *ReasonCatalog {
	var entries []ReasonEntry
	seen := make(map[string]bool)

	for _, line := range strings.Split(raw, "\n") {
		key, label, ok := strings.Cut(line, "|")
		if !ok {
			continue
		}
		key = sanitizeKey(key)
		label = strings.TrimSpace(label)
		if key == "" || label == "" || seen[key] {
			continue
		}
		seen[key] = true
		entries = append(entries, ReasonEntry{Key: key, Label: label})
	}

	if len(entries) == 0 {
		entries = []ReasonEntry{fallbackReason}
	}
	return newCatalog(entries)
}

// Resolve looks up the display label for a reason key. Unknown keys resolve
// to the raw key itself so legacy reports keep meaning if the catalog changes.
func (c *ReasonCatalog) Resolve(key string) string {
	if label, ok := c.byKey[key]; ok {
		return label
	}
	return key
}

// Validate reports whether key is usable as a reason key.
func (c *ReasonCatalog) Validate(key string) bool {
	return strings.TrimSpace(key) != ""
}

// Entries returns the catalog entries in presentation order.
func (c *ReasonCatalog) Entries() []ReasonEntry {
	out := make([]ReasonEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Lines serializes the catalog back to the "key|label" line format accepted
// by NormalizeReasons.
func (c *ReasonCatalog) Lines() string {
	var b strings.Builder
	for i, e := range c.entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(e.Key)
		b.WriteByte('|')
		b.WriteString(e.Label)
	}
	return b.String()
}

// sanitizeKey lowercases the key and drops everything outside [a-z0-9_-].
func sanitizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
