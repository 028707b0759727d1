package diff

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"gopkg.in/yaml.v3"
)

// Change records a scalar attribute moving from Old to New.
type Change struct {
	Old any `yaml:"old" json:"old"`
	New any `yaml:"new" json:"new"`
}

// SetDiff records membership changes of a set-valued attribute.
// Added is desired minus current, Removed is current minus desired and
// Current is the set as it will look after reconciliation.
type SetDiff struct {
	Added   []string `yaml:"added" json:"added"`
	Removed []string `yaml:"removed" json:"removed"`
	Current []string `yaml:"current" json:"current"`
}

// Empty reports whether the set diff carries no membership change.
func (d SetDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// Sets computes the SetDiff between current and desired membership.
// Output slices are sorted so results are stable across invocations.
func Sets(current, desired []string) SetDiff {
	currentSet := make(map[string]struct{}, len(current))
	for _, v := range current {
		currentSet[v] = struct{}{}
	}
	desiredSet := make(map[string]struct{}, len(desired))
	for _, v := range desired {
		desiredSet[v] = struct{}{}
	}

	d := SetDiff{Added: []string{}, Removed: []string{}, Current: []string{}}
	for v := range desiredSet {
		if _, ok := currentSet[v]; !ok {
			d.Added = append(d.Added, v)
		}
		d.Current = append(d.Current, v)
	}
	for v := range currentSet {
		if _, ok := desiredSet[v]; !ok {
			d.Removed = append(d.Removed, v)
		}
	}

	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Strings(d.Current)
	return d
}

// Scalars compares two attribute maps and returns one Change per attribute
// whose desired value differs from the current one. Attributes absent from
// desired are left untouched.
func Scalars(current, desired map[string]any) map[string]Change {
	changes := make(map[string]Change)
	for key, want := range desired {
		have, ok := current[key]
		if ok && equalValue(have, want) {
			continue
		}
		if !ok {
			have = nil
		}
		changes[key] = Change{Old: have, New: want}
	}
	return changes
}

func equalValue(a, b any) bool {
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

const (
	maxRenderLines  = 10000
	truncateMessage = "... (diff truncated, exceeds 10,000 lines) ..."
)

// RenderStates serializes two state snapshots as YAML and renders the
// current-vs-desired preview. Unserializable snapshots render as empty.
func RenderStates(current, desired any) string {
	cur, err := yaml.Marshal(current)
	if err != nil {
		return ""
	}
	des, err := yaml.Marshal(desired)
	if err != nil {
		return ""
	}
	return Render(cur, des, "current", "desired")
}

// Render produces a unified-style textual diff between two state snapshots
// for dry-run previews. Returns empty string when the snapshots are equal.
func Render(current, desired []byte, currentLabel, desiredLabel string) string {
	if bytes.Equal(current, desired) {
		return ""
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(string(current), string(desired), false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "--- %s\n", currentLabel)
	fmt.Fprintf(&buf, "+++ %s\n", desiredLabel)

	for _, d := range diffs {
		lines := splitLines(d.Text)
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range lines {
			buf.WriteString(prefix)
			buf.WriteString(line)
			buf.WriteString("\n")
		}
	}

	result := buf.String()
	lines := strings.Split(result, "\n")
	if len(lines) > maxRenderLines {
		return strings.Join(lines[:maxRenderLines], "\n") + "\n" + truncateMessage + "\n"
	}
	return result
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" && strings.HasSuffix(text, "\n") {
		lines = lines[:len(lines)-1]
	}
	return lines
}
