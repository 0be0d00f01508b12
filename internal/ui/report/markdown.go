package report

import (
	"fmt"
	"strings"
	"time"
)

func RenderMarkdown(s Surface) string {
	generated := s.GeneratedAt
	if generated.IsZero() {
		generated = time.Now().UTC()
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("title: API Surface Report\n")
	b.WriteString("project: " + nonEmpty(s.Project, "unknown") + "\n")
	b.WriteString("generated_at: " + generated.UTC().Format(time.RFC3339) + "\n")
	b.WriteString("granularity: " + nonEmpty(s.Granularity, "unknown") + "\n")
	b.WriteString("---\n\n")

	b.WriteString("# API Surface\n\n")
	b.WriteString("## Summary\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("| --- | --- |\n")
	b.WriteString(fmt.Sprintf("| Public | %d |\n", s.Public))
	b.WriteString(fmt.Sprintf("| Internal | %d |\n", s.Internal))
	b.WriteString(fmt.Sprintf("| Total | %d |\n", len(s.Records)))
	if s.Fingerprint != "" {
		b.WriteString(fmt.Sprintf("| Pattern Fingerprint | `%s` |\n", shortFingerprint(s.Fingerprint)))
	}
	b.WriteString("\n")

	b.WriteString("## Patterns\n")
	writePatternList(&b, "Includes", s.Includes)
	writePatternList(&b, "Excludes", s.Excludes)
	b.WriteString("\n")

	if s.Diff != nil {
		b.WriteString("## Changes Since Last Snapshot\n")
		if s.Diff.Empty() {
			b.WriteString("No public API changes.\n\n")
		} else {
			b.WriteString("| Change | Identifier |\n")
			b.WriteString("| --- | --- |\n")
			for _, id := range s.Diff.Added {
				b.WriteString(fmt.Sprintf("| added | `%s` |\n", escapeCell(id)))
			}
			for _, id := range s.Diff.Removed {
				b.WriteString(fmt.Sprintf("| removed | `%s` |\n", escapeCell(id)))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("## Identifiers\n")
	if len(s.Records) == 0 {
		b.WriteString("No identifiers discovered.\n")
		return b.String()
	}
	b.WriteString("| Identifier | Classification |\n")
	b.WriteString("| --- | --- |\n")
	for _, r := range s.Records {
		b.WriteString(fmt.Sprintf("| `%s` | %s |\n", escapeCell(r.Identifier), r.Classification))
	}
	return b.String()
}

func writePatternList(b *strings.Builder, label string, patterns []string) {
	if len(patterns) == 0 {
		b.WriteString(fmt.Sprintf("- %s: _none_\n", label))
		return
	}
	quoted := make([]string, 0, len(patterns))
	for _, p := range patterns {
		quoted = append(quoted, "`"+p+"`")
	}
	b.WriteString(fmt.Sprintf("- %s: %s\n", label, strings.Join(quoted, ", ")))
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
