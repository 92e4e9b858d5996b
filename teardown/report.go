package teardown

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"profile_teardown/model"
)

const (
	// ShortVerdictWords is the report's stricter limit; the gate allows 25.
	ShortVerdictWords = 20
	// PassingScore is the minimum score for a passing run.
	PassingScore = 70
)

var directionalTo = regexp.MustCompile(`(?i)\bto\b`)

// BuildQualityReport scores every diagnosed item on three checks: a short
// clear verdict, a passed quality gate and a directional fix. Items that
// never reached diagnosis add warnings but no points.
func BuildQualityReport(items []*ItemResult) model.QualityReport {
	report := model.QualityReport{Checks: []string{}, Warnings: []string{}}
	warn := func(format string, args ...any) {
		report.Warnings = append(report.Warnings, fmt.Sprintf(format, args...))
	}
	check := func(format string, args ...any) {
		report.Checks = append(report.Checks, fmt.Sprintf(format, args...))
	}

	possible, earned := 0, 0
	for _, it := range items {
		key := it.Item.Key
		if it.Item.State == model.StateFailed {
			warn("%s: failed before diagnosis: %s", key, it.Item.FailedErr)
			continue
		}
		if it.Verdict == nil {
			continue
		}
		possible += 3

		v := it.Verdict
		if n := len(strings.Fields(v.OneSentenceVerdict)); n > 0 && n <= ShortVerdictWords {
			earned++
			check("%s: clear one-sentence verdict", key)
		} else {
			warn("%s: verdict unclear or too long", key)
		}

		if v.PassedQualityGate {
			earned++
			check("%s: passed quality gate", key)
		} else {
			warn("%s: quality issues: %s", key, strings.Join(v.QualityIssues, "; "))
		}

		if it.Playbook != nil && directionalTo.MatchString(it.Playbook.TheFix) {
			earned++
			check("%s: clear, directional fix", key)
		} else {
			warn("%s: fix lacks clear direction", key)
		}

		if it.Evidence != nil && it.Evidence.EvidenceStrength == model.EvidenceWeak {
			warn("%s: weak evidence, nothing on the image supports the verdict", key)
		}
		if it.Playbook != nil && it.Playbook.ParseError {
			warn("%s: playbook could not be parsed", key)
		}
		if it.Render != nil {
			for _, s := range it.Render.Skipped {
				warn("%s: evidence %d not drawn: %s", key, s.ID, s.Reason)
			}
		}
		if it.RenderErr != "" {
			warn("%s: render failed: %s", key, it.RenderErr)
		}
	}

	if possible > 0 {
		report.Score = int(math.Round(float64(earned) / float64(possible) * 100))
	}
	report.Passed = report.Score >= PassingScore
	return report
}
