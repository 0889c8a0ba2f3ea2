package slither

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/auditdapps/slither-api/pkg/errors"
	"github.com/auditdapps/slither-api/pkg/shared/severity"
)

const (
	// maxDiagnosticBytes bounds the raw analyzer text echoed back in error
	// payloads.
	maxDiagnosticBytes = 500

	// maxWhereElements caps how many location entries contribute to the
	// joined Where string.
	maxWhereElements = 3
)

// ParseFindings normalizes a captured invocation into the stable finding
// list. It never returns a nil slice on success: a report with zero
// detector entries, one missing the results object, or valid JSON of an
// entirely different shape produces an empty list, not an error.
//
// Failure modes are kinded: a timed-out invocation yields a timeout error,
// empty stdout yields an upstream failure carrying trimmed stderr as
// diagnostic detail, and unparseable stdout yields an upstream failure
// carrying a bounded prefix of the raw text.
func ParseFindings(result *InvocationResult) ([]Finding, error) {
	if result.TimedOut {
		return nil, errors.ErrTimeout
	}

	out := strings.TrimSpace(result.Stdout)
	if out == "" {
		detail := trimTo(result.Stderr, maxDiagnosticBytes)
		if detail == "" {
			detail = "no output"
		}
		return nil, errors.WithDetail(errors.KindUpstream, "analyzer produced no output", detail)
	}

	var report Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		if json.Valid([]byte(out)) {
			// Valid JSON of an unexpected shape (top-level array, string,
			// wrongly typed results/detectors) normalizes to zero
			// findings. Only non-JSON stdout is an upstream failure.
			return []Finding{}, nil
		}
		return nil, errors.WithDetail(errors.KindUpstream, "analyzer returned non-JSON output", trimTo(out, maxDiagnosticBytes))
	}

	findings := make([]Finding, 0, len(report.Results.Detectors))
	for _, d := range report.Results.Detectors {
		findings = append(findings, convertDetector(d))
	}
	return findings, nil
}

// convertDetector maps one raw detector entry to a Finding. Every field is
// populated with a default rather than omitted, so clients never
// special-case missing keys.
func convertDetector(d Detector) Finding {
	check := d.Check.String()

	detector := check
	if strings.TrimSpace(detector) == "" {
		detector = UnknownDetector
	}

	confidence := d.Confidence.String()
	if confidence == "" {
		confidence = UnknownConfidence
	}

	return Finding{
		Tool:        ToolName,
		Detector:    detector,
		Severity:    severity.FromString(d.Impact.String()),
		Confidence:  confidence,
		Title:       TitleFromDetector(check),
		Description: strings.TrimSpace(d.Description),
		Where:       buildWhere(d.Elements),
	}
}

// buildWhere scans up to the first three elements, in report order, and
// derives a location phrase for each. Phrases are joined with "; ". When no
// element yields a phrase the result is nil, which omits the field from the
// JSON output entirely.
func buildWhere(elements []Element) *string {
	var parts []string
	for i, el := range elements {
		if i >= maxWhereElements {
			break
		}

		name := el.Name
		filename := el.SourceMapping.BestFilename()
		lines := el.SourceMapping.Lines

		switch {
		case filename != "" && len(lines) > 0:
			parts = append(parts, fmt.Sprintf("%s @ %s:%d", elementName(name), filename, lines[0]))
		case filename != "":
			parts = append(parts, fmt.Sprintf("%s @ %s", elementName(name), filename))
		case name != "":
			parts = append(parts, name)
		}
	}

	if len(parts) == 0 {
		return nil
	}
	where := strings.Join(parts, "; ")
	return &where
}

func elementName(name string) string {
	if name == "" {
		return "element"
	}
	return name
}
