// Package slither wraps the Slither static analyzer as a subprocess and
// normalizes its JSON report into a stable finding schema.
//
// The raw report is schema-loose: fields come and go between detector
// versions, identifiers are occasionally non-string, and the process exit
// code is not a reliable success signal. Everything in this package is
// written so that normalization is total - a malformed entry degrades to
// defaults instead of failing the request.
package slither

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/auditdapps/slither-api/pkg/shared/severity"
)

// ToolName is the constant analyzer identifier stamped on every finding.
const ToolName = "slither"

const (
	// UnknownDetector is the sentinel used when a detector entry carries
	// no check identifier.
	UnknownDetector = "UnknownDetector"

	// UnknownConfidence is the sentinel used when a detector entry carries
	// no confidence label.
	UnknownConfidence = "Unknown"
)

// =============================================================================
// Raw Slither JSON Output Types
// =============================================================================

// Report represents the top-level slither JSON output.
type Report struct {
	Success bool    `json:"success,omitempty"`
	Error   *string `json:"error,omitempty"`
	Results Results `json:"results"`
}

// Results holds the detector entries of a report. A missing or differently
// shaped results object decodes to the zero value, which normalizes to zero
// findings rather than an error.
type Results struct {
	Detectors []Detector `json:"detectors"`
}

// Detector represents a single raw detector entry.
type Detector struct {
	Check       FlexString `json:"check"`
	Impact      FlexString `json:"impact"`
	Confidence  FlexString `json:"confidence"`
	Description string     `json:"description"`
	Elements    []Element  `json:"elements"`
}

// Element is a location entry attached to a detector result.
type Element struct {
	Name          string        `json:"name"`
	SourceMapping SourceMapping `json:"source_mapping"`
}

// SourceMapping holds location metadata. Slither has shipped the file name
// under different keys over time, so all of them are decoded.
type SourceMapping struct {
	FilenameShort    string `json:"filename_short"`
	FilenameRelative string `json:"filename_relative"`
	FilenameAbsolute string `json:"filename_absolute"`
	Filename         string `json:"filename"`
	Lines            []int  `json:"lines"`
}

// BestFilename returns the first populated filename key, preferring the
// short relative form. Empty when no key is set.
func (m SourceMapping) BestFilename() string {
	for _, name := range []string{m.FilenameShort, m.FilenameRelative, m.FilenameAbsolute, m.Filename} {
		if name != "" {
			return name
		}
	}
	return ""
}

// =============================================================================
// Flexible Types
// =============================================================================

// FlexString handles JSON fields that should be strings but occasionally
// arrive as numbers or other scalars. Non-string values are stringified,
// null decodes to empty.
type FlexString string

// UnmarshalJSON accepts a string or stringifies any other scalar value.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		*f = ""
		return nil
	}
	*f = FlexString(fmt.Sprint(v))
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// =============================================================================
// Normalized Output Types
// =============================================================================

// Finding is the stable output record guaranteed to clients regardless of
// the raw report's shape. Every field except Where is always present;
// Where is omitted when no location data exists.
type Finding struct {
	Tool        string         `json:"tool"`
	Detector    string         `json:"detector"`
	Severity    severity.Level `json:"severity"`
	Confidence  string         `json:"confidence"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Where       *string        `json:"where,omitempty"`
}

// InvocationResult captures a single analyzer subprocess run without
// interpreting it. The exit code is not authoritative for success: slither
// routinely exits non-zero while still emitting a valid JSON report.
type InvocationResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
}

// Analysis is the outcome of a full invoke-and-normalize cycle.
type Analysis struct {
	Findings []Finding
	ExitCode int

	// DurationMs is the wall-clock time of the subprocess run.
	DurationMs int64
}

// SeverityCounts tallies the analysis findings by normalized severity.
func (a *Analysis) SeverityCounts() severity.CountBySeverity {
	var counts severity.CountBySeverity
	for _, f := range a.Findings {
		counts.Increment(f.Severity)
	}
	return counts
}

// trimTo bounds diagnostic text included in error payloads. The cut backs
// off to a rune boundary so the result stays valid UTF-8.
func trimTo(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
