package slither

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/auditdapps/slither-api/pkg/errors"
	"github.com/auditdapps/slither-api/pkg/shared/severity"
)

func TestParseFindings_FullReport(t *testing.T) {
	result := &InvocationResult{
		Stdout: `{"results":{"detectors":[{"check":"reentrancy-eth","impact":"High","confidence":"Medium","description":"desc","elements":[{"name":"foo","source_mapping":{"filename_short":"A.sol","lines":[10]}}]}]}}`,
	}

	findings, err := ParseFindings(result)
	if err != nil {
		t.Fatalf("ParseFindings failed: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}

	f := findings[0]
	if f.Tool != "slither" {
		t.Errorf("tool = %q, want %q", f.Tool, "slither")
	}
	if f.Detector != "reentrancy-eth" {
		t.Errorf("detector = %q, want %q", f.Detector, "reentrancy-eth")
	}
	if f.Severity != severity.High {
		t.Errorf("severity = %q, want %q", f.Severity, severity.High)
	}
	if f.Confidence != "Medium" {
		t.Errorf("confidence = %q, want %q", f.Confidence, "Medium")
	}
	if f.Title != "Reentrancy via external call" {
		t.Errorf("title = %q, want curated override", f.Title)
	}
	if f.Description != "desc" {
		t.Errorf("description = %q, want %q", f.Description, "desc")
	}
	if f.Where == nil {
		t.Fatal("expected where to be set")
	}
	if *f.Where != "foo @ A.sol:10" {
		t.Errorf("where = %q, want %q", *f.Where, "foo @ A.sol:10")
	}
}

func TestParseFindings_EmptyDetectorList(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
	}{
		{"empty detectors array", `{"results":{"detectors":[]}}`},
		{"missing detectors key", `{"results":{}}`},
		{"missing results key", `{"success":true}`},
		{"empty object", `{}`},
		{"top-level array", `[1,2,3]`},
		{"top-level string", `"just text"`},
		{"top-level number", `42`},
		{"top-level null", `null`},
		{"results is an array", `{"results":[]}`},
		{"detectors is a string", `{"results":{"detectors":"nope"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings, err := ParseFindings(&InvocationResult{Stdout: tt.stdout})
			if err != nil {
				t.Fatalf("ParseFindings failed: %v", err)
			}
			if findings == nil {
				t.Fatal("findings must be an empty slice, not nil")
			}
			if len(findings) != 0 {
				t.Errorf("expected 0 findings, got %d", len(findings))
			}
		})
	}
}

func TestParseFindings_Timeout(t *testing.T) {
	result := &InvocationResult{TimedOut: true, Stdout: `{"results":{"detectors":[]}}`}

	_, err := ParseFindings(result)
	if err == nil {
		t.Fatal("expected error for timed-out invocation")
	}
	if !errors.IsTimeout(err) {
		t.Errorf("kind = %v, want timeout", errors.GetKind(err))
	}
}

func TestParseFindings_EmptyStdout(t *testing.T) {
	result := &InvocationResult{
		Stdout: "  \n\t ",
		Stderr: "  compilation failed: pragma mismatch  ",
	}

	_, err := ParseFindings(result)
	if err == nil {
		t.Fatal("expected error for empty stdout")
	}
	if !errors.IsUpstream(err) {
		t.Errorf("kind = %v, want upstream_failure", errors.GetKind(err))
	}
	if detail := errors.GetDetail(err); detail != "compilation failed: pragma mismatch" {
		t.Errorf("detail = %q, want trimmed stderr", detail)
	}
}

func TestParseFindings_EmptyStdoutAndStderr(t *testing.T) {
	_, err := ParseFindings(&InvocationResult{})
	if err == nil {
		t.Fatal("expected error")
	}
	if detail := errors.GetDetail(err); detail != "no output" {
		t.Errorf("detail = %q, want %q", detail, "no output")
	}
}

func TestParseFindings_NonJSONStdout(t *testing.T) {
	raw := "Traceback (most recent call last):\n" + strings.Repeat("x", 1000)

	_, err := ParseFindings(&InvocationResult{Stdout: raw})
	if err == nil {
		t.Fatal("expected error for non-JSON stdout")
	}
	if !errors.IsUpstream(err) {
		t.Errorf("kind = %v, want upstream_failure", errors.GetKind(err))
	}

	detail := errors.GetDetail(err)
	if len(detail) != 500 {
		t.Errorf("detail length = %d, want bounded to 500", len(detail))
	}
	if !strings.HasPrefix(detail, "Traceback") {
		t.Errorf("detail should be a prefix of the raw output, got %q", detail[:20])
	}
}

func TestParseFindings_Defaults(t *testing.T) {
	// Detector entry with every optional field absent.
	result := &InvocationResult{
		Stdout: `{"results":{"detectors":[{}]}}`,
	}

	findings, err := ParseFindings(result)
	if err != nil {
		t.Fatalf("ParseFindings failed: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}

	f := findings[0]
	if f.Detector != UnknownDetector {
		t.Errorf("detector = %q, want sentinel %q", f.Detector, UnknownDetector)
	}
	if f.Severity != severity.Info {
		t.Errorf("severity = %q, want Info", f.Severity)
	}
	if f.Confidence != UnknownConfidence {
		t.Errorf("confidence = %q, want sentinel %q", f.Confidence, UnknownConfidence)
	}
	if f.Title != "Unknown" {
		t.Errorf("title = %q, want %q", f.Title, "Unknown")
	}
	if f.Description != "" {
		t.Errorf("description = %q, want empty", f.Description)
	}
	if f.Where != nil {
		t.Errorf("where = %q, want absent", *f.Where)
	}
}

func TestParseFindings_NonStringCheck(t *testing.T) {
	result := &InvocationResult{
		Stdout: `{"results":{"detectors":[{"check":123,"impact":"low","confidence":"High"}]}}`,
	}

	findings, err := ParseFindings(result)
	if err != nil {
		t.Fatalf("ParseFindings failed: %v", err)
	}
	if findings[0].Detector != "123" {
		t.Errorf("detector = %q, want stringified %q", findings[0].Detector, "123")
	}
	if findings[0].Severity != severity.Low {
		t.Errorf("severity = %q, want Low", findings[0].Severity)
	}
}

func TestParseFindings_OrderPreserved(t *testing.T) {
	result := &InvocationResult{
		Stdout: `{"results":{"detectors":[{"check":"c1","impact":"Low"},{"check":"c2","impact":"Critical"},{"check":"c3"}]}}`,
	}

	findings, err := ParseFindings(result)
	if err != nil {
		t.Fatalf("ParseFindings failed: %v", err)
	}
	if len(findings) != 3 {
		t.Fatalf("expected 3 findings, got %d", len(findings))
	}
	for i, want := range []string{"c1", "c2", "c3"} {
		if findings[i].Detector != want {
			t.Errorf("findings[%d].Detector = %q, want %q (report order must be preserved)", i, findings[i].Detector, want)
		}
	}
}

func TestBuildWhere(t *testing.T) {
	str := func(s string) *string { return &s }

	tests := []struct {
		name     string
		elements []Element
		expected *string
	}{
		{
			name:     "no elements",
			elements: nil,
			expected: nil,
		},
		{
			name: "elements with no usable data",
			elements: []Element{
				{SourceMapping: SourceMapping{}},
				{SourceMapping: SourceMapping{Lines: []int{5}}},
			},
			expected: nil,
		},
		{
			name: "filename and line",
			elements: []Element{
				{Name: "foo", SourceMapping: SourceMapping{FilenameShort: "A.sol", Lines: []int{10}}},
			},
			expected: str("foo @ A.sol:10"),
		},
		{
			name: "filename without lines",
			elements: []Element{
				{Name: "bar", SourceMapping: SourceMapping{FilenameRelative: "B.sol"}},
			},
			expected: str("bar @ B.sol"),
		},
		{
			name: "name only",
			elements: []Element{
				{Name: "baz"},
			},
			expected: str("baz"),
		},
		{
			name: "missing name uses placeholder",
			elements: []Element{
				{SourceMapping: SourceMapping{Filename: "C.sol", Lines: []int{7}}},
			},
			expected: str("element @ C.sol:7"),
		},
		{
			name: "filename key priority",
			elements: []Element{
				{Name: "f", SourceMapping: SourceMapping{FilenameShort: "short.sol", FilenameRelative: "rel.sol", Filename: "plain.sol"}},
			},
			expected: str("f @ short.sol"),
		},
		{
			name: "capped at three elements",
			elements: []Element{
				{Name: "a"}, {Name: "b"}, {Name: "c"}, {Name: "d"},
			},
			expected: str("a; b; c"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildWhere(tt.elements)
			if tt.expected == nil {
				if got != nil {
					t.Errorf("buildWhere() = %q, want nil", *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("buildWhere() = nil, want %q", *tt.expected)
			}
			if *got != *tt.expected {
				t.Errorf("buildWhere() = %q, want %q", *got, *tt.expected)
			}
		})
	}
}

func TestTrimTo(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		n        int
		expected string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"exactly at limit", "hello", 5, "hello"},
		{"ascii cut at limit", "hello world", 5, "hello"},
		{"whitespace trimmed first", "  hi  ", 10, "hi"},
		{"multi-byte rune not split", strings.Repeat("a", 4) + "界", 5, strings.Repeat("a", 4)},
		{"cut lands on rune start", strings.Repeat("a", 4) + "界x", 7, strings.Repeat("a", 4) + "界"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := trimTo(tt.input, tt.n)
			if got != tt.expected {
				t.Errorf("trimTo(%q, %d) = %q, want %q", tt.input, tt.n, got, tt.expected)
			}
			if !utf8.ValidString(got) {
				t.Errorf("trimTo(%q, %d) produced invalid UTF-8", tt.input, tt.n)
			}
		})
	}
}

func TestParseFindings_NonJSONDetailIsValidUTF8(t *testing.T) {
	// Non-JSON stdout bigger than the diagnostic bound, with a multi-byte
	// rune straddling the cut.
	out := strings.Repeat("x", 499) + "界 and more garbage"
	_, err := ParseFindings(&InvocationResult{Stdout: out})
	if err == nil {
		t.Fatal("expected upstream error")
	}

	detail := errors.GetDetail(err)
	if len(detail) > 500 {
		t.Errorf("detail length = %d, want <= 500", len(detail))
	}
	if !utf8.ValidString(detail) {
		t.Error("detail must be valid UTF-8")
	}
}

func TestParseFindings_DescriptionTrimmed(t *testing.T) {
	result := &InvocationResult{
		Stdout: `{"results":{"detectors":[{"check":"x","description":"  padded text \n"}]}}`,
	}

	findings, err := ParseFindings(result)
	if err != nil {
		t.Fatalf("ParseFindings failed: %v", err)
	}
	if findings[0].Description != "padded text" {
		t.Errorf("description = %q, want trimmed", findings[0].Description)
	}
}
