// Package classify derives log attributes (severity, component, session token,
// execution phase, error/warning counts) from a record's title, content, and
// origin path.
//
// All functions are pure: no I/O, no package state. The transfer engine calls
// Classify once per migrated record; the individual functions exist so each
// heuristic can be tested in isolation.
package classify

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Severity is the derived log level of a record.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityDebug   Severity = "DEBUG"
	SeverityInfo    Severity = "INFO"
)

// Sentinel values for records where derivation finds nothing.
const (
	NoSession    = "NO_SESSION"
	UnknownPhase = "UNKNOWN_PHASE"
)

// sessionPattern matches the 8-digit-date + 6-digit-time session stamp
// embedded in log titles, e.g. "session_20240117_153045_errors".
var sessionPattern = regexp.MustCompile(`\d{8}_\d{6}`)

// Derived bundles every attribute the classifier produces for one record.
type Derived struct {
	Severity       Severity
	Component      string
	SessionToken   string
	ExecutionPhase string
	ErrorCount     int
	WarningCount   int
	Category       string
}

// Classify runs all derivations for a single record.
func Classify(title, content, originPath string) Derived {
	d := Derived{
		Severity:       DeriveSeverity(title, content),
		Component:      DeriveComponent(title, originPath),
		SessionToken:   DeriveSessionToken(title),
		ExecutionPhase: DeriveExecutionPhase(title),
	}
	d.ErrorCount, d.WarningCount = CountErrorsWarnings(content)
	d.Category = CategoryFor(d.Severity, d.SessionToken, d.Component)
	return d
}

// severityTokens are checked in priority order; the first match wins.
// Title is checked before content so a title-level signal is never
// overridden by incidental content matches.
var severityTokens = []struct {
	severity Severity
	tokens   []string
}{
	{SeverityError, []string{"error", "exception", "failed", "critical"}},
	{SeverityWarning, []string{"warning", "warn"}},
	{SeverityDebug, []string{"debug"}},
}

// DeriveSeverity returns the severity implied by title, falling back to
// content. Matching is case-insensitive and first-match-wins; a record
// mentioning both "error" and "warning" is ERROR.
func DeriveSeverity(title, content string) Severity {
	for _, text := range []string{strings.ToLower(title), strings.ToLower(content)} {
		for _, group := range severityTokens {
			for _, tok := range group.tokens {
				if strings.Contains(text, tok) {
					return group.severity
				}
			}
		}
	}
	return SeverityInfo
}

// DeriveComponent returns the component a record belongs to: the filename
// stem of originPath when present, otherwise the first underscore-separated
// segment of the title, otherwise "UNKNOWN". A dotfile basename like ".env"
// has an empty stem (the whole name is its extension) and falls through to
// the title.
func DeriveComponent(title, originPath string) string {
	if originPath != "" {
		base := filepath.Base(originPath)
		if stem := strings.TrimSuffix(base, filepath.Ext(base)); stem != "" {
			return stem
		}
	}
	if title != "" {
		return strings.SplitN(title, "_", 2)[0]
	}
	return "UNKNOWN"
}

// DeriveSessionToken extracts the YYYYMMDD_HHMMSS session stamp from the
// title, or NoSession when the title carries none.
func DeriveSessionToken(title string) string {
	if m := sessionPattern.FindString(title); m != "" {
		return m
	}
	return NoSession
}

// DeriveExecutionPhase extracts the integer following "phase" in the title
// and formats it as "PHASE_<n>". Titles without a phase marker, or with a
// marker not followed by an integer, yield UnknownPhase.
func DeriveExecutionPhase(title string) string {
	lower := strings.ToLower(title)
	idx := strings.Index(lower, "phase")
	if idx < 0 {
		return UnknownPhase
	}
	rest := lower[idx+len("phase"):]
	rest = strings.TrimLeft(rest, "_- ")
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	if end == 0 {
		return UnknownPhase
	}
	n, err := strconv.Atoi(rest[:end])
	if err != nil {
		return UnknownPhase
	}
	return "PHASE_" + strconv.Itoa(n)
}

// CountErrorsWarnings counts case-insensitive occurrences of error-ish and
// warning-ish tokens in content. Empty content counts as (0, 0).
//
// "warn" is a prefix of "warning", and "error"/"exception" can overlap in
// text, so each token is counted independently; the counts are signals for
// triage, not exact token frequencies.
func CountErrorsWarnings(content string) (errors, warnings int) {
	if content == "" {
		return 0, 0
	}
	lower := strings.ToLower(content)
	errors = strings.Count(lower, "error") + strings.Count(lower, "exception")
	warnings = strings.Count(lower, "warning") + strings.Count(lower, "warn")
	return errors, warnings
}

// CategoryFor maps derived attributes onto the seeded category set.
func CategoryFor(sev Severity, sessionToken, component string) string {
	switch {
	case sev == SeverityError:
		return "ERROR_LOGS"
	case sev == SeverityDebug:
		return "DEBUG_LOGS"
	case sessionToken != NoSession:
		return "SESSION_LOGS"
	case strings.Contains(strings.ToLower(component), "build"):
		return "BUILD_LOGS"
	default:
		return "UNCATEGORIZED"
	}
}
