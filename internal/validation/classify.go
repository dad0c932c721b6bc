package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/signalnine/labgrader/internal/executor"
)

// Policy is a substring classification policy over normalized output.
type Policy int

const (
	// ErrorsOnly fails on compiler errors and failed test summaries.
	ErrorsOnly Policy = iota
	// ErrorsAndWarnings also fails on warnings and formatter diffs. The
	// quality gate uses it.
	ErrorsAndWarnings
)

func (p Policy) String() string {
	if p == ErrorsAndWarnings {
		return "errors_and_warnings"
	}
	return "errors_only"
}

var (
	errorSignatures   = []string{"error", "test result: failed"}
	warningSignatures = []string{"warning", "diff"}
)

// Classify reports whether normalized output passes policy. It is a coarse
// substring scan; toolchain output formats are not a stable contract.
func Classify(text string, policy Policy) bool {
	for _, sig := range errorSignatures {
		if strings.Contains(text, sig) {
			return false
		}
	}
	if policy == ErrorsAndWarnings {
		for _, sig := range warningSignatures {
			if strings.Contains(text, sig) {
				return false
			}
		}
	}
	return true
}

// Verifier decides whether a command result passes. Timed-out results never do.
type Verifier interface {
	Verify(res *executor.Result) bool
}

// VerifierFunc adapts a predicate to Verifier.
type VerifierFunc func(res *executor.Result) bool

func (f VerifierFunc) Verify(res *executor.Result) bool {
	return res != nil && !res.TimedOut && f(res)
}

// PolicyVerifier classifies output with a substring policy.
type PolicyVerifier struct {
	Policy Policy
}

func (v PolicyVerifier) Verify(res *executor.Result) bool {
	return res != nil && !res.TimedOut && Classify(res.Output, v.Policy)
}

// ExitCodeVerifier passes on a zero exit status, ignoring output text.
type ExitCodeVerifier struct{}

func (ExitCodeVerifier) Verify(res *executor.Result) bool {
	return res != nil && !res.TimedOut && res.ExitCode == 0
}

var testSummaryRe = regexp.MustCompile(`test result: (ok|failed)\. (\d+) passed; (\d+) failed`)

// TestSummary is the tally from one `test result:` line.
type TestSummary struct {
	OK     bool
	Passed int
	Failed int
}

// ParseTestSummaries extracts every test harness summary line from output.
func ParseTestSummaries(output string) []TestSummary {
	var out []TestSummary
	for _, m := range testSummaryRe.FindAllStringSubmatch(output, -1) {
		passed, _ := strconv.Atoi(m[2])
		failed, _ := strconv.Atoi(m[3])
		out = append(out, TestSummary{OK: m[1] == "ok", Passed: passed, Failed: failed})
	}
	return out
}

// TestSummaryVerifier requires at least one test summary, no failed tests,
// and no error signatures. A filter that matches no tests still passes as
// long as the harness reported a summary.
type TestSummaryVerifier struct{}

func (TestSummaryVerifier) Verify(res *executor.Result) bool {
	if res == nil || res.TimedOut || !Classify(res.Output, ErrorsOnly) {
		return false
	}
	summaries := ParseTestSummaries(res.Output)
	if len(summaries) == 0 {
		return false
	}
	for _, s := range summaries {
		if !s.OK || s.Failed > 0 {
			return false
		}
	}
	return true
}

// PatternVerifier requires output to match Pattern and pass ErrorsOnly.
type PatternVerifier struct {
	Pattern *regexp.Regexp
}

func (v PatternVerifier) Verify(res *executor.Result) bool {
	return res != nil && !res.TimedOut &&
		Classify(res.Output, ErrorsOnly) &&
		v.Pattern.MatchString(res.Output)
}

// Verifier names accepted in configuration.
const (
	VerifyErrorsOnly        = "errors_only"
	VerifyErrorsAndWarnings = "errors_and_warnings"
	VerifyExitCode          = "exit_code"
	VerifyTestSummary       = "test_summary"
	VerifyExpect            = "expect"
)

// ParseVerifier maps a configured verifier name to an implementation. expect
// is the pattern used by the expect verifier; it matches case-insensitively
// since output is lower-cased.
func ParseVerifier(name, expect string) (Verifier, error) {
	switch name {
	case "", VerifyErrorsOnly:
		return PolicyVerifier{Policy: ErrorsOnly}, nil
	case VerifyErrorsAndWarnings:
		return PolicyVerifier{Policy: ErrorsAndWarnings}, nil
	case VerifyExitCode:
		return ExitCodeVerifier{}, nil
	case VerifyTestSummary:
		return TestSummaryVerifier{}, nil
	case VerifyExpect:
		if expect == "" {
			return nil, fmt.Errorf("verifier %q needs an expect pattern", name)
		}
		re, err := regexp.Compile("(?i)" + expect)
		if err != nil {
			return nil, fmt.Errorf("compiling expect pattern: %w", err)
		}
		return PatternVerifier{Pattern: re}, nil
	default:
		return nil, fmt.Errorf("unknown verifier %q", name)
	}
}
