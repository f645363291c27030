package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySuccess(t *testing.T) {
	for _, text := range []string{
		"I have successfully logged in and reached the dashboard",
		"Login successful, account page loaded",
		"The user Logged In Successfully despite a slow page",
		"Reached Google Account settings page",
	} {
		out := Classify(text)
		assert.True(t, out.Success, "expected success for %q", text)
		assert.Empty(t, out.Code)
	}
}

func TestClassifySuccessBeatsFailurePhrases(t *testing.T) {
	// A success report that mentions an error elsewhere is still a success.
	out := Classify("Successfully logged in. Note: one console error was observed on the page.")
	require.True(t, out.Success)
}

func TestClassifyFailureCodes(t *testing.T) {
	cases := map[string]string{
		"Google says your password was incorrect": CodeWrongPassword,
		"Couldn't find your Google Account":       CodeEmailNotFound,
		"Blocked due to unusual activity":         CodeSuspiciousActivity,
		"Google needs to verify it's you":         CodeVerificationRequired,
		"2-Step Verification is required":         CodeTwoFactorRequired,
		"This account has been disabled":          CodeAccountDisabled,
		"Too many failed attempts, account is locked": CodeTooManyAttempts,
		"A reCAPTCHA challenge appeared":              CodeCaptchaChallenge,
	}
	for text, want := range cases {
		out := Classify(text)
		require.False(t, out.Success, "text %q", text)
		assert.Equal(t, want, out.Code, "text %q", text)
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	// Both WRONG_PASSWORD and CAPTCHA_CHALLENGE phrases are present; the
	// earlier rule in the table decides.
	out := Classify("a captcha appeared after the wrong password was entered")
	require.False(t, out.Success)
	assert.Equal(t, CodeWrongPassword, out.Code)

	// And in the reverse textual order too: table order, not text order.
	out = Classify("wrong password reported, then a captcha appeared")
	assert.Equal(t, CodeWrongPassword, out.Code)
}

func TestClassifyTableOrder(t *testing.T) {
	// The priority order of the failure table is part of the contract.
	want := []string{
		CodeWrongPassword,
		CodeEmailNotFound,
		CodeSuspiciousActivity,
		CodeVerificationRequired,
		CodeTwoFactorRequired,
		CodeAccountDisabled,
		CodeTooManyAttempts,
		CodeCaptchaChallenge,
	}
	require.Len(t, FailureRules, len(want))
	for i, rule := range FailureRules {
		assert.Equal(t, want[i], rule.Code, "rule %d", i)
		assert.NotEmpty(t, rule.Phrases, "rule %d", i)
	}
}

func TestClassifyDefaultAndEmpty(t *testing.T) {
	out := Classify("the page rendered a blank frame")
	require.False(t, out.Success)
	assert.Equal(t, CodeLoginFailed, out.Code)

	out = Classify("")
	require.False(t, out.Success)
	assert.Equal(t, CodeLoginFailed, out.Code)
}

func TestClassifyWithCustomTables(t *testing.T) {
	rules := []Rule{{Code: "BLOCKED", Phrases: []string{"blocked"}}}
	out := ClassifyWith("request blocked by proxy", []string{"all good"}, rules)
	require.False(t, out.Success)
	assert.Equal(t, "BLOCKED", out.Code)

	out = ClassifyWith("all good here", []string{"all good"}, rules)
	assert.True(t, out.Success)
}

func TestFailureMessageFormat(t *testing.T) {
	out := Classify("wrong password")
	assert.Equal(t, "Authentication failed: Wrong Password", out.Message)
}
