// Package classify maps raw automation output to a structured login verdict.
// The tables are data, not control flow: callers can substitute their own
// phrase sets without touching the matching logic.
package classify

import "strings"

// Error codes surfaced in task results.
const (
	CodeWrongPassword        = "WRONG_PASSWORD"
	CodeEmailNotFound        = "EMAIL_NOT_FOUND"
	CodeSuspiciousActivity   = "SUSPICIOUS_ACTIVITY"
	CodeVerificationRequired = "VERIFICATION_REQUIRED"
	CodeTwoFactorRequired    = "TWO_FACTOR_REQUIRED"
	CodeAccountDisabled      = "ACCOUNT_DISABLED"
	CodeTooManyAttempts      = "TOO_MANY_ATTEMPTS"
	CodeCaptchaChallenge     = "CAPTCHA_CHALLENGE"
	CodeLoginFailed          = "LOGIN_FAILED"
	CodeTimeout              = "TIMEOUT"
	CodeAuthError            = "AUTH_ERROR"
	CodeTerminated           = "TERMINATED"
)

// Outcome is the structured verdict derived from the agent's final output.
type Outcome struct {
	Success bool
	Code    string
	Message string
}

// Rule binds an error code to the phrases that indicate it. Rules are
// evaluated in slice order and the first match wins.
type Rule struct {
	Code    string
	Phrases []string
}

// SuccessPhrases indicate a completed login. They are checked before any
// failure rule, so a success report containing the word "error" elsewhere
// still classifies as success.
var SuccessPhrases = []string{
	"successfully logged in",
	"login successful",
	"logged in successfully",
	"reached google account",
	"reached a google account page",
	"reached the google account dashboard",
	"reached the account dashboard",
}

// FailureRules is the ordered failure table. Order is a priority:
// WRONG_PASSWORD outranks CAPTCHA_CHALLENGE when both phrase sets match.
var FailureRules = []Rule{
	{CodeWrongPassword, []string{
		"password is incorrect",
		"wrong password",
		"password was incorrect",
		"your password was incorrect",
		"check your password",
	}},
	{CodeEmailNotFound, []string{
		"couldn't find your google account",
		"couldn't find account",
		"email not found",
		"no account found",
	}},
	{CodeSuspiciousActivity, []string{
		"unusual activity",
		"suspicious activity",
		"unusual sign in",
		"suspicious login attempt",
		"security alert",
		"security challenge",
	}},
	{CodeVerificationRequired, []string{
		"verification required",
		"verify it's you",
		"confirm your identity",
		"additional verification",
		"needs additional verification",
	}},
	{CodeTwoFactorRequired, []string{
		"2-step verification",
		"two-factor",
		"2fa",
		"enter verification code",
		"enter the code",
	}},
	{CodeAccountDisabled, []string{
		"account disabled",
		"account has been disabled",
		"account suspended",
	}},
	{CodeTooManyAttempts, []string{
		"too many failed attempts",
		"try again later",
		"temporary lock",
		"account is locked",
	}},
	{CodeCaptchaChallenge, []string{
		"captcha",
		"security check",
		"prove you're not a robot",
		"recaptcha",
	}},
}

// Classify maps the agent's final output to a verdict using the default
// tables. Empty input classifies as a generic failure, never success.
func Classify(text string) Outcome {
	return ClassifyWith(text, SuccessPhrases, FailureRules)
}

// ClassifyWith is Classify with caller-supplied tables.
func ClassifyWith(text string, success []string, rules []Rule) Outcome {
	lower := strings.ToLower(text)
	for _, p := range success {
		if strings.Contains(lower, p) {
			return Outcome{Success: true, Message: "Successfully authenticated"}
		}
	}
	for _, r := range rules {
		for _, p := range r.Phrases {
			if strings.Contains(lower, p) {
				return Outcome{Code: r.Code, Message: failureMessage(r.Code)}
			}
		}
	}
	return Outcome{Code: CodeLoginFailed, Message: "Failed to log in to Google"}
}

func failureMessage(code string) string {
	words := strings.Split(strings.ToLower(code), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return "Authentication failed: " + strings.Join(words, " ")
}
