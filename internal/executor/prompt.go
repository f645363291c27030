package executor

import (
	"fmt"
	"time"
)

// Options are the per-job tuning knobs carried in under advanced_options.
type Options struct {
	HumanDelayMin      int
	HumanDelayMax      int
	MaxCaptchaAttempts int
	ReuseSession       bool
	PersistSession     bool
}

func DefaultOptions() Options {
	return Options{
		HumanDelayMin:      1,
		HumanDelayMax:      3,
		MaxCaptchaAttempts: 2,
		ReuseSession:       true,
		PersistSession:     true,
	}
}

// AuthRequest is one submitted login job.
type AuthRequest struct {
	Email      string
	Password   string
	URL        string
	AccountKey string
	Timeout    time.Duration
	Options    Options
}

// authInstruction is the opaque payload handed to the automation agent. The
// browsing heuristics inside it are collaborator input, not logic this
// service interprets.
const authInstruction = `
Task: Log in to Google with specific anti-detection behaviors.

IMPORTANT - FOLLOW THIS NATURAL BROWSING PATTERN:
1. Navigate to %s
2. If there's a cookie consent dialog, click "I agree" or "Accept all"
3. Wait for the page to fully load (%d-%d seconds)
4. Find the email/account identifier field, click it
5. Type the email address slowly like a human: %s
6. Pause briefly (1-2 seconds) as if thinking
7. Click "Next" or press Enter
8. Wait for the password page to load (2-3 seconds)
9. Find the password field and click it
10. Type the password slowly like a human would: %s
11. Click "Next" or press Enter
12. Look for any of these post-login scenarios:

STEP-BY-STEP PROGRESS REPORTING:
- After each major step (1-11), report your progress clearly
- Use format: 'PROGRESS: Step X completed - [description]'
- These progress markers help track the authentication flow
- Example: 'PROGRESS: Step 4 completed - Found and clicked email field'

HANDLE THESE VERIFICATION CHALLENGES:
- If asked to confirm recovery email/phone, click "Confirm"
- If asked "Try a different way", look for and click a "Continue" button
- If Google asks if you want to continue with this browser, select "Yes"
- If asked about Google cookies/tracking, click "Accept" or "I agree"

DETECTING SUCCESS OR FAILURE:
- SUCCESS: You've reached a Google account page or dashboard
- FAILURE TYPES:
  - WRONG_PASSWORD: The password is incorrect
  - EMAIL_NOT_FOUND: The email doesn't have an account
  - SUSPICIOUS_ACTIVITY: Google detected unusual activity
  - VERIFICATION_REQUIRED: Google needs additional verification
  - TWO_FACTOR_REQUIRED: 2FA is enabled on this account

Report clearly if login succeeded or exactly which type of failure occurred.
`

// BuildAuthInstruction renders the instruction payload for one login job.
func BuildAuthInstruction(req AuthRequest) string {
	delayMin := req.Options.HumanDelayMin
	delayMax := req.Options.HumanDelayMax
	if delayMin <= 0 {
		delayMin = 1
	}
	if delayMax < delayMin {
		delayMax = delayMin + 2
	}
	return fmt.Sprintf(authInstruction, req.URL, delayMin, delayMax, req.Email, req.Password)
}

// validateInstruction is the lightweight check job used to revalidate a
// stored session.
const validateInstruction = "Navigate to https://myaccount.google.com/ and check if you're still logged in"
