// Package progress collects advisory telemetry from an agent's intermediate
// output. The tracker never decides a task's terminal outcome; that is the
// classifier's job, applied to the final text only.
package progress

import (
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const progressMarker = "PROGRESS:"

var (
	errorPhrases = []string{"error", "failed", "couldn't", "unable to", "not found"}

	successPhrases = []string{
		"successfully logged in",
		"login successful",
		"logged in successfully",
		"reached google account",
	}
)

// Step is one "PROGRESS: Step N completed" marker observed in agent output.
type Step struct {
	Time    time.Time
	Message string
}

// Snapshot is a point-in-time copy of the tracker state.
type Snapshot struct {
	Steps          []Step
	PointsReached  map[string]time.Time
	Percent        int
	Warnings       []string
	SuccessSeen    bool
	SuccessMessage string
	ExecutionError string
}

// Tracker accumulates progress signals for a single job. It is safe for
// concurrent use; messages arrive while the main agent call is in flight.
type Tracker struct {
	mu sync.Mutex

	traceID        string
	steps          []Step
	pointsReached  map[string]time.Time
	percent        int
	warnings       []string
	successSeen    bool
	successMessage string
	executionError string
}

func NewTracker(traceID string) *Tracker {
	return &Tracker{
		traceID:       traceID,
		pointsReached: make(map[string]time.Time),
	}
}

// OnMessage inspects one intermediate output message for progress markers,
// error phrases and success indicators.
func (t *Tracker) OnMessage(message string) {
	lower := strings.ToLower(message)
	firstLine := message
	if i := strings.Index(message, "\n"); i >= 0 {
		firstLine = message[:i]
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, rest, ok := strings.Cut(message, progressMarker); ok {
		line := strings.TrimSpace(rest)
		if i := strings.Index(line, "\n"); i >= 0 {
			line = line[:i]
		}
		t.steps = append(t.steps, Step{Time: time.Now(), Message: line})
		log.Infof("[TRACE:%s] progress update: %s", t.traceID, line)
		if n, ok := parseStepNumber(line); ok {
			pct := n * 8
			if pct > 90 {
				pct = 90
			}
			t.percent = pct
			log.Infof("[TRACE:%s] progress: %d%%", t.traceID, pct)
		}
	}

	for _, p := range errorPhrases {
		if strings.Contains(lower, p) {
			t.warnings = append(t.warnings, firstLine)
			log.Warnf("[TRACE:%s] possible error in agent output: %s", t.traceID, firstLine)
			break
		}
	}

	for _, p := range successPhrases {
		if strings.Contains(lower, p) {
			t.successSeen = true
			t.successMessage = firstLine
			log.Infof("[TRACE:%s] success indicator detected in agent output", t.traceID)
			break
		}
	}
}

// parseStepNumber extracts N from "Step N completed - description".
func parseStepNumber(line string) (int, bool) {
	_, rest, ok := strings.Cut(line, "Step ")
	if !ok || !strings.Contains(rest, " completed") {
		return 0, false
	}
	num := rest
	if i := strings.Index(rest, " "); i >= 0 {
		num = rest[:i]
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return 0, false
	}
	return n, true
}

// MarkPoint records that a named checkpoint in the flow was reached.
func (t *Tracker) MarkPoint(name string) {
	t.mu.Lock()
	t.pointsReached[name] = time.Now()
	t.mu.Unlock()
}

// SetExecutionError records a fatal execution error for diagnostics.
func (t *Tracker) SetExecutionError(msg string) {
	t.mu.Lock()
	t.executionError = msg
	t.mu.Unlock()
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	points := make(map[string]time.Time, len(t.pointsReached))
	for k, v := range t.pointsReached {
		points[k] = v
	}
	return Snapshot{
		Steps:          append([]Step(nil), t.steps...),
		PointsReached:  points,
		Percent:        t.percent,
		Warnings:       append([]string(nil), t.warnings...),
		SuccessSeen:    t.successSeen,
		SuccessMessage: t.successMessage,
		ExecutionError: t.executionError,
	}
}
