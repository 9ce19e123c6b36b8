package supervisor

import "time"

const (
	// heartbeatInterval drives DA/CPR query responses, no-EOL pattern
	// rechecks, and the pending-Enter scheduler.
	heartbeatInterval = 50 * time.Millisecond

	// pollInterval drives PTY output draining, child-exit detection, and
	// the idle-timeout check.
	pollInterval = 10 * time.Millisecond

	// forceReadyTimeout forces stdin_ready (and stdin_first_ready) true if
	// no ready pattern has matched by this point, so a misconfigured or
	// unrecognized assistant doesn't block forever.
	forceReadyTimeout = 10 * time.Second

	// enterIdleWait is how long output must be quiet before the
	// supervisor sends the synthesized Enter for a detected "enter"
	// pattern. Deliberately short: assistants redraw cursor-control
	// sequences tens of times a second, and a longer wait here was found
	// to misread that redraw traffic as "still busy".
	enterIdleWait = 50 * time.Millisecond

	// enterRetry1 and enterRetry2 resend Enter if no output arrived after
	// the previous send; after the second retry the supervisor gives up
	// and waits for the next independent enter-pattern match instead.
	enterRetry1 = 500 * time.Millisecond
	enterRetry2 = 1500 * time.Millisecond

	// maxBufferBytes bounds the raw/rendered buffers; once exceeded, the
	// older half is discarded to bound memory on long sessions.
	maxBufferBytes    = 100000
	truncateKeepBytes = 50000

	stdinReadChunk = 1024
)
