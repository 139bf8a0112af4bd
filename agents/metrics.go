package agents

import "time"

// Metrics records LLM call outcomes per agent role. A nil Metrics skips
// recording.
type Metrics interface {
	RecordLLMRequest(provider, role, status string, duration time.Duration)
}

func recordLLMCall(m Metrics, provider, role string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.RecordLLMRequest(provider, role, status, elapsed)
}
