// Package agents implements the three LLM collaborators of the chat loop:
// the planner, the evaluator, and the synthesizer. Each is a thin adapter
// around one LLM round-trip with JSON-contract validation; none of them
// contains loop logic.
package agents
