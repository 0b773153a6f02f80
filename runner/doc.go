// Package runner implements the agent execution orchestrator.
//
// The Runner drives many marketplace agents to completion with bounded
// concurrency. It is deliberately unaware of protocol semantics: an Agent is
// just a sequential step loop, and the Runner's only guarantees are the
// scheduling ones.
//
// # Guarantees
//   - At most Concurrency agents are mid-step simultaneously (a counting
//     semaphore is held per step, not per agent)
//   - One agent's steps are strictly sequential relative to itself
//   - Steps of different agents interleave arbitrarily
//   - A single agent's failure is recorded against that agent only and never
//     cancels sibling agents or the run
//   - Termination is an explicit end signal, a spent step budget
//     (forced_stop), or a step error (errored)
//
// Rationale: LLM-backed decisions have unpredictable, high latency. Bounding
// concurrency caps outstanding external calls while keeping throughput high,
// and the step-count budget (rather than a wall-clock timeout) means a slow
// decision delays only its own agent.
package runner
