// Package agent contains the marketplace step agents: customers that search
// for and settle purchases, and businesses that field inquiries and send
// order proposals.
//
// Both roles share the same execution shape, a think → act → observe cycle
// per step: ask the Decider for a structured decision, execute it against
// the marketplace protocol, and fold the observed results (new mail, send
// rejections) into the state handed to the next decision. What differs
// between roles is only the profile carried in that state.
//
// Decision content is fully behind core.Decider, so deterministic deciders
// plug in for tests without touching the protocol.
package agent
