// Package resilience composes the fetch policy applied around raw page and
// resource fetches.
//
// The composition order is a contract: the response cache is outermost, the
// retry loop sits inside it, and the pacing delay is innermost. A cache hit
// therefore never pays the delay, while every real attempt (including each
// retry) is preceded by it.
package resilience
