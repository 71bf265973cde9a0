// Package clock provides Scheduler implementations.
//
// Real wraps the wall clock and time.AfterFunc. Manual is a test clock
// whose callbacks run only when Advance moves time past their deadline.
package clock
