// Package schedule provides the clock and delayed-task primitives that drive
// match phase transitions.
//
// Real wraps time.AfterFunc. Manual is a logical clock for tests: tasks run
// only when Advance moves the clock past their due time, in due order, on the
// goroutine that calls Advance.
package schedule
