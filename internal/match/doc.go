// Package match drives one two-player match through its turn phases.
//
// The Orchestrator owns every timer of a match, the single active capture
// session, the two final transcripts and the judging run. All timed behavior
// goes through a schedule.Scheduler so tests can step the match on a manual
// clock.
package match
