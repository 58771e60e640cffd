// Package run models the upstream agent run as a closed set of events and
// a pull-based source that yields them one at a time.
//
// A run is expected to produce RunStarted, then any number of Content and
// ContentCompleted events, then RunCompleted. Anything else decodes to
// [Unknown] so that the consumer can reject it.
package run
