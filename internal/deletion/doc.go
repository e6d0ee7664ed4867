// Package deletion drives bulk and region deletions. Every run resolves its
// targets first, passes the safety gate (confirmation phrase, countdown,
// production check), then deletes record by record so one failure never
// aborts the batch. Dry-run is the default mode and performs no writes.
package deletion
