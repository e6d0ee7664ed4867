// Package safety gates destructive operations behind exact-phrase
// confirmation prompts, a live-mode countdown, and a production-environment
// check. Dry-run mode passes every gate without prompting.
package safety
