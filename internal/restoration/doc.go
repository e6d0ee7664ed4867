// Package restoration confirms that previously deleted records exist again.
// The check compares presence only; the verify pass additionally compares the
// identity fields of each restored record against the values captured in the
// original deletion report.
package restoration
