// Package dependencies checks whether hierarchy records are blocked from
// deletion by child records one level below them.
package dependencies
