// Package discovery resolves the region hierarchy and searches records by
// pattern. The upstream API offers no server-side joins, so every level is a
// full-collection fetch filtered client-side by foreign key; the cost is
// O(total objects in the org) per walk, a documented ceiling of the API.
package discovery
