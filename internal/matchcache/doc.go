// Package matchcache persists accepted provider matches per album and source.
//
// Each row stores the serialized provider record, the match distance (NULL
// when no distance was computed), and a creation timestamp. Entries expire
// after a configurable TTL and are evicted lazily during reads; there is no
// background sweep. Write-back replaces an album's entire row set in one
// transaction so stale rows from sources dropped since the last run can
// never survive.
package matchcache
