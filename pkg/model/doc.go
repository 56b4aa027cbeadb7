/*
Package model implements the edit operations of the tree editor.

Every operation takes a Tree snapshot and returns either a new snapshot or the
same snapshot together with a *domain.RejectionError naming the broken rule.
Snapshots are never modified, so a caller holding an older Tree keeps a valid
view of it. The package performs no I/O and no logging.
*/
package model
