/*
Package session serializes edits on live editing sessions.

A session owns exactly one value, the current Tree snapshot. The Manager
holds a reference-counted local mutex per session (and optionally a
distributed lock) around each read-modify-swap, so every edit reads the latest
snapshot and the next one replaces it atomically. Snapshots are immutable, so
plain reads never need to coordinate with writers beyond the store itself.
*/
package session
