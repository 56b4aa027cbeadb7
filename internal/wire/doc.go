// Package wire converts tree snapshots to and from the adjacency format
// exchanged with the analysis service, and projects the service's answer
// into a display model.
package wire
