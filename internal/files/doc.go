// Package files provides recording discovery and destination
// bookkeeping for batch conversion.
//
// This package contains two main components:
//
// Discovery: Finds recording files in a directory by glob pattern and
// filters them through the filename tag convention, reporting files
// that match the pattern but not the convention so batch runs can
// surface them instead of silently ignoring them.
//
// Manager: Derives container destinations for discovered recordings,
// checks for existing destinations, and partitions a discovery result
// into pending and already-converted sets.
//
// Example usage:
//
//	discovery := files.NewDiscovery("/data")
//	recordings, unrecognized, err := discovery.FindRecordingFiles("sessions", "*.json")
//
//	manager := files.NewManager(logger)
//	pending, existing := manager.Partition(recordings, outDir, force)
package files
