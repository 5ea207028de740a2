// Package snapshot persists the state of tracked objects.
//
// A Store saves and loads named snapshots (maps of field values encoded
// as JSON). FileStore keeps them in a local directory; S3Store keeps
// them in an S3 bucket.
//
// Autosave attaches a reaction that saves the object after every write
// to one of its fields. Restore writes a loaded snapshot back through
// Set, so subscribers see the restored values.
package snapshot
