// Package library implements the filesystem-backed local library store.
//
// Metadata records are JSON files laid out as <data>/<kind>/<source>/<id>.json,
// partitioned by source namespace. Raw audio lives under <data>/audio/<source>.
// Missing records are a normal nil result; write failures always propagate.
package library
