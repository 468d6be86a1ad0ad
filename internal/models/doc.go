// Package models defines the unified entity model shared by every source.
//
// All entities are identified by an (ID, Source) pair, which is the sole
// identity key across sources. Simple variants (SimpleArtist, SimpleAlbum)
// carry only what list views need; detailed variants (Artist, Album) are
// fetched on demand and never persisted long-term.
package models
