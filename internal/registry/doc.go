// Package registry holds the two pieces of shared mutable lobby state: the
// connected players and the game rooms.
//
// Each registry guards its map with its own mutex, held only for the
// in-memory map operation. Nothing that can block on a peer (writes, closes)
// ever runs while a registry lock is held. Both registries hand out copies of
// their records so callers never race with later mutations.
package registry
