// Package contentnode holds the in-memory projection of a channel's content
// nodes and their tree positions.
//
// A [Module] owns three pieces of state: content node records by id, tree
// nodes by id, and the set of node ids expanded in the editor. The expanded
// set is restored from session storage when the module is built and written
// back whenever it changes.
//
// State changes only through mutations. Mutations are synchronous and each
// runs atomically under the module's lock. They are addressed by name so a
// change-feed subscriber can route change records to them through
// [Listeners]:
//
//	router.Register("contentNode", contentnode.Listeners, module)
//
// Actions ([Module.CreateContentNode], [Module.MoveContentNode], ...) write
// through a [Backend] first and commit the matching mutations once the write
// succeeded. The change feed later delivers the same changes again; applying
// them twice leaves the state unchanged.
package contentnode
