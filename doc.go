// Package cardcache is a session-scoped read cache for a remote Card Service with
// optimistic mutations.
//
// Several independently keyed views of the same cards (the unfiltered list, a
// searched page, an owner's list, a single card) live side by side in one Store.
// A like, delete or edit is applied to every one of them at once, before the
// server has answered, and is rolled back as a whole if the server refuses it.
// Either way the touched views are marked stale and converge on server state at
// their next read.
//
// Components:
//   - Store: key -> Entry map. Entries are *FlatList, *Page or *Detail; a key never
//     changes shape. Subscribers of a key are notified on every write.
//   - Loader: read path. Fresh hit, stale-while-revalidate, or fetch on miss.
//     Results commit only if the key's generation did not move while fetching.
//   - Patch functions: pure, shape-aware, pointer-preserving when nothing changes.
//   - Coordinator: cancel, snapshot, patch, call, then mark stale or roll back.
//
// Usage:
//
//	c, _ := cardcache.New(cardcache.Options{Service: client})
//	page, _ := c.Read(ctx, cardcache.PagedKey(cardcache.PageParams{Page: 1, PageSize: 12}))
//	m, _ := c.Dispatch(ctx, cardcache.LikeIntent("card-1")) // every view already shows it
//	err := m.Wait(ctx)                                       // *MutationRejected on failure
package cardcache
