package record

// Cache is the minimal get/set contract a fetch adapter consults
// before going to the network.
//
// Get must distinguish three outcomes:
//   - hit=true, rec!=nil:  a previously fetched Record.
//   - hit=true, rec==nil:  a previously observed non-existent id (a
//     "null hit" — no network I/O should be attempted for it again).
//   - hit=false:           unknown id; the caller should fetch.
//
// Implementations never fail in a way callers must special-case:
// backend errors are returned as a plain error, which the caller
// treats as a CacheError and aborts the run (see traverse.CacheError).
//
// There is intentionally no TTL, invalidation, or batch operation.
// Implementations are free to add a TTL transparently.
type Cache interface {
	Get(id ID) (hit bool, rec *Record, err error)
	Set(id ID, rec *Record) error
}
