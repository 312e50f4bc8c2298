// Package reservation implements exclusive-until-commit-or-release claims
// on uniqueness keys.
//
// A Table maps keys to at most one live claim or committed entry. Reserve
// hands the caller a Claim that must end in exactly one of Commit or
// Release; a second Reserve on the same key fails with a ConflictError
// until the holder releases, commits then is forgotten, or the claim's
// TTL lapses. The dedup index (content fingerprints) and the tape-number
// registry are two independent Tables, so the two uniqueness domains can
// never deadlock each other.
//
// Tables are purely in-process; committed state is reloaded from the
// catalog at startup and the catalog's partial unique indexes back the
// same invariants at the SQL layer.
package reservation
