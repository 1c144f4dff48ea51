// Package auth provides identity and session management: argon2id password
// hashing, HS256 bearer tokens bound to server side sessions, bun backed
// user, profile and session repositories, and a Provisioner that ties them
// together.
//
// Identity lifecycle:
//   - Register creates the user, its profile and a first session in one
//     transaction. The username unique index is the source of truth; the
//     existence check before hashing only saves work.
//   - Login fails the same way for unknown users and wrong passwords and can
//     be throttled with a RateLimiter.
//
// Sessions:
//   - A token is only as good as the session row it points at. Logout deletes
//     the row, so a signed token outliving its session no longer
//     authenticates. Expired rows are removed lazily on lookup and in bulk by
//     the Sweeper.
//   - ValidateSession never fails a request for a bad token, it yields an
//     anonymous (nil) principal. See middleware/sessionware for the fiber
//     gateway built on it.
//
// Activity sinks:
//   - ActivitySink is a best effort audit emitter. Errors are logged and never
//     surface to callers, so sinks may forward to metrics or a queue.
package auth
