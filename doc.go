// Package accounts implements the account and session core: registration
// with email confirmation, credential login, stateless session tokens and
// owner initiated deletion.
//
// Account lifecycle:
//   - Accounts start unconfirmed. A confirmation token stored in Redis proves
//     email ownership; ConfirmEmail moves the account to confirmed exactly once.
//   - AccountStateMachine holds the transition graph (unconfirmed to confirmed,
//     either to deleted) and persists each step through the AccountDirectory.
//   - Emails are trimmed and lower cased before every store and lookup.
//
// Sessions:
//   - Session tokens are HS256 JWTs carrying a snapshot of the account. They
//     are not stored server side. Logout clears the cookie through the
//     CookieWriter supplied by the transport; it cannot revoke a token copied
//     elsewhere, which stays valid until it expires.
//
// Activity sinks:
//   - ActivitySink receives lifecycle and login events. Sinks run best effort
//     (errors are logged). Events never carry passwords, hashes or tokens.
package accounts
