// Package auth implements the token lifecycle for a user service: account
// registration, credential verification, stateless JWT issuance and
// validation, and deny-list revocation so logout actually cuts a token's
// validity short.
//
// Token lifecycle:
//   - Tokens are HS256 JWTs minted with a process-wide signing key that is
//     injected at startup. Validity is decided by signature plus expiry,
//     never by a database row, except for the revocation ledger below.
//   - A token moves Issued -> Active -> {Expired | Revoked}. Both terminal
//     states fail validation; there is no way back to Active.
//
// Revocation:
//   - RevocationLedger records the jti of tokens invalidated by logout,
//     together with their natural expiry so entries can be pruned once the
//     codec would reject the token anyway. Absence of an entry means "not
//     known to be revoked", not "valid".
//
// Capability seams:
//   - Users (credential store), PasswordAuthenticator (bcrypt),
//     NotificationPublisher (Kafka welcome email), and RevocationLedger
//     each ship one production implementation and one in-memory double so
//     SessionManager tests run without storage, brokers, or bcrypt cost.
package auth
