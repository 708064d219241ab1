// Package kanban implements the domain core of the kanban board service:
// user accounts with a flat role set, boards and tasks guarded by an
// owner/member authorization policy, signed session tokens, and the
// single-use secondary tokens used for account activation and password
// resets.
//
// Session tokens:
//   - TokenService issues and validates HMAC signed JWTs. Claims embedded in
//     a token (displayname, email, language, roles) are advisory; building an
//     authenticated principal always re-reads the user record by username, so
//     a role revoked server-side takes effect on the next request.
//
// Authorization:
//   - Policy is the single predicate set consulted before every sensitive
//     operation. RoleAdmin bypasses ownership and membership checks
//     everywhere; everyone else needs the exact relationship the operation
//     demands.
//
// Secondary tokens:
//   - Activation and password-reset tokens are random 130-bit values with an
//     expiry. Requesting a new one silently replaces the old one; verifying
//     an expired one clears it server-side so a dead token cannot be retried.
package kanban
