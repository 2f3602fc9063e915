// Package password implements one-way password hashing and verification.
//
// # Output format
//
// [Argon2] hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Bcrypt] hashes use the modular crypt format ($2a$, $2b$, $2y$). [Multi] hashes with
// a primary scheme and still verifies hashes produced by legacy schemes, reporting them
// through NeedsUpgrade so the caller can re-hash on the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (minimum length,
// character classes) is enforced by the Engine at signup.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other authcore package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
