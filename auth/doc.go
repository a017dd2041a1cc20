// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides authentication and token generation utilities.

# Admin Keys

Admin keys use HMAC-SHA256 to create deterministic, verifiable keys:

	adminKey := auth.GenerateAdminKey(sessionID, salt)
	err := auth.ValidateAdminKey(sessionID, adminKey, salt)

The key is URL-safe base64 encoded without padding. Since it's deterministic,
the same session ID and salt always produce the same key. This allows
validation without storing the key in the database.

# Member Tokens

Member tokens are random 24-byte (192-bit) secrets:

	token, err := auth.GenerateMemberToken()

Tokens are URL-safe base64 encoded and authenticate every member
operation. Each member gets a unique token when joining a session.

# Share Slugs

Share slugs create URL-friendly identifiers for sessions:

	slug := auth.GenerateShareSlug(sessionID, salt)

Slugs are base62 encoded (alphanumeric only) for easy sharing. Like admin
keys, they're deterministic from the session ID and salt.

# ID Generation

Random hex IDs for database records:

	id, err := auth.GenerateID(16)  // 32 hex characters
*/
package auth
