// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package oracle is the HTTP client for the external consensus oracle,
// the service that turns a slot-ballot snapshot into a final verdict
// and produces moderator copy. The engine never second-guesses the
// oracle: a returned decision is applied as-is, and a failed call is
// surfaced to the caller for retry.
package oracle
