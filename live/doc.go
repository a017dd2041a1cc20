// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package live pushes session events (new messages, floor changes,
// phase changes, slot resolution) to websocket subscribers. The feed
// is best-effort: clients that fall behind are dropped, and anything
// missed can be re-read from the API. A nil *Hub is a valid no-op
// publisher, so handlers never need to check whether the feed is
// enabled.
package live
