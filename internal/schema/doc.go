// Package schema provides the wire types and canonical serialization for
// Willow scenario records.
//
// This package contains type definitions and pure serialization helpers only.
// All other internal packages import schema; schema imports nothing internal.
// This ensures the record model remains the foundational layer with no
// circular dependencies.
//
// Key design constraints:
//   - All JSON tags use snake_case and are part of the wire contract
//   - Canonical JSON (RFC 8785 subset) is the ONLY serialization used for
//     content-addressed identity
//   - Timestamps travel as ISO-8601 strings on the wire and are parsed at
//     the validation boundary
package schema
