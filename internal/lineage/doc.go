// Package lineage derives content-addressed record identities.
//
// Every record ID is a SHA-256 over domain-separated, canonical inputs:
//
//	sigil/parents/v1 hashes the sorted parent-ID list into a lineage root
//	sigil/record/v1  hashes the lineage root, run marker, and output key
//
// Identical logical inputs always produce the identical identifier, which is
// what makes re-emission after a retried or re-run worker safe and idempotent.
//
// Key design constraints:
//   - Parent order never matters; the list is sorted before hashing
//   - Run marker and output key are NFC-normalized at the hashing boundary,
//     so visually identical Unicode inputs collapse to one identity
//   - Domain prefixes are versioned; changing any input rule requires a new
//     domain string, never a silent change to an existing one
//
// lineage imports only digest; everything that mints or checks record IDs
// imports lineage.
package lineage
