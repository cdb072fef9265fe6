// Package emit builds and appends completion receipts and cross-category
// work requests.
//
// Both operations follow the same shape: validate inputs, resolve the
// emitting category's lane, enforce the operation's precondition, then
// derive the record ID and append. Receipts require a matching dispatch
// record already in the log; requests require the source->target pair in
// the source lane's allow-list. Preconditions run before any log mutation,
// so a refused emission leaves the log byte-identical.
//
// Emission is idempotent: if the derived ID is already present, the call
// succeeds without appending. Wall-clock timestamps and correlation IDs
// are minted only after the duplicate check, so retries of the same
// logical emission converge on one record.
package emit
