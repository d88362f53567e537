// Package document maps between the scenario graph and the flat wire
// document exchanged with the scenario store.
//
// The wire format carries steps and, per step, an ordered list of
// {text, next} choices. Slot assignment is an editing affordance that never
// travels: FromDocument re-derives slots from list order (index mod 4), so a
// round trip reproduces a valid port layout, not necessarily the one the
// author drew. Because every input port holds one choice, a document with
// more than four choices into the same step (a shared ending reached from
// five places, say) cannot be loaded and is refused with
// domain.ErrInputPortOccupied. Stored labels are trimmed on load, the same
// way the editor trims typed labels.
//
// Drafts (ToDraft, FromDraft) keep what the wire format drops: positions,
// slots and validation errors.
//
// The package also projects store validation payloads back onto steps
// (ParseServerErrors, Apply) and mirrors the store's own checks locally
// (Validate) so stores without server-side logic can reject documents the
// same way.
package document
