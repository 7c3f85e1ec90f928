// Package automation models the structured automation configuration document.
//
// A document describes one automation rule for the home-automation runtime:
// a trigger list, an optional condition list, an action sequence, and
// rule-level execution settings (mode, max concurrency, overflow policy).
// The action sequence supports nested logical condition groups, multi-branch
// choose blocks, delays, wait steps, variable assignment, and repeat loops.
//
// # Canonical keys
//
// The runtime accepts both legacy and modern spellings for several fields
// (singular section keys, "platform" for trigger platforms, "service" for
// service calls). This package always works with the modern canonical form:
// [Normalize] rewrites a raw decoded document in place and reports each
// rewrite as a warning. Legacy keys are never re-emitted.
//
// # Fidelity
//
// Payload fields that this package does not interpret are carried verbatim
// in Options maps. Scalar versus list values (for example a trigger-type
// condition's id field) survive a decode/encode cycle without coercion.
package automation
