// Package core defines the shared vocabulary of the marketplace simulation:
// agent profiles, the typed message envelope exchanged between agents, the
// immutable Action record, and the collaborator interfaces (ActionLog,
// Decider) every other package builds on.
//
// Nothing in core mutates state after construction. The one shared mutable
// resource of the whole system, the append-only action log, is reached only
// through the ActionLog interface so storage technology stays swappable.
package core
