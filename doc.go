// Package phasor implements an archetype-based Entity-Component-System
// framework for simulation and game-like applications.
//
// Features:
// - Archetype-partitioned component storage with type-erased columns.
// - Component traits (marker, identical-layout, grouped) matched by queries.
// - Queries with include/exclude filters, trait matching, and grouping.
// - Named schedules ordered by a DAG of before/after constraints.
// - Systems whose parameters declare the world views they need.
// - Deferred command buffers for structural mutations inside systems.
// - Bounded MPMC channels and broadcast channels backing events and sub-apps.
// - Sub-applications running isolated worlds on their own goroutines.
package phasor
