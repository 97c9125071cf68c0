// Package planner asks a language model to propose an organization plan for
// a set of indexed files. The model only ever plans; validation and execution
// stay entirely on this side of the wire.
package planner
