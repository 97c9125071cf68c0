// Package organize turns an organization plan into safe filesystem moves.
// It validates and repairs plans, matches plan folders against existing
// directories, executes moves with conflict-free naming, flattens nested
// trees, and reaps directories left empty afterwards.
package organize
