// Package gp is a small geometric and signomial programming layer.
//
// Models are declared with named variables (Scope.Var, Scope.Vector), monomials and posynomials
// built from them, and constraints between two posynomials (Leq, Geq, Eq). A constraint whose
// "large" side has more than one term is signomial; it is handled by LocalSolve, which replaces the
// offending posynomials by their local monomial approximation and re-solves until the cost
// settles. Every compiled program is a geometric program in log space and is handed to a Backend;
// BarrierSolver is the reference backend.
//
// Constants are variables fixed through Substitutions. A substitution value is either Fixed or
// Swept; a swept value expands into one program per value.
package gp
