package gp

import (
	"errors"
	"fmt"
)

var (
	// ErrInfeasible is returned when no point satisfies every constraint.
	ErrInfeasible = errors.New("gp: infeasible")
	// ErrUnbounded is returned when the cost decreases without bound.
	ErrUnbounded = errors.New("gp: unbounded")
	// ErrNotConverged is returned when the signomial loop exhausts its iteration budget, or when
	// the backend stalls before reaching the optimum.
	ErrNotConverged = errors.New("gp: not converged")
	// ErrInvalidModel is returned for models which cannot be compiled.
	ErrInvalidModel = errors.New("gp: invalid model")
	// ErrUnknownVariable is returned by solution lookups of names not in the model.
	ErrUnknownVariable = errors.New("gp: unknown variable")
	// ErrAmbiguous is returned by solution lookups of bare names shared by several variables.
	ErrAmbiguous = errors.New("gp: ambiguous variable name")
)

// ConvergenceError reports a signomial loop which did not settle. It matches ErrNotConverged.
type ConvergenceError struct {
	Iterations int
	Change     float64 // relative cost change of the last iteration
	Tol        float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("gp: not converged after %d iterations (relative change %.3g > %.3g)", e.Iterations, e.Change, e.Tol)
}

// Is allows errors.Is(err, ErrNotConverged).
func (e *ConvergenceError) Is(target error) bool {
	return target == ErrNotConverged
}
