// Package turbofan sizes a turbofan aircraft and its engine for minimum fuel burn over a
// discretised mission.
//
// A Mission is a sequence of Segments (climb, cruise, cruise climb) whose local flight states are
// tied to one mission wide FlightState by LinkStates. The whole mission is a signomial program
// solved with gp.LocalSolve; RunSweep solves it over the cartesian product of swept constants.
package turbofan
