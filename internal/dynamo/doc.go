// Package dynamo provides the core primitives shared by the carbon-cycle
// solver, the ocean engine and the orchestration core.
//
// The package defines:
//
//   - [State]: an ordered pool vector (one scalar per named pool)
//   - [Outcome]: the result of a derivative evaluation (success or a
//     request to retry with a smaller step)
//   - the error taxonomy used throughout the simulator, see [Classify]
//
// # Error classes
//
// Configuration faults (unknown names, malformed values, registry mutation
// after initialization) and integration faults (retry exhaustion, chemistry
// non-convergence) are fatal and always returned to the caller:
//
//	if err := c.Run(2100); err != nil {
//	    switch dynamo.Classify(err) {
//	    case dynamo.ClassConfig:
//	        // bad input
//	    case dynamo.ClassIntegration:
//	        // numerical failure
//	    }
//	}
package dynamo
