// Package pipeline sequences step execution: dependency gating, resume
// advisories, dispatch to the runner, and completion recording.
//
// # Dependency Gate
//
// [Controller.Gate] checks a step's prerequisites against the durable
// completion store. The gate is re-evaluated on every run request;
// prerequisite completion can change between requests when another
// session runs against the same working directory, so nothing is
// cached.
//
// # Running Steps
//
// [Controller.RunStep] performs the full sequence for one step: gate,
// resume warning (advisory, resolved by a caller-supplied confirmation),
// execution, and marking the step complete on exit code 0.
// [Controller.RunAll] iterates the catalog in declared order, skipping
// steps that are already complete and halting at the first failure.
// There is no automatic retry or rollback; partial external side
// effects are left where they fell.
//
// # Dry Preview
//
// [Controller.Preview] assembles everything a run would do (the
// command, declared outputs, gate verdict, and resume conflicts)
// without spawning a process or touching any file.
package pipeline
