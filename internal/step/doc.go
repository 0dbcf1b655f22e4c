// Package step defines the pipeline's step catalog and dependency graph.
//
// A [Step] is one opaque external command with declared input and output
// artifacts. The [Registry] holds the ordered catalog plus the
// prerequisite graph and answers [Registry.Lookup] and
// [Registry.Prerequisites] queries. Everything here is immutable,
// process-wide read-only state; execution and completion tracking live
// in the runner, pipeline, and state packages.
//
// [DefaultRegistry] returns the built-in GROMACS protein-ligand
// workflow: nine steps from topology generation through production MD,
// each depending on the step before it.
package step
