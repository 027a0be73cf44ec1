// Package simulation produces result reports in the memory simulator's output
// format, so validation runs can be exercised without the simulator.
//
// Report builders emit the same lines the simulator prints (allocation
// events, memory statistics, per-level cache statistics, address
// translations). A Scenario bundles one report per artifact name and writes
// them into a results directory.
//
// Usage:
//
//	func TestPartialTier(t *testing.T) {
//	    dir := t.TempDir()
//	    sc := simulation.DefaultScenario().Without(constants.LRUArtifact)
//	    if err := sc.WriteTo(dir); err != nil {
//	        t.Fatal(err)
//	    }
//	    // validate dir ...
//	}
package simulation
