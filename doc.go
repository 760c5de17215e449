// Package hebidemo drives servo actuators through a small lookup/group
// device API: one demo steps an actuator through discrete positions, the
// other runs a timed open-loop trajectory and plots what it recorded.
//
// # Installation
//
//	go install github.com/gwillem/hebidemo/cmd/hebidemo@latest
//
// # Usage
//
// List the actuators visible on the configured backend:
//
//	hebidemo lookup
//
// Step actuator 5.1 through 16 positions, one per second:
//
//	hebidemo step --tui
//
// Run the 5 second trajectory on actuator 3.2, save a plot and the samples:
//
//	hebidemo trajectory --png run.png --db runs.sqlite
//	hebidemo replay --db runs.sqlite --list
//
// Settings are read from hebidemo.yaml when present. The default backend is
// a simulator; set backend to stsbus to drive Feetech STS servos on USB
// serial adapters.
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/hebidemo: CLI with lookup, step, trajectory and replay commands
//   - pkg/hebi: Device API, binding and typed errors
//   - pkg/hebi/sim: Simulated actuators
//   - pkg/hebi/stsbus: Feetech STS serial backend
//   - pkg/demo: Stepper and trajectory control loops
//   - pkg/recorder: Fixed-capacity sample series
//   - pkg/plot: PNG and terminal plots
//   - pkg/runlog: SQLite run log and CSV export
//   - pkg/config: YAML configuration
//   - pkg/logging: zap logger construction
package hebidemo
