// Package scenario runs driver tests described in YAML against the fake
// kernel.
//
// A scenario names a driver, lists the system calls the driver is expected
// to make (with optional return overrides), and then drives the test through
// steps: calls into the driver and simulated external events. The runner
// turns every protocol violation into a failed Result carrying the kernel
// trace, so scenarios can be checked in bulk, persisted and compared
// against golden traces.
//
// # Scenario Format
//
//	name: button_press
//	description: enable button 0 and observe a press
//	driver: buttons
//	expect:
//	  - command: {driver_id: 3, command_id: 0, return: {success_u32: 2}}
//	  - subscribe: {driver_id: 3, subscribe_id: 0}
//	  - command: {driver_id: 3, command_id: 1, argument0: 0}
//	  - yield_wait: {}
//	steps:
//	  - call: open
//	  - call: enable
//	    button: 0
//	  - ready: {driver_id: 3, subscribe_id: 0, args: [0, 1, 0]}
//	  - call: wait
//	    want: {button: 0, state: pressed}
//
// Expectation entries with no fields are written as an empty mapping
// ("yield_wait: {}").
package scenario
