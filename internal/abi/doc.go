// Package abi defines the system call surface shared by drivers and kernels.
//
// Drivers are written against the Syscalls interface. In production that
// interface is backed by real trap instructions; in tests it is backed by
// kernel.Kernel, which validates every call against a queue of expectations.
//
// Return values are plain value types. A CommandReturn carries a variant
// discriminant plus up to three 32-bit registers of payload, mirroring the
// register layout a real kernel hands back to userspace:
//
//	ret := sys.Command(3, 0, 0, 0)
//	if n, ok := ret.U32(); ok {
//	    // driver reports n buttons
//	}
//	if code, ok := ret.Err(); ok {
//	    // kernel returned an error code
//	}
//
// The values are immutable once produced. CommandReturn, SubscribeReturn and
// YieldReturn compare with ==; AllowReturn carries a buffer and does not.
package abi
