package kernel

import "github.com/roach88/fakekernel/internal/abi"

// Driver is a fake capsule that answers commands when no override is
// given. A fake driver can call back into the kernel, e.g. to mark an
// upcall ready from inside a command.
type Driver interface {
	ID() uint32
	Command(k *Kernel, commandID, arg0, arg1 uint32) abi.CommandReturn
}

// DriverFunc adapts a function to the Driver interface.
type DriverFunc struct {
	DriverID uint32
	Func     func(k *Kernel, commandID, arg0, arg1 uint32) abi.CommandReturn
}

func (d DriverFunc) ID() uint32 { return d.DriverID }

// Command calls d.Func.
func (d DriverFunc) Command(k *Kernel, commandID, arg0, arg1 uint32) abi.CommandReturn {
	return d.Func(k, commandID, arg0, arg1)
}
