package kernel

import "github.com/roach88/fakekernel/internal/abi"

// MemoryLayout is the process memory map reported by memop.
// Break moves with brk/sbrk and must stay within [MemoryStart, GrantStart].
type MemoryLayout struct {
	MemoryStart  uint32
	MemoryEnd    uint32
	FlashStart   uint32
	FlashEnd     uint32
	GrantStart   uint32
	Break        uint32
	FlashRegions uint32
}

// DefaultMemoryLayout is a 64 KiB RAM / 256 KiB flash process.
func DefaultMemoryLayout() MemoryLayout {
	return MemoryLayout{
		MemoryStart: 0x2000_0000,
		MemoryEnd:   0x2001_0000,
		FlashStart:  0x0004_0000,
		FlashEnd:    0x0008_0000,
		GrantStart:  0x2000_F000,
		Break:       0x2000_4000,
	}
}

// memop answers a memory operation from the layout, moving the break for
// brk and sbrk.
func (m *MemoryLayout) memop(op abi.MemopOp, arg uint32) abi.CommandReturn {
	switch op {
	case abi.MemopBrk:
		if arg < m.MemoryStart || arg > m.GrantStart {
			return abi.ReturnFailure(abi.ErrNoMem)
		}
		m.Break = arg
		return abi.ReturnSuccess()
	case abi.MemopSbrk:
		// The increment is a signed register value.
		next := int64(m.Break) + int64(int32(arg))
		if next < int64(m.MemoryStart) || next > int64(m.GrantStart) {
			return abi.ReturnFailure(abi.ErrNoMem)
		}
		prev := m.Break
		m.Break = uint32(next)
		return abi.ReturnSuccessU32(prev)
	case abi.MemopMemoryStart:
		return abi.ReturnSuccessU32(m.MemoryStart)
	case abi.MemopMemoryEnd:
		return abi.ReturnSuccessU32(m.MemoryEnd)
	case abi.MemopFlashStart:
		return abi.ReturnSuccessU32(m.FlashStart)
	case abi.MemopFlashEnd:
		return abi.ReturnSuccessU32(m.FlashEnd)
	case abi.MemopGrantStart:
		return abi.ReturnSuccessU32(m.GrantStart)
	case abi.MemopFlashRegions:
		return abi.ReturnSuccessU32(m.FlashRegions)
	case abi.MemopDebugStackStart, abi.MemopDebugHeapStart:
		return abi.ReturnSuccess()
	default:
		return abi.ReturnFailure(abi.ErrNoSupport)
	}
}
