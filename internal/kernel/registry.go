package kernel

import (
	"github.com/eapache/queue"

	"github.com/roach88/fakekernel/internal/abi"
)

// slotKey identifies one subscribe slot of one driver.
type slotKey struct {
	driverID    uint32
	subscribeID uint32
}

type subscription struct {
	upcall   abi.UpcallFunc
	userdata uintptr
}

// PendingUpcall is an upcall that has been marked ready and waits for a
// yield to deliver it. The target is captured when the upcall becomes ready.
type PendingUpcall struct {
	DriverID    uint32
	SubscribeID uint32
	Args        [3]uint32
	Upcall      abi.UpcallFunc
	Userdata    uintptr
}

// registry tracks subscriptions and the FIFO of ready upcalls.
type registry struct {
	subs  map[slotKey]subscription
	ready *queue.Queue // of PendingUpcall, oldest-ready first
}

func newRegistry() *registry {
	return &registry{
		subs:  make(map[slotKey]subscription),
		ready: queue.New(),
	}
}

// subscribe installs upcall on the slot, replacing any previous one.
// Ready entries captured for the old target are dropped and their count
// returned; a replaced callback is never invoked afterwards.
func (r *registry) subscribe(key slotKey, upcall abi.UpcallFunc, userdata uintptr) int {
	if upcall == nil {
		return r.unsubscribe(key)
	}
	dropped := 0
	if _, ok := r.subs[key]; ok {
		dropped = r.dropSlot(key)
	}
	r.subs[key] = subscription{upcall: upcall, userdata: userdata}
	return dropped
}

// unsubscribe clears the slot and drops its ready entries.
func (r *registry) unsubscribe(key slotKey) int {
	delete(r.subs, key)
	return r.dropSlot(key)
}

func (r *registry) subscribed(key slotKey) bool {
	_, ok := r.subs[key]
	return ok
}

// markReady queues an upcall for the slot's current target.
// Returns false if the slot has no subscription.
func (r *registry) markReady(key slotKey, args [3]uint32) bool {
	sub, ok := r.subs[key]
	if !ok {
		return false
	}
	r.ready.Add(PendingUpcall{
		DriverID:    key.driverID,
		SubscribeID: key.subscribeID,
		Args:        args,
		Upcall:      sub.upcall,
		Userdata:    sub.userdata,
	})
	return true
}

// popReady removes the oldest ready upcall.
func (r *registry) popReady() (PendingUpcall, bool) {
	if r.ready.Length() == 0 {
		return PendingUpcall{}, false
	}
	return r.ready.Remove().(PendingUpcall), true
}

func (r *registry) pending() int {
	return r.ready.Length()
}

// dropSlot removes every ready entry for key, preserving the order of the rest.
func (r *registry) dropSlot(key slotKey) int {
	n := r.ready.Length()
	if n == 0 {
		return 0
	}
	kept := queue.New()
	dropped := 0
	for i := 0; i < n; i++ {
		p := r.ready.Get(i).(PendingUpcall)
		if p.DriverID == key.driverID && p.SubscribeID == key.subscribeID {
			dropped++
			continue
		}
		kept.Add(p)
	}
	r.ready = kept
	return dropped
}
