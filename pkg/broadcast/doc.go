// Package broadcast provides type-safe one-to-many message delivery.
//
// MemoryBroadcaster fans each message out to every registered subscriber
// without blocking: a subscriber whose buffer is full misses that message and
// Broadcast reports it with *DroppedError so the caller can log it.
//
//	b := broadcast.NewMemoryBroadcaster[backend.ChangeEvent](32)
//	defer b.Close()
//
//	sub := b.Subscribe(ctx)
//	defer sub.Close()
//
//	_ = b.Broadcast(ctx, broadcast.Message[backend.ChangeEvent]{Data: ev})
//
//	for msg := range sub.Receive(ctx) {
//	    handle(msg.Data)
//	}
//
// A subscriber is detached when it is closed, when the context passed to
// Subscribe is cancelled, or when the broadcaster is closed. In every case
// its channel is closed so range loops terminate.
package broadcast
