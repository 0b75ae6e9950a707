// Package broadcast provides a generic in-process pub/sub.
//
// A MemoryBroadcaster fans each message out to every subscriber. Delivery is
// non-blocking: when a subscriber's buffer is full the message is dropped for
// that subscriber only, so a slow consumer never stalls the publisher.
//
//	b := broadcast.NewMemoryBroadcaster[string](16)
//	defer b.Close()
//
//	sub := b.Subscribe(ctx)
//	defer sub.Close()
//
//	go func() {
//		for msg := range sub.Receive(ctx) {
//			fmt.Println(msg.Data)
//		}
//	}()
//
//	_ = b.Broadcast(ctx, broadcast.Message[string]{Data: "hello"})
//
// Subscriptions end when their context is done, when Close is called on the
// subscriber, or when the broadcaster is closed. All types are safe for
// concurrent use.
package broadcast
