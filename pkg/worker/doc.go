// Package worker provides a generic bounded worker pool.
//
// A Pool runs a fixed number of goroutines draining a buffered work channel.
// Submit is non-blocking: when the queue is full the item is dropped and
// ErrQueueFull returned, leaving backpressure decisions to the caller. The
// extraction pipeline uses pools to bound intra-batch concurrency while the
// queue consumer keeps per-message acknowledgement.
//
//	pool := worker.NewPool(4, 64, processNotification)
//	pool.Start(ctx)
//	defer pool.Stop(5 * time.Second)
package worker
