// Package bus implements the in-process typed publish/subscribe bus.
//
// Each task registers once as a recipient with the set of message types it
// consumes. Publish stamps the message and fans it out to every matching
// recipient queue without blocking the publisher; a full queue drops its
// oldest entry and the drop is counted. Delivery to a single recipient is
// strictly FIFO in arrival order. No ordering holds across recipients.
//
// A recipient blocks in Wait until a message arrives or the timeout elapses,
// then drains everything pending in one batch. This is the only place a task
// blocks on bus traffic, which keeps the per-task execution model
// cooperative and single-threaded.
package bus
