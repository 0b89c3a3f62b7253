// Package natsbridge republishes selected bus traffic onto NATS subjects
// so shore-side consoles and other systems can observe the vehicle without
// joining the internal bus. The bridge is one-directional and lossy: a
// slow or absent broker never backpressures the bus.
package natsbridge
