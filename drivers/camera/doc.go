// Package camera implements an activatable frame capture task.
//
// The sensor SDK sits behind the Source interface so the task logic is
// hardware independent. While active, the task drains captured frames to
// the negotiated log directory and publishes a live sample per frame. The
// log directory is learned over the bus from the logging supervisor when
// activation is requested. On stop the capture queue is flushed to disk
// before the source is released, so no captured frame is lost.
package camera
