// Package message defines the typed records exchanged on the runtime bus.
//
// Messages are the fundamental unit of data flow between tasks. Each message
// carries an envelope (unique id, type name, source task, source entity,
// optional destination, timestamp) plus typed fields. Messages are immutable
// after publication: the bus hands the same object to every recipient, so
// handlers must never modify a consumed message. Use Clone when a mutated
// copy is needed.
//
// The set mirrors what the hardware drivers exchange:
//
//   - EntityState / QueryEntityState: operational health of one entity
//   - EntityActivationState / QueryEntityActivationState: engagement state
//   - EntityInfo: entity label announcements used during resolution
//   - SetThrusterActuation, Rpm, Temperature, Voltage, Current: motor control
//   - LoggingControl: log-directory negotiation for capture tasks
//   - ParameterUpdate: live parameter changes applied to a running task
package message
