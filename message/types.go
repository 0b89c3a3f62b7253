package message

// Message type names used as dispatch-table keys.
const (
	NameEntityState                Name = "EntityState"
	NameQueryEntityState           Name = "QueryEntityState"
	NameEntityActivationState      Name = "EntityActivationState"
	NameQueryEntityActivationState Name = "QueryEntityActivationState"
	NameEntityInfo                 Name = "EntityInfo"
	NameQueryEntityInfo            Name = "QueryEntityInfo"
	NameSetThrusterActuation       Name = "SetThrusterActuation"
	NameRpm                        Name = "Rpm"
	NameTemperature                Name = "Temperature"
	NameVoltage                    Name = "Voltage"
	NameCurrent                    Name = "Current"
	NameLoggingControl             Name = "LoggingControl"
	NameImageSample                Name = "ImageSample"
	NameParameterUpdate            Name = "ParameterUpdate"
)

// Name identifies a message type on the bus.
type Name string

// OperationalState is the coarse health status of an entity.
type OperationalState uint8

const (
	// StateBoot indicates the entity is initializing.
	StateBoot OperationalState = iota
	// StateNormal indicates the entity is operating normally.
	StateNormal
	// StateError indicates a recoverable error condition.
	StateError
	// StateFault indicates an unrecoverable fault.
	StateFault
)

// String returns a string representation of the operational state
func (s OperationalState) String() string {
	switch s {
	case StateBoot:
		return "boot"
	case StateNormal:
		return "normal"
	case StateError:
		return "error"
	case StateFault:
		return "fault"
	default:
		return "unknown"
	}
}

// StatusCode is a cached diagnostic code attached to an entity state.
// CodeNone (-1) means a free-text description is carried instead.
type StatusCode int

const (
	// CodeNone marks the absence of a cached code.
	CodeNone StatusCode = -1
	// CodeInit reports an initializing entity.
	CodeInit StatusCode = iota
	// CodeIdle reports an idle entity.
	CodeIdle
	// CodeActive reports an engaged entity.
	CodeActive
	// CodeNotActive reports a disengaged entity.
	CodeNotActive
	// CodeActivating reports an activation in progress.
	CodeActivating
	// CodeDeactivating reports a deactivation in progress.
	CodeDeactivating
	// CodeComError reports a communication failure with the device.
	CodeComError
	// CodeInternalError reports an internal device fault.
	CodeInternalError
)

// Description returns the operator string for a status code.
func (c StatusCode) Description() string {
	switch c {
	case CodeInit:
		return "initializing"
	case CodeIdle:
		return "idle"
	case CodeActive:
		return "active"
	case CodeNotActive:
		return "not active"
	case CodeActivating:
		return "activating"
	case CodeDeactivating:
		return "deactivating"
	case CodeComError:
		return "communication error"
	case CodeInternalError:
		return "internal error"
	default:
		return ""
	}
}

// ActivationState is the engagement state of an entity.
type ActivationState uint8

const (
	// ActInactive means the entity function is disengaged.
	ActInactive ActivationState = iota
	// ActActivating means an activation is in progress.
	ActActivating
	// ActActive means the entity function is engaged.
	ActActive
	// ActDeactivating means a deactivation is in progress.
	ActDeactivating
)

// String returns a string representation of the activation state
func (s ActivationState) String() string {
	switch s {
	case ActInactive:
		return "inactive"
	case ActActivating:
		return "activating"
	case ActActive:
		return "active"
	case ActDeactivating:
		return "deactivating"
	default:
		return "unknown"
	}
}

// EntityState reports the operational state of one entity.
type EntityState struct {
	Header
	State       OperationalState
	Code        StatusCode
	Description string
}

// NewEntityState creates an EntityState report.
func NewEntityState(state OperationalState, code StatusCode, description string) *EntityState {
	return &EntityState{Header: NewHeader(), State: state, Code: code, Description: description}
}

// Name returns the dispatch type tag.
func (m *EntityState) Name() string { return string(NameEntityState) }

// Clone returns a deep copy with fresh identity.
func (m *EntityState) Clone() Message {
	c := *m
	c.Header = m.cloneHeader()
	return &c
}

// QueryEntityState requests an immediate EntityState report.
type QueryEntityState struct {
	Header
}

// NewQueryEntityState creates a QueryEntityState request.
func NewQueryEntityState() *QueryEntityState {
	return &QueryEntityState{Header: NewHeader()}
}

// Name returns the dispatch type tag.
func (m *QueryEntityState) Name() string { return string(NameQueryEntityState) }

// Clone returns a deep copy with fresh identity.
func (m *QueryEntityState) Clone() Message {
	c := *m
	c.Header = m.cloneHeader()
	return &c
}

// EntityActivationState reports the activation state of one entity.
type EntityActivationState struct {
	Header
	State ActivationState
	// Error describes why the last transition failed, if it did.
	Error string
}

// NewEntityActivationState creates an EntityActivationState report.
func NewEntityActivationState(state ActivationState, errText string) *EntityActivationState {
	return &EntityActivationState{Header: NewHeader(), State: state, Error: errText}
}

// Name returns the dispatch type tag.
func (m *EntityActivationState) Name() string { return string(NameEntityActivationState) }

// Clone returns a deep copy with fresh identity.
func (m *EntityActivationState) Clone() Message {
	c := *m
	c.Header = m.cloneHeader()
	return &c
}

// QueryEntityActivationState requests an immediate activation state report.
type QueryEntityActivationState struct {
	Header
}

// NewQueryEntityActivationState creates a QueryEntityActivationState request.
func NewQueryEntityActivationState() *QueryEntityActivationState {
	return &QueryEntityActivationState{Header: NewHeader()}
}

// Name returns the dispatch type tag.
func (m *QueryEntityActivationState) Name() string { return string(NameQueryEntityActivationState) }

// Clone returns a deep copy with fresh identity.
func (m *QueryEntityActivationState) Clone() Message {
	c := *m
	c.Header = m.cloneHeader()
	return &c
}

// EntityInfo announces an entity reservation so other tasks can resolve
// labels they do not own.
type EntityInfo struct {
	Header
	Id        uint16
	Label     string
	Component string
}

// NewEntityInfo creates an EntityInfo announcement.
func NewEntityInfo(id uint16, label, component string) *EntityInfo {
	return &EntityInfo{Header: NewHeader(), Id: id, Label: label, Component: component}
}

// Name returns the dispatch type tag.
func (m *EntityInfo) Name() string { return string(NameEntityInfo) }

// Clone returns a deep copy with fresh identity.
func (m *EntityInfo) Clone() Message {
	c := *m
	c.Header = m.cloneHeader()
	return &c
}

// QueryEntityInfo asks the owning task to re-announce an entity label.
type QueryEntityInfo struct {
	Header
	Label string
}

// NewQueryEntityInfo creates a QueryEntityInfo request.
func NewQueryEntityInfo(label string) *QueryEntityInfo {
	return &QueryEntityInfo{Header: NewHeader(), Label: label}
}

// Name returns the dispatch type tag.
func (m *QueryEntityInfo) Name() string { return string(NameQueryEntityInfo) }

// Clone returns a deep copy with fresh identity.
func (m *QueryEntityInfo) Clone() Message {
	c := *m
	c.Header = m.cloneHeader()
	return &c
}

// SetThrusterActuation commands a thruster pair to a new actuation value.
type SetThrusterActuation struct {
	Header
	// Id selects the thruster pair (0 drives motors 0 and 1, 1 drives 2 and 3).
	Id uint8
	// Value is the commanded actuation in RPM.
	Value int16
}

// NewSetThrusterActuation creates a thruster command.
func NewSetThrusterActuation(id uint8, value int16) *SetThrusterActuation {
	return &SetThrusterActuation{Header: NewHeader(), Id: id, Value: value}
}

// Name returns the dispatch type tag.
func (m *SetThrusterActuation) Name() string { return string(NameSetThrusterActuation) }

// Clone returns a deep copy with fresh identity.
func (m *SetThrusterActuation) Clone() Message {
	c := *m
	c.Header = m.cloneHeader()
	return &c
}

// Rpm reports the measured rotation speed of one motor entity.
type Rpm struct {
	Header
	Value int32
}

// NewRpm creates an Rpm report.
func NewRpm(value int32) *Rpm {
	return &Rpm{Header: NewHeader(), Value: value}
}

// Name returns the dispatch type tag.
func (m *Rpm) Name() string { return string(NameRpm) }

// Clone returns a deep copy with fresh identity.
func (m *Rpm) Clone() Message {
	c := *m
	c.Header = m.cloneHeader()
	return &c
}

// Temperature reports a device temperature in degrees Celsius.
type Temperature struct {
	Header
	Value float32
}

// NewTemperature creates a Temperature report.
func NewTemperature(value float32) *Temperature {
	return &Temperature{Header: NewHeader(), Value: value}
}

// Name returns the dispatch type tag.
func (m *Temperature) Name() string { return string(NameTemperature) }

// Clone returns a deep copy with fresh identity.
func (m *Temperature) Clone() Message {
	c := *m
	c.Header = m.cloneHeader()
	return &c
}

// Voltage reports a supply voltage in volts.
type Voltage struct {
	Header
	Value float32
}

// NewVoltage creates a Voltage report.
func NewVoltage(value float32) *Voltage {
	return &Voltage{Header: NewHeader(), Value: value}
}

// Name returns the dispatch type tag.
func (m *Voltage) Name() string { return string(NameVoltage) }

// Clone returns a deep copy with fresh identity.
func (m *Voltage) Clone() Message {
	c := *m
	c.Header = m.cloneHeader()
	return &c
}

// Current reports a supply current in amperes.
type Current struct {
	Header
	Value float32
}

// NewCurrent creates a Current report.
func NewCurrent(value float32) *Current {
	return &Current{Header: NewHeader(), Value: value}
}

// Name returns the dispatch type tag.
func (m *Current) Name() string { return string(NameCurrent) }

// Clone returns a deep copy with fresh identity.
func (m *Current) Clone() Message {
	c := *m
	c.Header = m.cloneHeader()
	return &c
}

// LoggingControlOp selects the logging control operation.
type LoggingControlOp uint8

const (
	// LogRequestCurrentName asks the logger for the active log directory.
	LogRequestCurrentName LoggingControlOp = iota
	// LogCurrentName announces the active log directory.
	LogCurrentName
	// LogStarted announces that logging started under Dir.
	LogStarted
	// LogStopped announces that logging stopped.
	LogStopped
)

// LoggingControl negotiates the log directory used by capture tasks.
type LoggingControl struct {
	Header
	Op  LoggingControlOp
	Dir string
}

// NewLoggingControl creates a LoggingControl message.
func NewLoggingControl(op LoggingControlOp, dir string) *LoggingControl {
	return &LoggingControl{Header: NewHeader(), Op: op, Dir: dir}
}

// Name returns the dispatch type tag.
func (m *LoggingControl) Name() string { return string(NameLoggingControl) }

// Clone returns a deep copy with fresh identity.
func (m *LoggingControl) Clone() Message {
	c := *m
	c.Header = m.cloneHeader()
	return &c
}

// ImageSample carries one live capture sample from a camera task. Full
// frames go to disk; the sample is a downlink-sized excerpt.
type ImageSample struct {
	Header
	// Seq is the capture sequence number within the current run.
	Seq uint32
	// Gain is the sensor gain factor the frame was captured with.
	Gain float32
	// Data is the sample payload.
	Data []byte
}

// NewImageSample creates an ImageSample message.
func NewImageSample(seq uint32, gain float32, data []byte) *ImageSample {
	return &ImageSample{Header: NewHeader(), Seq: seq, Gain: gain, Data: data}
}

// Name returns the dispatch type tag.
func (m *ImageSample) Name() string { return string(NameImageSample) }

// Clone returns a deep copy with fresh identity.
func (m *ImageSample) Clone() Message {
	c := *m
	c.Header = m.cloneHeader()
	c.Data = append([]byte(nil), m.Data...)
	return &c
}

// ParameterUpdate carries new parameter values for a running task. The
// receiving task revalidates and reapplies its parameter table.
type ParameterUpdate struct {
	Header
	// Task names the task whose section changed.
	Task string
	// Values maps parameter name to its new raw value.
	Values map[string]string
}

// NewParameterUpdate creates a ParameterUpdate message.
func NewParameterUpdate(task string, values map[string]string) *ParameterUpdate {
	return &ParameterUpdate{Header: NewHeader(), Task: task, Values: values}
}

// Name returns the dispatch type tag.
func (m *ParameterUpdate) Name() string { return string(NameParameterUpdate) }

// Clone returns a deep copy with fresh identity.
func (m *ParameterUpdate) Clone() Message {
	c := *m
	c.Header = m.cloneHeader()
	c.Values = make(map[string]string, len(m.Values))
	for k, v := range m.Values {
		c.Values[k] = v
	}
	return &c
}
