package emit

// NullEmitter discards all events. It is the machine's default emitter.
type NullEmitter struct{}

func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

func (n *NullEmitter) Emit(Event) {}
