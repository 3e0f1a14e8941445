package component

// AudioEmitter binds a node to a document-level emitter and its sources.
type AudioEmitter struct {
	Vendor  string
	Emitter int
	Type    string
	Gain    float64
	Sources []int
}

var AudioEmitterComponent = NewComponent[AudioEmitter]("audio_emitter", "audio")
