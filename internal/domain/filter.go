package domain

type FilterDescriptor struct {
	Name       string            `json:"name"`
	Label      *string           `json:"label,omitempty"`
	Parameters map[string]string `json:"parameters"`
}

type StreamDescriptor struct {
	StreamIndex int                `json:"stream_index"`
	Kind        StreamKind         `json:"kind"`
	Filters     []FilterDescriptor `json:"filters"`
}
