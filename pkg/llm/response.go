package llm

import "time"

// ModelDetails describes a model's family, size and encoding.
type ModelDetails struct {
	ParentModel       string `json:"parent_model"`
	Format            string `json:"format"`
	Family            string `json:"family"`
	ParameterSize     string `json:"parameter_size"`
	QuantizationLevel string `json:"quantization_level"`
}

// ModelDescriptor is one entry of an /api/tags listing.
type ModelDescriptor struct {
	Name       string       `json:"name"`
	Model      string       `json:"model"`
	ModifiedAt time.Time    `json:"modified_at"`
	Size       int64        `json:"size"`
	Digest     string       `json:"digest"`
	Details    ModelDetails `json:"details"`
}

// ModelList is the /api/tags response body.
type ModelList struct {
	Models []ModelDescriptor `json:"models"`
}

// Names returns the model names in listing order.
func (l *ModelList) Names() []string {
	names := make([]string, 0, len(l.Models))
	for _, m := range l.Models {
		names = append(names, m.Name)
	}
	return names
}
