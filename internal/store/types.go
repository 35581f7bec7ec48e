package store

// Variant is one weighted candidate outcome of a configuration resolution.
//
// Model experiments populate Name; prompt experiments populate PromptKey and
// PromptVersion instead, pointing at a PromptDocument stored under its own
// key. Weight is expressed in percentage points with up to two decimal places
// of resolution.
type Variant struct {
	// Name is the model name for model experiments.
	Name string

	// PromptKey references the prompt document key for prompt experiments.
	PromptKey string

	// PromptVersion pins a specific prompt document version.
	// Zero means "latest known".
	PromptVersion int

	// Weight is the variant's share of traffic in percentage points.
	Weight float64
}

// Label returns the value used to identify the variant in logs and
// assignment records: the model name, or the prompt key for prompt variants.
func (v Variant) Label() string {
	if v.Name != "" {
		return v.Name
	}
	return v.PromptKey
}

// Config is one published version of an experiment configuration.
// Immutable once stored.
type Config struct {
	Key      string
	Variants []Variant
	Version  int
}

// PromptDocument is one published version of a concrete prompt.
// Templates contain {{variable}} placeholders. Immutable once stored.
type PromptDocument struct {
	Key            string
	SystemTemplate string
	UserTemplate   string
	Version        int
}
