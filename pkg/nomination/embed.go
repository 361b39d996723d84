package nomination

import (
	_ "embed"
)

//go:embed definition.yaml
var defaultDefinition []byte

// Default returns the built-in R.A.R.E. Award nomination definition. It panics
// if the embedded document does not parse, which would indicate a build-time
// defect rather than a runtime condition.
func Default() Definition {
	def, err := Parse(defaultDefinition)
	if err != nil {
		panic("nomination: embedded definition is invalid: " + err.Error())
	}
	return def
}
