// Package source installs the go-json driver as the process default when
// imported for side effects.
package source

import (
	"github.com/reoring/natcodec"
	drvgojson "github.com/reoring/natcodec/source/gojson"
)

// init lives outside the root package to avoid an import cycle.
func init() { natcodec.SetJSONDriver(drvgojson.Driver()) }
