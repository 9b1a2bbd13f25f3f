//go:build stdjson

package natcodec_test

import "github.com/reoring/natcodec"

func init() {
	natcodec.UseDefaultJSONDriver()
}
