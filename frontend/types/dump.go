package types

import "github.com/davecgh/go-spew/spew"

var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	MaxDepth:                6,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// DumpString renders a value's full structure for failure logs. Class
// definitions form cyclic graphs; the depth cap keeps dumps bounded.
func DumpString(v any) string {
	return dumpConfig.Sdump(v)
}
