package main

import "fmt"

// dtypeNames lists the CLI --dtype spellings accepted by pack/unpack/info,
// matching trpx.Integer's eight fixed-width types.
var dtypeNames = []string{"int8", "int16", "int32", "int64", "uint8", "uint16", "uint32", "uint64"}

func validDtype(name string) error {
	for _, n := range dtypeNames {
		if n == name {
			return nil
		}
	}
	return fmt.Errorf("unknown --dtype %q, want one of %v", name, dtypeNames)
}
