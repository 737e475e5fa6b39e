// Package container identifies image containers from their leading bytes and
// maps between formats and content types. It wraps h2non/filetype, which
// covers every input this service accepts except AVIF; that matcher is
// registered here.
package container

import (
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
)

var TypeAvif = types.NewType("avif", "image/avif")

// An AVIF file is an ISOBMFF box whose brand is avif, avis or avio.
func init() {
	filetype.AddMatcher(TypeAvif, func(data []byte) bool {
		if len(data) < 12 {
			return false
		}

		if data[0] != 0x00 || data[1] != 0x00 || string(data[4:8]) != "ftyp" {
			return false
		}

		switch string(data[8:12]) {
		case "avif", "avis", "avio":
			return true
		default:
			return false
		}
	})
}

// Match sniffs the container type from the first bytes of a payload. Unknown
// bytes return the zero type, not an error.
func Match(data []byte) types.Type {
	t, _ := filetype.Match(data)

	return t
}
