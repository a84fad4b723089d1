package backend

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spaolacci/murmur3"
	"github.com/ymakino/MegatronDB/storage/address"
)

const checksumPrefix = "# checksum="

// frame wraps a serialized block with the comment header written ahead
// of every sector payload: the sector key and a murmur3 checksum of
// the payload.
func frame(addr address.PhysicalAddress, payload string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# sector=%s\n", addr.Key())
	fmt.Fprintf(&sb, "%s%08x\n", checksumPrefix, murmur3.Sum32([]byte(payload)))
	sb.WriteString("# =================================\n")
	sb.WriteString(payload)
	return sb.String()
}

// unframe strips the comment header and verifies the payload against
// the recorded checksum. A missing or mismatching checksum fails
// closed with ErrCorruptedFrame.
func unframe(data string) (string, error) {
	var (
		sum    uint64
		sawSum bool
		err    error
	)
	rest := data
	for strings.HasPrefix(rest, "#") {
		line := rest
		if idx := strings.IndexByte(rest, '\n'); idx >= 0 {
			line = rest[:idx]
			rest = rest[idx+1:]
		} else {
			rest = ""
		}
		if strings.HasPrefix(line, checksumPrefix) {
			if sum, err = strconv.ParseUint(line[len(checksumPrefix):], 16, 32); err != nil {
				return "", ErrCorruptedFrame
			}
			sawSum = true
		}
	}
	if !sawSum || murmur3.Sum32([]byte(rest)) != uint32(sum) {
		return "", ErrCorruptedFrame
	}
	return rest, nil
}
