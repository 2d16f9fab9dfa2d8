package switcher

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	slipEnd    = 0xC0
	slipEsc    = 0xDB
	slipEscEnd = 0xDC
	slipEscEsc = 0xDD
)

func oscPad(n int) int {
	return (4 - n%4) % 4
}

func appendOSCString(buf []byte, s string) []byte {
	buf = append(buf, s...)
	buf = append(buf, 0)
	for range oscPad(len(s) + 1) {
		buf = append(buf, 0)
	}
	return buf
}

// buildOSC encodes int32, float32, string and bool arguments.
func buildOSC(addr string, args ...any) []byte {
	buf := appendOSCString(nil, addr)

	typetag := ","
	for _, arg := range args {
		switch v := arg.(type) {
		case int32:
			typetag += "i"
		case float32:
			typetag += "f"
		case string:
			typetag += "s"
		case bool:
			if v {
				typetag += "T"
			} else {
				typetag += "F"
			}
		}
	}
	buf = appendOSCString(buf, typetag)

	for _, arg := range args {
		switch v := arg.(type) {
		case int32:
			buf = binary.BigEndian.AppendUint32(buf, uint32(v))
		case float32:
			buf = binary.BigEndian.AppendUint32(buf, math.Float32bits(v))
		case string:
			buf = appendOSCString(buf, v)
		}
	}
	return buf
}

func parseOSC(data []byte) (addr string, args []any, err error) {
	if len(data) < 4 {
		return "", nil, fmt.Errorf("osc: message too short")
	}

	end := 0
	for end < len(data) && data[end] != 0 {
		end++
	}
	addr = string(data[:end])
	pos := end + 1 + oscPad(end+1)

	if pos >= len(data) || data[pos] != ',' {
		return addr, nil, nil
	}

	ttEnd := pos
	for ttEnd < len(data) && data[ttEnd] != 0 {
		ttEnd++
	}
	typetag := string(data[pos+1 : ttEnd])
	pos = ttEnd + 1 + oscPad(ttEnd-pos+1)

	for _, t := range typetag {
		switch t {
		case 'i':
			if pos+4 > len(data) {
				return addr, args, fmt.Errorf("osc: truncated int32")
			}
			args = append(args, int32(binary.BigEndian.Uint32(data[pos:])))
			pos += 4
		case 'f':
			if pos+4 > len(data) {
				return addr, args, fmt.Errorf("osc: truncated float32")
			}
			args = append(args, math.Float32frombits(binary.BigEndian.Uint32(data[pos:])))
			pos += 4
		case 's':
			end := pos
			for end < len(data) && data[end] != 0 {
				end++
			}
			if end >= len(data) {
				return addr, args, fmt.Errorf("osc: unterminated string")
			}
			args = append(args, string(data[pos:end]))
			pos = end + 1 + oscPad(end-pos+1)
		case 'T':
			args = append(args, true)
		case 'F':
			args = append(args, false)
		case 'N':
			args = append(args, nil)
		default:
			return addr, args, fmt.Errorf("osc: unsupported type tag %q", t)
		}
	}

	return addr, args, nil
}

func slipEncode(data []byte) []byte {
	out := []byte{slipEnd}
	for _, b := range data {
		switch b {
		case slipEnd:
			out = append(out, slipEsc, slipEscEnd)
		case slipEsc:
			out = append(out, slipEsc, slipEscEsc)
		default:
			out = append(out, b)
		}
	}
	return append(out, slipEnd)
}

func slipDecode(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == slipEsc && i+1 < len(data) {
			switch data[i+1] {
			case slipEscEnd:
				out = append(out, slipEnd)
			case slipEscEsc:
				out = append(out, slipEsc)
			}
			i++
		} else {
			out = append(out, data[i])
		}
	}
	return out
}

// extractSLIPFrame pulls the first complete frame out of data. Empty frames
// between back-to-back END bytes are skipped.
func extractSLIPFrame(data []byte) (frame []byte, rest []byte, ok bool) {
	start := -1
	for i, b := range data {
		if b != slipEnd {
			continue
		}
		if start == -1 || i == start+1 {
			start = i
			continue
		}
		return slipDecode(data[start+1 : i]), data[i+1:], true
	}
	return nil, data, false
}
