package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fzft/go-mini-redis/resp"
)

// formatStandard renders a reply the way redis-cli does on a terminal.
// Nested array items are indented under their index.
func formatStandard(reply resp.Node, prefix string) string {
	switch r := reply.(type) {
	case resp.SimpleString:
		return r.Value + "\n"
	case resp.BlobString:
		return strconv.Quote(r.Value) + "\n"
	case resp.Error:
		return "(error) " + r.Message + "\n"
	case resp.Integer:
		return "(integer) " + strconv.FormatInt(r.Value, 10) + "\n"
	case resp.NullBlob, resp.NullArray, nil:
		return "(nil)\n"
	case resp.Array:
		if len(r.Elements) == 0 {
			return "(empty array)\n"
		}
		var sb strings.Builder
		width := len(strconv.Itoa(len(r.Elements)))
		for i, elem := range r.Elements {
			index := fmt.Sprintf("%*d) ", width, i+1)
			if i > 0 {
				sb.WriteString(prefix)
			}
			sb.WriteString(index)
			sb.WriteString(formatStandard(elem, prefix+strings.Repeat(" ", len(index))))
		}
		return sb.String()
	default:
		return fmt.Sprintf("(unknown reply %T)\n", reply)
	}
}

// formatRaw renders a reply without type decorations, one array element
// per line.
func formatRaw(reply resp.Node) string {
	switch r := reply.(type) {
	case resp.SimpleString:
		return r.Value
	case resp.BlobString:
		return r.Value
	case resp.Error:
		return r.Message
	case resp.Integer:
		return strconv.FormatInt(r.Value, 10)
	case resp.NullBlob, resp.NullArray, nil:
		return ""
	case resp.Array:
		lines := make([]string, len(r.Elements))
		for i, elem := range r.Elements {
			lines[i] = formatRaw(elem)
		}
		return strings.Join(lines, "\n")
	default:
		return ""
	}
}
