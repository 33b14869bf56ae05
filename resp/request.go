package resp

import (
	"fmt"
	"strings"
)

// ConvertToRESP encodes a command line as a RESP array of bulk strings, the
// shape every request takes on the wire.
func ConvertToRESP(command string, arguments ...string) []byte {
	totalArgs := len(arguments) + 1 // +1 for the command itself

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("*%d%s", totalArgs, CRLF))
	builder.WriteString(fmt.Sprintf("$%d%s%s%s", len(command), CRLF, command, CRLF))
	for _, arg := range arguments {
		builder.WriteString(fmt.Sprintf("$%d%s%s%s", len(arg), CRLF, arg, CRLF))
	}

	return []byte(builder.String())
}

// Request builds the Array node ConvertToRESP would encode.
func Request(command string, arguments ...string) Array {
	elements := make([]Node, 0, len(arguments)+1)
	elements = append(elements, BlobString{Value: command})
	for _, arg := range arguments {
		elements = append(elements, BlobString{Value: arg})
	}
	return Array{Elements: elements}
}
