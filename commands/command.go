// Package commands turns parsed request arrays into typed commands.
package commands

import (
	"strings"

	"github.com/fzft/go-mini-redis/resp"
)

// DefaultPingMessage is what PING answers when called without a message.
const DefaultPingMessage = "PONG"

// Command is one of Ping, Echo, Get or Set.
type Command interface {
	// Name returns the upper case command name.
	Name() string
	command()
}

type Ping struct {
	Message string
}

type Echo struct {
	Message string
}

type Get struct {
	Key string
}

type Set struct {
	Key   string
	Value string
}

func (Ping) Name() string { return "PING" }
func (Echo) Name() string { return "ECHO" }
func (Get) Name() string  { return "GET" }
func (Set) Name() string  { return "SET" }

func (Ping) command() {}
func (Echo) command() {}
func (Get) command()  {}
func (Set) command()  {}

// FromValue converts a request into a Command. The request must be an
// array of bulk strings whose first element names the command, matched
// case-insensitively. The second result is false for anything that is not
// a well formed command: wrong node kinds, wrong arity or an unknown name.
func FromValue(value resp.Node) (Command, bool) {
	array, ok := value.(resp.Array)
	if !ok {
		return nil, false
	}
	args, ok := bulkArgs(array.Elements)
	if !ok || len(args) == 0 {
		return nil, false
	}

	name, args := strings.ToLower(args[0]), args[1:]
	switch name {
	case "ping":
		switch len(args) {
		case 0:
			return Ping{Message: DefaultPingMessage}, true
		case 1:
			return Ping{Message: args[0]}, true
		}
	case "echo":
		if len(args) == 1 {
			return Echo{Message: args[0]}, true
		}
	case "get":
		if len(args) == 1 {
			return Get{Key: args[0]}, true
		}
	case "set":
		if len(args) == 2 {
			return Set{Key: args[0], Value: args[1]}, true
		}
	}
	return nil, false
}

func bulkArgs(elements []resp.Node) ([]string, bool) {
	args := make([]string, 0, len(elements))
	for _, e := range elements {
		blob, ok := e.(resp.BlobString)
		if !ok {
			return nil, false
		}
		args = append(args, blob.Value)
	}
	return args, true
}
