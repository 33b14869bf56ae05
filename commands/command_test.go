package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fzft/go-mini-redis/resp"
)

func TestFromValue(t *testing.T) {
	tests := []struct {
		name  string
		value resp.Node
		want  Command
	}{
		{"ping default", resp.Request("PING"), Ping{Message: "PONG"}},
		{"ping message", resp.Request("ping", "hi"), Ping{Message: "hi"}},
		{"echo", resp.Request("ECHO", "hello"), Echo{Message: "hello"}},
		{"echo mixed case", resp.Request("eChO", "hello"), Echo{Message: "hello"}},
		{"get", resp.Request("GET", "foo"), Get{Key: "foo"}},
		{"set", resp.Request("SET", "foo", "bar"), Set{Key: "foo", Value: "bar"}},
		{"set empty value", resp.Request("set", "foo", ""), Set{Key: "foo", Value: ""}},
		{"binary key", resp.Request("GET", "a\r\nb"), Get{Key: "a\r\nb"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FromValue(tt.value)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromValueRejects(t *testing.T) {
	tests := []struct {
		name  string
		value resp.Node
	}{
		{"not an array", resp.BlobString{Value: "PING"}},
		{"null array", resp.NullArray{}},
		{"empty array", resp.Array{Elements: []resp.Node{}}},
		{"simple string name", resp.Array{Elements: []resp.Node{resp.SimpleString{Value: "PING"}}}},
		{"unknown", resp.Request("UNKNOWN")},
		{"ping two args", resp.Request("PING", "a", "b")},
		{"ping malformed arg", resp.Array{Elements: []resp.Node{resp.BlobString{Value: "PING"}, resp.Integer{Value: 1}}}},
		{"echo missing", resp.Request("ECHO")},
		{"get missing", resp.Request("GET")},
		{"get extra", resp.Request("GET", "a", "b")},
		{"set one arg", resp.Request("SET", "key")},
		{"set three args", resp.Request("SET", "key", "value", "extra")},
		{"set null value", resp.Array{Elements: []resp.Node{resp.BlobString{Value: "SET"}, resp.BlobString{Value: "k"}, resp.NullBlob{}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FromValue(tt.value)
			assert.False(t, ok)
			assert.Nil(t, got)
		})
	}
}

func TestCommandNames(t *testing.T) {
	assert.Equal(t, "PING", Ping{}.Name())
	assert.Equal(t, "ECHO", Echo{}.Name())
	assert.Equal(t, "GET", Get{}.Name())
	assert.Equal(t, "SET", Set{}.Name())
}
