// Package resp implements the RESP2 value grammar: the node types, their
// wire encoding and an incremental, buffer driven parser.
// https://github.com/redis/redis-specifications/blob/master/protocol/RESP2.md
package resp

import (
	"bytes"
	"strconv"
)

const CRLF string = "\r\n"

// Types equivalent to RESP version 2
const (
	TypeArray   byte = '*'
	TypeBlob    byte = '$'
	TypeSimple  byte = '+'
	TypeError   byte = '-'
	TypeInteger byte = ':'
)

// Node is a single protocol value. Nodes are immutable once built.
type Node interface {
	// ToBytes returns the exact wire encoding of the node.
	ToBytes() []byte
}

type SimpleString struct {
	Value string
}

func (n SimpleString) ToBytes() []byte {
	return line(TypeSimple, n.Value)
}

type Error struct {
	Message string
}

func (n Error) ToBytes() []byte {
	return line(TypeError, n.Message)
}

type Integer struct {
	Value int64
}

func (n Integer) ToBytes() []byte {
	return line(TypeInteger, strconv.FormatInt(n.Value, 10))
}

// BlobString is a length prefixed, binary safe string.
type BlobString struct {
	Value string
}

func (n BlobString) ToBytes() []byte {
	buf := make([]byte, 0, len(n.Value)+16)
	buf = append(buf, line(TypeBlob, strconv.Itoa(len(n.Value)))...)
	buf = append(buf, n.Value...)
	return append(buf, CRLF...)
}

// NullBlob is the null bulk string, `$-1\r\n`.
type NullBlob struct{}

func (NullBlob) ToBytes() []byte {
	return []byte("$-1\r\n")
}

// Array represents an array in RESP
type Array struct {
	Elements []Node
}

func (n Array) ToBytes() []byte {
	var buf bytes.Buffer
	buf.Write(line(TypeArray, strconv.Itoa(len(n.Elements))))
	for _, e := range n.Elements {
		if e == nil {
			e = NullBlob{}
		}
		buf.Write(e.ToBytes())
	}
	return buf.Bytes()
}

// NullArray is the null array, `*-1\r\n`.
type NullArray struct{}

func (NullArray) ToBytes() []byte {
	return []byte("*-1\r\n")
}

func line(prefix byte, s string) []byte {
	buf := make([]byte, 0, 1+len(s)+2)
	buf = append(buf, prefix)
	buf = append(buf, s...)
	return append(buf, CRLF...)
}
