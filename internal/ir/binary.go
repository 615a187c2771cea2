package ir

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// envelope is the persisted form of a tree.
type envelope struct {
	Version string    `msgpack:"v"`
	Root    *wireNode `msgpack:"r"`
}

// MarshalBinary encodes a tree with msgpack for persistence.
// The encoding round-trips through UnmarshalBinary to a structurally
// identical tree (same TreeHash).
func MarshalBinary(n Node) ([]byte, error) {
	w, err := toWire(n)
	if err != nil {
		return nil, fmt.Errorf("MarshalBinary: %w", err)
	}
	data, err := msgpack.Marshal(&envelope{Version: IRVersion, Root: w})
	if err != nil {
		return nil, fmt.Errorf("MarshalBinary: %w", err)
	}
	return data, nil
}

// UnmarshalBinary decodes a tree produced by MarshalBinary.
func UnmarshalBinary(data []byte) (Node, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true) // integers as int64, floats as float64

	var env envelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("UnmarshalBinary: %w", err)
	}
	if env.Version != IRVersion {
		return nil, fmt.Errorf("UnmarshalBinary: unsupported IR version %q (want %q)", env.Version, IRVersion)
	}
	n, err := fromWire(env.Root)
	if err != nil {
		return nil, fmt.Errorf("UnmarshalBinary: %w", err)
	}
	return n, nil
}
