// Copyright 2026 The Wavelink Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Wavelink's CBOR encoding layer. Credential
// blobs and other durable state are serialized here so that consumers
// import only this package, never fxamacker/cbor directly.
//
// Encoding uses Core Deterministic Encoding (RFC 8949 §4.2): the same
// logical value always produces identical bytes, so a re-saved
// credential file that did not change content does not change on disk.
// Decoding ignores unknown fields, which is what lets an old daemon
// read a blob written by a newer one.
package codec

import (
	"github.com/fxamacker/cbor/v2"
)

var encMode cbor.EncMode
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: encoder init: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("codec: decoder init: " + err.Error())
	}
}

// Marshal encodes v to deterministic CBOR.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v. Unknown fields are ignored.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// RawMessage is a raw encoded CBOR value, useful for delaying the
// decode of a sub-document.
type RawMessage = cbor.RawMessage
