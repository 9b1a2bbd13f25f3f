// Package natcodec provides:
//
// - A token model (Token, TokenKind, Source) shared by every wire format
// - A Cursor that walks a token Source and tracks container depth
// - Generators that write the natural JSON encoding or buffer tokens in memory
// - A stable error model via DecodeError and Issues (JSON Pointer, code, message)
// - Duplicate-key/depth/size enforcement through DecodeOpt
//
// Design policy:
// - Keep only the token model and error model in the root package.
// - Place leaf and composite codecs under codec/, the generic record
//   algorithm under record/, streaming under stream/ and the format backends
//   under avrorec/, thriftrec/ and protorec/.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	c := natcodec.NewCursor(natcodec.JSONBytes(data))
//	rec, ok, err := userCodec.Decode(c, natcodec.Strict)
//
//	g := natcodec.NewJSONGenerator(w)
//	err = userCodec.Encode(g, rec)
//	err = g.Flush()
package natcodec
