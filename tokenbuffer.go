package natcodec

import (
	"io"
	"strconv"
)

// TokenBuffer is an in-memory token stream. It records tokens written through
// the Generator methods and replays them through Source. Binary data is kept
// as TokenBinary instead of being text-encoded.
type TokenBuffer struct {
	toks []Token
}

// NewTokenBuffer returns an empty buffer.
func NewTokenBuffer() *TokenBuffer { return &TokenBuffer{} }

// Tokens returns the recorded tokens. The slice must not be modified.
func (b *TokenBuffer) Tokens() []Token { return b.toks }

// Len returns the number of recorded tokens.
func (b *TokenBuffer) Len() int { return len(b.toks) }

// Reset drops every recorded token.
func (b *TokenBuffer) Reset() { b.toks = b.toks[:0] }

// Source returns an independent reader over the recorded tokens. Offsets are
// token indexes.
func (b *TokenBuffer) Source() Source { return &bufferSource{toks: b.toks} }

func (b *TokenBuffer) add(t Token) error {
	t.Offset = int64(len(b.toks))
	b.toks = append(b.toks, t)
	return nil
}

func (b *TokenBuffer) WriteStartObject() error { return b.add(Token{Kind: TokenBeginObject}) }
func (b *TokenBuffer) WriteEndObject() error   { return b.add(Token{Kind: TokenEndObject}) }
func (b *TokenBuffer) WriteStartArray() error  { return b.add(Token{Kind: TokenBeginArray}) }
func (b *TokenBuffer) WriteEndArray() error    { return b.add(Token{Kind: TokenEndArray}) }
func (b *TokenBuffer) WriteFieldName(name string) error {
	return b.add(Token{Kind: TokenKey, String: name})
}
func (b *TokenBuffer) WriteString(s string) error { return b.add(Token{Kind: TokenString, String: s}) }
func (b *TokenBuffer) WriteNumber(text string) error {
	return b.add(Token{Kind: TokenNumber, Number: text})
}
func (b *TokenBuffer) WriteInt(v int64) error {
	return b.WriteNumber(strconv.FormatInt(v, 10))
}
func (b *TokenBuffer) WriteUint(v uint64) error {
	return b.WriteNumber(strconv.FormatUint(v, 10))
}
func (b *TokenBuffer) WriteFloat(v float64, bitSize int) error {
	text, quoted := FloatText(v, bitSize)
	if quoted {
		return b.WriteString(text)
	}
	return b.WriteNumber(text)
}
func (b *TokenBuffer) WriteBool(v bool) error { return b.add(Token{Kind: TokenBool, Bool: v}) }
func (b *TokenBuffer) WriteNull() error       { return b.add(Token{Kind: TokenNull}) }
func (b *TokenBuffer) WriteBinary(p []byte) error {
	return b.add(Token{Kind: TokenBinary, Bytes: append([]byte(nil), p...)})
}
func (b *TokenBuffer) Flush() error { return nil }

type bufferSource struct {
	toks []Token
	pos  int
}

func (s *bufferSource) NextToken() (Token, error) {
	if s.pos >= len(s.toks) {
		return Token{}, io.EOF
	}
	t := s.toks[s.pos]
	s.pos++
	return t, nil
}

func (s *bufferSource) Location() int64 { return int64(s.pos) }
