package natcodec

import (
	"errors"
	"io"

	eng "github.com/reoring/natcodec/internal/engine"
)

// Cursor walks a Source one token at a time and tracks container depth.
//
// Readers are called with the cursor positioned on the first token of the
// value they consume and must leave it on that value's last token. A Cursor
// is single-consumer.
type Cursor struct {
	src   Source
	cur   Token
	has   bool
	depth int
	err   error
}

// NewCursor wraps src. When an option is given, its limits are enforced while
// tokens are pulled (see DecodeOpt).
func NewCursor(src Source, opts ...DecodeOpt) *Cursor {
	if len(opts) > 0 {
		src = EnforceSource(src, opts[0], opts[0].OnIssue)
	}
	return &Cursor{src: src}
}

// Advance moves to the next token and returns its kind. A clean end of input
// between top-level values yields io.EOF. Running out of input inside a
// container, or any failure of the underlying source, is a fatal
// *DecodeError; once returned, every later call returns it again.
func (c *Cursor) Advance() (TokenKind, error) {
	if c.err != nil {
		return 0, c.err
	}
	tok, err := c.src.NextToken()
	if err != nil {
		c.has = false
		if errors.Is(err, io.EOF) && c.depth == 0 {
			return 0, io.EOF
		}
		c.err = c.sourceError(err)
		return 0, c.err
	}
	switch tok.Kind {
	case TokenBeginObject, TokenBeginArray:
		c.depth++
	case TokenEndObject, TokenEndArray:
		c.depth--
	}
	c.cur = tok
	c.has = true
	return tok.Kind, nil
}

func (c *Cursor) sourceError(err error) error {
	de := &DecodeError{Code: CodeParseError, Offset: c.src.Location(), Cause: err, fatal: true}
	var ie eng.IssueError
	switch {
	case errors.As(err, &ie):
		de.Code = ie.Code
		de.Path = ie.Path
		de.Cause = errors.New(ie.Message)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		de.Code = CodeTruncated
		de.Detail = "unexpected end of input"
		de.Cause = nil
	}
	return de
}

// Current returns the token the cursor is positioned on.
func (c *Cursor) Current() Token { return c.cur }

// Kind returns the kind of the current token.
func (c *Cursor) Kind() TokenKind { return c.cur.Kind }

// HasCurrent reports whether the cursor is positioned on a token.
func (c *Cursor) HasCurrent() bool { return c.has }

// Depth returns the number of open containers. It is incremented by a begin
// token and decremented by the matching end token.
func (c *Cursor) Depth() int { return c.depth }

// Location returns the byte offset of the underlying source (-1 if unknown).
func (c *Cursor) Location() int64 { return c.src.Location() }

// Err returns the sticky fatal error, if any.
func (c *Cursor) Err() error { return c.err }

// Gobble skips the value starting at the current token and leaves the cursor
// on its last token. On a field name, the field's value is skipped as well.
func (c *Cursor) Gobble() error {
	if !c.has {
		return nil
	}
	switch c.cur.Kind {
	case TokenKey:
		if _, err := c.Advance(); err != nil {
			return err
		}
		return c.Gobble()
	case TokenBeginObject, TokenBeginArray:
		return c.SkipTo(c.depth - 1)
	}
	return nil
}

// SkipTo advances until the depth is at most depth. It is used to resume at
// a value boundary after a reader gave up in the middle of a container.
func (c *Cursor) SkipTo(depth int) error {
	for c.depth > depth {
		if _, err := c.Advance(); err != nil {
			return err
		}
	}
	return nil
}

// Expect returns a fatal structural error unless the current token has kind k.
func (c *Cursor) Expect(k TokenKind) error {
	if c.cur.Kind != k {
		return Structural(k.String(), c.cur)
	}
	return nil
}
