package markup

import (
	"strings"
)

// TokenKind identifies a markup token.
type TokenKind int

const (
	TokenText TokenKind = iota
	TokenNewline
	TokenAlign
	TokenBold
	TokenUnderline
	TokenDoubleWidth
	TokenDoubleHeight
	TokenSize
	TokenReset
	TokenImage
	TokenBarcode
	TokenQR
	TokenCut
)

// tag names as they appear between brackets
var tagNames = map[TokenKind]string{
	TokenAlign:        "ALIGN",
	TokenBold:         "BOLD",
	TokenUnderline:    "UNDERLINE",
	TokenDoubleWidth:  "DOUBLE_WIDTH",
	TokenDoubleHeight: "DOUBLE_HEIGHT",
	TokenSize:         "SIZE",
	TokenReset:        "RESET",
	TokenImage:        "IMAGE",
	TokenBarcode:      "BARCODE",
	TokenQR:           "QR",
	TokenCut:          "CUT",
}

var tagKinds = func() map[string]TokenKind {
	m := make(map[string]TokenKind, len(tagNames))
	for k, v := range tagNames {
		m[v] = k
	}
	return m
}()

// TagKind returns the token kind for a bracket tag name.
func TagKind(name string) (TokenKind, bool) {
	k, ok := tagKinds[name]
	return k, ok
}

// Token is one element of the markup stream. Text tokens carry Text; tag
// tokens carry their arguments in Args.
type Token struct {
	Kind TokenKind
	Text string
	Args []string
}

// Arg returns the i-th argument or "".
func (t Token) Arg(i int) string {
	if i < len(t.Args) {
		return t.Args[i]
	}
	return ""
}

// String serialises the token in its wire form.
func (t Token) String() string {
	switch t.Kind {
	case TokenText:
		return EscapeText(t.Text)
	case TokenNewline:
		return "\n"
	}

	var sb strings.Builder
	sb.WriteByte('[')
	sb.WriteString(tagNames[t.Kind])
	for _, a := range t.Args {
		sb.WriteByte(':')
		sb.WriteString(escapeArg(a))
	}
	sb.WriteByte(']')
	return sb.String()
}

// Stream accumulates tokens in emission order.
type Stream struct {
	tokens []Token
}

// Text appends literal text. Embedded line breaks become newline tokens.
func (s *Stream) Text(text string) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			s.Newline()
		}
		if line != "" {
			s.tokens = append(s.tokens, Token{Kind: TokenText, Text: line})
		}
	}
}

// Newline ends the current line.
func (s *Stream) Newline() {
	s.tokens = append(s.tokens, Token{Kind: TokenNewline})
}

// Tag appends a control token.
func (s *Stream) Tag(kind TokenKind, args ...string) {
	s.tokens = append(s.tokens, Token{Kind: kind, Args: args})
}

// Len returns the number of tokens emitted so far.
func (s *Stream) Len() int { return len(s.tokens) }

// Tokens returns a copy of the accumulated tokens.
func (s *Stream) Tokens() []Token {
	out := make([]Token, len(s.tokens))
	copy(out, s.tokens)
	return out
}

// String serialises the whole stream.
func (s *Stream) String() string {
	return Join(s.tokens)
}

// Join serialises tokens into markup.
func Join(tokens []Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		sb.WriteString(t.String())
	}
	return sb.String()
}

// EscapeText escapes backslashes and opening brackets in literal text.
func EscapeText(s string) string {
	if !strings.ContainsAny(s, `\[`) {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `[`, `\[`)
	return r.Replace(s)
}

// UnescapeText reverses EscapeText.
func UnescapeText(s string) string {
	return unescape(s)
}

// SplitArgs splits the body of a tag (everything after the name and its
// first colon) on unescaped colons and unescapes each argument.
func SplitArgs(body string) []string {
	var (
		args []string
		cur  strings.Builder
	)
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '\\' && i+1 < len(body):
			cur.WriteByte(body[i+1])
			i++
		case c == ':':
			args = append(args, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(args, cur.String())
}

func escapeArg(s string) string {
	s = strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
	if !strings.ContainsAny(s, `\:]`) {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `:`, `\:`, `]`, `\]`)
	return r.Replace(s)
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}
