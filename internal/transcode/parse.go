package transcode

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/thereceipt/receipt-renderer/internal/markup"
)

var (
	markupLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Tag", Pattern: `\[[A-Z_]+(?::(?:\\.|[^\]\\\n])*)?\]`},
		{Name: "Newline", Pattern: `\r?\n`},
		{Name: "Text", Pattern: `(?:\\.|[^\[\\\r\n])+`},
		{Name: "Stray", Pattern: `[\[\\\r]`},
	})

	tagTokenType     = mustTokenType("Tag")
	newlineTokenType = mustTokenType("Newline")
	textTokenType    = mustTokenType("Text")
)

// Parse reads a markup stream back into tokens. Unknown tags and stray
// brackets are kept as literal text so nothing the renderer wrote is lost.
func Parse(src string) ([]markup.Token, error) {
	lex, err := markupLexer.LexString("", src)
	if err != nil {
		return nil, fmt.Errorf("lex markup: %w", err)
	}
	raw, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, fmt.Errorf("lex markup: %w", err)
	}

	var out []markup.Token
	text := func(s string) {
		if s == "" {
			return
		}
		if n := len(out); n > 0 && out[n-1].Kind == markup.TokenText {
			out[n-1].Text += s
			return
		}
		out = append(out, markup.Token{Kind: markup.TokenText, Text: s})
	}

	for _, tok := range raw {
		if tok.EOF() {
			break
		}
		switch tok.Type {
		case tagTokenType:
			body := tok.Value[1 : len(tok.Value)-1]
			name, args, hasArgs := strings.Cut(body, ":")
			kind, ok := markup.TagKind(name)
			if !ok {
				text(tok.Value)
				continue
			}
			t := markup.Token{Kind: kind}
			if hasArgs {
				t.Args = markup.SplitArgs(args)
			}
			out = append(out, t)
		case newlineTokenType:
			out = append(out, markup.Token{Kind: markup.TokenNewline})
		case textTokenType:
			text(markup.UnescapeText(tok.Value))
		default:
			if tok.Value != "\r" {
				text(tok.Value)
			}
		}
	}
	return out, nil
}

func mustTokenType(name string) lexer.TokenType {
	tt, ok := markupLexer.Symbols()[name]
	if !ok {
		panic(fmt.Sprintf("token %s not defined", name))
	}
	return tt
}
