package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/pyrs-lang/pyrs/internal/pyast"
)

// convertString handles string literals, including f-strings and bytes.
// The grammar decomposes a string into string_start, string_content,
// escape_sequence and interpolation children.
func (p *Parser) convertString(n *sitter.Node) pyast.Expr {
	prefix := ""
	var sb strings.Builder
	var parts []pyast.FStringPart
	isFString := false
	isBytes := false

	flushText := func() {
		if sb.Len() > 0 {
			parts = append(parts, pyast.FStringPart{Text: sb.String()})
			sb.Reset()
		}
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "string_start":
			prefix = strings.ToLower(strings.TrimRight(p.text(child), `"'`))
			isFString = strings.Contains(prefix, "f")
			isBytes = strings.Contains(prefix, "b")
		case "string_content":
			if strings.Contains(prefix, "r") {
				sb.WriteString(p.text(child))
			} else {
				sb.WriteString(unescape(p.text(child)))
			}
		case "escape_sequence":
			if strings.Contains(prefix, "r") {
				sb.WriteString(p.text(child))
			} else {
				sb.WriteString(unescape(p.text(child)))
			}
		case "interpolation":
			flushText()
			part := pyast.FStringPart{}
			for j := 0; j < int(child.NamedChildCount()); j++ {
				cc := child.NamedChild(j)
				switch cc.Type() {
				case "format_specifier":
					part.Spec = strings.TrimPrefix(p.text(cc), ":")
				case "type_conversion":
					// !r/!s/!a conversions fall back to Display form.
				default:
					if part.Expr == nil {
						part.Expr = p.convertExpr(cc)
					}
				}
			}
			parts = append(parts, part)
		}
	}

	if isFString {
		flushText()
		return &pyast.FString{Span: p.span(n), Parts: parts}
	}
	if isBytes {
		return &pyast.BytesLit{Span: p.span(n), Value: []byte(sb.String())}
	}
	return &pyast.StringLit{Span: p.span(n), Value: sb.String()}
}

// convertConcatenated joins adjacent string literals. Mixing f-strings
// into a concatenation merges their parts.
func (p *Parser) convertConcatenated(n *sitter.Node) pyast.Expr {
	var parts []pyast.FStringPart
	anyF := false
	var plain strings.Builder

	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() != "string" {
			continue
		}
		switch lit := p.convertString(child).(type) {
		case *pyast.StringLit:
			plain.WriteString(lit.Value)
			parts = append(parts, pyast.FStringPart{Text: lit.Value})
		case *pyast.FString:
			anyF = true
			parts = append(parts, lit.Parts...)
		case *pyast.BytesLit:
			plain.Write(lit.Value)
		}
	}

	if anyF {
		return &pyast.FString{Span: p.span(n), Parts: parts}
	}
	return &pyast.StringLit{Span: p.span(n), Value: plain.String()}
}

// unescape processes the escape sequences the subset supports.
func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			sb.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case '0':
			sb.WriteByte(0)
		case '\\', '\'', '"':
			sb.WriteByte(s[i])
		default:
			sb.WriteByte('\\')
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}
