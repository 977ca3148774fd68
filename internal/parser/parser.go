// Package parser turns Python source text into the pyast tree using the
// tree-sitter Python grammar. It is the only package that touches
// tree-sitter; everything downstream works on pyast nodes with spans.
package parser

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/pyrs-lang/pyrs/internal/diagnostic"
	"github.com/pyrs-lang/pyrs/internal/position"
	"github.com/pyrs-lang/pyrs/internal/pyast"
)

// Parser converts Python source files into pyast modules.
type Parser struct {
	inner  *sitter.Parser
	diags  *diagnostic.Collector
	source []byte
	file   *position.SourceFile
}

// New creates a parser with the Python grammar loaded.
func New() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &Parser{inner: p}
}

// Parse parses source into a module. Syntax errors inside a top-level
// item are reported as diagnostics and the item is dropped; the rest of
// the module is still delivered (per-item failure isolation).
func (p *Parser) Parse(ctx context.Context, filename string, source []byte) (*pyast.Module, []diagnostic.Diagnostic, error) {
	tree, err := p.inner.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	defer tree.Close()

	p.diags = diagnostic.NewCollector()
	p.source = source
	p.file = position.NewSourceFile(filename, string(source))

	root := tree.RootNode()
	mod := &pyast.Module{
		Span:   p.span(root),
		Source: p.file,
	}
	mod.Body = p.convertBlock(root)
	return mod, p.diags.All(), nil
}

func (p *Parser) span(n *sitter.Node) position.Span {
	start := n.StartPoint()
	end := n.EndPoint()
	return position.Span{
		Start: position.Position{
			Filename: p.file.Filename,
			Line:     int(start.Row) + 1,
			Column:   int(start.Column) + 1,
			Offset:   int(n.StartByte()),
		},
		End: position.Position{
			Filename: p.file.Filename,
			Line:     int(end.Row) + 1,
			Column:   int(end.Column) + 1,
			Offset:   int(n.EndByte()),
		},
	}
}

func (p *Parser) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(p.source)
}

func (p *Parser) errorf(n *sitter.Node, format string, args ...interface{}) {
	p.diags.Add(diagnostic.Errorf(diagnostic.KindUnsupported, p.span(n), format, args...))
}

// convertBlock converts the named statement children of a block-like node.
func (p *Parser) convertBlock(n *sitter.Node) []pyast.Stmt {
	var out []pyast.Stmt
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		if stmts := p.convertStmt(child); stmts != nil {
			out = append(out, stmts...)
		}
	}
	return out
}

// convertStmt converts one statement node. A single source statement may
// expand to several pyast statements (e.g. `import a, b`? no — kept as
// one), or to none when unsupported.
func (p *Parser) convertStmt(n *sitter.Node) []pyast.Stmt {
	switch n.Type() {
	case "expression_statement":
		return p.convertExprStatement(n)
	case "function_definition":
		return one(p.convertFunctionDef(n, nil, false))
	case "decorated_definition":
		return one(p.convertDecorated(n))
	case "class_definition":
		return one(p.convertClassDef(n, nil))
	case "return_statement":
		ret := &pyast.Return{Span: p.span(n)}
		if n.NamedChildCount() > 0 {
			ret.Value = p.convertExpr(n.NamedChild(0))
		}
		return one(ret)
	case "if_statement":
		return one(p.convertIf(n))
	case "while_statement":
		w := &pyast.While{Span: p.span(n)}
		w.Test = p.convertExpr(n.ChildByFieldName("condition"))
		w.Body = p.convertBlock(n.ChildByFieldName("body"))
		if alt := n.ChildByFieldName("alternative"); alt != nil {
			w.Orelse = p.convertBlock(alt.ChildByFieldName("body"))
		}
		return one(w)
	case "for_statement":
		f := &pyast.For{Span: p.span(n)}
		f.Target = p.convertExpr(n.ChildByFieldName("left"))
		f.Iter = p.convertExpr(n.ChildByFieldName("right"))
		f.Body = p.convertBlock(n.ChildByFieldName("body"))
		if alt := n.ChildByFieldName("alternative"); alt != nil {
			f.Orelse = p.convertBlock(alt.ChildByFieldName("body"))
		}
		return one(f)
	case "break_statement":
		return one(&pyast.Break{Span: p.span(n)})
	case "continue_statement":
		return one(&pyast.Continue{Span: p.span(n)})
	case "pass_statement":
		return one(&pyast.Pass{Span: p.span(n)})
	case "try_statement":
		return one(p.convertTry(n))
	case "with_statement":
		return one(p.convertWith(n))
	case "raise_statement":
		r := &pyast.Raise{Span: p.span(n)}
		if n.NamedChildCount() > 0 {
			r.Exc = p.convertExpr(n.NamedChild(0))
		}
		return one(r)
	case "assert_statement":
		a := &pyast.Assert{Span: p.span(n)}
		if n.NamedChildCount() > 0 {
			a.Test = p.convertExpr(n.NamedChild(0))
		}
		if n.NamedChildCount() > 1 {
			a.Msg = p.convertExpr(n.NamedChild(1))
		}
		return one(a)
	case "import_statement":
		imp := &pyast.Import{Span: p.span(n)}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			imp.Names = append(imp.Names, p.convertImportAlias(n.NamedChild(i)))
		}
		return one(imp)
	case "import_from_statement":
		imp := &pyast.ImportFrom{Span: p.span(n)}
		imp.Module = p.text(n.ChildByFieldName("module_name"))
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child == n.ChildByFieldName("module_name") {
				continue
			}
			switch child.Type() {
			case "dotted_name", "aliased_import":
				imp.Names = append(imp.Names, p.convertImportAlias(child))
			case "wildcard_import":
				p.errorf(child, "wildcard imports are not supported")
			}
		}
		return one(imp)
	case "global_statement":
		g := &pyast.Global{Span: p.span(n)}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			g.Names = append(g.Names, p.text(n.NamedChild(i)))
		}
		return one(g)
	case "future_import_statement":
		return nil // __future__ imports carry no runtime meaning here
	case "comment":
		return nil
	case "ERROR":
		p.errorf(n, "syntax error")
		return nil
	default:
		p.errorf(n, "unsupported statement: %s", n.Type())
		return nil
	}
}

func one(s pyast.Stmt) []pyast.Stmt {
	if s == nil {
		return nil
	}
	return []pyast.Stmt{s}
}

// convertExprStatement handles the expression_statement wrapper, which
// is where assignments live in the tree-sitter grammar.
func (p *Parser) convertExprStatement(n *sitter.Node) []pyast.Stmt {
	if n.NamedChildCount() == 0 {
		return nil
	}
	inner := n.NamedChild(0)
	switch inner.Type() {
	case "assignment":
		return one(p.convertAssignment(inner))
	case "augmented_assignment":
		op := strings.TrimSuffix(p.operatorText(inner), "=")
		return one(&pyast.AugAssign{
			Span:   p.span(inner),
			Target: p.convertExpr(inner.ChildByFieldName("left")),
			Op:     op,
			Value:  p.convertExpr(inner.ChildByFieldName("right")),
		})
	default:
		return one(&pyast.ExprStmt{Span: p.span(n), Value: p.convertExpr(inner)})
	}
}

func (p *Parser) convertAssignment(n *sitter.Node) pyast.Stmt {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	typeNode := n.ChildByFieldName("type")

	if typeNode != nil {
		ann := &pyast.AnnAssign{
			Span:       p.span(n),
			Target:     p.convertExpr(left),
			Annotation: p.text(typeNode),
		}
		if right != nil {
			ann.Value = p.convertExpr(right)
		}
		return ann
	}

	assign := &pyast.Assign{Span: p.span(n)}
	assign.Targets = append(assign.Targets, p.convertExpr(left))
	// Chained assignment a = b = v nests on the right.
	for right != nil && right.Type() == "assignment" {
		assign.Targets = append(assign.Targets, p.convertExpr(right.ChildByFieldName("left")))
		right = right.ChildByFieldName("right")
	}
	if right != nil {
		assign.Value = p.convertExpr(right)
	}
	return assign
}

// operatorText returns the text of the first anonymous child, which for
// augmented_assignment and binary_operator is the operator token.
func (p *Parser) operatorText(n *sitter.Node) string {
	if op := n.ChildByFieldName("operator"); op != nil {
		return p.text(op)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if !child.IsNamed() {
			return p.text(child)
		}
	}
	return ""
}

func (p *Parser) convertIf(n *sitter.Node) pyast.Stmt {
	root := &pyast.If{Span: p.span(n)}
	root.Test = p.convertExpr(n.ChildByFieldName("condition"))
	root.Body = p.convertBlock(n.ChildByFieldName("consequence"))

	// elif/else clauses appear as repeated "alternative" children;
	// each elif nests inside the previous branch's Orelse.
	current := root
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "elif_clause":
			elif := &pyast.If{Span: p.span(child)}
			elif.Test = p.convertExpr(child.ChildByFieldName("condition"))
			elif.Body = p.convertBlock(child.ChildByFieldName("consequence"))
			current.Orelse = []pyast.Stmt{elif}
			current = elif
		case "else_clause":
			current.Orelse = p.convertBlock(child.ChildByFieldName("body"))
		}
	}
	return root
}

func (p *Parser) convertTry(n *sitter.Node) pyast.Stmt {
	t := &pyast.Try{Span: p.span(n)}
	t.Body = p.convertBlock(n.ChildByFieldName("body"))
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "except_clause":
			h := pyast.ExceptHandler{Span: p.span(child)}
			// Children before the block: exception type, optional alias.
			var exprs []*sitter.Node
			var body *sitter.Node
			for j := 0; j < int(child.NamedChildCount()); j++ {
				cc := child.NamedChild(j)
				if cc.Type() == "block" {
					body = cc
				} else if cc.Type() != "comment" {
					exprs = append(exprs, cc)
				}
			}
			if len(exprs) > 0 {
				if exprs[0].Type() == "as_pattern" {
					h.Type = p.text(exprs[0].NamedChild(0))
					if alias := exprs[0].ChildByFieldName("alias"); alias != nil {
						h.Name = p.text(alias)
					}
				} else {
					h.Type = p.text(exprs[0])
					if len(exprs) > 1 {
						h.Name = p.text(exprs[1])
					}
				}
			}
			if body != nil {
				h.Body = p.convertBlock(body)
			}
			t.Handlers = append(t.Handlers, h)
		case "else_clause":
			t.Orelse = p.convertBlock(child.ChildByFieldName("body"))
		case "finally_clause":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				if child.NamedChild(j).Type() == "block" {
					t.Final = p.convertBlock(child.NamedChild(j))
				}
			}
		}
	}
	return t
}

func (p *Parser) convertWith(n *sitter.Node) pyast.Stmt {
	w := &pyast.With{Span: p.span(n)}
	if clause := p.findChild(n, "with_clause"); clause != nil {
		for i := 0; i < int(clause.NamedChildCount()); i++ {
			item := clause.NamedChild(i)
			if item.Type() != "with_item" {
				continue
			}
			value := item.ChildByFieldName("value")
			var wi pyast.WithItem
			if value != nil && value.Type() == "as_pattern" {
				wi.ContextExpr = p.convertExpr(value.NamedChild(0))
				if alias := value.ChildByFieldName("alias"); alias != nil {
					wi.Var = p.convertExpr(alias.NamedChild(0))
				}
			} else {
				wi.ContextExpr = p.convertExpr(value)
			}
			w.Items = append(w.Items, wi)
		}
	}
	w.Body = p.convertBlock(n.ChildByFieldName("body"))
	return w
}

func (p *Parser) findChild(n *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if n.NamedChild(i).Type() == typ {
			return n.NamedChild(i)
		}
	}
	return nil
}

func (p *Parser) convertImportAlias(n *sitter.Node) pyast.ImportAlias {
	if n.Type() == "aliased_import" {
		return pyast.ImportAlias{
			Name:   p.text(n.ChildByFieldName("name")),
			AsName: p.text(n.ChildByFieldName("alias")),
		}
	}
	return pyast.ImportAlias{Name: p.text(n)}
}

func (p *Parser) convertDecorated(n *sitter.Node) pyast.Stmt {
	var decorators []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "decorator" {
			decorators = append(decorators, strings.TrimPrefix(strings.TrimSpace(p.text(child)), "@"))
		}
	}
	def := n.ChildByFieldName("definition")
	if def == nil {
		p.errorf(n, "decorated definition without body")
		return nil
	}
	switch def.Type() {
	case "function_definition":
		return p.convertFunctionDef(def, decorators, false)
	case "class_definition":
		return p.convertClassDef(def, decorators)
	default:
		p.errorf(def, "unsupported decorated definition: %s", def.Type())
		return nil
	}
}

func (p *Parser) convertFunctionDef(n *sitter.Node, decorators []string, _ bool) pyast.Stmt {
	fn := &pyast.FunctionDef{
		Span:       p.span(n),
		Name:       p.text(n.ChildByFieldName("name")),
		Decorators: decorators,
	}
	// `async def` puts an anonymous "async" token before "def".
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "async" {
			fn.IsAsync = true
			break
		}
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		fn.Params = p.convertParams(params)
	}
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		fn.Returns = p.text(ret)
	}
	fn.Body = p.convertBlock(n.ChildByFieldName("body"))
	return fn
}

func (p *Parser) convertParams(n *sitter.Node) []pyast.Param {
	var out []pyast.Param
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		param := pyast.Param{Span: p.span(child)}
		switch child.Type() {
		case "identifier":
			param.Name = p.text(child)
		case "typed_parameter":
			param.Name = p.text(child.NamedChild(0))
			param.Annotation = p.text(child.ChildByFieldName("type"))
		case "default_parameter":
			param.Name = p.text(child.ChildByFieldName("name"))
			param.Default = p.convertExpr(child.ChildByFieldName("value"))
		case "typed_default_parameter":
			param.Name = p.text(child.ChildByFieldName("name"))
			param.Annotation = p.text(child.ChildByFieldName("type"))
			param.Default = p.convertExpr(child.ChildByFieldName("value"))
		case "list_splat_pattern":
			param.Name = p.text(child.NamedChild(0))
			param.IsVararg = true
		case "dictionary_splat_pattern":
			param.Name = p.text(child.NamedChild(0))
			param.IsKwarg = true
		case "keyword_separator", "positional_separator":
			continue // bare * and / markers carry no name
		default:
			p.errorf(child, "unsupported parameter form: %s", child.Type())
			continue
		}
		out = append(out, param)
	}
	return out
}

func (p *Parser) convertClassDef(n *sitter.Node, decorators []string) pyast.Stmt {
	cls := &pyast.ClassDef{
		Span:       p.span(n),
		Name:       p.text(n.ChildByFieldName("name")),
		Decorators: decorators,
	}
	if supers := n.ChildByFieldName("superclasses"); supers != nil {
		for i := 0; i < int(supers.NamedChildCount()); i++ {
			base := supers.NamedChild(i)
			if base.Type() == "keyword_argument" {
				continue // metaclass= and friends are rejected later by the bridge
			}
			cls.Bases = append(cls.Bases, p.text(base))
		}
	}
	cls.Body = p.convertBlock(n.ChildByFieldName("body"))
	return cls
}

// ===== Expressions =====

func (p *Parser) convertExpr(n *sitter.Node) pyast.Expr {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "identifier":
		return &pyast.Name{Span: p.span(n), ID: p.text(n)}
	case "integer":
		text := p.text(n)
		v, err := strconv.ParseInt(strings.ReplaceAll(text, "_", ""), 0, 64)
		if err != nil {
			p.errorf(n, "integer literal out of range: %s", text)
		}
		return &pyast.IntLit{Span: p.span(n), Value: v, Text: text}
	case "float":
		text := p.text(n)
		v, _ := strconv.ParseFloat(strings.ReplaceAll(text, "_", ""), 64)
		return &pyast.FloatLit{Span: p.span(n), Value: v, Text: text}
	case "true":
		return &pyast.BoolLit{Span: p.span(n), Value: true}
	case "false":
		return &pyast.BoolLit{Span: p.span(n), Value: false}
	case "none":
		return &pyast.NoneLit{Span: p.span(n)}
	case "string":
		return p.convertString(n)
	case "concatenated_string":
		return p.convertConcatenated(n)
	case "binary_operator":
		return &pyast.BinOp{
			Span:  p.span(n),
			Left:  p.convertExpr(n.ChildByFieldName("left")),
			Op:    p.text(n.ChildByFieldName("operator")),
			Right: p.convertExpr(n.ChildByFieldName("right")),
		}
	case "boolean_operator":
		op := "and"
		if p.operatorText(n) == "or" {
			op = "or"
		}
		left := p.convertExpr(n.ChildByFieldName("left"))
		right := p.convertExpr(n.ChildByFieldName("right"))
		// Flatten nested chains of the same operator.
		if lb, ok := left.(*pyast.BoolOp); ok && lb.Op == op {
			lb.Values = append(lb.Values, right)
			lb.Span = p.span(n)
			return lb
		}
		return &pyast.BoolOp{Span: p.span(n), Op: op, Values: []pyast.Expr{left, right}}
	case "not_operator":
		return &pyast.UnaryOp{Span: p.span(n), Op: "not", Operand: p.convertExpr(n.ChildByFieldName("argument"))}
	case "unary_operator":
		return &pyast.UnaryOp{
			Span:    p.span(n),
			Op:      p.text(n.ChildByFieldName("operator")),
			Operand: p.convertExpr(n.ChildByFieldName("argument")),
		}
	case "comparison_operator":
		return p.convertComparison(n)
	case "call":
		return p.convertCall(n)
	case "attribute":
		return &pyast.Attribute{
			Span:  p.span(n),
			Value: p.convertExpr(n.ChildByFieldName("object")),
			Attr:  p.text(n.ChildByFieldName("attribute")),
		}
	case "subscript":
		return &pyast.Subscript{
			Span:  p.span(n),
			Value: p.convertExpr(n.ChildByFieldName("value")),
			Index: p.convertExpr(n.ChildByFieldName("subscript")),
		}
	case "slice":
		s := &pyast.SliceExpr{Span: p.span(n)}
		// Positions of the named children relative to ':' tokens decide
		// lower/upper/step.
		colonSeen := 0
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			if child.Type() == ":" {
				colonSeen++
				continue
			}
			if !child.IsNamed() {
				continue
			}
			expr := p.convertExpr(child)
			switch colonSeen {
			case 0:
				s.Lower = expr
			case 1:
				s.Upper = expr
			default:
				s.Step = expr
			}
		}
		return s
	case "conditional_expression":
		// Children: body, condition, alternative.
		return &pyast.IfExp{
			Span:   p.span(n),
			Body:   p.convertExpr(n.NamedChild(0)),
			Test:   p.convertExpr(n.NamedChild(1)),
			Orelse: p.convertExpr(n.NamedChild(2)),
		}
	case "lambda":
		l := &pyast.Lambda{Span: p.span(n)}
		if params := n.ChildByFieldName("parameters"); params != nil {
			l.Params = p.convertParams(params)
		}
		l.Body = p.convertExpr(n.ChildByFieldName("body"))
		return l
	case "list":
		return &pyast.ListLit{Span: p.span(n), Elts: p.convertExprList(n)}
	case "tuple":
		return &pyast.TupleLit{Span: p.span(n), Elts: p.convertExprList(n)}
	case "set":
		return &pyast.SetLit{Span: p.span(n), Elts: p.convertExprList(n)}
	case "dictionary":
		d := &pyast.DictLit{Span: p.span(n)}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			pair := n.NamedChild(i)
			if pair.Type() != "pair" {
				continue
			}
			d.Keys = append(d.Keys, p.convertExpr(pair.ChildByFieldName("key")))
			d.Values = append(d.Values, p.convertExpr(pair.ChildByFieldName("value")))
		}
		return d
	case "pattern_list", "expression_list":
		return &pyast.TupleLit{Span: p.span(n), Elts: p.convertExprList(n)}
	case "list_splat", "list_splat_pattern":
		return &pyast.Starred{Span: p.span(n), Value: p.convertExpr(n.NamedChild(0))}
	case "list_comprehension":
		return p.convertComprehension(n, pyast.CompList)
	case "set_comprehension":
		return p.convertComprehension(n, pyast.CompSet)
	case "dictionary_comprehension":
		return p.convertComprehension(n, pyast.CompDict)
	case "generator_expression":
		return p.convertComprehension(n, pyast.CompGen)
	case "await":
		return &pyast.Await{Span: p.span(n), Value: p.convertExpr(n.NamedChild(0))}
	case "yield":
		// `yield from x` has an anonymous "from" child.
		for i := 0; i < int(n.ChildCount()); i++ {
			if n.Child(i).Type() == "from" {
				return &pyast.YieldFrom{Span: p.span(n), Value: p.convertExpr(n.NamedChild(0))}
			}
		}
		y := &pyast.Yield{Span: p.span(n)}
		if n.NamedChildCount() > 0 {
			y.Value = p.convertExpr(n.NamedChild(0))
		}
		return y
	case "named_expression":
		target, _ := p.convertExpr(n.ChildByFieldName("name")).(*pyast.Name)
		return &pyast.NamedExpr{
			Span:   p.span(n),
			Target: target,
			Value:  p.convertExpr(n.ChildByFieldName("value")),
		}
	case "parenthesized_expression":
		return p.convertExpr(n.NamedChild(0))
	case "ellipsis":
		p.errorf(n, "ellipsis is not supported")
		return &pyast.NoneLit{Span: p.span(n)}
	default:
		p.errorf(n, "unsupported expression: %s", n.Type())
		return &pyast.NoneLit{Span: p.span(n)}
	}
}

func (p *Parser) convertExprList(n *sitter.Node) []pyast.Expr {
	var out []pyast.Expr
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		out = append(out, p.convertExpr(child))
	}
	return out
}

// convertComparison handles chains like a < b <= c. Operand and operator
// tokens alternate among the node's children.
func (p *Parser) convertComparison(n *sitter.Node) pyast.Expr {
	cmp := &pyast.Compare{Span: p.span(n)}
	var pendingOp string
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.IsNamed() && child.Type() != "comment" {
			expr := p.convertExpr(child)
			if cmp.Left == nil {
				cmp.Left = expr
			} else {
				cmp.Ops = append(cmp.Ops, strings.TrimSpace(pendingOp))
				cmp.Comparators = append(cmp.Comparators, expr)
				pendingOp = ""
			}
			continue
		}
		switch child.Type() {
		case "<", "<=", ">", ">=", "==", "!=", "in", "is":
			if pendingOp == "" {
				pendingOp = child.Type()
			} else {
				pendingOp += " " + child.Type() // "not in", "is not"
			}
		case "not":
			if pendingOp == "" {
				pendingOp = "not"
			} else {
				pendingOp += " not"
			}
		}
	}
	return cmp
}

func (p *Parser) convertCall(n *sitter.Node) pyast.Expr {
	call := &pyast.Call{Span: p.span(n)}
	call.Func = p.convertExpr(n.ChildByFieldName("function"))
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return call
	}
	if args.Type() == "generator_expression" {
		// sum(x for x in xs) passes the generator directly.
		call.Args = append(call.Args, p.convertComprehension(args, pyast.CompGen))
		return call
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		switch arg.Type() {
		case "keyword_argument":
			call.Keywords = append(call.Keywords, pyast.Keyword{
				Arg:   p.text(arg.ChildByFieldName("name")),
				Value: p.convertExpr(arg.ChildByFieldName("value")),
			})
		case "comment":
		default:
			call.Args = append(call.Args, p.convertExpr(arg))
		}
	}
	return call
}

func (p *Parser) convertComprehension(n *sitter.Node, kind pyast.CompKind) pyast.Expr {
	comp := &pyast.Comprehension{Span: p.span(n), Kind: kind}
	body := n.ChildByFieldName("body")
	if kind == pyast.CompDict && body != nil && body.Type() == "pair" {
		comp.Key = p.convertExpr(body.ChildByFieldName("key"))
		comp.Value = p.convertExpr(body.ChildByFieldName("value"))
	} else {
		comp.Elt = p.convertExpr(body)
	}
	var current *pyast.CompClause
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "for_in_clause":
			comp.Clauses = append(comp.Clauses, pyast.CompClause{
				Target: p.convertExpr(child.ChildByFieldName("left")),
				Iter:   p.convertExpr(child.ChildByFieldName("right")),
			})
			current = &comp.Clauses[len(comp.Clauses)-1]
		case "if_clause":
			if current != nil {
				current.Ifs = append(current.Ifs, p.convertExpr(child.NamedChild(0)))
			}
		}
	}
	return comp
}
