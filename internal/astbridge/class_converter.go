package astbridge

import (
	"strings"

	"github.com/pyrs-lang/pyrs/internal/hir"
	"github.com/pyrs-lang/pyrs/internal/pyast"
	"github.com/pyrs-lang/pyrs/internal/types"
)

func isEnumBase(base string) bool {
	switch base {
	case "Enum", "IntEnum", "StrEnum", "enum.Enum", "enum.IntEnum", "enum.StrEnum":
		return true
	}
	return false
}

func isABCBase(base string) bool {
	return base == "ABC" || base == "abc.ABC"
}

// convertClass lowers one class definition and classifies it. ADT
// parent/child linking happens after the whole module is converted.
func (b *Bridge) convertClass(n *pyast.ClassDef) *hir.Class {
	cls := &hir.Class{
		Span:       n.Span,
		Name:       n.Name,
		Bases:      n.Bases,
		Decorators: n.Decorators,
	}

	body := n.Body
	if doc, rest := extractDocstringClass(body); doc != "" {
		cls.Docstring = doc
		body = rest
	}

	isEnum := false
	for _, base := range n.Bases {
		if isEnumBase(base) {
			isEnum = true
		}
	}

	for _, stmt := range body {
		switch item := stmt.(type) {
		case *pyast.AnnAssign:
			name, ok := item.Target.(*pyast.Name)
			if !ok {
				b.errorf(item.Span, "class field target must be a name")
				continue
			}
			field := &hir.Field{
				Span: item.Span,
				Name: name.ID,
				Type: types.ParseAnnotation(item.Annotation),
			}
			if item.Value != nil {
				field.Default = b.convertExpr(item.Value)
			}
			cls.Fields = append(cls.Fields, field)
		case *pyast.Assign:
			if isEnum {
				if name, ok := item.Targets[0].(*pyast.Name); ok {
					cls.EnumMembers = append(cls.EnumMembers, hir.EnumMember{
						Name:  name.ID,
						Value: b.convertExpr(item.Value),
					})
					continue
				}
			}
			b.errorf(item.Span, "unannotated class-level assignment is not supported")
		case *pyast.FunctionDef:
			if fn := b.convertFunction(item, true); fn != nil {
				cls.Methods = append(cls.Methods, fn)
			}
		case *pyast.Pass:
		default:
			b.errorf(stmt.GetSpan(), "unsupported class-body statement")
		}
	}

	cls.Kind = b.classifyClass(cls, isEnum)
	if cls.Kind == hir.ClassPlain {
		b.liftInitFields(cls)
	}
	return cls
}

func extractDocstringClass(body []pyast.Stmt) (string, []pyast.Stmt) {
	if len(body) == 0 {
		return "", body
	}
	if es, ok := body[0].(*pyast.ExprStmt); ok {
		if lit, ok := es.Value.(*pyast.StringLit); ok {
			return lit.Value, body[1:]
		}
	}
	return "", body
}

func (b *Bridge) classifyClass(cls *hir.Class, isEnum bool) hir.ClassKind {
	if isEnum {
		return hir.ClassEnum
	}

	for _, base := range cls.Bases {
		if isABCBase(base) {
			return hir.ClassADTParent
		}
	}
	for _, m := range cls.Methods {
		if m.HasDecorator("abstractmethod") || m.HasDecorator("abc.abstractmethod") {
			return hir.ClassADTParent
		}
	}

	// A base naming another module class makes this a candidate ADT
	// child; linkADTGroups confirms once the parent's kind is known.
	for _, base := range cls.Bases {
		if _, ok := b.classNames[base]; ok {
			cls.Parent = base
			return hir.ClassADTChild
		}
	}

	if hasDecorator(cls.Decorators, "dataclass") {
		return hir.ClassRecord
	}

	// Dataclass-like without the decorator: every field annotated and
	// __init__ (if present) only assigns self.x = x.
	if len(cls.Fields) > 0 && initIsTrivial(cls) {
		return hir.ClassRecord
	}
	return hir.ClassPlain
}

func hasDecorator(decorators []string, name string) bool {
	for _, d := range decorators {
		if d == name || strings.HasPrefix(d, name+"(") {
			return true
		}
	}
	return false
}

// initIsTrivial reports whether __init__ is absent or only performs
// `self.x = x` assignments matching declared fields.
func initIsTrivial(cls *hir.Class) bool {
	for _, m := range cls.Methods {
		if m.Name != "__init__" {
			continue
		}
		for _, stmt := range m.Body {
			assign, ok := stmt.(*hir.Assign)
			if !ok {
				return false
			}
			if assign.Target.Kind != hir.TargetAttr {
				return false
			}
			recv, ok := assign.Target.Obj.(*hir.Var)
			if !ok || recv.Name != "self" {
				return false
			}
			v, ok := assign.Value.(*hir.Var)
			if !ok || v.Name != assign.Target.Attr {
				return false
			}
		}
	}
	return true
}

// liftInitFields derives fields for plain classes from `self.x = ...`
// assignments in __init__. Types start Unknown; inference refines them
// from the assigned expressions.
func (b *Bridge) liftInitFields(cls *hir.Class) {
	var init *hir.Function
	for _, m := range cls.Methods {
		if m.Name == "__init__" {
			init = m
			break
		}
	}
	if init == nil {
		return
	}

	have := make(map[string]bool, len(cls.Fields))
	for _, f := range cls.Fields {
		have[f.Name] = true
	}

	paramTypes := make(map[string]types.PyType)
	for _, p := range init.Params {
		paramTypes[p.Name] = p.Type
	}

	hir.WalkStmts(init.Body, func(s hir.Stmt) {
		assign, ok := s.(*hir.Assign)
		if !ok || assign.Target.Kind != hir.TargetAttr {
			return
		}
		recv, ok := assign.Target.Obj.(*hir.Var)
		if !ok || recv.Name != "self" || have[assign.Target.Attr] {
			return
		}
		have[assign.Target.Attr] = true
		field := &hir.Field{
			Span: assign.Span,
			Name: assign.Target.Attr,
			Type: types.Unknown(),
		}
		// `self.x = x` inherits the parameter's annotated type.
		if v, ok := assign.Value.(*hir.Var); ok {
			if t, ok := paramTypes[v.Name]; ok {
				field.Type = t
			}
		} else {
			field.Type = literalType(assign.Value)
		}
		cls.Fields = append(cls.Fields, field)
	})
}

// linkADTGroups resolves ADT parent/child relationships across the
// module and rejects inheritance from non-ABC classes.
func (b *Bridge) linkADTGroups(mod *hir.Module) {
	byName := make(map[string]*hir.Class, len(mod.Classes))
	for _, c := range mod.Classes {
		byName[c.Name] = c
	}

	for _, c := range mod.Classes {
		if c.Kind != hir.ClassADTChild {
			continue
		}
		parent, ok := byName[c.Parent]
		if !ok || parent.Kind != hir.ClassADTParent {
			b.errorf(c.Span, "class %s inherits from %s, which is not an ABC; only ABC hierarchies are supported", c.Name, c.Parent)
			c.Kind = hir.ClassPlain
			c.Parent = ""
			continue
		}
		parent.Children = append(parent.Children, c.Name)
	}
}
