package codegen

import (
	"strconv"
	"strings"

	"github.com/pyrs-lang/pyrs/internal/hir"
)

// argField is one recognized add_argument call, resolved far enough to
// render a clap derive field.
type argField struct {
	pyName   string // dest name, underscored
	long     string // "--name" spelling without the dashes, "" for positional
	short    string // single-letter flag, "" when absent
	elemType string // Rust scalar type before nargs/optionality wrapping
	action   string
	nargs    string // "?", "*", "+", or a decimal count
	defValue string // rendered Rust default, "" when absent
	help     string
	metavar  string
	choices  []string
	required bool
}

// subCommand is one add_parser registration plus its own arguments.
type subCommand struct {
	name    string
	variant string
	help    string
	fields  []argField
}

// argparseSpec is the accumulated CLI surface of a module: the parser
// locals, the flat arguments, and any subcommand tree. Emission
// consumes it twice, once for the module-level Args struct and once to
// suppress the parser-building statements.
type argparseSpec struct {
	parsers    map[string]bool        // ArgumentParser locals (groups alias in)
	subVar     string                 // add_subparsers() result local
	subDest    string                 // dest= of add_subparsers
	subParsers map[string]*subCommand // add_parser() local -> its spec
	argsVar    string                 // parse_args() target local
	desc       string
	version    string
	fields     []argField
	subs       []*subCommand
	subRequired bool
}

func (sp *argparseSpec) isParser(e hir.Expr) bool {
	v, ok := e.(*hir.Var)
	return ok && sp.parsers[v.Name]
}

func (sp *argparseSpec) subParserOf(e hir.Expr) *subCommand {
	if v, ok := e.(*hir.Var); ok {
		return sp.subParsers[v.Name]
	}
	return nil
}

// scanArgparse walks every function body looking for the
// parser-construction pattern. Clap is only requested when a parser is
// actually recognized, so an argparse import alone never drags the
// crate into Cargo.toml.
func (em *Emitter) scanArgparse() {
	sp := &argparseSpec{
		parsers:    make(map[string]bool),
		subParsers: make(map[string]*subCommand),
		subDest:    "command",
	}
	for _, fn := range em.mod.Functions {
		hir.WalkStmts(fn.Body, func(s hir.Stmt) { scanArgparseStmt(s, sp) })
	}
	if len(sp.parsers) == 0 {
		return
	}
	em.argparse = sp
	em.needs.Clap = true

	for _, f := range sp.fields {
		if strings.HasPrefix(fieldDecl(f), "Option<") {
			em.fx.OptionFields = append(em.fx.OptionFields, "args."+f.pyName)
		}
	}
	if len(sp.subs) > 0 && !sp.subRequired {
		em.fx.OptionFields = append(em.fx.OptionFields, "args.command")
	}
}

func scanArgparseStmt(s hir.Stmt, sp *argparseSpec) {
	switch n := s.(type) {
	case *hir.Assign:
		if n.Target.Kind != hir.TargetName {
			return
		}
		name := n.Target.Name
		switch v := n.Value.(type) {
		case *hir.Call:
			if v.Func == "argparse.ArgumentParser" {
				sp.parsers[name] = true
				if d, ok := kwargString(v.Kwargs, "description"); ok {
					sp.desc = d
				}
			}
		case *hir.MethodCall:
			switch {
			case sp.isParser(v.Recv) && v.Method == "add_subparsers":
				sp.subVar = name
				if d, ok := kwargString(v.Kwargs, "dest"); ok {
					sp.subDest = d
				}
				if r, ok := kwargBool(v.Kwargs, "required"); ok {
					sp.subRequired = r
				}
			case v.Method == "add_parser" && isVarNamed(v.Recv, sp.subVar):
				sc := &subCommand{}
				if len(v.Args) > 0 {
					sc.name, _ = stringLit(v.Args[0])
				}
				sc.variant = commandVariant(sc.name)
				sc.help, _ = kwargString(v.Kwargs, "help")
				sp.subParsers[name] = sc
				sp.subs = append(sp.subs, sc)
			case v.Method == "add_argument_group" || v.Method == "add_mutually_exclusive_group":
				// groups flatten into their parent's field list
				if sp.isParser(v.Recv) {
					sp.parsers[name] = true
				} else if sc := sp.subParserOf(v.Recv); sc != nil {
					sp.subParsers[name] = sc
				}
			case sp.isParser(v.Recv) && v.Method == "parse_args":
				sp.argsVar = name
			}
		}
	case *hir.ExprStmt:
		mc, ok := n.Value.(*hir.MethodCall)
		if !ok || mc.Method != "add_argument" {
			return
		}
		if sc := sp.subParserOf(mc.Recv); sc != nil {
			if f, ok := parseAddArgument(mc); ok {
				sc.fields = append(sc.fields, f)
			}
			return
		}
		if sp.isParser(mc.Recv) {
			f, ok := parseAddArgument(mc)
			if !ok {
				return
			}
			if f.action == "version" {
				if v, has := kwargString(mc.Kwargs, "version"); has {
					sp.version = v
				} else {
					sp.version = "0.0.0"
				}
				return
			}
			sp.fields = append(sp.fields, f)
		}
	}
}

// parseAddArgument resolves one add_argument call into a field spec.
// Unrecognized keyword shapes degrade to a plain String field rather
// than dropping the argument.
func parseAddArgument(mc *hir.MethodCall) (argField, bool) {
	var f argField
	for _, a := range mc.Args {
		s, ok := stringLit(a)
		if !ok {
			continue
		}
		switch {
		case strings.HasPrefix(s, "--"):
			f.long = strings.TrimPrefix(s, "--")
		case strings.HasPrefix(s, "-") && len(s) == 2:
			f.short = s[1:]
		default:
			f.pyName = s
		}
	}
	if f.long != "" {
		f.pyName = f.long
	}
	if f.pyName == "" && f.short != "" {
		f.pyName = f.short
	}
	if d, ok := kwargString(mc.Kwargs, "dest"); ok {
		f.pyName = d
	}
	f.pyName = strings.ReplaceAll(f.pyName, "-", "_")
	if f.pyName == "" {
		return f, false
	}

	f.elemType = "String"
	for _, kw := range mc.Kwargs {
		switch kw.Name {
		case "type":
			if v, ok := kw.Value.(*hir.Var); ok {
				f.elemType = argScalarType(v.Name)
			}
		case "action":
			f.action, _ = stringLit(kw.Value)
		case "nargs":
			if s, ok := stringLit(kw.Value); ok {
				f.nargs = s
			} else if lit, ok := kw.Value.(*hir.Literal); ok && lit.Kind == hir.LitInt {
				f.nargs = strconv.FormatInt(lit.Int, 10)
			}
		case "default":
			f.defValue = renderArgDefault(kw.Value)
		case "required":
			if b, ok := kw.Value.(*hir.Literal); ok && b.Kind == hir.LitBool {
				f.required = b.Bool
			}
		case "help":
			f.help, _ = stringLit(kw.Value)
		case "metavar":
			f.metavar, _ = stringLit(kw.Value)
		case "choices":
			if lst, ok := kw.Value.(*hir.ListLit); ok {
				for _, e := range lst.Elems {
					if s, ok := stringLit(e); ok {
						f.choices = append(f.choices, s)
					}
				}
			}
		}
	}
	return f, true
}

func argScalarType(pyType string) string {
	switch pyType {
	case "int":
		return "i64"
	case "float":
		return "f64"
	case "str":
		return "String"
	case "bool":
		return "bool"
	case "Path":
		return "std::path::PathBuf"
	}
	// validator functions parse from the raw string
	return "String"
}

func renderArgDefault(e hir.Expr) string {
	lit, ok := e.(*hir.Literal)
	if !ok || lit.IsNone() {
		return ""
	}
	switch lit.Kind {
	case hir.LitInt:
		return strconv.FormatInt(lit.Int, 10)
	case hir.LitFloat:
		return strconv.FormatFloat(lit.Float, 'g', -1, 64)
	case hir.LitBool:
		if lit.Bool {
			return "true"
		}
		return "false"
	case hir.LitString:
		return strconv.Quote(lit.Str)
	}
	return ""
}

// fieldDecl returns the declared Rust type after action, nargs, and
// optionality wrapping.
func fieldDecl(f argField) string {
	switch f.action {
	case "store_true", "store_false", "store_const":
		return "bool"
	case "count":
		return "u8"
	case "append":
		return "Vec<" + f.elemType + ">"
	}
	switch f.nargs {
	case "*", "+":
		return "Vec<" + f.elemType + ">"
	case "?":
		if f.defValue != "" {
			return f.elemType
		}
		return "Option<" + f.elemType + ">"
	case "":
	default:
		return "Vec<" + f.elemType + ">"
	}
	if f.long == "" && f.short == "" {
		return f.elemType // positional
	}
	if f.required || f.defValue != "" {
		return f.elemType
	}
	return "Option<" + f.elemType + ">"
}

// fieldAttr renders the #[arg(...)] attribute line, or "" when no
// clap directive is needed.
func fieldAttr(f argField) string {
	var parts []string
	if f.short != "" {
		parts = append(parts, "short = '"+f.short+"'")
	}
	if f.long != "" {
		parts = append(parts, "long")
	}
	switch f.action {
	case "store_false":
		parts = append(parts, "action = clap::ArgAction::SetFalse")
	case "count":
		parts = append(parts, "action = clap::ArgAction::Count")
	case "append":
		parts = append(parts, "action = clap::ArgAction::Append")
	}
	switch f.nargs {
	case "+":
		parts = append(parts, "num_args = 1..")
	case "*", "?", "":
	default:
		parts = append(parts, "num_args = "+f.nargs)
	}
	if f.defValue != "" {
		if f.elemType == "String" {
			parts = append(parts, "default_value = "+f.defValue)
		} else {
			parts = append(parts, "default_value_t = "+f.defValue)
		}
	}
	if f.required {
		parts = append(parts, "required = true")
	}
	if len(f.choices) > 0 {
		quoted := make([]string, len(f.choices))
		for i, c := range f.choices {
			quoted[i] = strconv.Quote(c)
		}
		parts = append(parts, "value_parser = ["+strings.Join(quoted, ", ")+"]")
	}
	if f.metavar != "" {
		parts = append(parts, "value_name = "+strconv.Quote(f.metavar))
	}
	if f.help != "" {
		parts = append(parts, "help = "+strconv.Quote(f.help))
	}
	if len(parts) == 0 {
		return ""
	}
	return "#[arg(" + strings.Join(parts, ", ") + ")]"
}

// commandVariant maps a subcommand spelling onto a Rust variant name.
func commandVariant(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '_' })
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, "")
}

// emitArgparse renders the module-level Args struct and, when
// subcommands exist, the Commands enum.
func (em *Emitter) emitArgparse() {
	sp := em.argparse
	em.line("#[derive(clap::Parser, Debug)]")
	var cmdAttrs []string
	if sp.desc != "" {
		cmdAttrs = append(cmdAttrs, "about = "+strconv.Quote(sp.desc))
	}
	if sp.version != "" {
		cmdAttrs = append(cmdAttrs, "version = "+strconv.Quote(sp.version))
	}
	if len(cmdAttrs) > 0 {
		em.linef("#[command(%s)]", strings.Join(cmdAttrs, ", "))
	}
	em.line("struct Args {")
	em.indent++
	for _, f := range sp.fields {
		em.emitArgField(f)
	}
	if len(sp.subs) > 0 {
		em.line("#[command(subcommand)]")
		if sp.subRequired {
			em.line("command: Commands,")
		} else {
			em.line("command: Option<Commands>,")
		}
	}
	em.indent--
	em.line("}")

	if len(sp.subs) == 0 {
		return
	}
	em.blank()
	em.line("#[derive(clap::Subcommand, Debug)]")
	em.line("enum Commands {")
	em.indent++
	for _, sc := range sp.subs {
		if sc.help != "" {
			em.linef("/// %s", sc.help)
		}
		if len(sc.fields) == 0 {
			em.linef("%s,", sc.variant)
			continue
		}
		em.linef("%s {", sc.variant)
		em.indent++
		for _, f := range sc.fields {
			em.emitArgField(f)
		}
		em.indent--
		em.line("},")
	}
	em.indent--
	em.line("}")
}

func (em *Emitter) emitArgField(f argField) {
	if attr := fieldAttr(f); attr != "" {
		em.line(attr)
	}
	em.linef("%s: %s,", sanitizeIdent(f.pyName), fieldDecl(f))
}

// argparseStmt consumes statements that built the Python parser. It
// returns true when the statement was handled (or deliberately
// dropped) so emitStmt falls through for everything else.
func (em *Emitter) argparseStmt(s hir.Stmt) bool {
	sp := em.argparse
	switch n := s.(type) {
	case *hir.Assign:
		if n.Target.Kind != hir.TargetName {
			return false
		}
		switch v := n.Value.(type) {
		case *hir.Call:
			return v.Func == "argparse.ArgumentParser"
		case *hir.MethodCall:
			if sp.isParser(v.Recv) && v.Method == "parse_args" {
				em.linef("let %s = Args::parse();", sanitizeIdent(n.Target.Name))
				em.fc.declared[n.Target.Name] = true
				return true
			}
			if sp.isParser(v.Recv) || sp.subParserOf(v.Recv) != nil || isVarNamed(v.Recv, sp.subVar) {
				switch v.Method {
				case "add_subparsers", "add_parser", "add_argument_group",
					"add_mutually_exclusive_group":
					return true
				}
			}
		}
	case *hir.ExprStmt:
		mc, ok := n.Value.(*hir.MethodCall)
		if !ok {
			return false
		}
		if sp.isParser(mc.Recv) || sp.subParserOf(mc.Recv) != nil {
			switch mc.Method {
			case "add_argument", "set_defaults", "print_help", "print_usage",
				"parse_args", "error":
				return true
			}
		}
	case *hir.If:
		if len(sp.subs) > 0 {
			if chain, ok := em.subcommandChain(n); ok {
				em.emitCommandMatch(chain)
				return true
			}
		}
	}
	return false
}

// commandArm pairs one recognized `args.<dest> == "name"` branch with
// its subcommand.
type commandArm struct {
	sub  *subCommand
	body []hir.Stmt
}

// subcommandChain matches an if/elif cascade whose every condition is a
// command-tag comparison against a registered subcommand.
func (em *Emitter) subcommandChain(n *hir.If) ([]commandArm, bool) {
	var arms []commandArm
	cur := n
	for {
		sc := em.commandCheck(cur.Cond)
		if sc == nil {
			return nil, false
		}
		arms = append(arms, commandArm{sub: sc, body: cur.Then})
		if len(cur.Else) == 0 {
			return arms, true
		}
		if elif, ok := soleIf(cur.Else); ok {
			cur = elif
			continue
		}
		// trailing plain else becomes the wildcard arm
		arms = append(arms, commandArm{body: cur.Else})
		return arms, true
	}
}

// commandCheck resolves `args.<dest> == "name"` to its subcommand.
func (em *Emitter) commandCheck(cond hir.Expr) *subCommand {
	sp := em.argparse
	bin, ok := cond.(*hir.Binary)
	if !ok || bin.Op != "==" {
		return nil
	}
	attr, ok := bin.Left.(*hir.Attr)
	if !ok || attr.Name != sp.subDest || !isVarNamed(attr.Value, sp.argsVar) {
		return nil
	}
	name, ok := stringLit(bin.Right)
	if !ok {
		return nil
	}
	for _, sc := range sp.subs {
		if sc.name == name {
			return sc
		}
	}
	return nil
}

// emitCommandMatch lowers the recognized chain to a match on the
// command tag. Arm fields rebind by clone or copy so the args struct
// is only borrowed, and args.<field> references inside the arm resolve
// to the destructured locals.
func (em *Emitter) emitCommandMatch(arms []commandArm) {
	sp := em.argparse
	em.linef("match &%s.command {", sanitizeIdent(sp.argsVar))
	em.indent++
	sawWildcard := false
	for _, arm := range arms {
		if arm.sub == nil {
			em.line("_ => {")
			sawWildcard = true
		} else {
			em.linef("%s => {", em.commandPattern(arm.sub))
		}
		em.indent++
		if arm.sub != nil {
			em.bindArmFields(arm.sub)
			em.argsLocals = make(map[string]string, len(arm.sub.fields))
			for _, f := range arm.sub.fields {
				em.argsLocals[f.pyName] = sanitizeIdent(f.pyName)
			}
		}
		em.emitBlock(arm.body)
		em.argsLocals = nil
		em.indent--
		em.line("}")
	}
	if !sawWildcard {
		em.line("_ => {}")
	}
	em.indent--
	em.line("}")
}

func (em *Emitter) commandPattern(sc *subCommand) string {
	pat := "Commands::" + sc.variant
	if len(sc.fields) > 0 {
		names := make([]string, len(sc.fields))
		for i, f := range sc.fields {
			names[i] = sanitizeIdent(f.pyName)
		}
		pat += " { " + strings.Join(names, ", ") + " }"
	}
	if em.argparse.subRequired {
		return pat
	}
	return "Some(" + pat + ")"
}

// bindArmFields rebinds the borrowed pattern fields by value. Copy
// types deref, everything else clones.
func (em *Emitter) bindArmFields(sc *subCommand) {
	for _, f := range sc.fields {
		name := sanitizeIdent(f.pyName)
		switch fieldDecl(f) {
		case "i64", "f64", "bool", "u8":
			em.linef("let %s = *%s;", name, name)
		default:
			em.linef("let %s = %s.clone();", name, name)
		}
	}
}

func isVarNamed(e hir.Expr, name string) bool {
	if name == "" {
		return false
	}
	v, ok := e.(*hir.Var)
	return ok && v.Name == name
}

func stringLit(e hir.Expr) (string, bool) {
	lit, ok := e.(*hir.Literal)
	if !ok || lit.Kind != hir.LitString {
		return "", false
	}
	return lit.Str, true
}

func kwargString(kws []hir.Kwarg, name string) (string, bool) {
	for _, kw := range kws {
		if kw.Name == name {
			return stringLit(kw.Value)
		}
	}
	return "", false
}

func kwargBool(kws []hir.Kwarg, name string) (bool, bool) {
	for _, kw := range kws {
		if kw.Name == name {
			if lit, ok := kw.Value.(*hir.Literal); ok && lit.Kind == hir.LitBool {
				return lit.Bool, true
			}
		}
	}
	return false, false
}
