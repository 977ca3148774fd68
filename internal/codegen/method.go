package codegen

import (
	"fmt"
	"strings"

	"github.com/pyrs-lang/pyrs/internal/borrow"
	"github.com/pyrs-lang/pyrs/internal/diagnostic"
	"github.com/pyrs-lang/pyrs/internal/hir"
	"github.com/pyrs-lang/pyrs/internal/types"
)

// dispatchMethod rewrites a method call on the receiver's static kind.
// User classes dispatch to their impl; builtins go through the rewrite
// tables; anything else records a dispatcher miss and passes through.
func (em *Emitter) dispatchMethod(n *hir.MethodCall) string {
	recvType := deref(n.Recv.GetType())
	recv := em.expr(n.Recv)

	if recvType.Kind == types.KindCustom {
		if s, ok := em.customMethod(recvType.Name, recv, n); ok {
			return s
		}
	}

	switch recvType.Kind {
	case types.KindString:
		if s, ok := em.stringMethod(recv, n); ok {
			return s
		}
	case types.KindList:
		if s, ok := em.listMethod(recv, recvType, n); ok {
			return s
		}
	case types.KindDict:
		if s, ok := em.dictMethod(recv, recvType, n); ok {
			return s
		}
	case types.KindSet, types.KindFrozenSet:
		if s, ok := em.setMethod(recv, recvType, n); ok {
			return s
		}
	}

	em.diags.Addf(diagnostic.LevelWarning, diagnostic.KindDispatcherMiss, n.GetSpan(),
		"no rewrite for method %q on %s; emitting call unchanged", n.Method, recvType.String())
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = em.expr(a)
	}
	return fmt.Sprintf("%s.%s(%s)", recv, sanitizeIdent(n.Method), strings.Join(args, ", "))
}

// stringMethod maps str methods onto &str/String methods.
func (em *Emitter) stringMethod(recv string, n *hir.MethodCall) (string, bool) {
	arg := func(i int) string {
		if i < len(n.Args) {
			return em.expr(n.Args[i])
		}
		return ""
	}
	switch n.Method {
	case "upper":
		return recv + ".to_uppercase()", true
	case "lower":
		return recv + ".to_lowercase()", true
	case "strip":
		if len(n.Args) == 1 {
			return fmt.Sprintf("%s.trim_matches(|c: char| %s.contains(c)).to_string()", recv, arg(0)), true
		}
		return recv + ".trim().to_string()", true
	case "lstrip":
		return recv + ".trim_start().to_string()", true
	case "rstrip":
		return recv + ".trim_end().to_string()", true
	case "split":
		if len(n.Args) == 0 {
			return fmt.Sprintf("%s.split_whitespace().map(|s| s.to_string()).collect::<Vec<_>>()", recv), true
		}
		return fmt.Sprintf("%s.split(%s).map(|s| s.to_string()).collect::<Vec<_>>()", recv, arg(0)), true
	case "splitlines":
		return fmt.Sprintf("%s.lines().map(|s| s.to_string()).collect::<Vec<_>>()", recv), true
	case "join":
		return fmt.Sprintf("%s.join(%s)", em.joinOperand(n), recv), true
	case "replace":
		return fmt.Sprintf("%s.replace(%s, %s)", recv, arg(0), arg(1)), true
	case "startswith":
		return fmt.Sprintf("%s.starts_with(%s)", recv, arg(0)), true
	case "endswith":
		return fmt.Sprintf("%s.ends_with(%s)", recv, arg(0)), true
	case "find":
		return fmt.Sprintf("%s.find(%s).map(|i| i as i64).unwrap_or(-1)", recv, arg(0)), true
	case "rfind":
		return fmt.Sprintf("%s.rfind(%s).map(|i| i as i64).unwrap_or(-1)", recv, arg(0)), true
	case "index":
		return fmt.Sprintf("%s.find(%s).unwrap() as i64", recv, arg(0)), true
	case "rindex":
		return fmt.Sprintf("%s.rfind(%s).unwrap() as i64", recv, arg(0)), true
	case "count":
		return fmt.Sprintf("%s.matches(%s).count() as i64", recv, arg(0)), true
	case "isdigit":
		return fmt.Sprintf("!%s.is_empty() && %s.chars().all(|c| c.is_ascii_digit())", recv, recv), true
	case "isalpha":
		return fmt.Sprintf("!%s.is_empty() && %s.chars().all(|c| c.is_alphabetic())", recv, recv), true
	case "isspace":
		return fmt.Sprintf("!%s.is_empty() && %s.chars().all(|c| c.is_whitespace())", recv, recv), true
	case "isupper":
		return fmt.Sprintf("%s.chars().any(|c| c.is_uppercase()) && !%s.chars().any(|c| c.is_lowercase())", recv, recv), true
	case "islower":
		return fmt.Sprintf("%s.chars().any(|c| c.is_lowercase()) && !%s.chars().any(|c| c.is_uppercase())", recv, recv), true
	case "title":
		return fmt.Sprintf("%s.split_whitespace().map(|w| { let mut c = w.chars(); match c.next() { Some(f) => f.to_uppercase().collect::<String>() + &c.as_str().to_lowercase(), None => String::new() } }).collect::<Vec<_>>().join(\" \")", recv), true
	case "capitalize":
		return fmt.Sprintf("{ let mut c = %s.chars(); match c.next() { Some(f) => f.to_uppercase().collect::<String>() + c.as_str(), None => String::new() } }", recv), true
	case "zfill":
		return fmt.Sprintf("format!(\"{:0>width$}\", %s, width = %s as usize)", recv, arg(0)), true
	case "ljust":
		return fmt.Sprintf("format!(\"{:<width$}\", %s, width = %s as usize)", recv, arg(0)), true
	case "rjust":
		return fmt.Sprintf("format!(\"{:>width$}\", %s, width = %s as usize)", recv, arg(0)), true
	case "center":
		return fmt.Sprintf("format!(\"{:^width$}\", %s, width = %s as usize)", recv, arg(0)), true
	case "partition":
		return fmt.Sprintf("{ let sep = %s.to_string(); match %s.find(sep.as_str()) { Some(i) => (%s[..i].to_string(), sep.clone(), %s[i + sep.len()..].to_string()), None => (%s.to_string(), String::new(), String::new()) } }",
			arg(0), recv, recv, recv, recv), true
	case "expandtabs":
		if len(n.Args) == 1 {
			return fmt.Sprintf("%s.replace('\\t', &\" \".repeat(%s as usize))", recv, arg(0)), true
		}
		return fmt.Sprintf("%s.replace('\\t', \"        \")", recv), true
	case "removeprefix":
		return fmt.Sprintf("%s.strip_prefix(%s).unwrap_or(&%s).to_string()", recv, arg(0), recv), true
	case "removesuffix":
		return fmt.Sprintf("%s.strip_suffix(%s).unwrap_or(&%s).to_string()", recv, arg(0), recv), true
	case "rsplit":
		if len(n.Args) == 0 {
			return fmt.Sprintf("%s.split_whitespace().map(|s| s.to_string()).collect::<Vec<_>>()", recv), true
		}
		return fmt.Sprintf("{ let mut v = %s.rsplit(%s).map(|s| s.to_string()).collect::<Vec<_>>(); v.reverse(); v }", recv, arg(0)), true
	case "encode":
		return fmt.Sprintf("%s.as_bytes().to_vec()", recv), true
	case "format":
		// str.format with positional holes only.
		args := make([]string, len(n.Args))
		for i := range n.Args {
			args[i] = arg(i)
		}
		return fmt.Sprintf("format!(%s, %s)", recv, strings.Join(args, ", ")), true
	}
	return "", false
}

// joinOperand renders the iterable being joined as Vec<String>.
func (em *Emitter) joinOperand(n *hir.MethodCall) string {
	it := n.Args[0]
	if comp, ok := it.(*hir.Comp); ok {
		return em.comprehension(comp)
	}
	t := deref(it.GetType())
	if t.Kind == types.KindList && t.ElemType().Kind == types.KindString {
		return em.expr(it)
	}
	return fmt.Sprintf("%s.iter().map(|x| x.to_string()).collect::<Vec<_>>()", em.expr(it))
}

// listMethod maps list methods onto Vec.
func (em *Emitter) listMethod(recv string, t types.PyType, n *hir.MethodCall) (string, bool) {
	elem := t.ElemType()
	arg := func(i int) string { return em.expr(n.Args[i]) }
	switch n.Method {
	case "append":
		return fmt.Sprintf("%s.push(%s)", recv, em.exprOwned(n.Args[0], elem)), true
	case "pop":
		if len(n.Args) == 1 {
			return fmt.Sprintf("%s.remove(%s)", recv, em.usize(n.Args[0], recv)), true
		}
		return fmt.Sprintf("%s.pop().unwrap()", recv), true
	case "insert":
		return fmt.Sprintf("%s.insert(%s, %s)", recv, em.usize(n.Args[0], recv), em.exprOwned(n.Args[1], elem)), true
	case "remove":
		return fmt.Sprintf("{ let pos = %s.iter().position(|x| *x == %s).unwrap(); %s.remove(pos); }", recv, arg(0), recv), true
	case "extend":
		return fmt.Sprintf("%s.extend(%s.iter().cloned())", recv, arg(0)), true
	case "sort":
		for _, kw := range n.Kwargs {
			if kw.Name == "reverse" {
				if lit, ok := kw.Value.(*hir.Literal); ok && lit.Kind == hir.LitBool && lit.Bool {
					return fmt.Sprintf("%s.sort_by(|a, b| b.cmp(a))", recv), true
				}
			}
			if kw.Name == "key" {
				return fmt.Sprintf("%s.sort_by_key(%s)", recv, em.expr(kw.Value)), true
			}
		}
		return recv + ".sort()", true
	case "reverse":
		return recv + ".reverse()", true
	case "index":
		return fmt.Sprintf("%s.iter().position(|x| *x == %s).unwrap() as i64", recv, arg(0)), true
	case "count":
		return fmt.Sprintf("%s.iter().filter(|x| **x == %s).count() as i64", recv, arg(0)), true
	case "clear":
		return recv + ".clear()", true
	case "copy":
		return recv + ".clone()", true
	}
	return "", false
}

// dictMethod maps dict methods onto HashMap, keeping get/setdefault
// Option semantics.
func (em *Emitter) dictMethod(recv string, t types.PyType, n *hir.MethodCall) (string, bool) {
	key := keyTypeOf(t)
	val := types.Unknown()
	if t.Elem != nil {
		val = *t.Elem
	}
	switch n.Method {
	case "get":
		k := em.keyArg(n.Args[0], key)
		if len(n.Args) >= 2 {
			return fmt.Sprintf("%s.get(%s).cloned().unwrap_or(%s)", recv, k, em.exprOwned(n.Args[1], val)), true
		}
		return fmt.Sprintf("%s.get(%s).cloned()", recv, k), true
	case "keys":
		return fmt.Sprintf("%s.keys().cloned().collect::<Vec<_>>()", recv), true
	case "values":
		return fmt.Sprintf("%s.values().cloned().collect::<Vec<_>>()", recv), true
	case "items":
		return fmt.Sprintf("%s.iter().map(|(k, v)| (k.clone(), v.clone())).collect::<Vec<_>>()", recv), true
	case "pop":
		k := em.keyArg(n.Args[0], key)
		if len(n.Args) >= 2 {
			return fmt.Sprintf("%s.remove(%s).unwrap_or(%s)", recv, k, em.exprOwned(n.Args[1], val)), true
		}
		return fmt.Sprintf("%s.remove(%s).unwrap()", recv, k), true
	case "setdefault":
		return fmt.Sprintf("%s.entry(%s).or_insert(%s).clone()", recv,
			em.exprOwned(n.Args[0], key), em.exprOwned(n.Args[1], val)), true
	case "update":
		return fmt.Sprintf("%s.extend(%s.iter().map(|(k, v)| (k.clone(), v.clone())))", recv, em.expr(n.Args[0])), true
	case "clear":
		return recv + ".clear()", true
	case "copy":
		return recv + ".clone()", true
	}
	return "", false
}

// setMethod maps set methods onto HashSet.
func (em *Emitter) setMethod(recv string, t types.PyType, n *hir.MethodCall) (string, bool) {
	elem := t.ElemType()
	arg := func(i int) string { return em.expr(n.Args[i]) }
	switch n.Method {
	case "add":
		return fmt.Sprintf("%s.insert(%s)", recv, em.exprOwned(n.Args[0], elem)), true
	case "remove":
		return fmt.Sprintf("%s.take(&%s).unwrap()", recv, arg(0)), true
	case "discard":
		return fmt.Sprintf("%s.remove(&%s)", recv, arg(0)), true
	case "union":
		return fmt.Sprintf("%s.union(&%s).cloned().collect::<HashSet<_>>()", recv, arg(0)), true
	case "intersection":
		return fmt.Sprintf("%s.intersection(&%s).cloned().collect::<HashSet<_>>()", recv, arg(0)), true
	case "difference":
		return fmt.Sprintf("%s.difference(&%s).cloned().collect::<HashSet<_>>()", recv, arg(0)), true
	case "issubset":
		return fmt.Sprintf("%s.is_subset(&%s)", recv, arg(0)), true
	case "clear":
		return recv + ".clear()", true
	case "copy":
		return recv + ".clone()", true
	}
	return "", false
}

// customMethod handles user classes and the shimmed runtime types.
func (em *Emitter) customMethod(className, recv string, n *hir.MethodCall) (string, bool) {
	switch className {
	case "File":
		return em.fileMethod(recv, n)
	case "Stdout":
		return em.fileMethod(recv, n)
	case "datetime", "PyDateTime":
		return em.datetimeMethod(recv, n)
	case "Regex":
		return em.compiledRegexMethod(recv, n)
	case "Match", "PyMatch":
		return em.matchMethod(recv, n)
	case "Hasher":
		return em.hasherMethod(recv, n)
	case "Path":
		return em.pathMethod(recv, n)
	}
	if c := em.mod.FindClass(className); c != nil {
		return em.userMethod(c, recv, n), true
	}
	return "", false
}

// fileMethod maps file-object methods onto io traits; fallible calls
// pick ? or unwrap from the enclosing signature.
func (em *Emitter) fileMethod(recv string, n *hir.MethodCall) (string, bool) {
	q := ".unwrap()"
	if em.fc.fn.CanFail && em.fc.errType == "Box<dyn std::error::Error>" {
		q = "?"
	}
	switch n.Method {
	case "read":
		tmp := em.fc.freshTemp("buf")
		em.linef("let mut %s = String::new();", tmp)
		em.linef("std::io::Read::read_to_string(&mut %s, &mut %s)%s;", recv, tmp, q)
		return tmp, true
	case "readline":
		tmp := em.fc.freshTemp("line")
		em.linef("let mut %s = String::new();", tmp)
		em.linef("std::io::BufRead::read_line(&mut std::io::BufReader::new(&%s), &mut %s)%s;", recv, tmp, q)
		return tmp, true
	case "readlines":
		return fmt.Sprintf("std::io::BufRead::lines(std::io::BufReader::new(&%s)).map(|l| l.unwrap()).collect::<Vec<_>>()", recv), true
	case "write":
		return fmt.Sprintf("std::io::Write::write_all(&mut %s, %s.as_bytes())", recv, em.expr(n.Args[0])), true
	case "flush":
		return fmt.Sprintf("std::io::Write::flush(&mut %s)", recv), true
	case "close":
		return fmt.Sprintf("drop(%s)", recv), true
	}
	return "", false
}

// hasherMethod maps hashlib object methods onto the shared Digest
// trait. The fully qualified sha2 path names the same trait every
// digest crate re-exports, and sha2 is always present once hashlib is
// imported.
func (em *Emitter) hasherMethod(recv string, n *hir.MethodCall) (string, bool) {
	switch n.Method {
	case "update":
		return fmt.Sprintf("sha2::Digest::update(&mut %s, %s)", recv, em.expr(n.Args[0])), true
	case "hexdigest":
		return fmt.Sprintf("format!(\"{:x}\", sha2::Digest::finalize(%s.clone()))", recv), true
	case "digest":
		return fmt.Sprintf("sha2::Digest::finalize(%s.clone()).to_vec()", recv), true
	case "digest_size":
		return fmt.Sprintf("(sha2::Digest::finalize(%s.clone()).len() as i64)", recv), true
	case "copy":
		return recv + ".clone()", true
	}
	return "", false
}

// pathMethod maps pathlib.Path methods onto std::path/std::fs.
func (em *Emitter) pathMethod(recv string, n *hir.MethodCall) (string, bool) {
	q := ".unwrap()"
	if em.fc.fn.CanFail && em.fc.errType == "Box<dyn std::error::Error>" {
		q = "?"
	}
	switch n.Method {
	case "read_text":
		return fmt.Sprintf("std::fs::read_to_string(&%s)%s", recv, q), true
	case "write_text":
		return fmt.Sprintf("std::fs::write(&%s, %s)%s", recv, em.expr(n.Args[0]), q), true
	case "exists":
		return recv + ".exists()", true
	case "is_file":
		return recv + ".is_file()", true
	case "is_dir":
		return recv + ".is_dir()", true
	case "resolve", "absolute":
		return fmt.Sprintf("%s.canonicalize()%s", recv, q), true
	case "joinpath":
		return fmt.Sprintf("%s.join(%s)", recv, em.expr(n.Args[0])), true
	case "with_suffix":
		return fmt.Sprintf("%s.with_extension(%s.trim_start_matches('.'))", recv, em.expr(n.Args[0])), true
	case "stat":
		return fmt.Sprintf("%s.metadata()%s", recv, q), true
	}
	return "", false
}

func (em *Emitter) datetimeMethod(recv string, n *hir.MethodCall) (string, bool) {
	em.needs.DateTimeShim = true
	switch n.Method {
	case "strftime":
		return fmt.Sprintf("%s.strftime(%s)", recv, em.expr(n.Args[0])), true
	case "isoformat":
		return recv + ".isoformat()", true
	case "timestamp":
		return recv + ".timestamp()", true
	}
	return "", false
}

func (em *Emitter) compiledRegexMethod(recv string, n *hir.MethodCall) (string, bool) {
	em.needs.Regex = true
	arg := func(i int) string { return em.expr(n.Args[i]) }
	switch n.Method {
	case "search":
		em.needs.MatchShim = true
		return fmt.Sprintf("%s.captures(%s).map(PyMatch::from)", recv, arg(0)), true
	case "match":
		em.needs.MatchShim = true
		return fmt.Sprintf("%s.captures(%s).filter(|c| c.get(0).unwrap().start() == 0).map(PyMatch::from)", recv, arg(0)), true
	case "fullmatch":
		em.needs.MatchShim = true
		return fmt.Sprintf("%s.captures(%s).filter(|c| c.get(0).unwrap().as_str().len() == %s.len()).map(PyMatch::from)", recv, arg(0), arg(0)), true
	case "finditer":
		em.needs.MatchShim = true
		return fmt.Sprintf("%s.captures_iter(%s).map(PyMatch::from).collect::<Vec<_>>()", recv, arg(0)), true
	case "split":
		return fmt.Sprintf("%s.split(%s).map(|s| s.to_string()).collect::<Vec<_>>()", recv, arg(0)), true
	case "findall":
		return fmt.Sprintf("%s.find_iter(%s).map(|m| m.as_str().to_string()).collect::<Vec<_>>()", recv, arg(0)), true
	case "sub":
		return fmt.Sprintf("%s.replace_all(%s, %s).to_string()", recv, arg(1), arg(0)), true
	}
	return "", false
}

func (em *Emitter) matchMethod(recv string, n *hir.MethodCall) (string, bool) {
	switch n.Method {
	case "group":
		if len(n.Args) == 0 {
			return recv + ".group(0)", true
		}
		return fmt.Sprintf("%s.group(%s)", recv, em.expr(n.Args[0])), true
	case "groups":
		return recv + ".groups()", true
	case "start", "end", "span":
		idx := "0"
		if len(n.Args) > 0 {
			idx = em.expr(n.Args[0])
		}
		return fmt.Sprintf("%s.%s(%s)", recv, n.Method, idx), true
	}
	return "", false
}

// userMethod renders a call on a user class, matching arguments to the
// method's borrow facts the same way free-function calls do.
func (em *Emitter) userMethod(c *hir.Class, recv string, n *hir.MethodCall) string {
	m := findMethod(c, n.Method)
	if m == nil {
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = em.expr(a)
		}
		return fmt.Sprintf("%s.%s(%s)", recv, sanitizeIdent(n.Method), strings.Join(args, ", "))
	}
	ff := em.facts[c.Name+"."+n.Method]
	params := m.Params
	if len(params) > 0 && params[0].Name == "self" {
		params = params[1:]
	}
	args := make([]string, 0, len(n.Args))
	for i, a := range n.Args {
		var strat borrow.Strategy = borrow.Own
		var pt types.PyType
		if i < len(params) {
			pt = params[i].Type
			if ff != nil {
				if pf, ok := ff.Params[params[i].Name]; ok {
					strat = pf.Strategy
				}
			}
		}
		args = append(args, em.argFor(a, strat, pt))
	}
	call := fmt.Sprintf("%s.%s(%s)", recv, sanitizeIdent(methodName(m)), strings.Join(args, ", "))
	if m.CanFail {
		if em.fc.fn.CanFail {
			return call + "?"
		}
		return call + ".unwrap()"
	}
	return call
}
