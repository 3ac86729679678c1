package frontend

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"a11ygraph/internal/behavior"
	"a11ygraph/internal/diag"
	"a11ygraph/internal/source"
)

// maxSyntaxDiags caps syntax error reports per unit.
const maxSyntaxDiags = 10

// ScriptParser extracts behavior nodes from JavaScript and TypeScript with
// tree-sitter. Each call creates its own tree-sitter parser, so one value
// may be shared by concurrent callers.
type ScriptParser struct{}

func scriptLanguage(path string) *sitter.Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".mts", ".cts":
		return typescript.GetLanguage()
	case ".tsx":
		return tsx.GetLanguage()
	}
	return javascript.GetLanguage()
}

func (ScriptParser) Parse(ctx context.Context, u Unit) (Result, []diag.Diagnostic) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(scriptLanguage(u.Path))

	tree, err := parser.ParseCtx(ctx, nil, u.Text)
	if err != nil {
		return emptyResult(u), []diag.Diagnostic{
			diag.NewError(diag.FeParserFailed, u.span(0, 0), fmt.Sprintf("parse %s: %v", u.Path, err)),
		}
	}
	defer tree.Close()

	root := tree.RootNode()
	w := newScriptWalker(u)
	if root.HasError() {
		w.syntaxErrors(root)
	}
	w.hoist(root)
	w.walk(root, scope{})
	w.flushPending()
	return Result{Behavior: w.finish()}, w.diags
}

// scope is the context a node is visited in.
type scope struct {
	handler  *handlerCtx
	deferred bool
}

// handlerCtx describes the event handler enclosing a node.
type handlerCtx struct {
	ref   behavior.ElementRef
	event string
	body  source.Span
	param string // name of the event parameter
}

type pendingFunc struct {
	fn     *sitter.Node
	scope  scope
	walked bool
}

type scriptWalker struct {
	u        Unit
	src      []byte
	nodes    []behavior.Node
	bindings map[string]behavior.ElementRef
	pending  map[string]*pendingFunc
	held     map[uint32]bool
	order    []string
	diags    []diag.Diagnostic
}

func newScriptWalker(u Unit) *scriptWalker {
	return &scriptWalker{
		u:        u,
		src:      u.Text,
		bindings: make(map[string]behavior.ElementRef),
		pending:  make(map[string]*pendingFunc),
		held:     make(map[uint32]bool),
	}
}

func (w *scriptWalker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(w.src)
}

func (w *scriptWalker) spanOf(n *sitter.Node) source.Span {
	return w.u.span(n.StartByte(), n.EndByte())
}

// finish orders the extracted nodes by position and builds the model.
func (w *scriptWalker) finish() *behavior.Model {
	m := behavior.New(w.u.Path, w.u.File)
	sortBySpan(w.nodes)
	for _, n := range w.nodes {
		m.Append(n)
	}
	return m
}

func (w *scriptWalker) emit(n *sitter.Node, sc scope, bn behavior.Node) {
	bn.Span = w.spanOf(n)
	if sc.deferred {
		bn.Timing = behavior.TimingDeferred
	}
	w.nodes = append(w.nodes, bn)
}

func (w *scriptWalker) syntaxErrors(root *sitter.Node) {
	count := 0
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if count >= maxSyntaxDiags || n == nil || !n.HasError() && !n.IsMissing() {
			return
		}
		switch {
		case n.IsMissing():
			count++
			w.diags = append(w.diags, diag.NewError(diag.ScrMissingNode, w.spanOf(n),
				fmt.Sprintf("missing %s", n.Type())))
			return
		case n.Type() == "ERROR":
			count++
			w.diags = append(w.diags, diag.NewError(diag.ScrSyntaxError, w.spanOf(n),
				"syntax error"))
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i))
		}
	}
	visit(root)
}

func isFunction(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "function", "function_expression", "arrow_function", "function_declaration",
		"generator_function", "generator_function_declaration":
		return true
	}
	return false
}

// unwrap strips parentheses, await and TypeScript assertions.
func unwrap(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Type() {
		case "parenthesized_expression", "await_expression", "non_null_expression":
			n = n.NamedChild(0)
		case "as_expression", "satisfies_expression", "type_assertion":
			n = n.NamedChild(0)
		default:
			return n
		}
	}
	return nil
}

func (w *scriptWalker) walk(n *sitter.Node, sc scope) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "function_declaration", "generator_function_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			w.hold(w.text(name), n, sc)
			return
		}
	case "variable_declarator":
		if w.declarator(n, sc) {
			return
		}
	case "assignment_expression":
		if w.assignment(n, sc) {
			return
		}
	case "call_expression":
		if w.call(n, sc) {
			return
		}
	}
	w.walkChildren(n, sc)
}

func (w *scriptWalker) walkChildren(n *sitter.Node, sc scope) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		w.walk(n.NamedChild(i), sc)
	}
}

// hold keeps a named function until it is used as a handler or the walk
// ends, so that its body is visited once with the right context.
func (w *scriptWalker) hold(name string, fn *sitter.Node, sc scope) {
	if w.held[fn.StartByte()] {
		return
	}
	w.held[fn.StartByte()] = true
	if _, dup := w.pending[name]; dup {
		name = fmt.Sprintf("%s#%d", name, fn.StartByte())
	}
	w.pending[name] = &pendingFunc{fn: fn, scope: sc}
	w.order = append(w.order, name)
}

// hoist holds the top-level functions up front, so a handler may be
// registered before its declaration.
func (w *scriptWalker) hoist(root *sitter.Node) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		if n.Type() == "export_statement" {
			if d := n.ChildByFieldName("declaration"); d != nil {
				n = d
			}
		}
		switch n.Type() {
		case "function_declaration", "generator_function_declaration":
			if name := n.ChildByFieldName("name"); name != nil {
				w.hold(w.text(name), n, scope{})
			}
		case "lexical_declaration", "variable_declaration":
			for j := 0; j < int(n.NamedChildCount()); j++ {
				d := n.NamedChild(j)
				if d.Type() != "variable_declarator" {
					continue
				}
				name := d.ChildByFieldName("name")
				value := unwrap(d.ChildByFieldName("value"))
				if name != nil && name.Type() == "identifier" && isFunction(value) {
					w.hold(w.text(name), value, scope{})
				}
			}
		}
	}
}

func (w *scriptWalker) flushPending() {
	for i := 0; i < len(w.order); i++ {
		p := w.pending[w.order[i]]
		if p.walked {
			continue
		}
		p.walked = true
		w.walkFunction(p.fn, p.scope)
	}
}

func (w *scriptWalker) walkFunction(fn *sitter.Node, sc scope) {
	if body := fn.ChildByFieldName("body"); body != nil {
		w.walk(body, sc)
	}
}

func (w *scriptWalker) declarator(n *sitter.Node, sc scope) bool {
	name := n.ChildByFieldName("name")
	value := unwrap(n.ChildByFieldName("value"))
	if name == nil || name.Type() != "identifier" || value == nil {
		return false
	}
	if isFunction(value) {
		w.hold(w.text(name), value, sc)
		return true
	}
	w.bind(w.text(name), value, sc)
	return false
}

// bind records a variable that holds an element.
func (w *scriptWalker) bind(name string, value *sitter.Node, sc scope) {
	if ref, ok := w.query(value, sc); ok {
		ref.Binding = name
		w.bindings[name] = ref
	}
}

func (w *scriptWalker) assignment(n *sitter.Node, sc scope) bool {
	left := n.ChildByFieldName("left")
	right := unwrap(n.ChildByFieldName("right"))
	if left == nil || right == nil {
		return false
	}
	if left.Type() == "identifier" {
		w.bind(w.text(left), right, sc)
		return false
	}
	if left.Type() != "member_expression" {
		return false
	}
	prop := w.text(left.ChildByFieldName("property"))
	obj := left.ChildByFieldName("object")
	switch {
	case len(prop) > 2 && strings.HasPrefix(prop, "on") && (isFunction(right) || right.Type() == "identifier"):
		ref := w.target(obj, sc)
		ev := behavior.NormalizeEvent(prop[2:])
		w.emit(n, sc, behavior.Node{Action: behavior.ActionEventBinding, Ref: ref, Event: ev})
		w.walk(obj, sc)
		w.handler(right, ref, ev, sc)
		return true
	case len(prop) > 4 && strings.HasPrefix(prop, "aria") && prop[4] >= 'A' && prop[4] <= 'Z':
		w.emit(n, sc, behavior.Node{
			Action:    behavior.ActionStateMutation,
			Ref:       w.target(obj, sc),
			Attribute: prop,
			Value:     w.value(right),
		})
	}
	return false
}

// handler visits a function used as an event handler. Identifiers name a
// held function declared elsewhere in the unit.
func (w *scriptWalker) handler(fn *sitter.Node, ref behavior.ElementRef, event string, sc scope) {
	fn = unwrap(fn)
	if fn == nil {
		return
	}
	if fn.Type() == "identifier" {
		p, ok := w.pending[w.text(fn)]
		if !ok || p.walked {
			return
		}
		p.walked = true
		fn = p.fn
	}
	if !isFunction(fn) {
		w.walk(fn, sc)
		return
	}
	h := &handlerCtx{ref: ref, event: event}
	if body := fn.ChildByFieldName("body"); body != nil {
		h.body = w.spanOf(body)
	}
	h.param = w.firstParam(fn)
	w.walkFunction(fn, scope{handler: h, deferred: sc.deferred})
}

func (w *scriptWalker) firstParam(fn *sitter.Node) string {
	if p := fn.ChildByFieldName("parameter"); p != nil {
		return w.text(p)
	}
	params := fn.ChildByFieldName("parameters")
	if params == nil || params.NamedChildCount() == 0 {
		return ""
	}
	p := params.NamedChild(0)
	// typescript wraps parameters
	if p.Type() == "required_parameter" || p.Type() == "optional_parameter" {
		if pat := p.ChildByFieldName("pattern"); pat != nil {
			p = pat
		}
	}
	if p.Type() != "identifier" {
		return ""
	}
	return w.text(p)
}

func (w *scriptWalker) args(call *sitter.Node) []*sitter.Node {
	a := call.ChildByFieldName("arguments")
	if a == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, a.NamedChildCount())
	for i := 0; i < int(a.NamedChildCount()); i++ {
		if c := a.NamedChild(i); c.Type() != "comment" {
			out = append(out, c)
		}
	}
	return out
}

// str returns the value of a string literal or a template without
// substitutions.
func (w *scriptWalker) str(n *sitter.Node) (string, bool) {
	n = unwrap(n)
	if n == nil {
		return "", false
	}
	switch n.Type() {
	case "string":
		t := w.text(n)
		if len(t) >= 2 {
			return t[1 : len(t)-1], true
		}
	case "template_string":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if n.NamedChild(i).Type() == "template_substitution" {
				return "", false
			}
		}
		t := w.text(n)
		if len(t) >= 2 {
			return t[1 : len(t)-1], true
		}
	}
	return "", false
}

// value renders an assigned value: literal text for strings, source text
// otherwise.
func (w *scriptWalker) value(n *sitter.Node) string {
	if s, ok := w.str(n); ok {
		return s
	}
	return w.text(n)
}

var timerFuncs = map[string]bool{
	"setTimeout": true, "setInterval": true, "requestAnimationFrame": true,
	"queueMicrotask": true, "requestIdleCallback": true,
}

var blockMethods = map[string]bool{
	"stopPropagation": true, "stopImmediatePropagation": true, "preventDefault": true,
}

var bodyInserts = map[string]bool{
	"appendChild": true, "append": true, "prepend": true, "insertBefore": true,
}

func (w *scriptWalker) call(n *sitter.Node, sc scope) bool {
	fn := unwrap(n.ChildByFieldName("function"))
	if fn == nil {
		return false
	}
	args := w.args(n)

	if fn.Type() == "identifier" {
		switch name := w.text(fn); {
		case timerFuncs[name]:
			for _, a := range args {
				w.deferredArg(a, sc)
			}
			return true
		case name == "createPortal":
			w.portal(n, args, sc)
		}
		return false
	}
	if fn.Type() != "member_expression" {
		return false
	}

	obj := fn.ChildByFieldName("object")
	method := w.text(fn.ChildByFieldName("property"))
	switch {
	case method == "addEventListener" && len(args) >= 2:
		ev, ok := w.str(args[0])
		if !ok {
			return false
		}
		ref := w.target(obj, sc)
		ev = behavior.NormalizeEvent(ev)
		w.emit(n, sc, behavior.Node{Action: behavior.ActionEventBinding, Ref: ref, Event: ev})
		w.walk(obj, sc)
		w.handler(args[1], ref, ev, sc)
		for _, a := range args[2:] {
			w.walk(a, sc)
		}
		return true

	case method == "on" && w.isJQuery(obj) && len(args) >= 2:
		return w.jqueryOn(n, obj, args, sc)

	case method == "focus":
		w.emit(n, sc, behavior.Node{Action: behavior.ActionFocusTransfer, Ref: w.target(obj, sc)})

	case method == "setAttribute" && len(args) >= 2:
		if attr, ok := w.str(args[0]); ok {
			w.emit(n, sc, behavior.Node{
				Action:    behavior.ActionStateMutation,
				Ref:       w.target(obj, sc),
				Attribute: strings.ToLower(attr),
				Value:     w.value(args[1]),
			})
		}

	case (method == "removeAttribute" || method == "toggleAttribute") && len(args) >= 1:
		if attr, ok := w.str(args[0]); ok {
			bn := behavior.Node{Action: behavior.ActionStateMutation, Ref: w.target(obj, sc), Attribute: strings.ToLower(attr)}
			bn.Set("method", method)
			w.emit(n, sc, bn)
		}

	case blockMethods[method]:
		if sc.handler == nil {
			break
		}
		bn := behavior.Node{
			Action:  behavior.ActionPropagationBlock,
			Ref:     sc.handler.ref,
			Event:   sc.handler.event,
			Handler: sc.handler.body,
		}
		bn.Set("method", method)
		w.emit(n, sc, bn)

	case bodyInserts[method] && w.text(unwrap(obj)) == "document.body":
		bn := behavior.Node{Action: behavior.ActionCrossBoundaryRender, Ref: behavior.ElementRef{Binding: "document.body"}}
		bn.Set("api", "document.body."+method)
		w.emit(n, sc, bn)

	case method == "createPortal":
		w.portal(n, args, sc)

	case method == "then" || method == "catch" || method == "finally":
		w.walk(obj, sc)
		for _, a := range args {
			w.deferredArg(a, sc)
		}
		return true
	}
	return false
}

func (w *scriptWalker) portal(n *sitter.Node, args []*sitter.Node, sc scope) {
	ref := behavior.ElementRef{Binding: "document.body"}
	if len(args) >= 2 {
		ref = w.target(args[1], sc)
	}
	bn := behavior.Node{Action: behavior.ActionCrossBoundaryRender, Ref: ref}
	bn.Set("api", "createPortal")
	w.emit(n, sc, bn)
}

// deferredArg visits a callback argument that runs later.
func (w *scriptWalker) deferredArg(a *sitter.Node, sc scope) {
	sc.deferred = true
	a = unwrap(a)
	if a == nil {
		return
	}
	if a.Type() == "identifier" {
		if p, ok := w.pending[w.text(a)]; ok && !p.walked {
			p.walked = true
			w.walkFunction(p.fn, sc)
		}
		return
	}
	if isFunction(a) {
		w.walkFunction(a, sc)
		return
	}
	w.walk(a, sc)
}

func (w *scriptWalker) isJQuery(obj *sitter.Node) bool {
	obj = unwrap(obj)
	if obj == nil {
		return false
	}
	switch obj.Type() {
	case "call_expression":
		name := w.text(obj.ChildByFieldName("function"))
		return name == "$" || name == "jQuery"
	case "identifier":
		ref, ok := w.bindings[w.text(obj)]
		return ok && ref.Selector != "" || strings.HasPrefix(w.text(obj), "$")
	}
	return false
}

// jqueryOn handles .on("click keydown", [selector], handler).
func (w *scriptWalker) jqueryOn(n, obj *sitter.Node, args []*sitter.Node, sc scope) bool {
	events, ok := w.str(args[0])
	if !ok {
		return false
	}
	ref := w.target(obj, sc)
	if len(args) >= 3 {
		if sel, ok := w.str(args[1]); ok {
			ref = behavior.ElementRef{Selector: strings.TrimSpace(sel)}
		}
	}
	fn := args[len(args)-1]
	w.walk(obj, sc)
	var (
		bound   []string
		handled string
	)
	for _, ev := range strings.Fields(events) {
		ev, _, _ = strings.Cut(ev, ".") // namespaced events
		ev = behavior.NormalizeEvent(ev)
		w.emit(n, sc, behavior.Node{Action: behavior.ActionEventBinding, Ref: ref, Event: ev})
		bound = append(bound, ev)
		if handled == "" && behavior.IsKeyEvent(ev) {
			handled = ev
		}
	}
	if len(bound) == 0 {
		return true
	}
	// one handler body serves every event; key events take precedence
	if handled == "" {
		handled = bound[0]
	}
	w.handler(fn, ref, handled, sc)
	return true
}

// target names the element an expression evaluates to.
func (w *scriptWalker) target(expr *sitter.Node, sc scope) behavior.ElementRef {
	expr = unwrap(expr)
	if expr == nil {
		return behavior.ElementRef{}
	}
	switch expr.Type() {
	case "identifier":
		name := w.text(expr)
		if ref, ok := w.bindings[name]; ok {
			return ref
		}
		return behavior.ElementRef{Binding: name}
	case "this":
		if sc.handler != nil {
			return sc.handler.ref
		}
		return behavior.ElementRef{Binding: "this"}
	case "member_expression":
		obj := unwrap(expr.ChildByFieldName("object"))
		prop := w.text(expr.ChildByFieldName("property"))
		if sc.handler != nil && sc.handler.param != "" && w.text(obj) == sc.handler.param &&
			(prop == "target" || prop == "currentTarget") {
			return sc.handler.ref
		}
		return behavior.ElementRef{Binding: w.text(expr)}
	case "subscript_expression":
		return w.target(expr.ChildByFieldName("object"), sc)
	case "call_expression":
		if ref, ok := w.query(expr, sc); ok {
			return ref
		}
	}
	return behavior.ElementRef{Binding: w.text(expr)}
}

// query recognizes element lookups: document.querySelector and friends,
// getElementById, closest and jQuery's $().
func (w *scriptWalker) query(expr *sitter.Node, sc scope) (behavior.ElementRef, bool) {
	expr = unwrap(expr)
	if expr == nil {
		return behavior.ElementRef{}, false
	}
	if expr.Type() == "subscript_expression" {
		return w.query(expr.ChildByFieldName("object"), sc)
	}
	if expr.Type() != "call_expression" {
		return behavior.ElementRef{}, false
	}
	fn := unwrap(expr.ChildByFieldName("function"))
	args := w.args(expr)
	if fn == nil || len(args) == 0 {
		return behavior.ElementRef{}, false
	}

	var method string
	switch fn.Type() {
	case "identifier":
		method = w.text(fn)
		if method != "$" && method != "jQuery" {
			return behavior.ElementRef{}, false
		}
		if _, ok := w.str(args[0]); !ok {
			// $(this), $(el)
			return w.target(args[0], sc), true
		}
	case "member_expression":
		method = w.text(fn.ChildByFieldName("property"))
	default:
		return behavior.ElementRef{}, false
	}

	arg, literal := w.str(args[0])
	switch method {
	case "querySelector", "querySelectorAll", "closest", "$", "jQuery",
		"getElementById", "getElementsByClassName", "getElementsByTagName":
	default:
		return behavior.ElementRef{}, false
	}
	if !literal {
		w.diags = append(w.diags, diag.NewWarning(diag.ScrDynamicSelector, w.spanOf(args[0]),
			fmt.Sprintf("selector %s is computed at runtime and cannot be matched", w.text(args[0]))))
		return behavior.ElementRef{Binding: w.text(expr)}, true
	}
	arg = strings.TrimSpace(arg)
	switch method {
	case "getElementById":
		return behavior.ElementRef{Selector: "#" + arg}, true
	case "getElementsByClassName":
		return behavior.ElementRef{Selector: "." + strings.Join(strings.Fields(arg), ".")}, true
	case "getElementsByTagName":
		return behavior.ElementRef{Selector: strings.ToLower(arg)}, true
	}
	return behavior.ElementRef{Selector: arg}, true
}

// sortBySpan orders behavior nodes by start offset; ties keep extraction
// order.
func sortBySpan(nodes []behavior.Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Span.Start < nodes[j].Span.Start
	})
}
