// Package interp implements Allay's tree-walking template interpreter:
// the interpret(node, page) contract from spec.md §4.1/§4.2, grounded
// line-for-line on original_source/crates/allay-compiler/src/interpret/
// interpreter.rs, scope.rs, and var.rs.
package interp

import (
	"allay/internal/lang/ast"
	"allay/internal/page"
	"allay/internal/value"
)

// Template interprets every control in t in order, appending to p's
// output.
func Template(ctx *Context, p *page.Page, t ast.Template) error {
	for _, c := range t.Controls {
		if err := control(ctx, p, c); err != nil {
			return err
		}
	}
	return nil
}

func control(ctx *Context, p *page.Page, c ast.Control) error {
	switch c.Kind {
	case ast.ControlText:
		p.InsertText(c.Text)
		return nil
	case ast.ControlCommand:
		return command(ctx, p, c.Command)
	case ast.ControlSubstitution:
		return substitution(ctx, p, c.Substitution)
	case ast.ControlShortcode:
		return shortcode(ctx, p, c.Shortcode)
	}
	return nil
}

func command(ctx *Context, p *page.Page, c *ast.Command) error {
	switch c.Kind {
	case ast.CommandSet:
		return setCommand(ctx, p, c.Set)
	case ast.CommandFor:
		return forCommand(ctx, p, c.For)
	case ast.CommandWith:
		return withCommand(ctx, p, c.With)
	case ast.CommandIf:
		return ifCommand(ctx, p, c.If)
	case ast.CommandInclude:
		return includeCommand(ctx, p, c.Include)
	}
	return nil
}

func setCommand(ctx *Context, p *page.Page, c *ast.SetCommand) error {
	v, err := Expr(ctx, p, c.Value)
	if err != nil {
		return err
	}
	p.Scope().CreateLocal(c.Name, v)
	return nil
}

func forCommand(ctx *Context, p *page.Page, c *ast.ForCommand) error {
	listVal, err := Expr(ctx, p, c.List)
	if err != nil {
		return err
	}
	items, err := listVal.AsList()
	if err != nil {
		return err
	}
	for i, item := range items {
		p.Scope().CreateLocal(c.ItemName, item)
		if c.HasIndex {
			p.Scope().CreateLocal(c.IndexName, value.Int(int64(i)))
		}
		if err := Template(ctx, p, c.Inner); err != nil {
			return err
		}
	}
	return nil
}

func withCommand(ctx *Context, p *page.Page, c *ast.WithCommand) error {
	scopeVal, err := Expr(ctx, p, c.Scope)
	if err != nil {
		return err
	}
	p.Scope().CreateSubScope(scopeVal)
	err = Template(ctx, p, c.Inner)
	p.Scope().ExitSubScope()
	return err
}

func ifCommand(ctx *Context, p *page.Page, c *ast.IfCommand) error {
	condVal, err := Expr(ctx, p, c.Condition)
	if err != nil {
		return err
	}
	cond, err := condVal.AsBool()
	if err != nil {
		return err
	}
	if cond {
		return Template(ctx, p, c.Inner)
	}
	if c.HasElse {
		return Template(ctx, p, c.Else)
	}
	return nil
}

func includeCommand(ctx *Context, p *page.Page, c *ast.IncludeCommand) error {
	inherited, params, err := resolveInheritedAndParams(ctx, p, c.Params)
	if err != nil {
		return err
	}
	scope := page.NewScopeFrom(inherited, params)
	path, err := ctx.resolveFile(ctx.IncludeDir, c.Path)
	if err != nil {
		return err
	}
	page.NewChild(p, path, scope)
	return nil
}

// resolveInheritedAndParams implements the Include/SingleShortcode
// convention: the first parameter, if any, is the inherited scope data
// (must be an object); the rest populate the new page's param list.
// With no parameters at all, the inherited data is the caller's
// current `this`.
func resolveInheritedAndParams(ctx *Context, p *page.Page, exprs []ast.Expression) (value.Value, []value.Value, error) {
	if len(exprs) == 0 {
		return p.Scope().CurThis(), nil, nil
	}
	inherited, err := Expr(ctx, p, exprs[0])
	if err != nil {
		return value.Value{}, nil, err
	}
	if !inherited.IsObject() {
		return value.Value{}, nil, errTypeMismatch("inherited scope must be an object")
	}
	params := make([]value.Value, 0, len(exprs)-1)
	for _, e := range exprs[1:] {
		v, err := Expr(ctx, p, e)
		if err != nil {
			return value.Value{}, nil, err
		}
		params = append(params, v)
	}
	return inherited, params, nil
}

func shortcode(ctx *Context, p *page.Page, sc *ast.Shortcode) error {
	switch sc.Kind {
	case ast.ShortcodeSingle:
		return singleShortcode(ctx, p, sc)
	case ast.ShortcodeBlock:
		return blockShortcode(ctx, p, sc)
	}
	return nil
}

func evalParams(ctx *Context, p *page.Page, exprs []ast.Expression) ([]value.Value, error) {
	params := make([]value.Value, 0, len(exprs))
	for _, e := range exprs {
		v, err := Expr(ctx, p, e)
		if err != nil {
			return nil, err
		}
		params = append(params, v)
	}
	return params, nil
}

func singleShortcode(ctx *Context, p *page.Page, sc *ast.Shortcode) error {
	params, err := evalParams(ctx, p, sc.Params)
	if err != nil {
		return err
	}
	inherited := p.Scope().CurThis()
	scope := page.NewScopeFrom(inherited, params)
	path, err := ctx.resolveFile(ctx.ShortcodeDir, sc.Name)
	if err != nil {
		return err
	}
	page.NewChild(p, path, scope)
	return nil
}

// blockShortcode captures the block's body eagerly (a snapshot, not a
// lazy reference): the inner template is interpreted and flattened
// right away into the "inner" magic field. If the inner content is
// edited later in a hot-reload scenario the stale value will not
// update until the enclosing page is cleared — see DESIGN.md's Open
// Question #3.
func blockShortcode(ctx *Context, p *page.Page, sc *ast.Shortcode) error {
	params, err := evalParams(ctx, p, sc.Params)
	if err != nil {
		return err
	}
	inherited := p.Scope().CurThis()
	scope := page.NewScopeFrom(inherited, params)

	innerPage := p.CloneDetached()
	if err := Template(ctx, innerPage, sc.Inner); err != nil {
		return err
	}
	if ctx.CompileChild == nil {
		return errInclude(errTypeMismatch("no CompileChild configured for block shortcode capture"))
	}
	innerStr, err := ctx.CompileChild(innerPage)
	if err != nil {
		return errInclude(err)
	}
	scope.AddKey(MagicInner, value.String(innerStr))

	path, err := ctx.resolveFile(ctx.ShortcodeDir, sc.Name)
	if err != nil {
		return err
	}
	page.NewChild(p, path, scope)
	return nil
}

func substitution(ctx *Context, p *page.Page, sub *ast.Substitution) error {
	v, err := Expr(ctx, p, sub.Expr)
	if err != nil {
		return err
	}
	if !v.IsNull() {
		p.InsertText(v.String())
	}
	return nil
}

// --- expressions ------------------------------------------------------

// Expr evaluates an Expression to a Value.
func Expr(ctx *Context, p *page.Page, e ast.Expression) (value.Value, error) {
	return evalOr(ctx, p, e.Or)
}

func evalOr(ctx *Context, p *page.Page, o ast.Or) (value.Value, error) {
	if len(o.Ands) == 0 {
		return value.Null(), nil
	}
	first, err := evalAnd(ctx, p, o.Ands[0])
	if err != nil {
		return value.Value{}, err
	}
	if len(o.Ands) == 1 {
		return first, nil
	}
	b, err := first.AsBool()
	if err != nil {
		return value.Value{}, err
	}
	if b {
		return value.Bool(true), nil
	}
	for _, a := range o.Ands[1:] {
		v, err := evalAnd(ctx, p, a)
		if err != nil {
			return value.Value{}, err
		}
		bv, err := v.AsBool()
		if err != nil {
			return value.Value{}, err
		}
		if bv {
			return value.Bool(true), nil
		}
	}
	return value.Bool(false), nil
}

func evalAnd(ctx *Context, p *page.Page, a ast.And) (value.Value, error) {
	if len(a.Comparisons) == 0 {
		return value.Null(), nil
	}
	first, err := evalComparison(ctx, p, a.Comparisons[0])
	if err != nil {
		return value.Value{}, err
	}
	if len(a.Comparisons) == 1 {
		return first, nil
	}
	b, err := first.AsBool()
	if err != nil {
		return value.Value{}, err
	}
	if !b {
		return value.Bool(false), nil
	}
	for _, c := range a.Comparisons[1:] {
		v, err := evalComparison(ctx, p, c)
		if err != nil {
			return value.Value{}, err
		}
		bv, err := v.AsBool()
		if err != nil {
			return value.Value{}, err
		}
		if !bv {
			return value.Bool(false), nil
		}
	}
	return value.Bool(true), nil
}

func evalComparison(ctx *Context, p *page.Page, c ast.Comparison) (value.Value, error) {
	left, err := evalAddSub(ctx, p, c.Left)
	if err != nil {
		return value.Value{}, err
	}
	if c.Op == ast.CmpNone {
		return left, nil
	}
	right, err := evalAddSub(ctx, p, c.Right)
	if err != nil {
		return value.Value{}, err
	}
	cmp, err := value.Compare(left, right)
	if err != nil {
		return value.Value{}, err
	}
	var b bool
	switch c.Op {
	case ast.CmpEqual:
		b = cmp == 0
	case ast.CmpNotEqual:
		b = cmp != 0
	case ast.CmpGreater:
		b = cmp > 0
	case ast.CmpGreaterEqual:
		b = cmp >= 0
	case ast.CmpLess:
		b = cmp < 0
	case ast.CmpLessEqual:
		b = cmp <= 0
	}
	return value.Bool(b), nil
}

func evalAddSub(ctx *Context, p *page.Page, a ast.AddSub) (value.Value, error) {
	acc, err := evalMulDiv(ctx, p, a.Left)
	if err != nil {
		return value.Value{}, err
	}
	if len(a.Rest) == 0 {
		return acc, nil
	}
	accInt, err := acc.AsInt()
	if err != nil {
		return value.Value{}, err
	}
	for _, tail := range a.Rest {
		v, err := evalMulDiv(ctx, p, tail.Value)
		if err != nil {
			return value.Value{}, err
		}
		vi, err := v.AsInt()
		if err != nil {
			return value.Value{}, err
		}
		switch tail.Op {
		case ast.OpAdd:
			accInt += vi
		case ast.OpSubtract:
			accInt -= vi
		}
	}
	return value.Int(accInt), nil
}

func evalMulDiv(ctx *Context, p *page.Page, m ast.MulDiv) (value.Value, error) {
	acc, err := evalUnary(ctx, p, m.Left)
	if err != nil {
		return value.Value{}, err
	}
	if len(m.Rest) == 0 {
		return acc, nil
	}
	accInt, err := acc.AsInt()
	if err != nil {
		return value.Value{}, err
	}
	for _, tail := range m.Rest {
		v, err := evalUnary(ctx, p, tail.Value)
		if err != nil {
			return value.Value{}, err
		}
		vi, err := v.AsInt()
		if err != nil {
			return value.Value{}, err
		}
		switch tail.Op {
		case ast.OpMultiply:
			accInt *= vi
		case ast.OpDivide:
			accInt /= vi
		case ast.OpModulo:
			accInt %= vi
		}
	}
	return value.Int(accInt), nil
}

// evalUnary applies u's operators right-to-left (the operator closest
// to the primary binds first), matching the textual nesting of e.g.
// "--(-6)".
func evalUnary(ctx *Context, p *page.Page, u ast.Unary) (value.Value, error) {
	v, err := evalPrimary(ctx, p, u.Primary)
	if err != nil {
		return value.Value{}, err
	}
	if len(u.Ops) == 0 {
		return v, nil
	}
	if v.IsInt() {
		n, _ := v.AsInt()
		for i := len(u.Ops) - 1; i >= 0; i-- {
			switch u.Ops[i] {
			case ast.UnaryPositive:
				// no-op
			case ast.UnaryNegative:
				n = -n
			case ast.UnaryNot:
				return value.Value{}, errTypeMismatch("'!' requires a boolean")
			}
		}
		return value.Int(n), nil
	}
	if v.IsBool() {
		b, _ := v.AsBool()
		for i := len(u.Ops) - 1; i >= 0; i-- {
			switch u.Ops[i] {
			case ast.UnaryNot:
				b = !b
			case ast.UnaryPositive, ast.UnaryNegative:
				return value.Value{}, errTypeMismatch("'+'/'-' require an integer")
			}
		}
		return value.Bool(b), nil
	}
	return value.Value{}, errTypeMismatch("unary operators require an integer or a boolean")
}

func evalPrimary(ctx *Context, p *page.Page, pr ast.Primary) (value.Value, error) {
	switch pr.Kind {
	case ast.PrimaryInt:
		return value.Int(pr.Int), nil
	case ast.PrimaryFloat:
		return value.Float(pr.Float), nil
	case ast.PrimaryString:
		return value.String(pr.Str), nil
	case ast.PrimaryBool:
		return value.Bool(pr.Bool), nil
	case ast.PrimaryNull:
		return value.Null(), nil
	case ast.PrimaryParen:
		return Expr(ctx, p, *pr.Paren)
	case ast.PrimaryField:
		return evalField(ctx, p, pr.Field)
	case ast.PrimaryTopLevel:
		return evalTopLevel(ctx, p, pr.Top)
	}
	return value.Value{}, errTypeMismatch("unknown primary")
}

// evalField resolves a Field path. Before ordinary lookup, it tries the
// magic-field short-circuit: a field with no explicit top-level and
// exactly one Name part splices a stashed child page if one is
// registered under that name, appending a ChildPage token and yielding
// null — this is how "content" and "inner" work.
func evalField(ctx *Context, p *page.Page, f ast.Field) (value.Value, error) {
	if !f.HasTopLevel && len(f.Parts) == 1 && f.Parts[0].Kind == ast.FieldName {
		if _, ok := p.AttachStash(f.Parts[0].Name); ok {
			return value.Null(), nil
		}
	}

	base, err := topLevelBase(ctx, p, f.HasTopLevel, f.TopLevel)
	if err != nil {
		return value.Value{}, err
	}
	return walkParts(base, f.Parts)
}

func evalTopLevel(ctx *Context, p *page.Page, t ast.TopLevel) (value.Value, error) {
	return topLevelBase(ctx, p, true, t)
}

func topLevelBase(ctx *Context, p *page.Page, hasTop bool, t ast.TopLevel) (value.Value, error) {
	if !hasTop {
		return p.Scope().CurThis(), nil
	}
	switch t.Kind {
	case ast.TopThis:
		return p.Scope().CurThis(), nil
	case ast.TopSite:
		return ctx.Site, nil
	case ast.TopParam:
		return value.List(p.Scope().Param()), nil
	case ast.TopVariable:
		v, ok := p.Scope().GetLocal(t.Name)
		if !ok {
			return value.Value{}, errVariableNotFound(t.Name)
		}
		return v, nil
	}
	return value.Value{}, errTypeMismatch("unknown top-level")
}

func walkParts(base value.Value, parts []ast.FieldPart) (value.Value, error) {
	cur := base
	for _, part := range parts {
		switch part.Kind {
		case ast.FieldName:
			if !cur.IsObject() {
				return value.Value{}, errTypeMismatch("field access into a non-object value")
			}
			cur = cur.Get(part.Name)
		case ast.FieldIndex:
			if !cur.IsList() {
				return value.Value{}, errTypeMismatch("index into a non-list value")
			}
			v, err := cur.Index(part.Index)
			if err != nil {
				return value.Value{}, errIndexOutOfBounds(part.Index)
			}
			cur = v
		}
	}
	return cur, nil
}
