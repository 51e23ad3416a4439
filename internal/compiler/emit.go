// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package compiler

import (
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/ext/userfunc"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/specialistvlad/treeplug/internal/diag"
	"github.com/specialistvlad/treeplug/internal/model"
	"github.com/zclconf/go-cty/cty/function"
)

const (
	functionBlock = "function"
	moduleBlock   = "module"
)

// moduleSchema is what may remain at the top level once the function
// blocks have been taken out.
var moduleSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: moduleBlock},
	},
}

// moduleHeader is the decoded `module` block.
type moduleHeader struct {
	ID         string `hcl:"id,optional"`
	Name       string `hcl:"name,optional"`
	Help       string `hcl:"help,optional"`
	Icon       string `hcl:"icon,optional"`
	Kind       string `hcl:"kind,optional"`
	Repeatable *bool  `hcl:"repeatable,optional"`
}

// image is the emitted, linked form of a module.
type image struct {
	kind    model.Kind
	meta    model.Meta
	funcs   map[string]function.Function
	evalCtx *hcl.EvalContext
}

// emit decodes the module's functions, checks them against the linked
// library table and classifies the module.
func emit(file *hcl.File, linked map[string]function.Function, hint model.Kind) (*image, diag.Diagnostics) {
	var diags diag.Diagnostics

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		diags = append(diags, diag.Errorf(diag.ClassCompilation, diag.CodeCompile, nil, "Module body is not native HCL syntax"))
		return nil, diags
	}

	blocks, dupDiags := functionBlocks(body)
	diags = append(diags, dupDiags...)

	img := &image{}
	funcs, remain, funcDiags := userfunc.DecodeUserFunctions(body, functionBlock, func() *hcl.EvalContext {
		return img.evalCtx
	})
	diags = append(diags, diag.FromHCL(funcDiags, diag.ClassCompilation, diag.CodeCompile)...)

	content, remainDiags := remain.Content(moduleSchema)
	diags = append(diags, diag.FromHCL(remainDiags, diag.ClassCompilation, diag.CodeCompile)...)

	header, headerDiags := decodeHeader(content)
	diags = append(diags, headerDiags...)

	table := make(map[string]function.Function, len(linked)+len(funcs))
	for name, fn := range linked {
		table[name] = fn
	}
	for name, fn := range funcs {
		if _, clash := linked[name]; clash {
			rng := blocks[name].DefRange()
			diags = append(diags, diag.Warnf(diag.ClassCompilation, diag.CodeShadowedFunc, &rng,
				"Function %q shadows a library function of the same name", name))
		}
		table[name] = fn
	}

	for _, name := range sortedKeys(blocks) {
		diags = append(diags, checkFunction(blocks[name], table)...)
	}

	kind, kindDiags := classify(funcs, blocks, resolveHint(hint, header, &diags), body.EndRange)
	diags = append(diags, kindDiags...)

	img.kind = kind
	img.meta = header.meta()
	img.funcs = funcs
	img.evalCtx = &hcl.EvalContext{Functions: table}
	return img, diags
}

// functionBlocks indexes the function blocks by name and reports duplicates.
func functionBlocks(body *hclsyntax.Body) (map[string]*hclsyntax.Block, diag.Diagnostics) {
	var diags diag.Diagnostics
	out := make(map[string]*hclsyntax.Block)
	for _, block := range body.Blocks {
		if block.Type != functionBlock || len(block.Labels) != 1 {
			continue
		}
		name := block.Labels[0]
		if _, exists := out[name]; exists {
			rng := block.DefRange()
			diags = append(diags, diag.Errorf(diag.ClassCompilation, diag.CodeDuplicateFunc, &rng,
				"Duplicate function %q; a function of that name has already been defined", name))
			continue
		}
		out[name] = block
	}
	return out, diags
}

func decodeHeader(content *hcl.BodyContent) (*moduleHeader, diag.Diagnostics) {
	header := &moduleHeader{}
	if content == nil {
		return header, nil
	}

	block, hclDiags := findUniqueBlock(content.Blocks, moduleBlock)
	diags := diag.FromHCL(hclDiags, diag.ClassCompilation, diag.CodeCompile)
	if block == nil {
		return header, diags
	}

	decodeDiags := gohcl.DecodeBody(block.Body, nil, header)
	diags = append(diags, diag.FromHCL(decodeDiags, diag.ClassCompilation, diag.CodeCompile)...)
	return header, diags
}

func (h *moduleHeader) meta() model.Meta {
	return model.Meta{
		ID:         h.ID,
		Name:       h.Name,
		Help:       h.Help,
		Icon:       h.Icon,
		Repeatable: h.Repeatable,
	}
}

// resolveHint reconciles the caller's kind hint with a kind declared in the
// module block.
func resolveHint(hint model.Kind, header *moduleHeader, diags *diag.Diagnostics) model.Kind {
	if header.Kind == "" {
		return hint
	}
	declared, err := model.ParseKind(header.Kind)
	if err != nil {
		*diags = append(*diags, diag.Errorf(diag.ClassCompilation, diag.CodeCompile, nil,
			"Invalid module kind %q; expected one of %s", header.Kind, kindList()))
		return hint
	}
	if hint != model.KindUnknown && declared != hint {
		*diags = append(*diags, diag.Errorf(diag.ClassCompilation, diag.CodeCompile, nil,
			"Module declares kind %q but is being compiled as %q", declared, hint))
		return hint
	}
	return declared
}

// checkFunction statically checks one function's result expression: every
// variable must be a parameter and every called function must exist.
func checkFunction(block *hclsyntax.Block, table map[string]function.Function) diag.Diagnostics {
	var diags diag.Diagnostics

	resultAttr, ok := block.Body.Attributes["result"]
	if !ok {
		return nil
	}

	params := declaredParams(block.Body)
	used := make(map[string]bool, len(params))

	for _, traversal := range resultAttr.Expr.Variables() {
		root := traversal.RootName()
		if _, isParam := params[root]; isParam {
			used[root] = true
			continue
		}
		rng := traversal.SourceRange()
		diags = append(diags, diag.Errorf(diag.ClassCompilation, diag.CodeUnknownVariable, &rng,
			"Unknown variable %q in function %q; only the function's parameters are in scope", root, block.Labels[0]))
	}

	for _, call := range functionCalls(resultAttr.Expr) {
		if _, known := table[call.Name]; known {
			continue
		}
		rng := call.NameRange
		msg := "Call to unknown function %q"
		if suggestion := suggestFunction(call.Name, table); suggestion != "" {
			diags = append(diags, diag.Errorf(diag.ClassCompilation, diag.CodeUnknownFunction, &rng,
				msg+"; did you mean %q, or is a #r directive missing?", call.Name, suggestion))
			continue
		}
		diags = append(diags, diag.Errorf(diag.ClassCompilation, diag.CodeUnknownFunction, &rng,
			msg+"; is a #r directive missing?", call.Name))
	}

	for name, rng := range params {
		if used[name] || strings.HasPrefix(name, "_") {
			continue
		}
		r := rng
		diags = append(diags, diag.Warnf(diag.ClassCompilation, diag.CodeUnusedParam, &r,
			"Parameter %q of function %q is never used", name, block.Labels[0]))
	}
	sortByPosition(diags)
	return diags
}

// declaredParams returns the parameter names of a function block with the
// range each was declared at. Malformed lists are left to userfunc to report.
func declaredParams(body *hclsyntax.Body) map[string]hcl.Range {
	out := make(map[string]hcl.Range)
	for _, attrName := range []string{"params", "variadic_param"} {
		attr, ok := body.Attributes[attrName]
		if !ok {
			continue
		}
		exprs := []hcl.Expression{attr.Expr}
		if attrName == "params" {
			list, listDiags := hcl.ExprList(attr.Expr)
			if listDiags.HasErrors() {
				continue
			}
			exprs = list
		}
		for _, expr := range exprs {
			if name := hcl.ExprAsKeyword(expr); name != "" {
				out[name] = expr.Range()
			}
		}
	}
	return out
}

// classify decides the module kind from the entry functions it defines.
func classify(funcs map[string]function.Function, blocks map[string]*hclsyntax.Block, hint model.Kind, end hcl.Range) (model.Kind, diag.Diagnostics) {
	var diags diag.Diagnostics

	if hint != model.KindUnknown && !hint.Valid() {
		diags = append(diags, diag.Errorf(diag.ClassCompilation, diag.CodeCompile, nil, "Unsupported module kind %s", hint))
		return model.KindUnknown, diags
	}

	if hint.Valid() {
		entry := hint.EntryPoint()
		if _, defined := blocks[entry]; !defined {
			diags = append(diags, diag.Errorf(diag.ClassCompilation, diag.CodeMissingEntry, &end,
				"A %s module must define function %q", hint, entry))
			return hint, diags
		}
		return hint, checkArity(funcs, blocks, hint)
	}

	var found []model.Kind
	for _, k := range model.Kinds {
		if _, defined := blocks[k.EntryPoint()]; defined {
			found = append(found, k)
		}
	}

	switch len(found) {
	case 0:
		diags = append(diags, diag.Errorf(diag.ClassCompilation, diag.CodeMissingEntry, &end,
			"Module defines no entry function; expected one of %s", entryList()))
		return model.KindUnknown, diags
	case 1:
		return found[0], checkArity(funcs, blocks, found[0])
	default:
		names := make([]string, len(found))
		for i, k := range found {
			names[i] = k.EntryPoint()
		}
		diags = append(diags, diag.Errorf(diag.ClassCompilation, diag.CodeAmbiguousKind, &end,
			"Module defines several entry functions (%s); declare the kind explicitly", strings.Join(names, ", ")))
		return model.KindUnknown, diags
	}
}

func checkArity(funcs map[string]function.Function, blocks map[string]*hclsyntax.Block, kind model.Kind) diag.Diagnostics {
	entry := kind.EntryPoint()
	fn, ok := funcs[entry]
	if !ok {
		// Decoding the block failed; userfunc already reported why.
		return nil
	}
	if len(fn.Params()) != 1 || fn.VarParam() != nil {
		rng := blocks[entry].DefRange()
		return diag.Diagnostics{diag.Errorf(diag.ClassCompilation, diag.CodeEntryArity, &rng,
			"Entry function %q must take exactly one parameter", entry)}
	}
	return nil
}

// functionCalls walks a syntax tree and collects every function call.
func functionCalls(expr hclsyntax.Expression) []*hclsyntax.FunctionCallExpr {
	var calls []*hclsyntax.FunctionCallExpr
	walkForFunctions(expr, &calls)
	return calls
}

func walkForFunctions(expr hclsyntax.Expression, calls *[]*hclsyntax.FunctionCallExpr) {
	if expr == nil {
		return
	}
	switch e := expr.(type) {
	case *hclsyntax.FunctionCallExpr:
		*calls = append(*calls, e)
		for _, arg := range e.Args {
			walkForFunctions(arg, calls)
		}
	case *hclsyntax.BinaryOpExpr:
		walkForFunctions(e.LHS, calls)
		walkForFunctions(e.RHS, calls)
	case *hclsyntax.ConditionalExpr:
		walkForFunctions(e.Condition, calls)
		walkForFunctions(e.TrueResult, calls)
		walkForFunctions(e.FalseResult, calls)
	case *hclsyntax.UnaryOpExpr:
		walkForFunctions(e.Val, calls)
	case *hclsyntax.TemplateExpr:
		for _, part := range e.Parts {
			walkForFunctions(part, calls)
		}
	case *hclsyntax.TemplateWrapExpr:
		walkForFunctions(e.Wrapped, calls)
	case *hclsyntax.TemplateJoinExpr:
		walkForFunctions(e.Tuple, calls)
	case *hclsyntax.TupleConsExpr:
		for _, item := range e.Exprs {
			walkForFunctions(item, calls)
		}
	case *hclsyntax.ObjectConsExpr:
		for _, item := range e.Items {
			walkForFunctions(item.KeyExpr, calls)
			walkForFunctions(item.ValueExpr, calls)
		}
	case *hclsyntax.ObjectConsKeyExpr:
		walkForFunctions(e.Wrapped, calls)
	case *hclsyntax.ForExpr:
		walkForFunctions(e.CollExpr, calls)
		walkForFunctions(e.KeyExpr, calls)
		walkForFunctions(e.ValExpr, calls)
		walkForFunctions(e.CondExpr, calls)
	case *hclsyntax.IndexExpr:
		walkForFunctions(e.Collection, calls)
		walkForFunctions(e.Key, calls)
	case *hclsyntax.RelativeTraversalExpr:
		walkForFunctions(e.Source, calls)
	case *hclsyntax.SplatExpr:
		walkForFunctions(e.Source, calls)
		walkForFunctions(e.Each, calls)
	case *hclsyntax.ParenthesesExpr:
		walkForFunctions(e.Expression, calls)
	}
}

// findUniqueBlock returns the single block of the given type, reporting
// every extra one.
func findUniqueBlock(blocks hcl.Blocks, name string) (*hcl.Block, hcl.Diagnostics) {
	var found *hcl.Block
	var diags hcl.Diagnostics

	for _, block := range blocks.OfType(name) {
		if found != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate \"" + name + "\" block",
				Detail:   "Only one \"" + name + "\" block is allowed.",
				Subject:  &block.DefRange,
			})
			continue
		}
		found = block
	}
	return found, diags
}

func suggestFunction(name string, table map[string]function.Function) string {
	candidates := sortedKeys(table)
	ranks := fuzzy.RankFindFold(name, candidates)
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return ranks[0].Target
}

// sortByPosition orders diagnostics by source offset. Diagnostics without a
// subject go last, keeping their relative order.
func sortByPosition(diags diag.Diagnostics) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i].Subject, diags[j].Subject
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.Start.Byte < b.Start.Byte
	})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func entryList() string {
	names := make([]string, len(model.Kinds))
	for i, k := range model.Kinds {
		names[i] = k.EntryPoint()
	}
	return strings.Join(names, ", ")
}

func kindList() string {
	names := make([]string, len(model.Kinds))
	for i, k := range model.Kinds {
		names[i] = k.String()
	}
	return strings.Join(names, ", ")
}
