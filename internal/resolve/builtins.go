package resolve

func keywords(kind ItemKind, detail string, names ...string) []CompletionItem {
	out := make([]CompletionItem, len(names))
	for i, n := range names {
		out[i] = CompletionItem{Label: n, Kind: kind, Detail: detail}
	}
	return out
}

// Framework-provided template items.
var (
	builtinMustacheItems = keywords(ItemFunction, "built-in",
		"action", "array", "component", "concat", "debugger", "each-in", "fn", "get",
		"has-block", "has-block-params", "hash", "if", "in-element", "input", "let",
		"link-to", "log", "mount", "mut", "on", "outlet", "query-params", "textarea",
		"unbound", "unless", "with", "yield",
	)

	builtinBlockItems = keywords(ItemKeyword, "built-in",
		"component", "each", "each-in", "if", "in-element", "let", "link-to", "unless", "with",
	)

	builtinSubExpressionItems = keywords(ItemFunction, "built-in",
		"action", "array", "component", "concat", "fn", "get", "hash", "if", "mut",
		"query-params", "unless",
	)

	builtinModifierItems = keywords(ItemFunction, "built-in",
		"action", "on",
	)
)
