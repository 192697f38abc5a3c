package confignode

import "fmt"

// Context is a parsed overlay document (spec §4.1 "Contexts"): plain
// keys override matching parameter values on every ConfigNode; entries
// under for_namespaces override only nodes whose namespace matches;
// uses entries are merged into the root node's uses list.
type Context struct {
	Params        map[string]interface{}
	ForNamespaces map[string]map[string]interface{}
	UsesEntries   []string
}

// ParseContext extracts a Context from an already placeholder-resolved
// overlay mapping, rejecting any reserved parameter name per Open
// Question (a): a context overlay setting a reserved key is an error.
func ParseContext(doc map[string]interface{}) (*Context, error) {
	ctx := &Context{
		Params:        map[string]interface{}{},
		ForNamespaces: map[string]map[string]interface{}{},
	}

	if v, ok := doc["uses"]; ok {
		entries, err := stringList(v)
		if err != nil {
			return nil, fmt.Errorf("context uses: %v", err)
		}
		ctx.UsesEntries = entries
	}

	if v, ok := doc["for_namespaces"]; ok {
		byNS, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("for_namespaces must be a mapping of namespace to overlay")
		}
		for ns, overlay := range byNS {
			overlayMap, ok := overlay.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("for_namespaces[%q] must be a mapping", ns)
			}
			if err := checkReservedKeys(overlayMap); err != nil {
				return nil, fmt.Errorf("for_namespaces[%q]: %v", ns, err)
			}
			ctx.ForNamespaces[ns] = overlayMap
		}
	}

	plain := map[string]interface{}{}
	for k, v := range doc {
		if k == "uses" || k == "for_namespaces" {
			continue
		}
		plain[k] = v
	}
	if err := checkReservedKeys(plain); err != nil {
		return nil, err
	}
	ctx.Params = plain

	return ctx, nil
}

func checkReservedKeys(m map[string]interface{}) error {
	for k := range m {
		if ReservedParameterNames[k] {
			return fmt.Errorf("may not override reserved key %q", k)
		}
	}
	return nil
}

// ComposeContexts merges contexts in order, later entries winning on
// conflict (spec §4.1: "Multiple contexts may be composed").
func ComposeContexts(contexts []*Context) *Context {
	out := &Context{
		Params:        map[string]interface{}{},
		ForNamespaces: map[string]map[string]interface{}{},
	}
	for _, c := range contexts {
		for k, v := range c.Params {
			out.Params[k] = v
		}
		for ns, overlay := range c.ForNamespaces {
			merged, ok := out.ForNamespaces[ns]
			if !ok {
				merged = map[string]interface{}{}
				out.ForNamespaces[ns] = merged
			}
			for k, v := range overlay {
				merged[k] = v
			}
		}
		out.UsesEntries = append(out.UsesEntries, c.UsesEntries...)
	}
	return out
}

// LoadWithContexts loads src exactly like Load, then composes and
// applies every context in contextSrcs over the resulting tree.
func LoadWithContexts(src Source, globalVars map[string]interface{}, contextSrcs []Source) (*ConfigNode, error) {
	l := &loader{globalVars: globalVars, visiting: map[string]bool{}}
	root, err := l.load(src, "")
	if err != nil {
		return nil, err
	}
	if len(contextSrcs) == 0 {
		return root, nil
	}

	contexts := make([]*Context, 0, len(contextSrcs))
	for _, csrc := range contextSrcs {
		ctx, err := l.loadContext(csrc)
		if err != nil {
			return nil, err
		}
		contexts = append(contexts, ctx)
	}

	composed := ComposeContexts(contexts)
	if err := l.applyContext(root, composed, src); err != nil {
		return nil, err
	}
	return root, nil
}

func (l *loader) loadContext(src Source) (*Context, error) {
	doc, err := l.readDoc(src)
	if err != nil {
		return nil, err
	}
	resolved, err := substitutePlaceholders(map[string]interface{}(doc), l.lookupGlobal)
	if err != nil {
		return nil, loadErrorf(src.Path, "%v", err)
	}
	ctx, err := ParseContext(resolved.(map[string]interface{}))
	if err != nil {
		return nil, loadErrorf(src.Path, "%v", err)
	}
	return ctx, nil
}

func (l *loader) applyContext(root *ConfigNode, ctx *Context, rootSrc Source) error {
	applyParamsRecursive(root, ctx)

	for _, entry := range ctx.UsesEntries {
		child, err := l.loadUsesEntry(entry, rootSrc, root.Namespace)
		if err != nil {
			return fmt.Errorf("context uses %q: %w", entry, err)
		}
		root.Uses = append(root.Uses, child)
	}
	return nil
}

func applyParamsRecursive(node *ConfigNode, ctx *Context) {
	for k, v := range ctx.Params {
		node.Params[k] = v
	}
	if overlay, ok := ctx.ForNamespaces[node.Namespace]; ok {
		for k, v := range overlay {
			node.Params[k] = v
		}
	}
	for _, child := range node.Uses {
		applyParamsRecursive(child, ctx)
	}
}
