package confignode

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Source identifies one config document to load (spec §4.1 "Inputs"):
// a file path, an in-memory mapping, or a part selector into either of
// those when the document is multi-part.
type Source struct {
	// Path is the file to read. Empty when the document is supplied
	// in-memory via Data.
	Path string

	// Data is an in-memory parameter mapping, used instead of reading
	// Path. Mutually exclusive with Path being set.
	Data map[string]interface{}

	// Part selects a sub-entry of a multi-part document (one whose top
	// level has a `configs` key). Empty selects the sole `main_part`
	// entry, if any.
	Part string
}

// Load parses src into a ConfigNode tree, resolving placeholders against
// globalVars and recursively loading every `uses` entry. globalVars
// stands in for the source format's "a mapping or any object with
// matching attributes": a systems-language port narrows this to a
// single concrete lookup type.
func Load(src Source, globalVars map[string]interface{}) (*ConfigNode, error) {
	l := &loader{globalVars: globalVars, visiting: map[string]bool{}}
	return l.load(src, "")
}

type loader struct {
	globalVars map[string]interface{}
	visiting   map[string]bool
}

func (l *loader) lookupGlobal(name string) (string, bool) {
	v, ok := l.globalVars[name]
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%v", v), true
}

// sourceKey identifies a (document, part) pair for cycle detection.
func sourceKey(path, part string) string {
	return path + "#" + part
}

func (l *loader) load(src Source, namespace string) (*ConfigNode, error) {
	key := sourceKey(src.Path, src.Part)
	if l.visiting[key] {
		return nil, loadErrorf(src.Path, "cyclic uses detected (part %q)", src.Part)
	}
	l.visiting[key] = true
	defer delete(l.visiting, key)

	doc, err := l.readDoc(src)
	if err != nil {
		return nil, err
	}

	resolved, err := substitutePlaceholders(map[string]interface{}(doc), l.lookupGlobal)
	if err != nil {
		return nil, loadErrorf(src.Path, "%v", err)
	}
	doc = rawDoc(resolved.(map[string]interface{}))

	node := &ConfigNode{
		Name:       deriveNodeName(src),
		Namespace:  namespace,
		Params:     map[string]interface{}{},
		SourcePath: src.Path,
	}

	if v, ok := doc["tasks"]; ok {
		if node.Tasks, err = stringList(v); err != nil {
			return nil, loadErrorf(src.Path, "tasks: %v", err)
		}
	}
	if v, ok := doc["excluded_tasks"]; ok {
		if node.ExcludedTasks, err = stringList(v); err != nil {
			return nil, loadErrorf(src.Path, "excluded_tasks: %v", err)
		}
	}
	if v, ok := doc["human_readable_data_name"]; ok {
		s, ok := v.(string)
		if !ok {
			return nil, loadErrorf(src.Path, "human_readable_data_name must be a string")
		}
		node.HumanReadableDataName = s
	}

	usesEntries, err := stringList(doc["uses"])
	if err != nil {
		return nil, loadErrorf(src.Path, "uses: %v", err)
	}
	for _, entry := range usesEntries {
		child, err := l.loadUsesEntry(entry, src, namespace)
		if err != nil {
			return nil, err
		}
		node.Uses = append(node.Uses, child)
	}

	for k, v := range doc {
		if ReservedParameterNames[k] {
			continue
		}
		node.Params[k] = v
	}

	return node, nil
}

// deriveNodeName names a node after its source for the parameter-mode
// toggle (spec §6): with parameter mode off, artifact filenames use
// this name instead of the fingerprint, so two configs must not share
// a name within the same group/task pair. A part selector is appended
// so distinct parts of one multi-part file still get distinct names.
func deriveNodeName(src Source) string {
	var base string
	if src.Path != "" {
		base = strings.TrimSuffix(filepath.Base(src.Path), filepath.Ext(src.Path))
	} else {
		base = "inline"
	}
	if src.Part != "" {
		base += "." + src.Part
	}
	return base
}

// readDoc materializes the raw mapping named by src, unwrapping a
// multi-part `configs` container when present.
func (l *loader) readDoc(src Source) (rawDoc, error) {
	var top rawDoc
	var err error
	if src.Data != nil {
		top = rawDoc(src.Data)
	} else {
		top, err = readRawDoc(src.Path)
		if err != nil {
			return nil, err
		}
	}

	configsVal, isMulti := top["configs"]
	if !isMulti {
		if src.Part != "" {
			return nil, loadErrorf(src.Path, "part %q requested but document has no configs section", src.Part)
		}
		return top, nil
	}

	parts, ok := configsVal.(map[string]interface{})
	if !ok {
		return nil, loadErrorf(src.Path, "configs must be a mapping of part name to config body")
	}

	partName := src.Part
	if partName == "" {
		mainParts := make([]string, 0, 1)
		for name, v := range parts {
			if sub, ok := v.(map[string]interface{}); ok {
				if main, _ := sub["main_part"].(bool); main {
					mainParts = append(mainParts, name)
				}
			}
		}
		switch len(mainParts) {
		case 1:
			partName = mainParts[0]
		case 0:
			return nil, loadErrorf(src.Path, "multi-part document requires a part selector (no main_part declared)")
		default:
			return nil, loadErrorf(src.Path, "multi-part document has more than one main_part entry")
		}
	}

	part, ok := parts[partName]
	if !ok {
		return nil, loadErrorf(src.Path, "missing part %q", partName)
	}
	body, ok := part.(map[string]interface{})
	if !ok {
		return nil, loadErrorf(src.Path, "part %q must be a mapping", partName)
	}
	return rawDoc(body), nil
}

// loadUsesEntry parses and follows one `uses` grammar entry (spec
// §4.1/§6): `<ref>` or `<ref> as <namespace>`, where `<ref>` is an
// absolute file path, a file path with `#part` suffix, or `#part` alone
// (relative to the same multi-file as parentSrc).
func (l *loader) loadUsesEntry(entry string, parentSrc Source, parentNamespace string) (*ConfigNode, error) {
	refPath, part, asNamespace, err := parseUsesEntry(entry)
	if err != nil {
		return nil, loadErrorf(parentSrc.Path, "uses %q: %v", entry, err)
	}

	childSrc := Source{Path: refPath, Part: part}
	if refPath == "" {
		// `#part` alone: same document as the entry declaring it.
		childSrc.Path = parentSrc.Path
		childSrc.Data = parentSrc.Data
	} else if !filepath.IsAbs(refPath) && parentSrc.Path != "" {
		childSrc.Path = filepath.Join(filepath.Dir(parentSrc.Path), refPath)
	}

	childNamespace := parentNamespace
	if asNamespace != "" {
		if childNamespace == "" {
			childNamespace = asNamespace
		} else {
			childNamespace = childNamespace + "::" + asNamespace
		}
	}

	return l.load(childSrc, childNamespace)
}

func parseUsesEntry(entry string) (refPath, part, as string, err error) {
	s := strings.TrimSpace(entry)
	if idx := strings.Index(s, " as "); idx >= 0 {
		as = strings.TrimSpace(s[idx+4:])
		s = strings.TrimSpace(s[:idx])
		if as == "" {
			return "", "", "", fmt.Errorf("empty namespace after \"as\"")
		}
	}
	if idx := strings.Index(s, "#"); idx >= 0 {
		refPath = s[:idx]
		part = s[idx+1:]
		if part == "" {
			return "", "", "", fmt.Errorf("empty part after \"#\"")
		}
	} else {
		refPath = s
	}
	if refPath == "" && part == "" {
		return "", "", "", fmt.Errorf("empty uses entry")
	}
	return refPath, part, as, nil
}
