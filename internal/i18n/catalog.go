package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

//go:embed locales/*.json
var locales embed.FS

// Issue describes a structural mismatch between a partial dictionary and the
// schema defined by the default dictionary.
type Issue struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

func (i Issue) String() string {
	return i.Path + ": " + i.Reason
}

// Catalog holds the merged copy for every supported language.
type Catalog struct {
	merged  map[Lang]PublicCopy
	issues  map[Lang][]Issue
	missing map[Lang][]string
}

// Load builds a catalog from the embedded dictionaries.
func Load() (*Catalog, error) {
	base, err := locales.ReadFile("locales/" + string(Default) + ".json")
	if err != nil {
		return nil, fmt.Errorf("read default locale: %w", err)
	}
	overlays := make(map[Lang][]byte)
	for _, lang := range Supported {
		if lang == Default {
			continue
		}
		raw, err := locales.ReadFile("locales/" + string(lang) + ".json")
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", lang, err)
		}
		overlays[lang] = raw
	}
	return NewCatalog(base, overlays)
}

// NewCatalog merges each overlay over base leaf by leaf. Every leaf present
// in base resolves to a non-empty string for every language.
func NewCatalog(base []byte, overlays map[Lang][]byte) (*Catalog, error) {
	var baseTree map[string]any
	if err := json.Unmarshal(base, &baseTree); err != nil {
		return nil, fmt.Errorf("decode default locale: %w", err)
	}
	if empty := emptyLeaves(baseTree, ""); len(empty) > 0 {
		return nil, fmt.Errorf("default locale has empty keys: %s", strings.Join(empty, ", "))
	}

	c := &Catalog{
		merged:  make(map[Lang]PublicCopy),
		issues:  make(map[Lang][]Issue),
		missing: make(map[Lang][]string),
	}

	defaultCopy, err := decodeCopy(baseTree)
	if err != nil {
		return nil, fmt.Errorf("decode default copy: %w", err)
	}
	c.merged[Default] = defaultCopy

	for lang, raw := range overlays {
		var tree map[string]any
		if err := json.Unmarshal(raw, &tree); err != nil {
			return nil, fmt.Errorf("decode locale %s: %w", lang, err)
		}
		merged, missing := mergeTree(baseTree, tree, "")
		pc, err := decodeCopy(merged)
		if err != nil {
			return nil, fmt.Errorf("decode locale %s: %w", lang, err)
		}
		sort.Strings(missing)
		c.merged[lang] = pc
		c.missing[lang] = missing
		c.issues[lang] = validateShape(baseTree, tree, "")
	}
	return c, nil
}

// PublicCopySafe returns the copy for lang with every missing leaf filled from
// the default language. Unknown languages get the default copy.
func (c *Catalog) PublicCopySafe(lang Lang) PublicCopy {
	if pc, ok := c.merged[lang]; ok {
		return pc
	}
	return c.merged[Default]
}

// Issues returns the structural problems found in a partial dictionary.
func (c *Catalog) Issues(lang Lang) []Issue {
	return c.issues[lang]
}

// MissingKeys lists leaves of lang that fell back to the default language.
func (c *Catalog) MissingKeys(lang Lang) []string {
	return c.missing[lang]
}

func decodeCopy(tree map[string]any) (PublicCopy, error) {
	raw, err := json.Marshal(tree)
	if err != nil {
		return PublicCopy{}, err
	}
	var pc PublicCopy
	if err := json.Unmarshal(raw, &pc); err != nil {
		return PublicCopy{}, err
	}
	return pc, nil
}

// mergeTree walks base and takes the overlay value for every string leaf the
// overlay defines as a non-blank string. Keys absent from base are dropped.
func mergeTree(base, overlay map[string]any, prefix string) (map[string]any, []string) {
	out := make(map[string]any, len(base))
	var missing []string
	for key, baseVal := range base {
		path := join(prefix, key)
		overVal, present := overlay[key]
		switch b := baseVal.(type) {
		case map[string]any:
			sub, _ := overVal.(map[string]any)
			merged, m := mergeTree(b, sub, path)
			out[key] = merged
			missing = append(missing, m...)
		case string:
			if s, ok := overVal.(string); present && ok && strings.TrimSpace(s) != "" {
				out[key] = s
				continue
			}
			out[key] = b
			missing = append(missing, path)
		default:
			out[key] = baseVal
		}
	}
	return out, missing
}

func validateShape(base, overlay map[string]any, prefix string) []Issue {
	var issues []Issue
	keys := make([]string, 0, len(overlay))
	for key := range overlay {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		path := join(prefix, key)
		overVal := overlay[key]
		baseVal, ok := base[key]
		if !ok {
			issues = append(issues, Issue{Path: path, Reason: "unknown key"})
			continue
		}
		switch b := baseVal.(type) {
		case map[string]any:
			o, ok := overVal.(map[string]any)
			if !ok {
				issues = append(issues, Issue{Path: path, Reason: "expected object"})
				continue
			}
			issues = append(issues, validateShape(b, o, path)...)
		case string:
			if _, ok := overVal.(string); !ok {
				issues = append(issues, Issue{Path: path, Reason: "expected string"})
			}
		}
	}
	return issues
}

func emptyLeaves(tree map[string]any, prefix string) []string {
	var out []string
	for key, val := range tree {
		path := join(prefix, key)
		switch v := val.(type) {
		case map[string]any:
			out = append(out, emptyLeaves(v, path)...)
		case string:
			if strings.TrimSpace(v) == "" {
				out = append(out, path)
			}
		default:
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
