package classify

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/receipts-extractor/constants"
	"github.com/joseph-ayodele/receipts-extractor/internal/common"
)

//go:embed rules/categories.yml rules/schema.json
var rulesFS embed.FS

const (
	defaultRulesFile = "rules/categories.yml"
	schemaFile       = "rules/schema.json"
)

// CategoryRule is one category and the keywords that vote for it.
// Keywords are stored lowercased.
type CategoryRule struct {
	Name     string
	Keywords []string
}

// RuleSet keeps categories in file order. Earlier categories win score ties.
type RuleSet []CategoryRule

// Names returns the category names in file order.
func (r RuleSet) Names() []string {
	out := make([]string, len(r))
	for i, c := range r {
		out[i] = c.Name
	}
	return out
}

// Lookup finds a category by exact name.
func (r RuleSet) Lookup(name string) (CategoryRule, bool) {
	for _, c := range r {
		if c.Name == name {
			return c, true
		}
	}
	return CategoryRule{}, false
}

// RuleProvider supplies the category rules a Classifier is built with.
type RuleProvider interface {
	Rules() (RuleSet, error)
}

// FileProvider reads rules from a YAML file. An empty Path selects the built-in rules.
type FileProvider struct {
	Path string
}

func (p FileProvider) Rules() (RuleSet, error) {
	var (
		data []byte
		err  error
		name = p.Path
	)
	if p.Path == "" {
		name = "builtin:" + defaultRulesFile
		data, err = rulesFS.ReadFile(defaultRulesFile)
	} else {
		data, err = os.ReadFile(p.Path)
	}
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("read category rules %s", name), err)
	}

	rules, err := ParseRules(data)
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("invalid category rules %s", name), err)
	}
	return rules, nil
}

// StaticProvider serves a rule set built in code.
type StaticProvider RuleSet

func (p StaticProvider) Rules() (RuleSet, error) {
	if len(p) == 0 {
		return nil, common.NewAppError(common.CodeConfig, "empty category rules", common.ErrInvalidInput)
	}
	out := make(RuleSet, len(p))
	for i, c := range p {
		out[i] = CategoryRule{Name: c.Name, Keywords: normalizeKeywords(c.Keywords)}
	}
	return out, nil
}

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	raw, err := rulesFS.ReadFile(schemaFile)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("categories.schema.json", bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return compiler.Compile("categories.schema.json")
})

type ruleDoc struct {
	Any []string `json:"any"`
}

// ParseRules decodes a YAML rule file of the form `category: {any: [keywords...]}`.
// The document is validated against the embedded JSON-Schema before use.
func ParseRules(data []byte) (RuleSet, error) {
	js, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	var doc any
	if err := json.Unmarshal(js, &doc); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	schema, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("rules do not match schema: %w", err)
	}

	var byName map[string]ruleDoc
	if err := json.Unmarshal(js, &byName); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}

	// JSON objects are unordered; take the category order from the YAML mapping.
	var order yaml.MapSlice
	if err := yaml.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	rules := make(RuleSet, 0, len(order))
	for _, item := range order {
		name := fmt.Sprint(item.Key)
		rules = append(rules, CategoryRule{Name: name, Keywords: normalizeKeywords(byName[name].Any)})
	}
	return rules, nil
}

// ValidateRules checks that every category in the set is a known label.
func ValidateRules(rules RuleSet) []string {
	var unknown []string
	for _, c := range rules {
		if cat, ok := constants.Canonicalize(c.Name); !ok || string(cat) != c.Name {
			unknown = append(unknown, c.Name)
		}
	}
	return unknown
}

func normalizeKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, k := range in {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}
