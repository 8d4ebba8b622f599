package assoc

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/syssam/linkage"
	"github.com/syssam/linkage/schema"
	"github.com/syssam/linkage/store"
)

// Definitions is the YAML document describing a set of associations:
//
//	associations:
//	  - source: Articles
//	    name: Tags
//	    join_table: articles_tags
//	    conditions:
//	      ArticlesTags.starred: true
//	    sort: [Tags.name, -Tags.id]
//	    save_strategy: append
type Definitions struct {
	Associations []Definition `yaml:"associations"`
}

// Definition describes one association.
type Definition struct {
	Source           string         `yaml:"source"`
	Name             string         `yaml:"name"`
	Target           string         `yaml:"target,omitempty"`
	Through          string         `yaml:"through,omitempty"`
	JoinTable        string         `yaml:"join_table,omitempty"`
	ForeignKey       string         `yaml:"foreign_key,omitempty"`
	TargetForeignKey string         `yaml:"target_foreign_key,omitempty"`
	Conditions       map[string]any `yaml:"conditions,omitempty"`
	Sort             SortList       `yaml:"sort,omitempty"`
	Strategy         Strategy       `yaml:"strategy,omitempty"`
	SaveStrategy     SaveStrategy   `yaml:"save_strategy,omitempty"`
	Dependent        *bool          `yaml:"dependent,omitempty"`
	CascadeCallbacks bool           `yaml:"cascade_callbacks,omitempty"`
	Property         string         `yaml:"property,omitempty"`
}

// SortList is a YAML type that can be either a single sort term or a list of
// them. A leading "-" sorts descending.
type SortList []string

// UnmarshalYAML implements yaml.Unmarshaler for SortList.
func (s *SortList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = SortList{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	default:
		return fmt.Errorf("sort: expected a string or a list of strings at line %d", node.Line)
	}
}

// Sort returns the list as sort terms.
func (s SortList) Sort() schema.Sort {
	if len(s) == 0 {
		return nil
	}
	out := make(schema.Sort, 0, len(s))
	for _, term := range s {
		if col, ok := strings.CutPrefix(term, "-"); ok {
			out = append(out, schema.Desc(col))
			continue
		}
		out = append(out, schema.Asc(term))
	}
	return out
}

// LoadDefinitions decodes association definitions. Unknown keys are rejected.
func LoadDefinitions(r io.Reader) ([]Definition, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var defs Definitions
	if err := dec.Decode(&defs); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("assoc: decode definitions: %w", err)
	}
	for i, d := range defs.Associations {
		if d.Source == "" || d.Name == "" {
			return nil, linkage.NewConfigError("definition", i, "source and name are required")
		}
	}
	return defs.Associations, nil
}

// Options returns the options described by d. Collections are resolved in reg.
func (d Definition) Options(reg *schema.Registry) []Option {
	opts := []Option{WithRegistry(reg)}
	if d.Target != "" {
		opts = append(opts, WithTarget(reg.Get(d.Target)))
	}
	if d.Through != "" {
		opts = append(opts, WithThrough(reg.Get(d.Through)))
	}
	if d.JoinTable != "" {
		opts = append(opts, WithJoinTable(d.JoinTable))
	}
	if d.ForeignKey != "" {
		opts = append(opts, WithForeignKey(d.ForeignKey))
	}
	if d.TargetForeignKey != "" {
		opts = append(opts, WithTargetForeignKey(d.TargetForeignKey))
	}
	if len(d.Conditions) > 0 {
		opts = append(opts, WithConditions(conditions(d.Conditions)))
	}
	if len(d.Sort) > 0 {
		opts = append(opts, WithSort(d.Sort.Sort()))
	}
	if d.Strategy != "" {
		opts = append(opts, WithStrategy(d.Strategy))
	}
	if d.SaveStrategy != "" {
		opts = append(opts, WithSaveStrategy(d.SaveStrategy))
	}
	if d.Dependent != nil {
		opts = append(opts, WithDependent(*d.Dependent))
	}
	if d.CascadeCallbacks {
		opts = append(opts, WithCascadeCallbacks(true))
	}
	if d.Property != "" {
		opts = append(opts, WithPropertyName(d.Property))
	}
	return opts
}

// Build defines the association on its source collection in reg. opts are
// applied after the definition's own options.
func (d Definition) Build(reg *schema.Registry, st store.Store, opts ...Option) (*BelongsToMany, error) {
	all := append(d.Options(reg), WithStore(st))
	all = append(all, opts...)
	return Define(reg.Get(d.Source), d.Name, all...)
}

// conditions converts decoded YAML values: sequences become membership
// constraints.
func conditions(m map[string]any) schema.Conditions {
	out := make(schema.Conditions, len(m))
	for k, v := range m {
		if list, ok := v.([]any); ok {
			out[k] = schema.In(list)
			continue
		}
		out[k] = v
	}
	return out
}
