package catalog

import (
	"context"
	"sort"
)

// StaticCatalog resolves tags from fixed in-process tables. It backs tests
// and offline development where the catalog service is unreachable.
type StaticCatalog struct {
	// EngineeringIDTags maps an engineering product id to its tags.
	EngineeringIDTags map[string][]string
	// RoleTags maps a purpose role to its tags.
	RoleTags map[string][]string
	// IncludedTags maps a broader tag to the tags it subsumes.
	IncludedTags map[string][]string
}

// NewDefaultStaticCatalog covers the product ids exercised by local
// development fixtures.
func NewDefaultStaticCatalog() *StaticCatalog {
	return &StaticCatalog{
		EngineeringIDTags: map[string][]string{
			"69":  {"RHEL for x86"},
			"419": {"RHEL for ARM"},
			"279": {"RHEL for IBM Power"},
			"290": {"OpenShift Container Platform"},
		},
		RoleTags: map[string][]string{
			"Red Hat Enterprise Linux Server": {"RHEL Server"},
			"ocp":                             {"OpenShift Container Platform"},
		},
		IncludedTags: map[string][]string{
			"OpenShift Container Platform": {"OpenShift Kubernetes Engine"},
		},
	}
}

func (c *StaticCatalog) ResolveTags(_ context.Context, req ResolveRequest) ([]string, error) {
	seen := map[string]struct{}{}
	var tags []string
	add := func(values []string) {
		for _, value := range values {
			if _, ok := seen[value]; ok {
				continue
			}
			seen[value] = struct{}{}
			tags = append(tags, value)
		}
	}
	for _, engID := range req.EngineeringIDs {
		add(c.EngineeringIDTags[engID])
	}
	if req.Role != "" {
		add(c.RoleTags[req.Role])
	}
	sort.Strings(tags)
	return tags, nil
}

func (c *StaticCatalog) PruneIncludedTags(_ context.Context, tags []string) ([]string, error) {
	subsumed := map[string]struct{}{}
	present := map[string]struct{}{}
	for _, tag := range tags {
		present[tag] = struct{}{}
	}
	for broader, included := range c.IncludedTags {
		if _, ok := present[broader]; !ok {
			continue
		}
		for _, tag := range included {
			subsumed[tag] = struct{}{}
		}
	}

	pruned := make([]string, 0, len(tags))
	for _, tag := range tags {
		if _, ok := subsumed[tag]; ok {
			continue
		}
		pruned = append(pruned, tag)
	}
	return pruned, nil
}
