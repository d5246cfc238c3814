package partition

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/dshills/scopeiq/pkg/types"
)

// Kind distinguishes project partitions from shared knowledge partitions
type Kind string

const (
	KindProject Kind = "project"
	KindCommon  Kind = "common"
)

// Category is one of the fixed shared knowledge partitions
type Category string

const (
	CategoryBuildingCodes Category = "building_codes"
	CategorySafety        Category = "safety"
	CategoryMaterials     Category = "materials"
	CategoryStandards     Category = "standards"
	CategoryGeneral       Category = "general"
)

const (
	projectPrefix = "project_"
	commonPrefix  = "common_"

	maxNameLength = 48
	hashSuffixLen = 8
)

// Categories returns every shared category in a fixed order
func Categories() []Category {
	return []Category{
		CategoryBuildingCodes,
		CategorySafety,
		CategoryMaterials,
		CategoryStandards,
		CategoryGeneral,
	}
}

// ParseCategory accepts a category name in any case
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories() {
		if c == known {
			return c, nil
		}
	}
	return "", types.ValidationErrorf("unknown common category %q", s)
}

// Partition is a logical bucket and the store namespace it maps to
type Partition struct {
	Kind      Kind
	Name      string // project id or category
	Namespace string
}

// Source returns the provenance tag written into result metadata
func (p Partition) Source() types.Source {
	if p.Kind == KindCommon {
		return types.SourceCommon
	}
	return types.SourceProject
}

func (p Partition) String() string {
	return p.Namespace
}

// ForProject maps a project identifier to its partition. Naming is a pure
// function of the identifier; two distinct identifiers never share a namespace.
func ForProject(projectID string) (Partition, error) {
	if strings.TrimSpace(projectID) == "" {
		return Partition{}, types.ValidationErrorf("project ID is required")
	}
	return Partition{
		Kind:      KindProject,
		Name:      projectID,
		Namespace: projectPrefix + sanitize(projectID),
	}, nil
}

// ForCategory maps a shared category to its partition
func ForCategory(c Category) (Partition, error) {
	parsed, err := ParseCategory(string(c))
	if err != nil {
		return Partition{}, err
	}
	return Partition{
		Kind:      KindCommon,
		Name:      string(parsed),
		Namespace: commonPrefix + string(parsed),
	}, nil
}

// CommonPartitions resolves categories, defaulting to all of them
func CommonPartitions(categories ...Category) ([]Partition, error) {
	if len(categories) == 0 {
		categories = Categories()
	}

	seen := make(map[Category]bool, len(categories))
	out := make([]Partition, 0, len(categories))
	for _, c := range categories {
		p, err := ForCategory(c)
		if err != nil {
			return nil, err
		}
		if seen[Category(p.Name)] {
			continue
		}
		seen[Category(p.Name)] = true
		out = append(out, p)
	}
	return out, nil
}

// sanitize lowercases and keeps [a-z0-9_-]. When anything had to change a
// short hash of the raw id is appended so "Tower A" and "tower_a" stay apart.
func sanitize(id string) string {
	var sb strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(id) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			sb.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				sb.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	name := strings.Trim(sb.String(), "_")
	if len(name) > maxNameLength {
		name = name[:maxNameLength]
	}
	if name == id {
		return name
	}

	sum := sha256.Sum256([]byte(id))
	suffix := hex.EncodeToString(sum[:])[:hashSuffixLen]
	if name == "" {
		return suffix
	}
	return fmt.Sprintf("%s_%s", name, suffix)
}
