// Package filter narrows search results with expr-lang expressions, e.g.
//
//	hasTag("prod") and not IsStarred and containsFold(FolderTitle, "infra")
package filter

import (
	"context"
	"slices"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/s0up4200/grafcli/backend"
)

// DefaultCacheSize is the number of compiled expressions a Compiler keeps
const DefaultCacheSize = 64

// Filter is a compiled filter expression
type Filter struct {
	expression string
	program    *vm.Program
}

// Expression returns the source expression
func (f *Filter) Expression() string {
	return f.expression
}

// Match reports whether hit satisfies the filter
func (f *Filter) Match(hit backend.SearchHit) (bool, error) {
	out, err := expr.Run(f.program, newEnv(hit))
	if err != nil {
		return false, &EvaluationError{Expression: f.expression, HitTitle: hit.Title, Err: err}
	}
	// AsBool guarantees the type
	return out.(bool), nil
}

// Compiler compiles expressions and caches the programs
type Compiler struct {
	cache *lruCache[*Filter]
}

// NewCompiler creates a compiler caching up to size programs
func NewCompiler(size int) *Compiler {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Compiler{cache: newLRUCache[*Filter](size)}
}

// Compile parses and type-checks expression. Unknown identifiers and
// non-boolean results are compile errors.
func (c *Compiler) Compile(expression string) (*Filter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{Expression: expression, Reason: "empty expression"}
	}

	if f, ok := c.cache.get(expression); ok {
		return f, nil
	}

	program, err := expr.Compile(expression,
		expr.Env(newEnv(backend.SearchHit{})),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{Expression: expression, Reason: "failed to compile expression", Err: err}
	}

	f := &Filter{expression: expression, program: program}
	c.cache.put(expression, f)
	return f, nil
}

// Len returns the number of cached programs
func (c *Compiler) Len() int {
	return c.cache.len()
}

// Apply returns the hits matching f, in order. It stops at the first
// evaluation error or when ctx is done.
func Apply(ctx context.Context, f *Filter, hits []backend.SearchHit) ([]backend.SearchHit, error) {
	matches := make([]backend.SearchHit, 0, len(hits))
	for _, hit := range hits {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ok, err := f.Match(hit)
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, hit)
		}
	}
	return matches, nil
}

func newEnv(hit backend.SearchHit) map[string]any {
	return map[string]any{
		// Hit fields
		"ID":          hit.ID,
		"UID":         hit.UID,
		"Title":       hit.Title,
		"URI":         hit.URI,
		"URL":         hit.URL,
		"Slug":        hit.Slug(),
		"Type":        hit.Type,
		"Tags":        hit.Tags,
		"IsStarred":   hit.IsStarred,
		"FolderID":    hit.FolderID,
		"FolderTitle": hit.FolderTitle,

		// Tag helpers
		"hasTag": func(tag string) bool {
			return slices.ContainsFunc(hit.Tags, func(t string) bool {
				return strings.EqualFold(t, tag)
			})
		},
		"isDashboard": func() bool {
			return hit.Type == "dash-db"
		},
		"isFolder": func() bool {
			return hit.Type == "dash-folder"
		},

		"inFolder": func(folder string) bool {
			return strings.EqualFold(hit.FolderTitle, folder)
		},

		// Case-insensitive string helpers; expr's own contains, startsWith
		// and endsWith operators are case-sensitive
		"containsFold": func(str, substr string) bool {
			return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
		},
		"hasPrefixFold": func(str, prefix string) bool {
			return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
		},
	}
}
