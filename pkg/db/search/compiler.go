package search

import (
	"errors"
	"fmt"
	"strings"

	"github.com/heroku-miraheze/ed2kd/pkg/ed2k"
)

var (
	// ErrMalformedTree reports an unrecognized node kind, a broken
	// parent link, or a parenthesization imbalance in the compiled
	// match expression.
	ErrMalformedTree = errors.New("malformed search expression tree")

	// ErrQueryTooLarge reports a match expression or filter list that
	// exceeds the compile limits.
	ErrQueryTooLarge = errors.New("search query too large")

	// ErrInvalidEnumValue reports a TYPE constraint whose value does
	// not name a known media category.
	ErrInvalidEnumValue = errors.New("invalid enumerated value")
)

// FilterOp is the comparison a bound attribute filter applies.
type FilterOp uint8

const (
	OpEqual FilterOp = iota
	OpGreater
	OpLess
)

// Filter is one bound attribute constraint of a compiled query, in
// the order the leaves were visited. Str holds EXTENSION/CODEC values
// and the raw TYPE name; Int holds numeric bounds and the resolved
// TYPE category.
type Filter struct {
	Kind NodeKind
	Op   FilterOp
	Str  string
	Int  uint64
}

// Query is the result of compiling an expression tree: a full-text
// match expression over file names plus the attribute filters that
// must also hold. Match may be empty when the tree holds no string
// terms.
type Query struct {
	Match   string
	Filters []Filter
}

// Limits bounds the size of a compiled query.
type Limits struct {
	MaxMatchLen int
	MaxFilters  int
}

// DefaultLimits mirrors the server's wire-level search budget.
var DefaultLimits = Limits{
	MaxMatchLen: 1024,
	MaxFilters:  16,
}

// visit carries the per-node traversal state. It lives in a side
// table keyed by node pointer so the caller's tree stays read-only.
type visit struct {
	left  bool
	right bool
}

type visitTable map[*Node]*visit

func (t visitTable) of(n *Node) *visit {
	v := t[n]
	if v == nil {
		v = &visit{}
		t[n] = v
	}
	return v
}

// Compile walks the expression tree rooted at root and produces a
// single matchable query. The walk is iterative over the parent
// links, so tree depth never grows the call stack.
//
// A numeric leaf with value zero contributes no filter: zero is not a
// meaningful lower bound in this grammar, and "size greater than
// zero" cannot be expressed through it. A repeated constraint kind
// overwrites the earlier value, keeping its original position.
func Compile(root *Node, limits Limits) (*Query, error) {
	if limits.MaxMatchLen <= 0 {
		limits.MaxMatchLen = DefaultLimits.MaxMatchLen
	}
	if limits.MaxFilters <= 0 {
		limits.MaxFilters = DefaultLimits.MaxFilters
	}

	if root == nil {
		return &Query{}, nil
	}

	bearing, err := stringBearing(root)
	if err != nil {
		return nil, err
	}

	var (
		match   strings.Builder
		filters []Filter
		slot    = make(map[NodeKind]int)
		state   = make(visitTable)
		depth   int
	)

	appendMatch := func(s string) error {
		if match.Len()+len(s) > limits.MaxMatchLen {
			return fmt.Errorf("%w: match expression exceeds %d bytes", ErrQueryTooLarge, limits.MaxMatchLen)
		}
		match.WriteString(s)
		return nil
	}

	record := func(n *Node) error {
		f, err := leafFilter(n)
		if err != nil {
			return err
		}
		if i, ok := slot[n.Kind]; ok {
			filters[i] = f
			return nil
		}
		slot[n.Kind] = len(filters)
		filters = append(filters, f)
		return nil
	}

	for n := root; ; {
		if n.Kind.IsCombinator() {
			st := state.of(n)
			if !st.left {
				st.left = true
				if bearing[n] {
					if err := appendMatch("("); err != nil {
						return nil, err
					}
					depth++
				}
				if n.Left != nil {
					n = n.Left
					continue
				}
			}
			if !st.right {
				st.right = true
				// The keyword sits between the children's text
				// contributions, so it is emitted only when the right
				// subtree produces text and, for AND/OR, the left one
				// did too. NOT keeps its keyword without a left
				// contribution (unary negation).
				if bearing[n.Right] && (n.Kind == KindNot || bearing[n.Left]) {
					if err := appendMatch(operator(n.Kind, match.String())); err != nil {
						return nil, err
					}
				}
				if n.Right != nil {
					n = n.Right
					continue
				}
			}
			if bearing[n] {
				if err := appendMatch(")"); err != nil {
					return nil, err
				}
				depth--
			}
		} else if n.Kind == KindString {
			if err := appendMatch(n.Str); err != nil {
				return nil, err
			}
		} else if n.Kind <= KindMinLength {
			if err := record(n); err != nil {
				return nil, err
			}
		} else {
			return nil, fmt.Errorf("%w: unknown node kind %d", ErrMalformedTree, n.Kind)
		}

		if n == root {
			break
		}
		if n.Parent == nil {
			return nil, fmt.Errorf("%w: missing parent link", ErrMalformedTree)
		}
		n = n.Parent
	}

	// Structurally impossible with a well-formed tree, but cheap to
	// verify against the emitted text.
	if depth != 0 {
		return nil, fmt.Errorf("%w: unbalanced parentheses", ErrMalformedTree)
	}

	// The budget applies to the filters the query will actually bind,
	// so it is checked only after zero-valued bounds are pruned.
	kept := pruneZero(filters)
	if len(kept) > limits.MaxFilters {
		return nil, fmt.Errorf("%w: more than %d attribute filters", ErrQueryTooLarge, limits.MaxFilters)
	}

	return &Query{Match: match.String(), Filters: kept}, nil
}

// operator renders a combinator keyword. The leading space is dropped
// right after an opening parenthesis, which is where a NOT with no
// left operand emits.
func operator(kind NodeKind, emitted string) string {
	lead := " "
	if strings.HasSuffix(emitted, "(") {
		lead = ""
	}
	switch kind {
	case KindAnd:
		return lead + "AND "
	case KindOr:
		return lead + "OR "
	default:
		return lead + "NOT "
	}
}

// leafFilter maps a non-string leaf to its bound filter.
func leafFilter(n *Node) (Filter, error) {
	switch n.Kind {
	case KindExtension, KindCodec:
		return Filter{Kind: n.Kind, Op: OpEqual, Str: n.Str}, nil
	case KindType:
		t, ok := ed2k.FileTypeFromName(n.Str)
		if !ok {
			return Filter{}, fmt.Errorf("%w: unknown media category %q", ErrInvalidEnumValue, n.Str)
		}
		return Filter{Kind: n.Kind, Op: OpEqual, Str: n.Str, Int: uint64(t)}, nil
	case KindMaxSize:
		return Filter{Kind: n.Kind, Op: OpLess, Int: n.Int}, nil
	default:
		return Filter{Kind: n.Kind, Op: OpGreater, Int: n.Int}, nil
	}
}

// pruneZero drops numeric filters whose final value is zero. The
// check runs after the walk so a later leaf overwriting a bound to
// zero removes the filter, matching last-value-wins semantics.
func pruneZero(filters []Filter) []Filter {
	kept := filters[:0]
	for _, f := range filters {
		switch f.Kind {
		case KindExtension, KindCodec, KindType:
			kept = append(kept, f)
		default:
			if f.Int != 0 {
				kept = append(kept, f)
			}
		}
	}
	return kept
}

// stringBearing computes, for every combinator, whether its subtree
// contains a STRING leaf. Parentheses and operator keywords are only
// emitted for string-bearing combinators. The walk is iterative over
// the same parent links the main pass uses.
func stringBearing(root *Node) (map[*Node]bool, error) {
	bearing := make(map[*Node]bool)
	state := make(visitTable)

	for n := root; ; {
		if n.Kind.IsCombinator() {
			st := state.of(n)
			if !st.left {
				st.left = true
				if n.Left != nil {
					n = n.Left
					continue
				}
			}
			if !st.right {
				st.right = true
				if n.Right != nil {
					n = n.Right
					continue
				}
			}
			bearing[n] = bearing[n.Left] || bearing[n.Right]
		} else if n.Kind == KindString {
			bearing[n] = true
		}

		if n == root {
			return bearing, nil
		}
		if n.Parent == nil {
			return nil, fmt.Errorf("%w: missing parent link", ErrMalformedTree)
		}
		n = n.Parent
	}
}
