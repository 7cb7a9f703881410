package search

// NodeKind identifies a node in a search expression tree.
type NodeKind uint8

const (
	// Boolean combinators. And/Or are binary; Not usually carries only
	// a right child when it negates a single term.
	KindAnd NodeKind = iota
	KindOr
	KindNot

	// Leaf constraints.
	KindString
	KindExtension
	KindCodec
	KindType
	KindMinSize
	KindMaxSize
	KindMinSources
	KindMinComplete
	KindMinBitrate
	KindMinLength
)

// IsCombinator reports whether the kind is a boolean combinator.
func (k NodeKind) IsCombinator() bool {
	return k <= KindNot
}

func (k NodeKind) String() string {
	switch k {
	case KindAnd:
		return "AND"
	case KindOr:
		return "OR"
	case KindNot:
		return "NOT"
	case KindString:
		return "STRING"
	case KindExtension:
		return "EXTENSION"
	case KindCodec:
		return "CODEC"
	case KindType:
		return "TYPE"
	case KindMinSize:
		return "MIN_SIZE"
	case KindMaxSize:
		return "MAX_SIZE"
	case KindMinSources:
		return "MIN_SOURCES"
	case KindMinComplete:
		return "MIN_COMPLETE"
	case KindMinBitrate:
		return "MIN_BITRATE"
	case KindMinLength:
		return "MIN_LENGTH"
	}
	return "UNKNOWN"
}

// Node is one node of a caller-built search expression tree. Parent
// links let the compiler walk arbitrarily deep trees without recursion
// or a stack; the compiler never mutates the tree, so the same tree
// may be compiled more than once.
type Node struct {
	Kind   NodeKind
	Left   *Node
	Right  *Node
	Parent *Node

	// Leaf payload: Str for STRING/EXTENSION/CODEC/TYPE, Int for the
	// numeric constraints.
	Str string
	Int uint64
}

// Term builds a STRING leaf.
func Term(s string) *Node {
	return &Node{Kind: KindString, Str: s}
}

// StrLeaf builds a string-valued constraint leaf (EXTENSION, CODEC or
// TYPE).
func StrLeaf(kind NodeKind, s string) *Node {
	return &Node{Kind: kind, Str: s}
}

// IntLeaf builds a numeric constraint leaf.
func IntLeaf(kind NodeKind, v uint64) *Node {
	return &Node{Kind: kind, Int: v}
}

// And combines two subtrees with AND, wiring parent links.
func And(left, right *Node) *Node {
	return combine(KindAnd, left, right)
}

// Or combines two subtrees with OR, wiring parent links.
func Or(left, right *Node) *Node {
	return combine(KindOr, left, right)
}

// Not negates a subtree. The operand sits in the right child; a
// binary form ("a NOT b") is built with AndNot.
func Not(operand *Node) *Node {
	return combine(KindNot, nil, operand)
}

// AndNot builds the binary exclusion form "left NOT right".
func AndNot(left, right *Node) *Node {
	return combine(KindNot, left, right)
}

func combine(kind NodeKind, left, right *Node) *Node {
	n := &Node{Kind: kind, Left: left, Right: right}
	if left != nil {
		left.Parent = n
	}
	if right != nil {
		right.Parent = n
	}
	return n
}
