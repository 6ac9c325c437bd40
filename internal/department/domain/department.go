package domain

import (
	"sort"
	"time"
)

// DefaultName is the department new users land in when none is given.
const DefaultName = "Unassigned"

// Node types reported by Info.
const (
	NodeLeaf      = "leaf"
	NodeComposite = "composite"
)

// Department is a row of the departments table.
type Department struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	ParentID  *int64    `db:"parent_department_id" json:"parent_department_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsDefault reports whether d is the undeletable default department.
func (d *Department) IsDefault() bool {
	return d.Name == DefaultName
}

// Node is one department in the hierarchy together with its sub-departments.
type Node struct {
	Department *Department
	Children   []*Node
}

// Type returns NodeComposite when the node has children, NodeLeaf otherwise.
func (n *Node) Type() string {
	if len(n.Children) > 0 {
		return NodeComposite
	}
	return NodeLeaf
}

// Info is the serialisable view of a node.
type Info struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Children []Info `json:"children"`
}

// Info renders the node and its subtree.
func (n *Node) Info() Info {
	info := Info{
		ID:       n.Department.ID,
		Name:     n.Department.Name,
		Type:     n.Type(),
		Children: make([]Info, 0, len(n.Children)),
	}
	for _, child := range n.Children {
		info.Children = append(info.Children, child.Info())
	}
	return info
}

// DescendantIDs returns the node's id followed by every id below it, depth first.
func (n *Node) DescendantIDs() []int64 {
	var ids []int64
	seen := make(map[int64]bool)
	var walk func(*Node)
	walk = func(node *Node) {
		if seen[node.Department.ID] {
			return
		}
		seen[node.Department.ID] = true
		ids = append(ids, node.Department.ID)
		for _, child := range node.Children {
			walk(child)
		}
	}
	walk(n)
	return ids
}

// Tree is the department hierarchy built from flat rows.
type Tree struct {
	Roots []*Node
	index map[int64]*Node
}

// BuildTree links flat department rows into a forest. Rows whose parent is
// missing are treated as roots. Siblings are ordered by name.
func BuildTree(departments []*Department) *Tree {
	t := &Tree{index: make(map[int64]*Node, len(departments))}
	for _, d := range departments {
		t.index[d.ID] = &Node{Department: d}
	}

	for _, d := range departments {
		node := t.index[d.ID]
		if d.ParentID != nil {
			if parent, ok := t.index[*d.ParentID]; ok && parent != node {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		t.Roots = append(t.Roots, node)
	}

	sortNodes(t.Roots)
	for _, node := range t.index {
		sortNodes(node.Children)
	}
	return t
}

func sortNodes(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Department.Name < nodes[j].Department.Name
	})
}

// Find returns the node with the given id, or nil.
func (t *Tree) Find(id int64) *Node {
	return t.index[id]
}

// DescendantIDs returns id plus all of its descendants. Unknown ids yield an empty slice.
func (t *Tree) DescendantIDs(id int64) []int64 {
	node := t.Find(id)
	if node == nil {
		return []int64{}
	}
	return node.DescendantIDs()
}

// Info renders every root.
func (t *Tree) Info() []Info {
	infos := make([]Info, 0, len(t.Roots))
	for _, root := range t.Roots {
		infos = append(infos, root.Info())
	}
	return infos
}

// Len returns the number of departments in the tree.
func (t *Tree) Len() int {
	return len(t.index)
}
