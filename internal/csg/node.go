package csg

// node is a BSP tree node. Polygons coplanar with the splitting plane are kept on the node.
type node struct {
	plane    *plane
	front    *node
	back     *node
	polygons []*polygon
}

func newNode(polygons []*polygon) *node {
	n := &node{}
	if len(polygons) > 0 {
		n.build(polygons)
	}
	return n
}

func (n *node) clone() *node {
	if n == nil {
		return nil
	}
	out := &node{front: n.front.clone(), back: n.back.clone()}
	if n.plane != nil {
		p := *n.plane
		out.plane = &p
	}
	out.polygons = make([]*polygon, len(n.polygons))
	for i, p := range n.polygons {
		out.polygons[i] = p.clone()
	}
	return out
}

// invert converts solid space to empty space and empty space to solid space
func (n *node) invert() {
	for _, p := range n.polygons {
		p.flip()
	}
	if n.plane != nil {
		f := n.plane.flipped()
		n.plane = &f
	}
	if n.front != nil {
		n.front.invert()
	}
	if n.back != nil {
		n.back.invert()
	}
	n.front, n.back = n.back, n.front
}

// clipPolygons removes the parts of polygons that are inside this tree
func (n *node) clipPolygons(polygons []*polygon) []*polygon {
	if n.plane == nil {
		out := make([]*polygon, len(polygons))
		copy(out, polygons)
		return out
	}

	var fronts, backs []*polygon
	for _, p := range polygons {
		n.plane.split(p, &fronts, &backs, &fronts, &backs)
	}
	if n.front != nil {
		fronts = n.front.clipPolygons(fronts)
	}
	if n.back != nil {
		backs = n.back.clipPolygons(backs)
	} else {
		backs = nil
	}
	return append(fronts, backs...)
}

// clipTo removes the parts of this tree's polygons that are inside other
func (n *node) clipTo(other *node) {
	n.polygons = other.clipPolygons(n.polygons)
	if n.front != nil {
		n.front.clipTo(other)
	}
	if n.back != nil {
		n.back.clipTo(other)
	}
}

func (n *node) allPolygons() []*polygon {
	out := make([]*polygon, len(n.polygons))
	copy(out, n.polygons)
	if n.front != nil {
		out = append(out, n.front.allPolygons()...)
	}
	if n.back != nil {
		out = append(out, n.back.allPolygons()...)
	}
	return out
}

// build inserts polygons into the tree, splitting them as needed
func (n *node) build(polygons []*polygon) {
	if len(polygons) == 0 {
		return
	}
	if n.plane == nil {
		p := polygons[0].plane
		n.plane = &p
	}

	var fronts, backs []*polygon
	for _, p := range polygons {
		n.plane.split(p, &n.polygons, &n.polygons, &fronts, &backs)
	}
	if len(fronts) > 0 {
		if n.front == nil {
			n.front = &node{}
		}
		n.front.build(fronts)
	}
	if len(backs) > 0 {
		if n.back == nil {
			n.back = &node{}
		}
		n.back.build(backs)
	}
}
