// Package conflictgraph renders the collision structure of a position map as
// a Graphviz graph.
//
// Every element becomes a node, filled by content kind. Every pair of
// elements that overlaps at some sampled instant becomes an undirected edge,
// coloured by the worst severity observed and labelled with the number of
// sampled instants at which the pair collides. Dependency links can be added
// as dashed arrows.
//
// A clean layout renders as isolated nodes; clusters of edges point at the
// region or time span that needs attention.
//
//	dot := conflictgraph.ToDOT(pm, conflictgraph.Options{Detailed: true})
//	svg, err := conflictgraph.RenderSVG(ctx, dot)
package conflictgraph
