/*
Package arbor is an editing model for labeled binary trees and the client
side of a tree analysis service.

A user grows a tree one edit at a time: add a child to the left or right of
a node, or relabel a node. Every edit is validated against the labeling
invariants (a child differs from its parent, siblings differ from each other,
no node repeats the root's label) and either produces a new immutable
snapshot or is rejected, leaving the previous snapshot in place. The current
snapshot can be serialized into the position-aware adjacency format (the
WireTree) expected by the analysis service, which answers with traversal
orders, height and a classification.

# Architecture

The Service facade wires the pieces behind one API that the terminal editor,
the HTTP server and the MCP server all call:

  - pkg/domain: Node, Tree, WireTree and the rejection errors.
  - pkg/model: the validated edit operations.
  - pkg/session: per-session serialization of edits over a TreeStore.
  - pkg/adapters: memory and Redis stores, the analysis HTTP client, and the
    HTTP and MCP editor surfaces.

# Usage

	svc, err := arbor.New(
		arbor.WithAnalyzer(analysis.NewClient("http://localhost:5000")),
	)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	id, _, err := svc.Start(ctx, "")
	if err != nil {
		log.Fatal(err)
	}

	// Children of the root: 3 on the left, 5 on the right.
	svc.AddChild(ctx, id, domain.RootID, 3, domain.SideLeft, "")
	svc.AddChild(ctx, id, domain.RootID, 5, domain.SideRight, "")

	result, err := svc.ViewResult(ctx, id)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(result.PreOrder, result.Classification)
*/
package arbor
