/*
Package domain contains the core domain models for the arbor tree editor.

It defines the labeled binary tree edited by a session, the wire format sent to
the analysis service and the display model built from its answer. This package
is kept pure and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - Node: A labeled vertex with ordered children and a left/right side.
  - Tree: An immutable snapshot rooted at a single Node. Edits produce new Trees.
  - WireTree: The ordered adjacency mapping submitted to the analysis service.
  - AnalysisResponse: The raw answer of the analysis service.
  - DisplayModel: The presentation-ready projection of an AnalysisResponse.
*/
package domain
