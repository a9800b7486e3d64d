// Package nodes provides a small catalog of node.Provider implementations
// used to wire demo graphs: arithmetic nodes for the chain/fan-out
// scenarios, and a couple of providers purpose-built to exercise failure
// and abort handling. Each constructor returns a ready-to-run *node.Node
// rather than a bare Provider, since every demo graph needs the node's
// declared port schema alongside its behavior.
package nodes
