package graph

import (
	"encoding/hex"
	"fmt"
	"strings"

	"lukechampine.com/blake3"
)

// Digest serialises every node definition and arrow in declaration order and
// returns the BLAKE3 hex digest. Equal graphs produce equal digests; it is
// used verbatim as the kernel-compile cache key in internal/kernelcache.
func Digest(g *Graph) string {
	var b strings.Builder

	writeWidth := func(w *int64) {
		if w == nil {
			b.WriteString("_")
			return
		}
		fmt.Fprintf(&b, "%d", *w)
	}

	writeRatio := func(r *Ratio) {
		if r == nil {
			b.WriteString("_")
			return
		}
		fmt.Fprintf(&b, "%d/%d@%s", r.LHS, r.RHS, r.Ref)
	}

	b.WriteString("P[")
	for _, p := range g.Producers {
		fmt.Fprintf(&b, "%s:", p.Name)
		writeWidth(p.Width)
		b.WriteString(":")
		writeRatio(p.Ratio)
		b.WriteString(";")
	}
	b.WriteString("]C[")

	for _, c := range g.Consumers {
		fmt.Fprintf(&b, "%s:", c.Name)
		writeWidth(c.Width)
		b.WriteString(";")
	}
	b.WriteString("]L[")

	for _, l := range g.Layers {
		fmt.Fprintf(&b, "%s:", l.Name)
		writeWidth(l.Width)
		b.WriteString(":")
		writeRatio(l.Ratio)
		b.WriteString(";")
	}
	b.WriteString("]Y[")

	for _, line := range g.Cycle {
		fmt.Fprintf(&b, "%s->", nodeRefString(line.Source))
		for _, a := range line.Arrows {
			fmt.Fprintf(&b, "(%s,%t,%s)", nodeRefString(a.Target), a.Backward, a.Func)
		}
		b.WriteString(";")
	}
	b.WriteString("]")

	sum := blake3.Sum256([]byte(b.String()))

	return hex.EncodeToString(sum[:])
}

func nodeRefString(id NodeId) string {
	return fmt.Sprintf("%s#%d", id.Kind, id.Index)
}
