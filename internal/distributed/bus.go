package distributed

import (
	"fmt"

	"github.com/example/harmonics-go/internal/tensor"
)

// bus is the single-slot mailbox joining one boundary producer to its
// consumer across a partition. secure buses also carry the proof string
// accompanying the tensor, so the receiving partition can seed its chain.
type bus struct {
	secure  bool
	pending bool
	value   tensor.Tensor
	proof   string
}

func newBus(secure bool) *bus {
	return &bus{secure: secure}
}

// send deposits value (and, in secure mode, the sending partition's proof)
// for the next receive. A boundary crosses exactly one step per Step(), so
// overwriting any stale pending value is the expected steady-state case,
// not a dropped message.
func (b *bus) send(value tensor.Tensor, proof string) {
	b.value = value
	b.proof = proof
	b.pending = true
}

// receive hands back the most recently sent value, erroring if nothing has
// been sent yet (the producer side ran before any consumer fed the bus).
func (b *bus) receive() (tensor.Tensor, error) {
	if !b.pending {
		return tensor.Tensor{}, fmt.Errorf("distributed: boundary bus read before any value was sent")
	}
	return b.value, nil
}

func (b *bus) hasPending() bool {
	return b.pending
}

// peekProof returns the proof string carried by the most recent send,
// without consuming it (the tensor itself is still taken through receive).
func (b *bus) peekProof() (string, bool) {
	if !b.pending || !b.secure {
		return "", false
	}
	return b.proof, true
}
