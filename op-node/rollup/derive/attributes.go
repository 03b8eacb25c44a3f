package derive

import (
	"github.com/mantlenetworkio/op-multiblock/op-service/eth"
)

// AttributesWithParent is a payload-attributes set produced by derivation, together with the
// safe head it builds on and the L1 block it was derived from.
type AttributesWithParent struct {
	Attributes *eth.PayloadAttributes
	Parent     eth.L2BlockRef

	DerivedFrom eth.L1BlockRef
}

func (a *AttributesWithParent) IsDerived() bool {
	return a.DerivedFrom != (eth.L1BlockRef{})
}

// TargetNumber is the number of the L2 block the attributes will produce.
func (a *AttributesWithParent) TargetNumber() uint64 {
	return a.Parent.Number + 1
}
