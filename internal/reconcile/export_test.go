package reconcile

import (
	"context"

	"github.com/2beens/gymplanner/internal/remote"
)

func (r *Reconciler) SendPush(ctx context.Context, id remote.Identity, seq uint64, doc remote.Document) error {
	return r.send(ctx, id, seq, doc)
}

func (r *Reconciler) MarkApplied(seq uint64) {
	r.markApplied(seq)
}
