package settlement

import (
	"context"

	"github.com/warp-contracts/licensing/src/utils/aptos"
	"github.com/warp-contracts/licensing/src/utils/payload"
)

// Chain the settlements are submitted to.
// Errors matching aptos.ErrTransient are retried, all other submission errors are rejections.
type Backend interface {
	// Signs the payload on behalf of sender. The hash of the signed transaction is known before it's sent.
	Prepare(ctx context.Context, sender string, p *payload.Payload) (*aptos.PreparedTransaction, error)

	// Sends the signed transaction. Sending the same transaction again never executes it twice.
	Send(ctx context.Context, tx *aptos.PreparedTransaction) (hash string, err error)

	// Current status of a submitted transaction
	Status(ctx context.Context, hash string) (*aptos.TransactionStatus, error)
}
