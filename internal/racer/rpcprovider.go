package racer

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// TxSender broadcasts a base64 transaction through a plain RPC node.
type TxSender interface {
	SendTransaction(ctx context.Context, encoded string, skipPreflight bool) (string, error)
}

type rpcProvider struct {
	sender TxSender
	region Region
}

// NewRPC wraps an RPC node as a provider. It takes no tip.
func NewRPC(sender TxSender, endpoint string) Provider {
	return &rpcProvider{sender: sender, region: Region{Name: "rpc", URL: endpoint}}
}

func (p *rpcProvider) Name() string                 { return "rpc" }
func (p *rpcProvider) MinTip() float64              { return 0 }
func (p *rpcProvider) TipAccount() solana.PublicKey { return solana.PublicKey{} }
func (p *rpcProvider) Regions() []Region            { return []Region{p.region} }

func (p *rpcProvider) Send(ctx context.Context, _ Region, encodedTx string) (string, error) {
	return p.sender.SendTransaction(ctx, encodedTx, true)
}
