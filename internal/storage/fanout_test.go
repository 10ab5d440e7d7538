package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/aman-zulfiqar/solana-reactive-trader/internal/models"
	"github.com/stretchr/testify/assert"
)

type countingSink struct {
	reactions   int
	settlements int
	err         error
}

func (c *countingSink) PublishReaction(context.Context, *models.Reaction) error {
	c.reactions++
	return c.err
}

func (c *countingSink) PublishSettlement(context.Context, *models.Settlement) error {
	c.settlements++
	return c.err
}

func TestFanout_DeliversToAllSinks(t *testing.T) {
	a := &countingSink{}
	b := &countingSink{err: errors.New("clickhouse down")}
	f := Fanout{a, nil, b}

	err := f.PublishReaction(context.Background(), &models.Reaction{})
	assert.ErrorContains(t, err, "clickhouse down")
	assert.Equal(t, 1, a.reactions)
	assert.Equal(t, 1, b.reactions)

	err = f.PublishSettlement(context.Background(), &models.Settlement{})
	assert.Error(t, err)
	assert.Equal(t, 1, a.settlements)
	assert.Equal(t, 1, b.settlements)
}

func TestDiscard(t *testing.T) {
	var s EventSink = Discard{}
	assert.NoError(t, s.PublishReaction(context.Background(), &models.Reaction{}))
	assert.NoError(t, s.PublishSettlement(context.Background(), &models.Settlement{}))
}
