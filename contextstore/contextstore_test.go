package contextstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uap-core/uap/message"
)

func TestAddMessagePreservesOrder(t *testing.T) {
	s := NewStore()
	c := s.CreateContext(0)

	m1 := message.New("a", "b", "x", 1, c.ID)
	m2 := message.New("a", "b", "x", 2, c.ID)
	require.NoError(t, s.AddMessage(c.ID, m1))
	require.NoError(t, s.AddMessage(c.ID, m2))

	got, err := s.GetContext(c.ID)
	require.NoError(t, err)
	msgs := got.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, m1.ID, msgs[0].ID)
	assert.Equal(t, m2.ID, msgs[1].ID)
}

// TestAddMessageIdempotent is the §3 invariant: repeated calls for the
// same (context, message-id) are no-ops.
func TestAddMessageIdempotent(t *testing.T) {
	s := NewStore()
	c := s.CreateContext(0)
	m := message.New("a", "b", "x", 1, c.ID)

	require.NoError(t, s.AddMessage(c.ID, m))
	require.NoError(t, s.AddMessage(c.ID, m))

	got, _ := s.GetContext(c.ID)
	assert.Len(t, got.Messages(), 1)
}

func TestAddMessageUnknownContext(t *testing.T) {
	s := NewStore()
	err := s.AddMessage("missing", message.New("a", "b", "x", 1, "missing"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBoundedContextEvictsOldest(t *testing.T) {
	s := NewStore()
	c := s.CreateContext(2)

	m1 := message.New("a", "b", "x", 1, c.ID)
	m2 := message.New("a", "b", "x", 2, c.ID)
	m3 := message.New("a", "b", "x", 3, c.ID)
	require.NoError(t, s.AddMessage(c.ID, m1))
	require.NoError(t, s.AddMessage(c.ID, m2))
	require.NoError(t, s.AddMessage(c.ID, m3))

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, m2.ID, msgs[0].ID)
	assert.Equal(t, m3.ID, msgs[1].ID)
}

func TestListContexts(t *testing.T) {
	s := NewStore()
	c1 := s.CreateContext(0)
	c2 := s.CreateContext(0)

	ids := s.ListContexts()
	assert.ElementsMatch(t, []string{c1.ID, c2.ID}, ids)
}

func TestExpireIdle(t *testing.T) {
	s := NewStore()
	c := s.CreateContext(0)
	require.NoError(t, s.AddMessage(c.ID, message.New("a", "b", "x", 1, c.ID)))

	expired := s.ExpireIdle(0)
	assert.Contains(t, expired, c.ID)

	_, err := s.GetContext(c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIdleGCLoop(t *testing.T) {
	s := NewStore(WithIdleGC(5*time.Millisecond, 10*time.Millisecond))
	c := s.CreateContext(0)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	defer cancel()

	require.Eventually(t, func() bool {
		_, err := s.GetContext(c.ID)
		return err != nil
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())
}
