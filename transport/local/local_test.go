package local

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uap-core/uap/contextstore"
	"github.com/uap-core/uap/entity"
	"github.com/uap-core/uap/message"
	"github.com/uap-core/uap/policy"
	"github.com/uap-core/uap/registry"
	"github.com/uap-core/uap/router"
)

func TestLocalTransportRoutesMessage(t *testing.T) {
	dir := registry.NewDirectory()
	pol := policy.NewEngine()
	pol.AddPolicy(&policy.Policy{ID: "allow-all", Resources: []string{"*"}, Actions: []string{"*"}})
	rtr := router.New(dir, pol, nil, contextstore.NewStore())

	bob := entity.NewLocalEntity("bob", entity.KindClient, nil, nil, nil, 0)
	defer bob.Close()
	bob.AddHandler(func(ctx context.Context, msg *message.Message) (*message.Message, error) {
		resp := message.New("bob", msg.Sender, message.IntentAck, nil, msg.ContextID)
		return resp, nil
	})
	require.NoError(t, dir.Register(bob))

	tr := New(rtr)
	msg := message.New("alice", "bob", "greet", "hi", "ctx-1")
	resp, err := tr.Send(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, message.IntentAck, resp.Intent)
}
