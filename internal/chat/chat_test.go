package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipparndt/modelforge/internal/operation"
	"github.com/philipparndt/modelforge/internal/prompt"
)

type failingInterpreter struct{}

func (failingInterpreter) Interpret(context.Context, string) (*operation.Instruction, error) {
	return nil, errors.New("provider returned HTTP 500")
}

func histories(t *testing.T) map[string]History {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return map[string]History{
		"memory": NewMemoryHistory(0),
		"redis":  NewRedisHistory(client, 0),
	}
}

func TestSubmitRecordsInstruction(t *testing.T) {
	for name, h := range histories(t) {
		t.Run(name, func(t *testing.T) {
			svc := NewService(prompt.NewKeyword(), h, nil)

			reply, err := svc.Submit(context.Background(), "u1", "make it twice as big")
			require.NoError(t, err)
			require.NotNil(t, reply.Entry.Instruction)
			assert.Equal(t, operation.Scale{Factor: 2}, reply.Entry.Instruction.Op)
			require.Len(t, reply.History, 1)
			assert.Equal(t, reply.Entry.ID, reply.History[0].ID)
			require.NotNil(t, reply.History[0].Instruction)
			assert.Equal(t, "scale", reply.History[0].Instruction.Op.Name())
		})
	}
}

func TestHistoryWindow(t *testing.T) {
	for name, h := range histories(t) {
		t.Run(name, func(t *testing.T) {
			svc := NewService(prompt.NewKeyword(), h, nil)
			ctx := context.Background()

			for i := 0; i < MaxEntries+5; i++ {
				_, err := svc.Submit(ctx, "u1", fmt.Sprintf("make it red %d", i))
				require.NoError(t, err)
			}
			_, err := svc.Submit(ctx, "u2", "make it blue")
			require.NoError(t, err)

			all, err := h.Recent(ctx, "u1", 0)
			require.NoError(t, err)
			require.Len(t, all, MaxEntries)
			assert.Equal(t, "make it red 5", all[0].Prompt)

			recent, err := svc.Recent(ctx, "u1")
			require.NoError(t, err)
			require.Len(t, recent, RecentEntries)
			assert.Equal(t, fmt.Sprintf("make it red %d", MaxEntries+4), recent[RecentEntries-1].Prompt)

			other, err := svc.Recent(ctx, "u2")
			require.NoError(t, err)
			assert.Len(t, other, 1)
		})
	}
}

func TestSubmitRecordsInterpreterError(t *testing.T) {
	svc := NewService(failingInterpreter{}, NewMemoryHistory(0), nil)

	reply, err := svc.Submit(context.Background(), "u1", "make it pretty")
	require.NoError(t, err)
	assert.Nil(t, reply.Entry.Instruction)
	assert.Contains(t, reply.Entry.Error, "HTTP 500")
	assert.Len(t, reply.History, 1)
}

func TestSubmitRejectsEmptyMessage(t *testing.T) {
	svc := NewService(prompt.NewKeyword(), NewMemoryHistory(0), nil)
	_, err := svc.Submit(context.Background(), "u1", "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}
