package msgstore

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slices"
)

func intp(n int) *int {
	return &n
}

func ordersOf(msgs []*ChatMessageModel) []int {
	orders := make([]int, 0, len(msgs))
	for _, m := range msgs {
		orders = append(orders, m.Order)
	}
	return orders
}

func seedMessages(t *testing.T, s *Store, conversationID uuid.UUID, senderID int, orders []int) {
	t.Helper()
	for _, ord := range orders {
		m := &ChatMessageModel{
			ID:             uuid.New(),
			ConversationID: conversationID,
			SenderID:       senderID,
			Order:          ord,
			RemoteID:       fmt.Sprintf("remote-%d-%d", senderID, ord),
			Props:          []byte(fmt.Sprintf("message body %d", ord)),
		}
		if err := s.CreateChatMessage(m); err != nil {
			t.Fatal(err)
		}
	}
}

func TestListChatMessagesOrdering(t *testing.T) {
	require := require.New(t)
	s := newTestStore(t, t.TempDir())
	defer func() {
		require.Nil(s.Close())
	}()

	conversationID := uuid.New()
	orders := []int{3, 5, 6, 7, 9, 10, 12}
	seedMessages(t, s, conversationID, 1, orders)
	// another sender and another conversation must never leak in
	seedMessages(t, s, conversationID, 2, []int{1, 2})
	seedMessages(t, s, uuid.New(), 1, []int{4, 8})

	asc, err := s.ListChatMessages(conversationID, 1, Ascending, nil, nil, 0, 100)
	require.Nil(err)
	require.Equal(orders, ordersOf(asc))

	desc, err := s.ListChatMessages(conversationID, 1, Descending, nil, nil, 0, 100)
	require.Nil(err)
	reversed := slices.Clone(orders)
	slices.Reverse(reversed)
	require.Equal(reversed, ordersOf(desc))
}

func TestListChatMessagesBounds(t *testing.T) {
	require := require.New(t)
	s := newTestStore(t, t.TempDir())
	defer func() {
		require.Nil(s.Close())
	}()

	conversationID := uuid.New()
	seedMessages(t, s, conversationID, 1, []int{3, 5, 6, 7, 9, 10, 12})

	// strict exclusive bounds on both sides
	msgs, err := s.ListChatMessages(conversationID, 1, Ascending, intp(5), intp(10), 0, 100)
	require.Nil(err)
	require.Equal([]int{6, 7, 9}, ordersOf(msgs))

	msgs, err = s.ListChatMessages(conversationID, 1, Ascending, intp(5), nil, 0, 100)
	require.Nil(err)
	require.Equal([]int{6, 7, 9, 10, 12}, ordersOf(msgs))

	msgs, err = s.ListChatMessages(conversationID, 1, Ascending, nil, intp(10), 0, 100)
	require.Nil(err)
	require.Equal([]int{3, 5, 6, 7, 9}, ordersOf(msgs))

	// inverted or empty windows are empty, not an error
	msgs, err = s.ListChatMessages(conversationID, 1, Ascending, intp(10), intp(10), 0, 100)
	require.Nil(err)
	require.Len(msgs, 0)
	msgs, err = s.ListChatMessages(conversationID, 1, Ascending, intp(12), intp(5), 0, 100)
	require.Nil(err)
	require.Len(msgs, 0)
}

func TestListChatMessagesOffsetLimit(t *testing.T) {
	require := require.New(t)
	s := newTestStore(t, t.TempDir())
	defer func() {
		require.Nil(s.Close())
	}()

	conversationID := uuid.New()
	seedMessages(t, s, conversationID, 1, []int{1, 2, 3, 4, 5})

	msgs, err := s.ListChatMessages(conversationID, 1, Ascending, nil, nil, 1, 2)
	require.Nil(err)
	require.Equal([]int{2, 3}, ordersOf(msgs))

	msgs, err = s.ListChatMessages(conversationID, 1, Descending, nil, nil, 2, 2)
	require.Nil(err)
	require.Equal([]int{3, 2}, ordersOf(msgs))

	// limit zero always yields an empty sequence
	msgs, err = s.ListChatMessages(conversationID, 1, Ascending, nil, nil, 0, 0)
	require.Nil(err)
	require.Len(msgs, 0)

	// offset past the end is empty, not an error
	msgs, err = s.ListChatMessages(conversationID, 1, Ascending, nil, nil, 10, 10)
	require.Nil(err)
	require.Len(msgs, 0)
}

func TestFetchChatMessage(t *testing.T) {
	require := require.New(t)
	s := newTestStore(t, t.TempDir())
	defer func() {
		require.Nil(s.Close())
	}()

	m := &ChatMessageModel{
		ID:             uuid.New(),
		ConversationID: uuid.New(),
		SenderID:       3,
		Order:          1,
		RemoteID:       "remote-abc",
		Props:          []byte("delivery state and text"),
	}
	require.Nil(s.CreateChatMessage(m))

	got, err := s.FetchChatMessage(m.ID)
	require.Nil(err)
	require.Equal(m, got)

	got, err = s.FetchChatMessageByRemoteID("remote-abc")
	require.Nil(err)
	require.Equal(m.ID, got.ID)

	_, err = s.FetchChatMessage(uuid.New())
	require.ErrorIs(err, ErrNotFound)
	_, err = s.FetchChatMessageByRemoteID("remote-missing")
	require.ErrorIs(err, ErrNotFound)
}

func TestChatMessageUniqueness(t *testing.T) {
	require := require.New(t)
	s := newTestStore(t, t.TempDir())
	defer func() {
		require.Nil(s.Close())
	}()

	conversationID := uuid.New()
	m := &ChatMessageModel{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       1,
		Order:          1,
		RemoteID:       "remote-1",
		Props:          []byte("first"),
	}
	require.Nil(s.CreateChatMessage(m))

	// same id
	dup := *m
	dup.RemoteID = "remote-2"
	dup.Order = 2
	require.ErrorIs(s.CreateChatMessage(&dup), ErrDuplicateIdentity)

	// same remote id, messages arriving twice from a remote source
	dup = *m
	dup.ID = uuid.New()
	dup.Order = 2
	require.ErrorIs(s.CreateChatMessage(&dup), ErrDuplicateIdentity)

	// same (conversation, sender, order)
	dup = *m
	dup.ID = uuid.New()
	dup.RemoteID = "remote-3"
	require.ErrorIs(s.CreateChatMessage(&dup), ErrDuplicateIdentity)
}

func TestUpdateChatMessageKeepsIndexFields(t *testing.T) {
	require := require.New(t)
	s := newTestStore(t, t.TempDir())
	defer func() {
		require.Nil(s.Close())
	}()

	m := &ChatMessageModel{
		ID:             uuid.New(),
		ConversationID: uuid.New(),
		SenderID:       1,
		Order:          7,
		RemoteID:       "remote-7",
		Props:          []byte("undelivered"),
	}
	require.Nil(s.CreateChatMessage(m))

	m.Props = []byte("delivered")
	require.Nil(s.UpdateChatMessage(m))

	got, err := s.FetchChatMessage(m.ID)
	require.Nil(err)
	require.Equal([]byte("delivered"), got.Props)
	require.Equal(7, got.Order)
	require.Equal("remote-7", got.RemoteID)

	require.Nil(s.RemoveChatMessage(m))
	_, err = s.FetchChatMessage(m.ID)
	require.ErrorIs(err, ErrNotFound)
	require.ErrorIs(s.UpdateChatMessage(m), ErrNotFound)
}
