package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-client/internal/models"
)

func msg(id, conv string) models.Message {
	return models.Message{ID: id, Content: "m" + id, Chat: models.ChatRef{ID: conv}}
}

func ids(list []models.Message) []string {
	out := make([]string, 0, len(list))
	for _, m := range list {
		out = append(out, m.ID)
	}
	return out
}

func TestAppendKeepsArrivalOrder(t *testing.T) {
	stream := NewStream()
	ticket := stream.Begin("c1")
	require.NoError(t, stream.Finish(ticket, nil))

	for _, id := range []string{"3", "1", "2"} {
		assert.True(t, stream.Append(msg(id, "c1")))
	}
	assert.Equal(t, []string{"3", "1", "2"}, ids(stream.Messages()))
}

func TestAppendDedupesByID(t *testing.T) {
	stream := NewStream()
	require.NoError(t, stream.Finish(stream.Begin("c1"), []models.Message{msg("1", "c1")}))

	assert.False(t, stream.Append(msg("1", "c1")))
	assert.True(t, stream.Append(msg("2", "c1")))
	assert.False(t, stream.Append(msg("2", "c1")))
	assert.Equal(t, 2, stream.Len())
}

func TestAppendRejectsOtherConversation(t *testing.T) {
	stream := NewStream()
	assert.False(t, stream.Append(msg("1", "c1")), "nothing loaded")

	stream.Begin("c1")
	assert.False(t, stream.Append(msg("2", "c2")))
	assert.Equal(t, 0, stream.Len())
}

func TestFinishReplacesBufferAndMergesPushes(t *testing.T) {
	stream := NewStream()
	ticket := stream.Begin("c1")
	assert.True(t, stream.Loading())

	stream.Append(msg("3", "c1"))
	stream.Append(msg("4", "c1"))

	require.NoError(t, stream.Finish(ticket, []models.Message{msg("1", "c1"), msg("2", "c1"), msg("3", "c1")}))
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(stream.Messages()))
	assert.False(t, stream.Loading())
}

func TestFinishWithStaleTicketLeavesBufferAlone(t *testing.T) {
	stream := NewStream()
	first := stream.Begin("x")
	second := stream.Begin("y")
	require.NoError(t, stream.Finish(second, []models.Message{msg("y1", "y")}))

	err := stream.Finish(first, []models.Message{msg("x1", "x"), msg("x2", "x")})
	assert.ErrorIs(t, err, ErrStale)
	assert.False(t, stream.Current(first))
	assert.True(t, stream.Current(second))
	assert.Equal(t, "y", stream.ConversationID())
	assert.Equal(t, []string{"y1"}, ids(stream.Messages()))
}

func TestResetInvalidatesOutstandingTicket(t *testing.T) {
	stream := NewStream()
	ticket := stream.Begin("c1")
	stream.Reset()

	assert.ErrorIs(t, stream.Finish(ticket, []models.Message{msg("1", "c1")}), ErrStale)
	assert.Empty(t, stream.ConversationID())
	assert.Equal(t, 0, stream.Len())
}

func TestAbortKeepsBuffer(t *testing.T) {
	stream := NewStream()
	ticket := stream.Begin("c1")
	stream.Append(msg("1", "c1"))
	stream.Abort(ticket)

	assert.False(t, stream.Loading())
	assert.Equal(t, []string{"1"}, ids(stream.Messages()))
}

func TestLoadedOnlyAfterFinish(t *testing.T) {
	stream := NewStream()
	ticket := stream.Begin("c1")
	assert.False(t, stream.Loaded())

	stream.Abort(ticket)
	assert.False(t, stream.Loaded(), "a failed load leaves the conversation unloaded")

	ticket = stream.Begin("c1")
	require.NoError(t, stream.Finish(ticket, []models.Message{msg("1", "c1")}))
	assert.True(t, stream.Loaded())

	stream.Reset()
	assert.False(t, stream.Loaded())
}

func TestMediaFiltersByKind(t *testing.T) {
	stream := NewStream()
	require.NoError(t, stream.Finish(stream.Begin("c1"), []models.Message{
		{ID: "1", Content: "hello", Chat: models.ChatRef{ID: "c1"}},
		{ID: "2", Type: models.MessageTypeFile, FileURL: "https://cdn/x/photo.PNG", Chat: models.ChatRef{ID: "c1"}},
		{ID: "3", Content: "https://example.com/page", Chat: models.ChatRef{ID: "c1"}},
		{ID: "4", FileURL: "https://cdn/x/report.pdf?sig=1", Chat: models.ChatRef{ID: "c1"}},
	}))

	assert.Equal(t, []string{"2"}, ids(stream.Media(models.MediaImage, models.MediaVideo)))
	assert.Equal(t, []string{"3"}, ids(stream.Media(models.MediaLink)))
	assert.Equal(t, []string{"4"}, ids(stream.Media(models.MediaPDF, models.MediaDocument)))
	assert.Empty(t, stream.Media())
}
