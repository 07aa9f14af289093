package server

import (
	"encoding/json"
	"testing"

	"github.com/halloffame12/NexusChat/internal/types"
	"github.com/stretchr/testify/assert"
)

func Test_serverMessageSerialization(t *testing.T) {
	t.Run("only the set variant is emitted", func(t *testing.T) {
		msg := &ServerMessage{
			TypingStarted: &TypingEvent{ChatId: "global", Username: "alice"},
		}

		bytes, err := json.Marshal(msg)
		assert.NoError(t, err, "expected no error during serialization")
		assert.Equal(t,
			`{"typing_started":{"chat_id":"global","username":"alice"}}`,
			string(bytes),
			"expected only the typing_started field on the wire")
	})

	t.Run("message payload shape", func(t *testing.T) {
		msg := &ServerMessage{
			NewMessage: &types.Message{
				Id:             "m1",
				SenderId:       "u1",
				RecipientId:    types.GlobalChannelId,
				Text:           "hi",
				Timestamp:      1700000000000,
				SenderUsername: "Alice",
				ReadBy:         []string{},
				Reactions:      map[string][]string{},
			},
		}

		bytes, err := json.Marshal(msg)
		assert.NoError(t, err, "expected no error during serialization")
		assert.Equal(t,
			`{"new_message":{"id":"m1","sender_id":"u1","recipient_id":"global",`+
				`"text":"hi","timestamp":1700000000000,"sender_username":"Alice",`+
				`"is_edited":false,"read_by":[],"reactions":{}}}`,
			string(bytes),
			"expected empty read set and reactions to serialize as [] and {}")
	})
}

func Test_clientMessageParsing(t *testing.T) {
	raw := `{"login":{"username":"Alice","gender":"Female","age":30}}`

	var msg ClientMessage
	err := json.Unmarshal([]byte(raw), &msg)
	assert.NoError(t, err, "expected no error parsing a login request")
	assert.NotNil(t, msg.Login, "expected the login variant to be set")
	assert.Equal(t, "Alice", msg.Login.Username, "expected the username")
	assert.Equal(t, types.GenderFemale, msg.Login.Gender, "expected the gender")
	assert.Equal(t, 30, msg.Login.Age, "expected the age")
	assert.Nil(t, msg.Publish, "expected no other variant to be set")
}
