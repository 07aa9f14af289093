package types

// GlobalChannelId is the recipient token addressing the shared public
// channel. Any other recipient id is a user id and selects the private
// channel between sender and recipient.
const GlobalChannelId = "global"

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

type User struct {
	Id       string `json:"id"`
	Username string `json:"username"`
	Gender   Gender `json:"gender"`
	Age      int    `json:"age"`
	IsOnline bool   `json:"is_online"`
}

type Message struct {
	Id             string `json:"id"`
	SenderId       string `json:"sender_id"`
	RecipientId    string `json:"recipient_id"`
	Text           string `json:"text"`
	Timestamp      int64  `json:"timestamp"`
	SenderUsername string `json:"sender_username"`
	IsEdited       bool   `json:"is_edited"`
	// ReadBy only ever grows and never contains the sender's id.
	ReadBy []string `json:"read_by"`
	// Reactions maps an emoji to the ids of users who reacted with it.
	// An emoji whose reactor set becomes empty is removed from the map.
	Reactions map[string][]string `json:"reactions"`
}
