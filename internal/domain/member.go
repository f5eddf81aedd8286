package domain

// Member represents one live connection's participation in a room.
// No transport or lifecycle logic here.
type Member struct {
	Name   string   `json:"name"`
	Color  string   `json:"color"`
	Gender Gender   `json:"gender,omitempty"`
	Client ClientID `json:"clientId"`
	Room   RoomSlug `json:"room"`
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(name, color string, gender Gender, client ClientID, room RoomSlug) *Member {
	return &Member{
		Name:   name,
		Color:  color,
		Gender: gender,
		Client: client,
		Room:   room,
	}
}
