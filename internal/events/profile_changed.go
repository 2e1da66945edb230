package events

var ProfileChangedTopic = "ProfileChangedEvent"

type ProfileChanged struct {
	Name string
}
