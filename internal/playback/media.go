package playback

// Media is the single media element a session drives. Play may fail, for
// example when the browser blocks autoplay; sessions ignore that failure.
type Media interface {
	SetSource(src string)
	CurrentTime() float64
	Seek(seconds float64)
	Duration() float64
	Play() error
	Pause()
	Paused() bool
}

// Event is a notification raised by the media element.
type Event int

const (
	EventPlay Event = iota
	EventPause
	EventEnded
	EventTimeUpdate
	EventMetadataLoaded
)

var eventNames = map[Event]string{
	EventPlay:           "play",
	EventPause:          "pause",
	EventEnded:          "ended",
	EventTimeUpdate:     "timeupdate",
	EventMetadataLoaded: "loadedmetadata",
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return "unknown"
}

// ParseEvent maps the DOM event name back to an Event.
func ParseEvent(name string) (Event, bool) {
	for ev, n := range eventNames {
		if n == name {
			return ev, true
		}
	}
	return 0, false
}
