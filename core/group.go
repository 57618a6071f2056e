package core

// Participant describes one member of a group session's roster. Display
// names are used for speaker attribution; the engine attributes a reply to
// the first participant (in roster order) whose name matches.
type Participant struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Persona string `json:"persona,omitempty"`
}

// GroupSession is a session plus an ordered participant roster and a
// scenario description. Replies are attributed to one participant or left
// unattributed.
type GroupSession struct {
	*Session

	Participants []Participant `json:"participants"`
	Scenario     string        `json:"scenario,omitempty"`
}

// NewGroupSession creates a new empty group session with the given ID.
func NewGroupSession(id string) *GroupSession {
	return &GroupSession{Session: NewSession(id), Participants: []Participant{}}
}

// ParticipantNames returns the display names in roster order.
func (g *GroupSession) ParticipantNames() []string {
	names := make([]string, len(g.Participants))
	for i, p := range g.Participants {
		names[i] = p.Name
	}
	return names
}

// Participant returns the roster entry with the given ID.
func (g *GroupSession) Participant(id string) (Participant, bool) {
	for _, p := range g.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}

// Clone returns a deep copy of the group session.
func (g *GroupSession) Clone() *GroupSession {
	clone := &GroupSession{
		Session:      g.Session.Clone(),
		Participants: make([]Participant, len(g.Participants)),
		Scenario:     g.Scenario,
	}
	copy(clone.Participants, g.Participants)
	return clone
}
