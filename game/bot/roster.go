package bot

var (
	DefaultNames   = []string{"RobotX", "DiceBot", "AlphaRoll", "BetaThrow", "GammaJet", "DeltaDice"}
	DefaultAvatars = []string{"🤖", "🦾", "⚙️", "🎰", "🔮", "🎯"}
)

// Roster is the pool of identities handed out to bots joining a room.
type Roster struct {
	Names   []string
	Avatars []string
}

// DefaultRoster returns the built-in bot identities.
func DefaultRoster() Roster {
	return Roster{
		Names:   append([]string{}, DefaultNames...),
		Avatars: append([]string{}, DefaultAvatars...),
	}
}

// Pick returns the identity of the next bot given how many bots the room
// already holds. Identities cycle once the roster is exhausted.
func (r Roster) Pick(botCount int) (name, avatar string) {
	names, avatars := r.Names, r.Avatars
	if len(names) == 0 {
		names, avatars = DefaultNames, DefaultAvatars
	}
	idx := botCount % len(names)
	if idx < 0 {
		idx += len(names)
	}
	name = names[idx]
	if idx < len(avatars) {
		avatar = avatars[idx]
	} else {
		avatar = DefaultAvatars[idx%len(DefaultAvatars)]
	}
	return name, avatar
}
