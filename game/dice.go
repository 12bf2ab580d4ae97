package game

// DieColor is the face color a die shows after a roll.
type DieColor string

const (
	ColorGreen  DieColor = "green"
	ColorYellow DieColor = "yellow"
	ColorRed    DieColor = "red"
)

// diceCount is the size of the shared die set every turn plays with.
const diceCount = 10

// dieFaces maps the six faces of a die to colors: 3 green, 2 yellow, 1 red.
var dieFaces = [6]DieColor{
	ColorGreen, ColorGreen, ColorGreen,
	ColorYellow, ColorYellow,
	ColorRed,
}

// Die is a single die in a room's set. A locked die keeps its color until
// the whole set is reset at a turn boundary or after all ten lock.
type Die struct {
	ID     int      `json:"id"`
	Color  DieColor `json:"color"`
	Locked bool     `json:"locked"`
}

// newDiceSet returns the ten dice in their neutral, unlocked state.
func newDiceSet() []Die {
	dice := make([]Die, diceCount)
	for i := range dice {
		dice[i] = Die{ID: i, Color: ColorYellow}
	}
	return dice
}
