package component

type Link struct {
	URI   string
	Title string
}

var LinkComponent = NewComponent[Link]("link")

type SpawnPoint struct {
	Title string
	Team  string
	Group string
}

var SpawnPointComponent = NewComponent[SpawnPoint]("spawn_point")

type Personality struct {
	Agent          string
	Personality    string
	DefaultMessage string
}

var PersonalityComponent = NewComponent[Personality]("personality")
