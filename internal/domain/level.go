package domain

// Level is a display tier derived from a trust score. Color is a palette
// token clients map onto their own foreground and badge styles.
type Level struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Color    string `json:"color"`
	MinScore int    `json:"min_score"`
}

var levels = []Level{
	{Name: "Elite", Slug: "elite", Color: "purple", MinScore: 90},
	{Name: "Excellent", Slug: "excellent", Color: "green", MinScore: 80},
	{Name: "Good", Slug: "good", Color: "blue", MinScore: 70},
	{Name: "Fair", Slug: "fair", Color: "yellow", MinScore: 60},
	{Name: "Building", Slug: "building", Color: "orange", MinScore: 40},
	{Name: "New", Slug: "new", Color: "red", MinScore: MinTrustScore},
}

// ClassifyLevel maps score to its tier. Scores outside [0,100] are clamped first.
func ClassifyLevel(score int) Level {
	score = clampScore(score)
	for _, level := range levels {
		if score >= level.MinScore {
			return level
		}
	}
	return levels[len(levels)-1]
}

// Levels returns every tier, highest first.
func Levels() []Level {
	out := make([]Level, len(levels))
	copy(out, levels)
	return out
}
