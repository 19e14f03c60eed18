package gamedb

// Game is a single metadata record returned by the API. Optional attributes
// decode to their zero values; use the Has* helpers rather than ad hoc
// presence checks.
type Game struct {
	ID                int64             `json:"id"`
	Name              string            `json:"name"`
	AlternativeNames  []AlternativeName `json:"alternative_names"`
	Platforms         []int64           `json:"platforms"`
	FirstReleaseDate  int64             `json:"first_release_date"`
	Summary           string            `json:"summary"`
	Storyline         string            `json:"storyline"`
	Genres            []Genre           `json:"genres"`
	InvolvedCompanies []InvolvedCompany `json:"involved_companies"`
	TotalRating       float64           `json:"total_rating"`
	TotalRatingCount  int64             `json:"total_rating_count"`
	Category          int               `json:"category"`
	Status            int               `json:"status"`
	GameModes         []int64           `json:"game_modes"`
	Keywords          []int64           `json:"keywords"`
	AgeRatings        []int64           `json:"age_ratings"`
	Collection        *Collection       `json:"collection"`
	Franchise         *Collection       `json:"franchise"`
	Cover             *Image            `json:"cover"`
	Screenshots       []Image           `json:"screenshots"`
}

// AlternativeName is a localized or alternate title for a game.
type AlternativeName struct {
	Name string `json:"name"`
}

// Genre is an expanded genre reference.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// InvolvedCompany links a company to a game with its role.
type InvolvedCompany struct {
	Company   Company `json:"company"`
	Developer bool    `json:"developer"`
	Publisher bool    `json:"publisher"`
}

// Company is an expanded company reference.
type Company struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Collection is an expanded series/franchise reference.
type Collection struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Image is an expanded cover or screenshot reference.
type Image struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}

// HasReleaseDate reports whether the API supplied a release timestamp.
func (g Game) HasReleaseDate() bool { return g.FirstReleaseDate > 0 }

// HasRating reports whether the API supplied an aggregate rating.
func (g Game) HasRating() bool { return g.TotalRatingCount > 0 }

// AltNames returns the plain alternate name strings.
func (g Game) AltNames() []string {
	if len(g.AlternativeNames) == 0 {
		return nil
	}
	names := make([]string, 0, len(g.AlternativeNames))
	for _, alt := range g.AlternativeNames {
		if alt.Name != "" {
			names = append(names, alt.Name)
		}
	}
	return names
}

// OnPlatform reports whether the game lists the given platform identifier.
// A zero platformID never matches.
func (g Game) OnPlatform(platformID int) bool {
	if platformID <= 0 {
		return false
	}
	for _, id := range g.Platforms {
		if id == int64(platformID) {
			return true
		}
	}
	return false
}

// CompanyNames returns the names of all involved companies.
func (g Game) CompanyNames() []string {
	if len(g.InvolvedCompanies) == 0 {
		return nil
	}
	names := make([]string, 0, len(g.InvolvedCompanies))
	for _, ic := range g.InvolvedCompanies {
		if ic.Company.Name != "" {
			names = append(names, ic.Company.Name)
		}
	}
	return names
}

// ScreenshotURLs returns the remote URLs of all screenshots.
func (g Game) ScreenshotURLs() []string {
	if len(g.Screenshots) == 0 {
		return nil
	}
	urls := make([]string, 0, len(g.Screenshots))
	for _, shot := range g.Screenshots {
		if shot.URL != "" {
			urls = append(urls, shot.URL)
		}
	}
	return urls
}
