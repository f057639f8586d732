package steam

// ownedGamesResponse is the GetOwnedGames envelope
type ownedGamesResponse struct {
	Response struct {
		GameCount int         `json:"game_count"`
		Games     []ownedGame `json:"games"`
	} `json:"response"`
}

type ownedGame struct {
	AppID int64  `json:"appid"`
	Name  string `json:"name"`
}

// appDetailsResult is one entry of the storefront appdetails response,
// keyed by app id in the envelope
type appDetailsResult struct {
	Success bool           `json:"success"`
	Data    appDetailsData `json:"data"`
}

type appDetailsData struct {
	Name             string       `json:"name"`
	ShortDescription string       `json:"short_description"`
	Genres           []genreEntry `json:"genres"`
}

type genreEntry struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}
