package yandex

import "encoding/json"

type searchResponse struct {
	Result searchResult `json:"result"`
}

type searchResult struct {
	Tracks *trackMatches `json:"tracks"`
}

type trackMatches struct {
	Total   int        `json:"total"`
	Results []trackDTO `json:"results"`
}

type trackResponse struct {
	Result []trackDTO `json:"result"`
}

type trackDTO struct {
	ID         json.Number  `json:"id"`
	Title      string       `json:"title"`
	DurationMs int          `json:"durationMs"`
	Artists    []artistDTO  `json:"artists"`
	Albums     albumListDTO `json:"albums"`
	CoverURI   string       `json:"coverUri"`
}

type artistDTO struct {
	Name string `json:"name"`
}

type albumListDTO []albumDTO

func (a albumListDTO) Title() string {
	if len(a) == 0 {
		return ""
	}
	return a[0].Title
}

type albumDTO struct {
	Title string `json:"title"`
}

type downloadInfoResponse struct {
	Result []downloadInfoDTO `json:"result"`
}

type downloadInfoDTO struct {
	Codec   string `json:"codec"`
	Bitrate int    `json:"bitrateInKbps"`
	URL     string `json:"downloadInfoUrl"`
	Direct  bool   `json:"direct"`
	Preview bool   `json:"preview"`
}

// downloadInfoXML is the document served behind downloadInfoUrl.
type downloadInfoXML struct {
	Host   string `xml:"host"`
	Path   string `xml:"path"`
	TS     string `xml:"ts"`
	S      string `xml:"s"`
	Region string `xml:"region"`
}
