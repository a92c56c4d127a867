package models

import "time"

// CatalogPage is one page of a board catalog as returned by the JSON API
type CatalogPage struct {
	Page    int             `json:"page"`
	Threads []CatalogThread `json:"threads"`
}

// CatalogThread is a thread entry in a catalog listing
type CatalogThread struct {
	No      int64  `json:"no"`
	Sticky  int    `json:"sticky,omitempty"`
	Closed  int    `json:"closed,omitempty"`
	Time    int64  `json:"time"`
	Sub     string `json:"sub,omitempty"`
	Com     string `json:"com,omitempty"`
	Replies int    `json:"replies"`
	Images  int    `json:"images"`
}

// Thread is a full thread: OP first, replies in posting order
type Thread struct {
	Posts []ThreadPost `json:"posts"`
}

// ThreadPost is one post inside a thread
type ThreadPost struct {
	No     int64  `json:"no"`
	Resto  int64  `json:"resto"`
	Sticky int    `json:"sticky,omitempty"`
	Time   int64  `json:"time"`
	Sub    string `json:"sub,omitempty"`
	Com    string `json:"com,omitempty"`
}

// CatalogSnapshot is the stored raw catalog of a board
type CatalogSnapshot struct {
	Board     string          `json:"board" badgerhold:"key"`
	Threads   []CatalogThread `json:"threads"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// ThreadSnapshot is a stored raw thread
type ThreadSnapshot struct {
	ID        string       `json:"id" badgerhold:"key"` // "{board}/{no}"
	Board     string       `json:"board"`
	ThreadNo  int64        `json:"thread_no"`
	Posts     []ThreadPost `json:"posts"`
	FetchedAt time.Time    `json:"fetched_at"`
}

// ProcessedPost is a sanitized post text
type ProcessedPost struct {
	Text string `json:"text"`
}

// ProcessedSnapshot holds the sanitized corpus of one board for one mode
type ProcessedSnapshot struct {
	ID          string          `json:"id" badgerhold:"key"` // "{board}/{mode}"
	Board       string          `json:"board"`
	Mode        string          `json:"mode"`
	Posts       []ProcessedPost `json:"posts"`
	ProcessedAt time.Time       `json:"processed_at"`
}
