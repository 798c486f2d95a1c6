package models

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Owner is an entry in a data source's remote-authoritative owner list.
type Owner struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}
