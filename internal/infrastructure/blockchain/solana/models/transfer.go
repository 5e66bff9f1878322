package models

type Transfer struct {
	Type        string
	Source      string
	Destination string
	Authority   string
	TokenMint   string
	Amount      uint64
	Index       int
}
