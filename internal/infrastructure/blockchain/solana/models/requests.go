package models

type DeriveATARequest struct {
	Owner string
	Mint  string
}

// CreateATAInstructionRequest describes an associated-token-account creation
// funded by Funder on behalf of Owner.
type CreateATAInstructionRequest struct {
	Funder string
	Owner  string
	Mint   string
}

type TransferInstructionRequest struct {
	SourceATA      string
	DestinationATA string
	Authority      string
	Amount         uint64
}

type TransferCheckedInstructionRequest struct {
	SourceATA      string
	DestinationATA string
	Mint           string
	Authority      string
	Amount         uint64
	Decimals       uint8
}
