package octane

type tokenFee struct {
	Mint     string `json:"mint"`
	Account  string `json:"account"`
	Decimals uint8  `json:"decimals"`
	Fee      uint64 `json:"fee"`
}

type endpoint struct {
	Tokens []tokenFee `json:"tokens"`
}

type configResponse struct {
	FeePayer             string `json:"feePayer"`
	RPCURL               string `json:"rpcUrl"`
	MaxSignatures        uint   `json:"maxSignatures"`
	LamportsPerSignature uint64 `json:"lamportsPerSignature"`
	Endpoints            struct {
		Transfer                endpoint `json:"transfer"`
		CreateAssociatedAccount endpoint `json:"createAssociatedAccount"`
	} `json:"endpoints"`
}

type submitRequest struct {
	Transaction string `json:"transaction"`
}

type submitResponse struct {
	Status    string `json:"status"`
	Signature string `json:"signature"`
	Message   string `json:"message"`
	Error     string `json:"error"`
}
