package solana

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}

// TokenAccountBalance is one entry of getTokenLargestAccounts.
// Amount is the raw integer balance as a decimal string (no decimals applied).
type TokenAccountBalance struct {
	Address  string
	Amount   string
	Decimals uint8
}

// Well-known program and account addresses.
const (
	SystemProgramID   = "11111111111111111111111111111111"
	TokenProgramID    = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	Token2022ID       = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
	MetadataProgramID = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"
)
