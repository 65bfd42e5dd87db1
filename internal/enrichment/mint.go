package enrichment

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
)

// SPL Token Mint layout (82 bytes):
// - mintAuthority: COption<Pubkey> (36 bytes: 4 + 32)
// - supply: u64 (8 bytes)
// - decimals: u8 (1 byte)
// - isInitialized: bool (1 byte)
// - freezeAuthority: COption<Pubkey> (36 bytes: 4 + 32)
const mintLayoutSize = 82

// mintAccount is the decoded SPL mint.
type mintAccount struct {
	MintAuthority   string // empty when unset
	Supply          uint64
	Decimals        uint8
	Initialized     bool
	FreezeAuthority string // empty when unset
}

func parseMint(data string) (*mintAccount, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrMalformedMint, err)
	}
	// Token-2022 mints carry extensions after the base layout.
	if len(decoded) < mintLayoutSize {
		return nil, fmt.Errorf("%w: data too short: %d", ErrMalformedMint, len(decoded))
	}

	mintAuth, err := readCOptionPubkey(decoded[0:36])
	if err != nil {
		return nil, fmt.Errorf("%w: mint authority: %v", ErrMalformedMint, err)
	}
	freezeAuth, err := readCOptionPubkey(decoded[46:82])
	if err != nil {
		return nil, fmt.Errorf("%w: freeze authority: %v", ErrMalformedMint, err)
	}

	m := &mintAccount{
		MintAuthority:   mintAuth,
		Supply:          binary.LittleEndian.Uint64(decoded[36:44]),
		Decimals:        decoded[44],
		Initialized:     decoded[45] == 1,
		FreezeAuthority: freezeAuth,
	}
	if !m.Initialized {
		return nil, fmt.Errorf("%w: mint not initialized", ErrMalformedMint)
	}
	return m, nil
}

// readCOptionPubkey decodes a 36-byte COption<Pubkey>: u32 tag then 32 bytes.
func readCOptionPubkey(b []byte) (string, error) {
	switch tag := binary.LittleEndian.Uint32(b[0:4]); tag {
	case 0:
		return "", nil
	case 1:
		return base58.Encode(b[4:36]), nil
	default:
		return "", fmt.Errorf("invalid option tag %d", tag)
	}
}
