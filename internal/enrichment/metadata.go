package enrichment

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"token-radar/internal/solana"
)

const metadataKeyV1 = 4

// metadataAccount holds the Metaplex fields relevant to ownership.
type metadataAccount struct {
	UpdateAuthority string
	Mint            string
	Name            string
	Symbol          string
	IsMutable       bool
}

// renounced reports whether nobody can change the token metadata any more.
func (m *metadataAccount) renounced() bool {
	return !m.IsMutable || m.UpdateAuthority == solana.SystemProgramID
}

// deriveMetadataPDA derives the Metaplex metadata PDA for a given mint.
// Seeds: ["metadata", metaplex_program_id, mint]
func deriveMetadataPDA(mint string) (string, error) {
	mintBytes, err := base58.Decode(mint)
	if err != nil {
		return "", fmt.Errorf("decode mint: %w", err)
	}
	programBytes, err := base58.Decode(solana.MetadataProgramID)
	if err != nil {
		return "", fmt.Errorf("decode program: %w", err)
	}
	if len(mintBytes) != 32 || len(programBytes) != 32 {
		return "", fmt.Errorf("invalid key length")
	}

	return findProgramAddress([][]byte{[]byte("metadata"), programBytes, mintBytes}, programBytes)
}

// findProgramAddress searches bump seeds from 255 down for an off-curve hash.
func findProgramAddress(seeds [][]byte, programID []byte) (string, error) {
	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		for _, seed := range seeds {
			h.Write(seed)
		}
		h.Write([]byte{byte(bump)})
		h.Write(programID)
		h.Write([]byte("ProgramDerivedAddress"))
		sum := h.Sum(nil)

		if !isOnCurve(sum) {
			return base58.Encode(sum), nil
		}
	}
	return "", fmt.Errorf("no viable bump seed")
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// parseMetadata decodes a Metaplex Token Metadata account.
// Layout:
// - key: u8 (4 for MetadataV1)
// - updateAuthority: Pubkey
// - mint: Pubkey
// - name, symbol, uri: borsh String (u32 length + bytes)
// - sellerFeeBasisPoints: u16
// - creators: Option<Vec<Creator>>, Creator = Pubkey + verified u8 + share u8
// - primarySaleHappened: bool
// - isMutable: bool
func parseMetadata(data string) (*metadataAccount, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	r := &borshReader{buf: decoded}

	key, err := r.u8()
	if err != nil {
		return nil, err
	}
	if key != metadataKeyV1 {
		return nil, fmt.Errorf("unexpected metadata key %d", key)
	}

	m := &metadataAccount{}
	if m.UpdateAuthority, err = r.pubkey(); err != nil {
		return nil, err
	}
	if m.Mint, err = r.pubkey(); err != nil {
		return nil, err
	}
	if m.Name, err = r.str(); err != nil {
		return nil, err
	}
	if m.Symbol, err = r.str(); err != nil {
		return nil, err
	}
	if _, err = r.str(); err != nil { // uri
		return nil, err
	}
	if err = r.skip(2); err != nil { // seller fee
		return nil, err
	}

	hasCreators, err := r.u8()
	if err != nil {
		return nil, err
	}
	if hasCreators == 1 {
		n, err := r.u32()
		if err != nil {
			return nil, err
		}
		if err := r.skip(int(n) * 34); err != nil {
			return nil, err
		}
	}

	if err = r.skip(1); err != nil { // primary sale happened
		return nil, err
	}
	mutable, err := r.u8()
	if err != nil {
		return nil, err
	}
	m.IsMutable = mutable == 1
	return m, nil
}

type borshReader struct {
	buf []byte
	off int
}

func (r *borshReader) need(n int) error {
	if n < 0 || r.off+n > len(r.buf) {
		return fmt.Errorf("metadata truncated at offset %d", r.off)
	}
	return nil
}

func (r *borshReader) skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.off += n
	return nil
}

func (r *borshReader) u8() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

func (r *borshReader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

func (r *borshReader) pubkey() (string, error) {
	if err := r.need(32); err != nil {
		return "", err
	}
	v := base58.Encode(r.buf[r.off : r.off+32])
	r.off += 32
	return v, nil
}

func (r *borshReader) str() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	if n > 1024 {
		return "", fmt.Errorf("string length %d too large", n)
	}
	if err := r.need(int(n)); err != nil {
		return "", err
	}
	v := string(bytes.TrimRight(r.buf[r.off:r.off+int(n)], "\x00"))
	r.off += int(n)
	return v, nil
}
