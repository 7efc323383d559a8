package scoring

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	optionNone uint8 = 0
	optionSome uint8 = 1
)

// DecodeMint parses a Mint from account data. The data must be exactly
// expectedSize bytes long, otherwise ErrDataTypeMismatch is returned before
// any byte is interpreted. Content errors are reported as ErrInvalidAccountData.
func DecodeMint(data []byte, expectedSize int) (*Mint, error) {
	if len(data) != expectedSize {
		return nil, ErrDataTypeMismatch
	}

	var m Mint
	if err := m.UnmarshalWithDecoder(bin.NewBinDecoder(data)); err != nil {
		return nil, err
	}
	return &m, nil
}

// EncodeMint serializes m into a MintSize buffer.
func EncodeMint(m *Mint) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, MintSize))
	if err := m.MarshalWithEncoder(bin.NewBinEncoder(buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalWithEncoder implements bin.BinaryMarshaler.
func (m *Mint) MarshalWithEncoder(encoder *bin.Encoder) error {
	if !m.State.valid() {
		return fmt.Errorf("%w: state %d", ErrInvalidAccountData, m.State)
	}
	if err := ValidateMetadataURI(m.MetadataURI); err != nil {
		return err
	}

	if err := encoder.WriteBytes(m.ScoreAuthority[:], false); err != nil {
		return err
	}

	// The freeze authority slot is always 33 bytes so the record size is static.
	var freeze solana.PublicKey
	flag := optionNone
	if m.FreezeAuthority != nil {
		flag = optionSome
		freeze = *m.FreezeAuthority
	}
	if err := encoder.WriteUint8(flag); err != nil {
		return err
	}
	if err := encoder.WriteBytes(freeze[:], false); err != nil {
		return err
	}

	if err := encoder.WriteUint8(uint8(m.State)); err != nil {
		return err
	}

	var uri [MaxMetadataURILen]byte
	copy(uri[:], m.MetadataURI)
	return encoder.WriteBytes(uri[:], false)
}

// UnmarshalWithDecoder implements bin.BinaryUnmarshaler.
func (m *Mint) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	authority, err := decoder.ReadNBytes(pubkeyLen)
	if err != nil {
		return fmt.Errorf("%w: score authority: %v", ErrInvalidAccountData, err)
	}
	m.ScoreAuthority = solana.PublicKeyFromBytes(authority)

	flag, err := decoder.ReadUint8()
	if err != nil {
		return fmt.Errorf("%w: freeze flag: %v", ErrInvalidAccountData, err)
	}
	freeze, err := decoder.ReadNBytes(pubkeyLen)
	if err != nil {
		return fmt.Errorf("%w: freeze authority: %v", ErrInvalidAccountData, err)
	}
	switch flag {
	case optionNone:
		m.FreezeAuthority = nil
	case optionSome:
		key := solana.PublicKeyFromBytes(freeze)
		m.FreezeAuthority = &key
	default:
		return fmt.Errorf("%w: freeze flag %d", ErrInvalidAccountData, flag)
	}

	state, err := decoder.ReadUint8()
	if err != nil {
		return fmt.Errorf("%w: state: %v", ErrInvalidAccountData, err)
	}
	m.State = MintState(state)
	if !m.State.valid() {
		return fmt.Errorf("%w: state tag %d", ErrInvalidAccountData, state)
	}

	raw, err := decoder.ReadNBytes(MaxMetadataURILen)
	if err != nil {
		return fmt.Errorf("%w: metadata uri: %v", ErrInvalidAccountData, err)
	}
	uri, err := parseMetadataURI(raw)
	if err != nil {
		return err
	}
	m.MetadataURI = uri
	return nil
}

// parseMetadataURI strips the NUL padding; anything after the first NUL must also be padding.
func parseMetadataURI(raw []byte) (string, error) {
	n := bytes.IndexByte(raw, 0)
	if n < 0 {
		n = len(raw)
	}
	for _, b := range raw[n:] {
		if b != 0 {
			return "", fmt.Errorf("%w: metadata uri padding", ErrInvalidAccountData)
		}
	}
	if !utf8.Valid(raw[:n]) {
		return "", fmt.Errorf("%w: metadata uri is not utf-8", ErrInvalidAccountData)
	}
	return string(raw[:n]), nil
}

// ValidateMetadataURI checks that uri fits the fixed URI slot and survives
// the NUL-padded encoding unchanged.
func ValidateMetadataURI(uri string) error {
	if len(uri) > MaxMetadataURILen {
		return ErrMetadataURITooLong
	}
	if strings.IndexByte(uri, 0) >= 0 || !utf8.ValidString(uri) {
		return ErrInvalidMetadataURI
	}
	return nil
}
