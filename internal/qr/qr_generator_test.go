package qr

import (
	"encoding/json"
	"testing"

	"ms-invites/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInvite() models.Invite {
	return models.Invite{
		EventID:   "event001",
		Code:      "F147",
		Kind:      models.KindPhysical,
		Tier:      models.TierFull,
		BuyerName: "Maria",
	}
}

func TestGenerateEncryptedQR(t *testing.T) {
	gen := NewQRGenerator("test-secret")

	png, err := gen.GenerateEncryptedQR(sampleInvite())
	require.NoError(t, err)
	require.NotEmpty(t, png)

	// PNG magic bytes.
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}

func TestPayloadRoundTrip(t *testing.T) {
	gen := NewQRGenerator("test-secret")

	data, err := json.Marshal(Payload{
		EventID:   "event001",
		Code:      "F147",
		Tier:      models.TierFull,
		Kind:      models.KindPhysical,
		BuyerName: "Maria",
	})
	require.NoError(t, err)

	encoded, err := encryptAES(data, gen.secret)
	require.NoError(t, err)

	payload, err := gen.DecodePayload(encoded)
	require.NoError(t, err)
	assert.Equal(t, "event001", payload.EventID)
	assert.Equal(t, "F147", payload.Code)
	assert.Equal(t, models.TierFull, payload.Tier)
	assert.Equal(t, models.KindPhysical, payload.Kind)
	assert.Equal(t, "Maria", payload.BuyerName)
}

func TestDecodePayloadWrongSecret(t *testing.T) {
	gen := NewQRGenerator("test-secret")
	other := NewQRGenerator("another-secret")

	data, err := json.Marshal(Payload{EventID: "event001", Code: "F147"})
	require.NoError(t, err)

	encoded, err := encryptAES(data, gen.secret)
	require.NoError(t, err)

	// Decrypting with the wrong key yields garbage, never a valid payload.
	_, err = other.DecodePayload(encoded)
	assert.Error(t, err)
}

func TestDecodePayloadRejectsShortCiphertext(t *testing.T) {
	gen := NewQRGenerator("test-secret")

	_, err := gen.DecodePayload("c2hvcnQ=")
	assert.Error(t, err)
}

func TestCiphertextVariesPerGeneration(t *testing.T) {
	gen := NewQRGenerator("test-secret")
	invite := sampleInvite()

	// Random IV: the same invite never encrypts to the same bytes.
	png1, err := gen.GenerateEncryptedQR(invite)
	require.NoError(t, err)
	png2, err := gen.GenerateEncryptedQR(invite)
	require.NoError(t, err)
	assert.NotEqual(t, png1, png2)
}
