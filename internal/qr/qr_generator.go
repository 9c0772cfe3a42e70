package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"ms-invites/internal/models"

	"github.com/skip2/go-qrcode"
)

// Payload is what the gate scanner reads back out of a QR image. Kept small:
// the code is the lookup key, the rest is display material.
type Payload struct {
	EventID   string            `json:"event_id"`
	Code      string            `json:"code"`
	Tier      models.Tier       `json:"tier"`
	Kind      models.InviteKind `json:"kind"`
	BuyerName string            `json:"buyer_name"`
}

type QRGenerator struct {
	secret []byte
}

func NewQRGenerator(secret string) *QRGenerator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &QRGenerator{secret: hashed[:]}
}

// GenerateEncryptedQR renders the invite's payload as an AES-encrypted QR
// PNG. The ciphertext keeps casual photo-forwarding from minting admissions;
// the gate still verifies state server-side.
func (q *QRGenerator) GenerateEncryptedQR(invite models.Invite) ([]byte, error) {
	payload := Payload{
		EventID:   invite.EventID,
		Code:      invite.Code,
		Tier:      invite.Tier,
		Kind:      invite.Kind,
		BuyerName: invite.BuyerName,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	encrypted, err := encryptAES(data, q.secret)
	if err != nil {
		return nil, err
	}

	return qrcode.Encode(encrypted, qrcode.Medium, 256)
}

// DecodePayload reverses encryptAES for a scanned QR string.
func (q *QRGenerator) DecodePayload(encoded string) (*Payload, error) {
	ciphertext, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < aes.BlockSize {
		return nil, fmt.Errorf("ciphertext shorter than IV")
	}

	block, err := aes.NewCipher(q.secret)
	if err != nil {
		return nil, err
	}

	iv := ciphertext[:aes.BlockSize]
	data := make([]byte, len(ciphertext)-aes.BlockSize)
	stream := cipher.NewCFBDecrypter(block, iv)
	stream.XORKeyStream(data, ciphertext[aes.BlockSize:])

	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decrypted payload is not a valid invite payload: %w", err)
	}
	return &payload, nil
}

func encryptAES(data []byte, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(data))
	iv := ciphertext[:aes.BlockSize]

	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], data)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}
