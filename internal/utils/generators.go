package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// GenerateSellerID produces a companheiro identifier like comp_1724834000_042.
func GenerateSellerID() string {
	timestamp := time.Now().Unix()
	randomNum, _ := rand.Int(rand.Reader, big.NewInt(999))
	return fmt.Sprintf("comp_%d_%03d", timestamp, randomNum.Int64())
}

// GenerateConfirmationID tags a payment confirmation for reconciliation logs.
func GenerateConfirmationID() string {
	timestamp := time.Now().Unix()
	randomNum, _ := rand.Int(rand.Reader, big.NewInt(999999999))
	return fmt.Sprintf("conf_%d_%09d", timestamp, randomNum.Int64())
}
