package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

const otpKeyPrefix = "otp:"

// OTPStore issues and verifies short-lived one-time passwords backed by
// Redis. Codes are four digits and expire after the configured TTL.
type OTPStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewOTPStore builds the store.
func NewOTPStore(client *redis.Client, ttlMinutes int) *OTPStore {
	if ttlMinutes <= 0 {
		ttlMinutes = 5
	}
	return &OTPStore{client: client, ttl: time.Duration(ttlMinutes) * time.Minute}
}

// Issue generates a fresh code for the email and stores it, replacing any
// previous unexpired code.
func (s *OTPStore) Issue(ctx context.Context, email string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, otpKeyPrefix+email, code, s.ttl).Err(); err != nil {
		return "", err
	}
	return code, nil
}

// Verify checks the code for the email and consumes it on success.
func (s *OTPStore) Verify(ctx context.Context, email, code string) (bool, error) {
	key := otpKeyPrefix + email
	stored, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if stored != code {
		return false, nil
	}
	_ = s.client.Del(ctx, key).Err()
	return true, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}
