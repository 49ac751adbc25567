package redcache

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// OTPStore хранит одноразовые коды подтверждения email с TTL.
type OTPStore struct {
	c   *redis.Client
	ttl time.Duration
}

func NewOTPStore(addr string, ttl time.Duration) *OTPStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &OTPStore{
		c:   redis.NewClient(&redis.Options{Addr: addr}),
		ttl: ttl,
	}
}

func otpKey(email string) string {
	return fmt.Sprintf("otp:%s", email)
}

// Issue генерирует 6-значный код и кладёт его с TTL, перетирая прежний
// (resend выдаёт новый код, старый перестаёт действовать).
func (s *OTPStore) Issue(ctx context.Context, email string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", errors.Wrap(err, "otp rand")
	}
	code := fmt.Sprintf("%06d", n.Int64())
	if err := s.c.Set(ctx, otpKey(email), code, s.ttl).Err(); err != nil {
		return "", errors.Wrap(err, "otp set")
	}
	return code, nil
}

// Verify сравнивает код и при совпадении удаляет его (одноразовость).
func (s *OTPStore) Verify(ctx context.Context, email, code string) (bool, error) {
	stored, err := s.c.Get(ctx, otpKey(email)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "otp get")
	}
	if stored != code {
		return false, nil
	}
	if err := s.c.Del(ctx, otpKey(email)).Err(); err != nil {
		return false, errors.Wrap(err, "otp del")
	}
	return true, nil
}
