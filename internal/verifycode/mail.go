package verifycode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"hiring_assistant_backend/internal/email"
	"hiring_assistant_backend/internal/hiring/ports"
	"hiring_assistant_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const (
	codeDigits         = 6
	defaultCodeTTL     = 10 * time.Minute
	defaultMaxAttempts = 5
	mailKeyPrefix      = "hiring:verify:"
)

// MailProvider sends email codes itself. Codes are stored bcrypt-hashed in
// Redis and expire after the configured TTL. Phone codes are handed to the
// fallback provider when one is set.
type MailProvider struct {
	redis       *redis.Client
	sender      email.Sender
	fallback    ports.CodeProvider
	ttl         time.Duration
	maxAttempts int64
	log         *logger.Logger
}

// NewMailProvider creates the provider. fallback may be nil.
func NewMailProvider(client *redis.Client, sender email.Sender, fallback ports.CodeProvider, ttl time.Duration, log *logger.Logger) (*MailProvider, error) {
	if client == nil {
		return nil, errors.New("mail code provider requires a redis client")
	}
	if ttl <= 0 {
		ttl = defaultCodeTTL
	}
	return &MailProvider{
		redis:       client,
		sender:      sender,
		fallback:    fallback,
		ttl:         ttl,
		maxAttempts: defaultMaxAttempts,
		log:         log,
	}, nil
}

// SendCode generates a code for an email address and mails it.
func (p *MailProvider) SendCode(ctx context.Context, channel, contactValue string) (ports.SentCode, error) {
	if channel != "email" {
		if p.fallback == nil {
			return ports.SentCode{}, ErrUnsupportedChannel
		}
		sent, err := p.fallback.SendCode(ctx, channel, contactValue)
		if err != nil {
			return ports.SentCode{}, err
		}
		sent.UserID = fallbackPrefix + sent.UserID
		return sent, nil
	}

	code, err := generateCode()
	if err != nil {
		return ports.SentCode{}, fmt.Errorf("generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return ports.SentCode{}, fmt.Errorf("hash code: %w", err)
	}

	userID := uuid.NewString()
	pipe := p.redis.TxPipeline()
	pipe.Set(ctx, codeKey(userID), hash, p.ttl)
	pipe.Del(ctx, attemptsKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return ports.SentCode{}, fmt.Errorf("store code: %w", err)
	}

	if err := p.sender.SendVerificationCode(ctx, contactValue, "", code, p.ttl); err != nil {
		_ = p.redis.Del(ctx, codeKey(userID)).Err()
		return ports.SentCode{}, fmt.Errorf("mail code: %w", err)
	}
	p.log.Info("verification code mailed", "userId", userID)
	return ports.SentCode{UserID: userID}, nil
}

// ValidateCode checks code against the stored hash. A code is accepted once;
// after too many wrong attempts it is discarded.
func (p *MailProvider) ValidateCode(ctx context.Context, userID, code string) (bool, error) {
	if id, ok := cutFallback(userID); ok {
		if p.fallback == nil {
			return false, ErrUnsupportedChannel
		}
		return p.fallback.ValidateCode(ctx, id, code)
	}

	hash, err := p.redis.Get(ctx, codeKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load code: %w", err)
	}

	if bcrypt.CompareHashAndPassword(hash, []byte(code)) == nil {
		if err := p.redis.Del(ctx, codeKey(userID), attemptsKey(userID)).Err(); err != nil {
			p.log.Warn("failed to discard used code", "userId", userID, "error", err)
		}
		return true, nil
	}

	attempts, err := p.redis.Incr(ctx, attemptsKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("count attempts: %w", err)
	}
	_ = p.redis.Expire(ctx, attemptsKey(userID), p.ttl).Err()
	if attempts >= p.maxAttempts {
		_ = p.redis.Del(ctx, codeKey(userID)).Err()
		p.log.Warn("verification code discarded after failed attempts", "userId", userID, "attempts", attempts)
	}
	return false, nil
}

const fallbackPrefix = "fb:"

func cutFallback(userID string) (string, bool) {
	return strings.CutPrefix(userID, fallbackPrefix)
}

func codeKey(userID string) string     { return mailKeyPrefix + userID + ":code" }
func attemptsKey(userID string) string { return mailKeyPrefix + userID + ":attempts" }

func generateCode() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

var _ ports.CodeProvider = (*MailProvider)(nil)
